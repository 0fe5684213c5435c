// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package predictor

import "strings"

// cogTag is the parsed form of a `cog:"..."` struct tag: a comma-separated
// list of key=value pairs (bare keys, e.g. "deprecated", are stored as
// "true"). choices uses ";" as its sub-delimiter since "," is already the
// pair separator: cog:"choices=red;green;blue".
type cogTag map[string]string

func parseCogTag(tag string) cogTag {
	m := cogTag{}
	if tag == "" {
		return m
	}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i := strings.IndexByte(part, '='); i >= 0 {
			m[part[:i]] = part[i+1:]
		} else {
			m[part] = "true"
		}
	}
	return m
}

func (c cogTag) has(key string) bool {
	_, ok := c[key]
	return ok
}

func (c cogTag) strPtr(key string) *string {
	v, ok := c[key]
	if !ok {
		return nil
	}
	return &v
}

func (c cogTag) boolFlag(key string) bool {
	return c[key] == "true"
}
