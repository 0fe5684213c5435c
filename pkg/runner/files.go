// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package runner implements the file-runner event loop (C6) and the
// lifecycle/signal handling around it (C7): the startup handshake with the
// parent orchestrator, the polling loop that watches the working directory
// for request and cancel files, concurrency-capped prediction scheduling,
// atomic response emission, and best-effort IPC status reporting.
package runner

import (
	"fmt"
	"regexp"
)

// requestPattern and cancelPattern are the filename regexes from §6: a
// request file names its pid between "request-" and ".json"; a cancel
// marker names it between "cancel-" and end of string. Both are the single
// source of truth the directory scanner relies on.
var (
	requestPattern = regexp.MustCompile(`^request-(\S+)\.json$`)
	cancelPattern  = regexp.MustCompile(`^cancel-(\S+)$`)
)

// Control filenames exchanged in the working directory (§6). The parent
// writes configFilename and stopFilename; the runner writes the rest.
const (
	configFilename       = "config.json"
	setupResultFilename  = "setup_result.json"
	openapiFilename      = "openapi.json"
	readyFilename        = "ready"
	stopFilename         = "stop"
	asyncPredictFilename = "async_predict"
)

// responseFilename builds the epoch-padded response filename for pid:
// "response-<pid>-<epoch:05d>.json" (§6).
func responseFilename(pid string, epoch int) string {
	return fmt.Sprintf("response-%s-%05d.json", pid, epoch)
}

// matchRequest reports whether name is a request file and, if so, extracts
// its pid.
func matchRequest(name string) (string, bool) {
	m := requestPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// matchCancel reports whether name is a cancel marker and, if so, extracts
// its pid.
func matchCancel(name string) (string, bool) {
	m := cancelPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}
