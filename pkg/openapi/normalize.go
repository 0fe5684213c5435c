// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package openapi

import "github.com/getkin/kin-openapi/openapi3"

// normalize walks the assembled document fixing two FastAPI/pydantic-era
// non-compliances the original schema generator patches after the fact:
// a redundant "title" sitting next to a bare "$ref" (OpenAPI/JSON Schema
// ignore sibling keywords next to $ref), and a two-arm "anyOf" encoding
// optionality ([T, null]) where OpenAPI 3.0 wants "nullable: true" instead.
// kin-openapi's own marshaling performs neither, so this runs once before
// serialization.
func normalize(doc *openapi3.T) {
	for _, ref := range doc.Components.Schemas {
		walkSchema(ref)
	}
	for _, item := range doc.Paths.Map() {
		walkPathItem(item)
	}
}

func walkPathItem(item *openapi3.PathItem) {
	for _, op := range []*openapi3.Operation{item.Get, item.Post, item.Put, item.Delete, item.Patch} {
		if op == nil {
			continue
		}
		if op.RequestBody != nil && op.RequestBody.Value != nil {
			for _, mt := range op.RequestBody.Value.Content {
				walkSchema(mt.Schema)
			}
		}
		if op.Responses != nil {
			for _, r := range op.Responses.Map() {
				if r.Value == nil {
					continue
				}
				for _, mt := range r.Value.Content {
					walkSchema(mt.Schema)
				}
			}
		}
	}
}

func walkSchema(ref *openapi3.SchemaRef) {
	if ref == nil || ref.Value == nil {
		return
	}
	s := ref.Value

	if ref.Ref != "" {
		s.Title = ""
	}

	if collapsed, nullable := collapseNullableAnyOf(s.AnyOf); collapsed != nil {
		*s = *collapsed
		s.Nullable = s.Nullable || nullable
		s.AnyOf = nil
	}

	for _, p := range s.Properties {
		walkSchema(p)
	}
	if s.Items != nil {
		walkSchema(s.Items)
	}
	for _, a := range s.AllOf {
		walkSchema(a)
	}
	for _, a := range s.AnyOf {
		walkSchema(a)
	}
	for _, o := range s.OneOf {
		walkSchema(o)
	}
}

// collapseNullableAnyOf detects the ["type", "null"] pattern and returns the
// non-null arm's schema plus true, or nil, false if anyOf does not match
// that shape.
func collapseNullableAnyOf(anyOf openapi3.SchemaRefs) (*openapi3.Schema, bool) {
	if len(anyOf) != 2 {
		return nil, false
	}

	var other *openapi3.Schema
	sawNull := false
	for _, ref := range anyOf {
		if ref == nil || ref.Value == nil {
			return nil, false
		}
		if isNullSchema(ref.Value) {
			sawNull = true
			continue
		}
		other = ref.Value
	}

	if !sawNull || other == nil {
		return nil, false
	}
	return other, true
}

func isNullSchema(s *openapi3.Schema) bool {
	return s.Type != nil && s.Type.Is("null")
}
