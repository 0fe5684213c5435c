// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package algebra

import "github.com/getkin/kin-openapi/openapi3"

// JSONSchema returns the OpenAPI fragment describing this primitive's wire
// shape, consumed by pkg/openapi when assembling the full document.
func (p PrimitiveType) JSONSchema() *openapi3.Schema {
	switch p {
	case TypeBool:
		return openapi3.NewBoolSchema()
	case TypeInteger:
		return openapi3.NewIntegerSchema()
	case TypeFloat:
		return openapi3.NewFloat64Schema()
	case TypeString:
		return openapi3.NewStringSchema()
	case TypePath:
		return openapi3.NewStringSchema().WithFormat("uri")
	case TypeSecret:
		s := openapi3.NewStringSchema().WithFormat("password")
		s.WriteOnly = true
		s.Extensions = map[string]interface{}{"x-cog-secret": true}
		return s
	case TypeAny:
		return openapi3.NewSchema()
	case TypeCustom:
		return openapi3.NewObjectSchema()
	default:
		return openapi3.NewSchema()
	}
}

// JSONSchema wraps the primitive's schema in an array envelope for REPEATED
// fields and marks OPTIONAL fields nullable, matching
// "FieldType.json_type() wraps REPEATED as {type:array, items:…}".
func (f FieldType) JSONSchema() *openapi3.Schema {
	base := f.Primitive.JSONSchema()

	if f.Repetition == Repeated {
		arr := openapi3.NewArraySchema()
		arr.Items = openapi3.NewSchemaRef("", base)
		return arr
	}

	if f.Repetition == Optional {
		base.Nullable = true
	}

	return base
}
