// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package algebra implements the runner's value algebra: the closed set of
// primitive types a predictor's inputs and outputs can carry, their
// cardinality (required/optional/repeated), and the normalize/encode/decode
// operations every other package builds on. pkg/predictor consumes it to
// build an immutable PredictorInfo; pkg/openapi consumes it to emit a
// schema; pkg/adapter consumes it to validate a prediction request.
package algebra

import (
	"fmt"
	"log/slog"
)

// PrimitiveType is the closed set of value kinds a FieldType can carry. The
// constants are prefixed with Type to keep the identifier namespace free for
// the Path and Secret defined types below — Go gives consts and types the
// same namespace, so "Path PrimitiveType = iota" would collide with "type
// Path string" in the same package.
type PrimitiveType int

const (
	TypeBool PrimitiveType = iota
	TypeInteger
	TypeFloat
	TypeString
	TypePath
	TypeSecret
	TypeAny
	TypeCustom
)

// String renders the primitive type's name, used in error messages and
// constraint descriptions.
func (p PrimitiveType) String() string {
	switch p {
	case TypeBool:
		return "bool"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypePath:
		return "path"
	case TypeSecret:
		return "secret"
	case TypeAny:
		return "any"
	case TypeCustom:
		return "custom"
	default:
		return fmt.Sprintf("PrimitiveType(%d)", int(p))
	}
}

// IsNumeric reports whether ge/le constraints are applicable.
func (p PrimitiveType) IsNumeric() bool {
	return p == TypeInteger || p == TypeFloat
}

// Repetition is the closed set of field cardinalities.
type Repetition int

const (
	Required Repetition = iota
	Optional
	Repeated
)

func (r Repetition) String() string {
	switch r {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case Repeated:
		return "repeated"
	default:
		return fmt.Sprintf("Repetition(%d)", int(r))
	}
}

// FieldType pairs a PrimitiveType with a Repetition and, for TypeCustom,
// the CoderDescriptor identifying how to encode/decode it.
type FieldType struct {
	Primitive  PrimitiveType
	Repetition Repetition
	Coder      *CoderDescriptor
}

// Path is a predictor-declared filesystem or URI reference. It normalizes
// from a plain string and renders as its URI form when encoded to JSON.
type Path string

// Secret is a predictor-declared sensitive string. It renders as
// "**********" through slog (via LogValue below) and in any emitted schema,
// but Encode emits its true value — the encoding boundary crossed only
// when writing a response back to the parent orchestrator.
type Secret string

const secretMask = "**********"

// LogValue redacts the secret for every structured log call site; no
// call site needs its own masking.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(secretMask)
}

// String satisfies fmt.Stringer with the same redaction slog gets, so an
// accidental Printf of a Secret never leaks it either.
func (s Secret) String() string {
	return secretMask
}
