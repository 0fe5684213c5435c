// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package predictor

import "github.com/leseb/prediction-runner/pkg/algebra"

// InputField is an immutable description of one predictor input, built
// once by BuildInfo from a cog struct tag and never mutated afterward.
type InputField struct {
	Name        string
	Order       int
	Type        algebra.FieldType
	Description string

	// Default, when non-nil, is substituted for a missing value during
	// check_input (pkg/adapter). A field with no Default, no DefaultFactory
	// and Type.Repetition other than algebra.Optional is required.
	Default *any
	// DefaultFactory stands in for Python's mutable-default factories
	// (cog:"default_factory=..."): invoked once at BuildInfo time to
	// validate the produced value against this field's constraints, and
	// once per prediction to apply it.
	DefaultFactory func() (any, error)

	// Constraint attributes. ge/le require a numeric primitive;
	// min_length/max_length/regex require TypeString; choices requires
	// TypeInteger or TypeString, |choices| >= 2, and is mutually exclusive
	// with ge/le and min_length/max_length (enforced by BuildInfo).
	Ge         *float64
	Le         *float64
	MinLength  *int
	MaxLength  *int
	Regex      *string
	Choices    []any
	Deprecated bool
}

// OutputKind is the closed set of predictor output shapes.
type OutputKind int

const (
	Single OutputKind = iota
	List
	Iterator
	ConcatIterator
	Object
)

func (k OutputKind) String() string {
	switch k {
	case Single:
		return "single"
	case List:
		return "list"
	case Iterator:
		return "iterator"
	case ConcatIterator:
		return "concat_iterator"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// OutputField is one named member of an OBJECT-kind OutputType, ordered as
// declared.
type OutputField struct {
	Name string
	Type algebra.FieldType
}

// OutputType describes a predictor's return shape. For SINGLE, LIST,
// ITERATOR, and CONCAT_ITERATOR, Primitive (+ Coder) describes the scalar
// or element type; for OBJECT, Fields holds the ordered member list.
// Invariants enforced by BuildInfo: iterator element types are always
// REQUIRED; a CONCAT_ITERATOR's element primitive is always TypeString; an
// OutputType is never itself OPTIONAL.
type OutputType struct {
	Kind      OutputKind
	Primitive algebra.PrimitiveType
	Coder     *algebra.CoderDescriptor
	Fields    []OutputField
}

// PredictorInfo is the immutable, fully-resolved description of a
// registered predictor, built once at startup by BuildInfo. The input list
// is held in unexported slice/map fields behind accessor methods, so it is
// read-only after construction; ModuleRef, SymbolRef and Output are
// exported fields that nothing prevents a caller from changing.
type PredictorInfo struct {
	ModuleRef string
	SymbolRef string
	Output    OutputType

	inputs     []InputField
	inputIndex map[string]int
}

// Inputs returns the declared input fields in declaration order. The
// returned slice is a copy; mutating it does not affect the PredictorInfo.
func (p *PredictorInfo) Inputs() []InputField {
	out := make([]InputField, len(p.inputs))
	copy(out, p.inputs)
	return out
}

// Input looks up a declared input field by name.
func (p *PredictorInfo) Input(name string) (InputField, bool) {
	i, ok := p.inputIndex[name]
	if !ok {
		return InputField{}, false
	}
	return p.inputs[i], true
}
