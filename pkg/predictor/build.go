// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package predictor

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/leseb/prediction-runner/pkg/algebra"
)

// ConcatString marks a streaming predictor's yielded element as text meant
// to be displayed concatenated, the Go-native stand-in for spec.md's
// "ConcatenateIterator[str]" annotation. A StreamingPredictor whose
// NewOutput returns ConcatString("") produces OutputKind ConcatIterator
// instead of plain Iterator.
type ConcatString string

var (
	pathType    = reflect.TypeOf(algebra.Path(""))
	secretType  = reflect.TypeOf(algebra.Secret(""))
	concatType  = reflect.TypeOf(ConcatString(""))
)

// BuildInfo runs the introspection pass (C2) over a constructed predictor:
// it reflects over NewInput()/NewOutput() to build the InputField list and
// OutputType, validates the constraint invariants from spec.md §3, and
// returns an immutable PredictorInfo. moduleRef/symbolRef identify which
// registration produced p and are carried through unchanged for logging and
// error messages.
func BuildInfo(moduleRef, symbolRef string, p Predictor) (*PredictorInfo, error) {
	inSchema, ok := p.(InputSchema)
	if !ok {
		return nil, fmt.Errorf("predictor %s.%s: must implement predictor.InputSchema", moduleRef, symbolRef)
	}
	outSchema, ok := p.(OutputSchema)
	if !ok {
		return nil, fmt.Errorf("predictor %s.%s: must implement predictor.OutputSchema", moduleRef, symbolRef)
	}

	inputs, err := buildInputFields(inSchema.NewInput())
	if err != nil {
		return nil, fmt.Errorf("predictor %s.%s: %w", moduleRef, symbolRef, err)
	}

	_, streaming := p.(StreamingPredictor)
	output, err := buildOutputType(outSchema.NewOutput(), streaming)
	if err != nil {
		return nil, fmt.Errorf("predictor %s.%s: %w", moduleRef, symbolRef, err)
	}

	index := make(map[string]int, len(inputs))
	for i, f := range inputs {
		index[f.Name] = i
	}

	return &PredictorInfo{
		ModuleRef:  moduleRef,
		SymbolRef:  symbolRef,
		Output:     output,
		inputs:     inputs,
		inputIndex: index,
	}, nil
}

func buildInputFields(zero any) ([]InputField, error) {
	rv := reflect.ValueOf(zero)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, fmt.Errorf("NewInput must return a non-nil pointer to a struct, got %T", zero)
	}
	st := rv.Elem().Type()
	if st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("NewInput must point to a struct, got %s", st.Kind())
	}

	fields := make([]InputField, 0, st.NumField())
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() {
			continue
		}

		tag := parseCogTag(sf.Tag.Get("cog"))
		name := sf.Name
		if n, ok := tag["name"]; ok {
			name = n
		}

		repetition := algebra.Required
		elemType := sf.Type
		switch sf.Type.Kind() {
		case reflect.Ptr:
			repetition = algebra.Optional
			elemType = sf.Type.Elem()
		case reflect.Slice:
			repetition = algebra.Repeated
			elemType = sf.Type.Elem()
		}

		primitive, coder, err := primitiveForGoType(elemType, tag)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}

		if repetition == algebra.Optional && tag["default"] == "null" {
			return nil, fmt.Errorf("field %s: optional field has redundant default=null (a nil pointer already models the null default)", name)
		}
		if repetition != algebra.Optional && tag["default"] == "null" {
			return nil, fmt.Errorf("field %s: non-optional field declares default=null, which is ambiguous between required and optional", name)
		}

		field := InputField{
			Name:        name,
			Order:       i,
			Type:        algebra.FieldType{Primitive: primitive, Repetition: repetition, Coder: coder},
			Description: derefOr(tag.strPtr("description"), ""),
			Regex:       tag.strPtr("regex"),
			Deprecated:  tag.boolFlag("deprecated"),
		}

		if v, ok := tag["ge"]; ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("field %s: ge=%q: %w", name, v, err)
			}
			field.Ge = &f
		}
		if v, ok := tag["le"]; ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("field %s: le=%q: %w", name, v, err)
			}
			field.Le = &f
		}
		if v, ok := tag["min_length"]; ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("field %s: min_length=%q: %w", name, v, err)
			}
			field.MinLength = &n
		}
		if v, ok := tag["max_length"]; ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("field %s: max_length=%q: %w", name, v, err)
			}
			field.MaxLength = &n
		}
		if v, ok := tag["choices"]; ok {
			choices, err := parseChoices(primitive, v)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			field.Choices = choices
		}

		if err := validateFieldShape(field); err != nil {
			return nil, err
		}

		if v, ok := tag["default_factory"]; ok {
			factory, err := lookupDefaultFactory(v)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			sample, err := factory()
			if err != nil {
				return nil, fmt.Errorf("field %s: default_factory: %w", name, err)
			}
			if err := validateDefaultValue(&field, sample); err != nil {
				return nil, err
			}
			field.DefaultFactory = factory
		} else if v, ok := tag["default"]; ok {
			lit, err := parseDefaultLiteral(primitive, v)
			if err != nil {
				return nil, fmt.Errorf("field %s: default=%q: %w", name, v, err)
			}
			if err := validateDefaultValue(&field, lit); err != nil {
				return nil, err
			}
		}

		fields = append(fields, field)
	}

	return fields, nil
}

func validateDefaultValue(field *InputField, raw any) error {
	norm, err := field.Type.Normalize(context.Background(), raw)
	if err != nil {
		return fmt.Errorf("field %s: default value: %w", field.Name, err)
	}
	if err := ValidateConstraints(*field, norm); err != nil {
		return fmt.Errorf("field %s: default value: %w", field.Name, err)
	}
	field.Default = &norm
	return nil
}

func buildOutputType(zero any, streaming bool) (OutputType, error) {
	t := reflect.TypeOf(zero)
	if t == nil {
		return OutputType{}, fmt.Errorf("NewOutput returned an untyped nil")
	}

	if streaming {
		if t == concatType {
			return OutputType{Kind: ConcatIterator, Primitive: algebra.TypeString}, nil
		}
		primitive, coder, err := primitiveForGoType(t, nil)
		if err != nil {
			return OutputType{}, err
		}
		return OutputType{Kind: Iterator, Primitive: primitive, Coder: coder}, nil
	}

	switch t.Kind() {
	case reflect.Ptr:
		return OutputType{}, fmt.Errorf("output type must not be OPTIONAL (NewOutput returned pointer type %s)", t)

	case reflect.Slice:
		primitive, coder, err := primitiveForGoType(t.Elem(), nil)
		if err != nil {
			return OutputType{}, err
		}
		return OutputType{Kind: List, Primitive: primitive, Coder: coder}, nil

	case reflect.Struct:
		fields, err := buildOutputFields(t)
		if err != nil {
			return OutputType{}, err
		}
		return OutputType{Kind: Object, Fields: fields}, nil

	default:
		primitive, coder, err := primitiveForGoType(t, nil)
		if err != nil {
			return OutputType{}, err
		}
		return OutputType{Kind: Single, Primitive: primitive, Coder: coder}, nil
	}
}

func buildOutputFields(t reflect.Type) ([]OutputField, error) {
	fields := make([]OutputField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := parseCogTag(sf.Tag.Get("cog"))
		name := sf.Name
		if n, ok := tag["name"]; ok {
			name = n
		}

		repetition := algebra.Required
		elemType := sf.Type
		switch sf.Type.Kind() {
		case reflect.Ptr:
			repetition = algebra.Optional
			elemType = sf.Type.Elem()
		case reflect.Slice:
			repetition = algebra.Repeated
			elemType = sf.Type.Elem()
		}

		primitive, coder, err := primitiveForGoType(elemType, tag)
		if err != nil {
			return nil, fmt.Errorf("output field %s: %w", name, err)
		}

		fields = append(fields, OutputField{
			Name: name,
			Type: algebra.FieldType{Primitive: primitive, Repetition: repetition, Coder: coder},
		})
	}
	return fields, nil
}

// primitiveForGoType maps a Go type to its PrimitiveType and, for a
// cog:"coder=..." tagged custom type, the CoderDescriptor naming the
// registered Coder. tag may be nil when called for output element types
// that carry no struct tag of their own.
func primitiveForGoType(t reflect.Type, tag cogTag) (algebra.PrimitiveType, *algebra.CoderDescriptor, error) {
	switch t {
	case pathType:
		return algebra.TypePath, nil, nil
	case secretType:
		return algebra.TypeSecret, nil, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return algebra.TypeBool, nil, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return algebra.TypeInteger, nil, nil
	case reflect.Float32, reflect.Float64:
		return algebra.TypeFloat, nil, nil
	case reflect.String:
		return algebra.TypeString, nil, nil
	case reflect.Interface:
		return algebra.TypeAny, nil, nil
	default:
		if tag != nil {
			if name, ok := tag["coder"]; ok {
				d := &algebra.CoderDescriptor{Name: name}
				if _, err := algebra.LookupCoder(context.Background(), d, nil); err != nil {
					return 0, nil, err
				}
				return algebra.TypeCustom, d, nil
			}
		}
		return 0, nil, fmt.Errorf("type %s has no primitive mapping and no cog:\"coder=...\" tag", t)
	}
}

func parseChoices(primitive algebra.PrimitiveType, raw string) ([]any, error) {
	parts := splitChoices(raw)
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		switch primitive {
		case algebra.TypeInteger:
			n, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("choices=%q: %w", raw, err)
			}
			out = append(out, n)
		default:
			out = append(out, p)
		}
	}
	return out, nil
}

func splitChoices(raw string) []string {
	var out []string
	start := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] == ';' {
			out = append(out, raw[start:i])
			start = i + 1
		}
	}
	out = append(out, raw[start:])
	return out
}

func parseDefaultLiteral(primitive algebra.PrimitiveType, raw string) (any, error) {
	switch primitive {
	case algebra.TypeBool:
		return strconv.ParseBool(raw)
	case algebra.TypeInteger:
		return strconv.ParseInt(raw, 10, 64)
	case algebra.TypeFloat:
		return strconv.ParseFloat(raw, 64)
	case algebra.TypeString, algebra.TypePath, algebra.TypeSecret:
		return raw, nil
	default:
		return nil, fmt.Errorf("default literal unsupported for primitive %s", primitive)
	}
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
