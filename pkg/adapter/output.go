// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/leseb/prediction-runner/pkg/algebra"
	"github.com/leseb/prediction-runner/pkg/predictor"
)

// EncodeOutput normalizes a predictor's returned value (for a non-streaming
// SINGLE/LIST/OBJECT result, or one yielded item of an
// ITERATOR/CONCAT_ITERATOR) into its wire representation, then runs a
// json.Marshal preflight so a result that cannot actually be serialized
// fails the prediction here rather than corrupting a response file —
// mirroring the original runner's "json.dumps(o, default=util.output_json)"
// check performed before a value is attached to the response.
func (a *Adapter) EncodeOutput(ctx context.Context, v any) (any, error) {
	encoded, err := a.encode(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	if _, err := json.Marshal(encoded); err != nil {
		return nil, fmt.Errorf("output: not JSON-serializable: %w", err)
	}
	return encoded, nil
}

func (a *Adapter) encode(ctx context.Context, v any) (any, error) {
	out := a.info.Output

	switch out.Kind {
	case predictor.Object:
		return a.encodeObject(ctx, v, out.Fields)

	case predictor.List:
		return a.encodeElements(ctx, v, out)

	default: // Single, Iterator, Object (scalar fallback), ConcatIterator
		ft := algebra.FieldType{Primitive: out.Primitive, Repetition: algebra.Required, Coder: out.Coder}
		return ft.Encode(ctx, v)
	}
}

// encodeElements encodes a LIST output's backing slice element-wise. v is
// whatever concrete slice type the predictor's NewOutput() declared
// (reflected here rather than type-asserted since a predictor may return
// any slice of its declared element type).
func (a *Adapter) encodeElements(ctx context.Context, v any, out predictor.OutputType) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("list output: want a slice, got %T", v)
	}

	ft := algebra.FieldType{Primitive: out.Primitive, Repetition: algebra.Required, Coder: out.Coder}
	result := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		ev, err := ft.Encode(ctx, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		result[i] = ev
	}
	return result, nil
}

// encodeObject encodes an OBJECT output's fields, in the same declaration
// order buildOutputFields walked the struct in, into a JSON-friendly map
// keyed by each field's resolved (possibly cog:"name"-overridden) name.
func (a *Adapter) encodeObject(ctx context.Context, v any, fields []predictor.OutputField) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("object output: want a struct, got %T", v)
	}

	out := make(map[string]any, len(fields))
	fi := 0
	st := rv.Type()
	for i := 0; i < st.NumField(); i++ {
		if !st.Field(i).IsExported() {
			continue
		}
		if fi >= len(fields) {
			return nil, fmt.Errorf("object output: struct has more exported fields than declared at registration")
		}
		f := fields[fi]
		ev, err := f.Type.Encode(ctx, fieldArgument(rv.Field(i), f.Type.Repetition))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out[f.Name] = ev
		fi++
	}
	return out, nil
}

// fieldArgument adapts a reflected struct field value to the shape
// FieldType.Encode expects: a dereferenced scalar (or nil) for OPTIONAL, a
// []any for REPEATED, the value itself otherwise. Output struct fields hold
// concrete Go types (*string, []string, ...) rather than the []any/nil
// canonical shape BuildInfo's own default/constraint validation works with,
// since those only ever see JSON-decoded or literal-parsed values.
func fieldArgument(fv reflect.Value, rep algebra.Repetition) any {
	switch rep {
	case algebra.Optional:
		if fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				return nil
			}
			return fv.Elem().Interface()
		}
		return fv.Interface()

	case algebra.Repeated:
		if fv.Kind() != reflect.Slice {
			return fv.Interface()
		}
		items := make([]any, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			items[i] = fv.Index(i).Interface()
		}
		return items

	default:
		return fv.Interface()
	}
}
