// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package algebra

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrTypeMismatch is returned when a value cannot be coerced to a field's
// declared PrimitiveType.
var ErrTypeMismatch = errors.New("value does not match declared type")

// Normalize coerces a loosely typed value (as produced by encoding/json's
// decoder: float64 for numbers, map[string]any for objects, []any for
// arrays) into the primitive's canonical Go representation. It is called
// once per scalar; FieldType.Normalize handles the Repetition wrapping.
func (p PrimitiveType) Normalize(v any, coder Coder) (any, error) {
	switch p {
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: want bool, got %T", ErrTypeMismatch, v)
		}
		return b, nil

	case TypeInteger:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("%w: integer field received non-integral value %v", ErrTypeMismatch, n)
			}
			return int64(n), nil
		default:
			return nil, fmt.Errorf("%w: want integer, got %T", ErrTypeMismatch, v)
		}

	case TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("%w: want float, got %T", ErrTypeMismatch, v)
		}

	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: want string, got %T", ErrTypeMismatch, v)
		}
		return s, nil

	case TypePath:
		switch s := v.(type) {
		case Path:
			return s, nil
		case string:
			return Path(s), nil
		default:
			return nil, fmt.Errorf("%w: want path string, got %T", ErrTypeMismatch, v)
		}

	case TypeSecret:
		switch s := v.(type) {
		case Secret:
			return s, nil
		case string:
			return Secret(s), nil
		default:
			return nil, fmt.Errorf("%w: want secret string, got %T", ErrTypeMismatch, v)
		}

	case TypeAny:
		return v, nil

	case TypeCustom:
		if coder == nil {
			return nil, fmt.Errorf("algebra: custom field has no resolved coder")
		}
		return coder.Decode(v)

	default:
		return nil, fmt.Errorf("algebra: unknown primitive type %v", p)
	}
}

// Normalize dispatches on Repetition: REQUIRED and OPTIONAL normalize a
// scalar (nil passes through unchanged for OPTIONAL, and is an error
// otherwise); REPEATED validates the value is an ordered sequence and
// normalizes element-wise. Normalize is idempotent: calling it again on an
// already-canonical value returns the same value.
func (f FieldType) Normalize(ctx context.Context, v any) (any, error) {
	if v == nil {
		if f.Repetition == Optional {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: null value for %s field", ErrTypeMismatch, f.Repetition)
	}

	coder, err := f.resolveCoder(ctx)
	if err != nil {
		return nil, err
	}

	switch f.Repetition {
	case Required, Optional:
		return f.Primitive.Normalize(v, coder)

	case Repeated:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: repeated field requires an array, got %T", ErrTypeMismatch, v)
		}
		out := make([]any, len(items))
		for i, item := range items {
			nv, err := f.Primitive.Normalize(item, coder)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil

	default:
		return nil, fmt.Errorf("algebra: unknown repetition %v", f.Repetition)
	}
}

func (f FieldType) resolveCoder(ctx context.Context) (Coder, error) {
	if f.Primitive != TypeCustom {
		return nil, nil
	}
	return LookupCoder(ctx, f.Coder, nil)
}
