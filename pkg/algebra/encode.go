// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package algebra

import (
	"context"
	"fmt"
)

// Encode produces a JSON-marshalable value from a canonical scalar. Secret
// is emitted in cleartext here: this is the one boundary where a secret's
// true value crosses into the wire response sent to the parent
// orchestrator, as opposed to logs or schemas where it stays masked.
func (p PrimitiveType) Encode(v any, coder Coder) (any, error) {
	switch p {
	case TypeSecret:
		switch s := v.(type) {
		case Secret:
			return string(s), nil
		case string:
			return s, nil
		default:
			return nil, fmt.Errorf("%w: want secret string, got %T", ErrTypeMismatch, v)
		}

	case TypePath:
		switch s := v.(type) {
		case Path:
			return string(s), nil
		case string:
			return s, nil
		default:
			return nil, fmt.Errorf("%w: want path string, got %T", ErrTypeMismatch, v)
		}

	case TypeCustom:
		if coder == nil {
			return nil, fmt.Errorf("algebra: custom field has no resolved coder")
		}
		return coder.Encode(v)

	default:
		return v, nil
	}
}

// Encode produces a JSON-marshalable value for the whole field, applying
// Encode element-wise for REPEATED fields. A nil value (only valid for
// OPTIONAL) encodes to nil.
func (f FieldType) Encode(ctx context.Context, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	coder, err := f.resolveCoder(ctx)
	if err != nil {
		return nil, err
	}

	if f.Repetition == Repeated {
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: repeated field requires an array, got %T", ErrTypeMismatch, v)
		}
		out := make([]any, len(items))
		for i, item := range items {
			ev, err := f.Primitive.Encode(item, coder)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	}

	return f.Primitive.Encode(v, coder)
}
