// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"fmt"

	"github.com/leseb/prediction-runner/pkg/algebra"
	"github.com/leseb/prediction-runner/pkg/predictor"
)

// CheckInput normalizes a raw input map (as decoded by encoding/json: plain
// strings/float64/bool/map/slice) against the declared InputFields, in the
// same three steps as the original inspector's check_input:
//
//  1. normalize every supplied value against its field's FieldType, warning
//     and dropping any key that names no declared field;
//  2. substitute a DefaultFactory or Default for every field with no
//     supplied value, or nil for a missing OPTIONAL field; a missing
//     REQUIRED field with no default is an error;
//  3. validate every resolved value's constraints.
//
// The returned map always has exactly one entry per declared field.
func (a *Adapter) CheckInput(ctx context.Context, raw map[string]any) (map[string]any, error) {
	fields := a.info.Inputs()

	out := make(map[string]any, len(fields))
	for name, v := range raw {
		f, ok := a.info.Input(name)
		if !ok {
			if a.logger != nil {
				a.logger.Warn("unknown input field ignored", "field", name)
			}
			continue
		}
		nv, err := f.Type.Normalize(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		out[name] = nv
	}

	for _, f := range fields {
		if _, supplied := out[f.Name]; supplied {
			continue
		}

		switch {
		case f.DefaultFactory != nil:
			v, err := f.DefaultFactory()
			if err != nil {
				return nil, fmt.Errorf("field %s: default_factory: %w", f.Name, err)
			}
			out[f.Name] = v

		case f.Default != nil:
			out[f.Name] = *f.Default

		case f.Type.Repetition == algebra.Optional:
			out[f.Name] = nil

		default:
			return nil, fmt.Errorf("field %s: %w", f.Name, ErrFieldRequired)
		}
	}

	for _, f := range fields {
		if err := predictor.ValidateConstraints(f, out[f.Name]); err != nil {
			return nil, err
		}
	}

	return out, nil
}
