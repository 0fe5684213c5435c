// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package predictor

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/leseb/prediction-runner/pkg/algebra"
)

// ErrConstraintViolation is the sentinel wrapped by every constraint
// failure message, letting callers distinguish it from ErrFieldRequired and
// algebra.ErrTypeMismatch with errors.Is.
var ErrConstraintViolation = errors.New("input fails declared constraint")

// validateFieldShape checks the static compatibility invariants between an
// InputField's constraint attributes and its declared PrimitiveType (spec
// §3): ge/le require numeric, min_length/max_length/regex require string,
// choices requires integer or string with at least two options and is
// mutually exclusive with the numeric and length constraints.
func validateFieldShape(f InputField) error {
	if (f.Ge != nil || f.Le != nil) && !f.Type.Primitive.IsNumeric() {
		return fmt.Errorf("field %s: ge/le require a numeric type, got %s", f.Name, f.Type.Primitive)
	}
	if (f.MinLength != nil || f.MaxLength != nil || f.Regex != nil) && f.Type.Primitive != algebra.TypeString {
		return fmt.Errorf("field %s: min_length/max_length/regex require string type, got %s", f.Name, f.Type.Primitive)
	}
	if len(f.Choices) > 0 {
		if f.Type.Primitive != algebra.TypeInteger && f.Type.Primitive != algebra.TypeString {
			return fmt.Errorf("field %s: choices require integer or string type, got %s", f.Name, f.Type.Primitive)
		}
		if len(f.Choices) < 2 {
			return fmt.Errorf("field %s: choices must declare at least 2 options", f.Name)
		}
		if f.Ge != nil || f.Le != nil || f.MinLength != nil || f.MaxLength != nil {
			return fmt.Errorf("field %s: choices is mutually exclusive with ge/le/min_length/max_length", f.Name)
		}
	}
	return nil
}

// ValidateConstraints applies an already-normalized value's constraints,
// element-wise for REPEATED fields, skipping entirely for a nil OPTIONAL
// value. Violation messages follow "<name> fails constraint <desc>" —
// spec.md's literal scenario 5 requires "count fails constraint <= 100" —
// generated here once so pkg/adapter's check_input and BuildInfo's default
// validation never drift apart.
func ValidateConstraints(f InputField, v any) error {
	if v == nil {
		return nil
	}
	if f.Type.Repetition == algebra.Repeated {
		items, ok := v.([]any)
		if !ok {
			return fmt.Errorf("%s: %w: expected an array", f.Name, ErrConstraintViolation)
		}
		for _, item := range items {
			if err := validateScalarConstraints(f, item); err != nil {
				return err
			}
		}
		return nil
	}
	return validateScalarConstraints(f, v)
}

func validateScalarConstraints(f InputField, v any) error {
	if f.Ge != nil {
		if n, ok := toFloat(v); ok && n < *f.Ge {
			return fmt.Errorf("%s fails constraint >= %v: %w", f.Name, *f.Ge, ErrConstraintViolation)
		}
	}
	if f.Le != nil {
		if n, ok := toFloat(v); ok && n > *f.Le {
			return fmt.Errorf("%s fails constraint <= %v: %w", f.Name, *f.Le, ErrConstraintViolation)
		}
	}
	if f.MinLength != nil {
		if s, ok := v.(string); ok && len(s) < *f.MinLength {
			return fmt.Errorf("%s fails constraint min_length >= %d: %w", f.Name, *f.MinLength, ErrConstraintViolation)
		}
	}
	if f.MaxLength != nil {
		if s, ok := v.(string); ok && len(s) > *f.MaxLength {
			return fmt.Errorf("%s fails constraint max_length <= %d: %w", f.Name, *f.MaxLength, ErrConstraintViolation)
		}
	}
	if f.Regex != nil {
		if s, ok := v.(string); ok {
			re, err := regexp.Compile(*f.Regex)
			if err != nil {
				return fmt.Errorf("%s: invalid regex constraint %q: %w", f.Name, *f.Regex, err)
			}
			if !re.MatchString(s) {
				return fmt.Errorf("%s fails constraint regex %s: %w", f.Name, *f.Regex, ErrConstraintViolation)
			}
		}
	}
	if len(f.Choices) > 0 {
		found := false
		for _, c := range f.Choices {
			if c == v {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s fails constraint choices %v: %w", f.Name, f.Choices, ErrConstraintViolation)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
