// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package algebra_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/leseb/prediction-runner/pkg/algebra"
)

func TestPrimitiveNormalizeIdempotent(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		ft   algebra.FieldType
		in   any
	}{
		{"bool", algebra.FieldType{Primitive: algebra.TypeBool, Repetition: algebra.Required}, true},
		{"integer from float64", algebra.FieldType{Primitive: algebra.TypeInteger, Repetition: algebra.Required}, float64(42)},
		{"float from int", algebra.FieldType{Primitive: algebra.TypeFloat, Repetition: algebra.Required}, int64(3)},
		{"string", algebra.FieldType{Primitive: algebra.TypeString, Repetition: algebra.Required}, "bar"},
		{"path", algebra.FieldType{Primitive: algebra.TypePath, Repetition: algebra.Required}, "file:///tmp/x"},
		{"secret", algebra.FieldType{Primitive: algebra.TypeSecret, Repetition: algebra.Required}, "s3kr1t"},
		{"repeated string", algebra.FieldType{Primitive: algebra.TypeString, Repetition: algebra.Repeated}, []any{"a", "b"}},
		{"optional null", algebra.FieldType{Primitive: algebra.TypeString, Repetition: algebra.Optional}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			once, err := tc.ft.Normalize(ctx, tc.in)
			if err != nil {
				t.Fatalf("first Normalize: %v", err)
			}
			twice, err := tc.ft.Normalize(ctx, once)
			if err != nil {
				t.Fatalf("second Normalize: %v", err)
			}
			if !deepEqual(once, twice) {
				t.Errorf("normalize not idempotent: %#v != %#v", once, twice)
			}
		})
	}
}

func TestIntegerRejectsLossyFloat(t *testing.T) {
	ft := algebra.FieldType{Primitive: algebra.TypeInteger, Repetition: algebra.Required}
	_, err := ft.Normalize(context.Background(), 1.5)
	if !errors.Is(err, algebra.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for non-integral float, got %v", err)
	}
}

func TestRequiredRejectsNull(t *testing.T) {
	ft := algebra.FieldType{Primitive: algebra.TypeString, Repetition: algebra.Required}
	_, err := ft.Normalize(context.Background(), nil)
	if !errors.Is(err, algebra.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for null required field, got %v", err)
	}
}

func TestSecretEncodeClearsText(t *testing.T) {
	ft := algebra.FieldType{Primitive: algebra.TypeSecret, Repetition: algebra.Required}
	ctx := context.Background()

	norm, err := ft.Normalize(ctx, "s3kr1t")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if got := norm.(algebra.Secret).String(); got != "**********" {
		t.Errorf("Secret.String() = %q, want masked", got)
	}

	encoded, err := ft.Encode(ctx, norm)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if encoded != "s3kr1t" {
		t.Errorf("Encode() = %v, want cleartext s3kr1t", encoded)
	}
}

func TestSecretLogValueRedacts(t *testing.T) {
	s := algebra.Secret("s3kr1t")
	v := s.LogValue()
	if v.Kind() != slog.KindString || v.String() != "**********" {
		t.Errorf("LogValue() = %v, want masked string", v)
	}
}

func TestPathEncodeRendersURIForm(t *testing.T) {
	ft := algebra.FieldType{Primitive: algebra.TypePath, Repetition: algebra.Required}
	ctx := context.Background()

	norm, err := ft.Normalize(ctx, "s3://bucket/key")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	encoded, err := ft.Encode(ctx, norm)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if encoded != "s3://bucket/key" {
		t.Errorf("Encode() = %v, want s3://bucket/key", encoded)
	}
}

func TestRepeatedElementError(t *testing.T) {
	ft := algebra.FieldType{Primitive: algebra.TypeInteger, Repetition: algebra.Repeated}
	_, err := ft.Normalize(context.Background(), []any{int64(1), "not an int"})
	if !errors.Is(err, algebra.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch from bad element, got %v", err)
	}
}

func TestCustomFieldWithoutCoderFails(t *testing.T) {
	ft := algebra.FieldType{
		Primitive:  algebra.TypeCustom,
		Repetition: algebra.Required,
		Coder:      &algebra.CoderDescriptor{Name: "no-such-coder"},
	}
	_, err := ft.Normalize(context.Background(), map[string]any{"a": 1})
	if err == nil {
		t.Fatal("expected error for unregistered coder")
	}
}

// setCoder is a trivial Coder used to exercise the registry round trip: it
// treats the custom value as a set, stored on the wire as a JSON array.
type setCoder struct{}

func (setCoder) Decode(raw any) (any, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.New("setvalue coder: want array")
	}
	set := make(map[any]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set, nil
}

func (setCoder) Encode(v any) (any, error) {
	set, ok := v.(map[any]struct{})
	if !ok {
		return nil, errors.New("setvalue coder: want set")
	}
	out := make([]any, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out, nil
}

func TestCoderRoundTrip(t *testing.T) {
	algebra.Coders.Register("test-setvalue", func(_ context.Context, _ map[string]string) (algebra.Coder, error) {
		return setCoder{}, nil
	})

	ft := algebra.FieldType{
		Primitive:  algebra.TypeCustom,
		Repetition: algebra.Required,
		Coder:      &algebra.CoderDescriptor{Name: "test-setvalue"},
	}
	ctx := context.Background()

	decoded, err := ft.Normalize(ctx, []any{"a", "b"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	set, ok := decoded.(map[any]struct{})
	if !ok || len(set) != 2 {
		t.Fatalf("unexpected decode result: %#v", decoded)
	}

	encoded, err := ft.Encode(ctx, decoded)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	items, ok := encoded.([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("unexpected encode result: %#v", encoded)
	}
}

func TestFieldTypeJSONSchema(t *testing.T) {
	repeated := algebra.FieldType{Primitive: algebra.TypeString, Repetition: algebra.Repeated}
	schema := repeated.JSONSchema()
	if schema.Items == nil {
		t.Fatal("repeated field schema missing Items envelope")
	}

	optional := algebra.FieldType{Primitive: algebra.TypeInteger, Repetition: algebra.Optional}
	if !optional.JSONSchema().Nullable {
		t.Error("optional field schema should be nullable")
	}

	secret := algebra.FieldType{Primitive: algebra.TypeSecret, Repetition: algebra.Required}
	s := secret.JSONSchema()
	if !s.WriteOnly {
		t.Error("secret field schema should be writeOnly")
	}
	if s.Extensions["x-cog-secret"] != true {
		t.Error("secret field schema missing x-cog-secret extension")
	}
}

func deepEqual(a, b any) bool {
	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
