// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package predictor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/leseb/prediction-runner/pkg/algebra"
	"github.com/leseb/prediction-runner/pkg/predictor"
)

// --- a fully worked-out example predictor, exercised by most tests below ---

type upscaleInput struct {
	Image  algebra.Path `cog:"description=input image"`
	Scale  int64        `cog:"description=scale factor,ge=1,le=4,default=2"`
	Prompt *string      `cog:"description=optional guidance prompt"`
	Tags   []string     `cog:"description=labels to apply"`
}

type upscaleOutput struct {
	File  algebra.Path `cog:"name=file"`
	Score float64      `cog:"name=score"`
}

type upscalePredictor struct{}

func (upscalePredictor) Setup(ctx context.Context) error                { return nil }
func (upscalePredictor) Predict(ctx context.Context, in any) (any, error) { return upscaleOutput{}, nil }
func (upscalePredictor) NewInput() any                                  { return &upscaleInput{} }
func (upscalePredictor) NewOutput() any                                 { return upscaleOutput{} }

func TestBuildInfoFullExample(t *testing.T) {
	info, err := predictor.BuildInfo("example", "Upscale", upscalePredictor{})
	if err != nil {
		t.Fatalf("BuildInfo: %v", err)
	}

	image, ok := info.Input("Image")
	if !ok {
		t.Fatal("missing Image field")
	}
	if image.Type.Primitive != algebra.TypePath || image.Type.Repetition != algebra.Required {
		t.Errorf("Image field = %+v, want required path", image.Type)
	}

	scale, ok := info.Input("Scale")
	if !ok {
		t.Fatal("missing Scale field")
	}
	if scale.Ge == nil || *scale.Ge != 1 || scale.Le == nil || *scale.Le != 4 {
		t.Errorf("Scale constraints = ge:%v le:%v, want ge:1 le:4", scale.Ge, scale.Le)
	}
	if scale.Default == nil {
		t.Fatal("Scale field missing resolved default")
	}
	if got := (*scale.Default).(int64); got != 2 {
		t.Errorf("Scale default = %v, want 2", got)
	}

	prompt, ok := info.Input("Prompt")
	if !ok {
		t.Fatal("missing Prompt field")
	}
	if prompt.Type.Repetition != algebra.Optional {
		t.Errorf("Prompt repetition = %s, want optional", prompt.Type.Repetition)
	}

	tags, ok := info.Input("Tags")
	if !ok {
		t.Fatal("missing Tags field")
	}
	if tags.Type.Repetition != algebra.Repeated || tags.Type.Primitive != algebra.TypeString {
		t.Errorf("Tags field = %+v, want repeated string", tags.Type)
	}

	if info.Output.Kind != predictor.Object {
		t.Fatalf("Output.Kind = %s, want object", info.Output.Kind)
	}
	if len(info.Output.Fields) != 2 {
		t.Fatalf("Output.Fields = %d, want 2", len(info.Output.Fields))
	}
}

// --- streaming predictors ---

type tickerInput struct {
	Count int64 `cog:"description=how many ticks,ge=1"`
}

type tickerPredictor struct{}

func (tickerPredictor) Setup(ctx context.Context) error { return nil }
func (tickerPredictor) Predict(ctx context.Context, in any) (any, error) {
	return []int64{}, nil
}
func (tickerPredictor) PredictStream(ctx context.Context, in any) (<-chan any, error) {
	ch := make(chan any)
	close(ch)
	return ch, nil
}
func (tickerPredictor) NewInput() any  { return &tickerInput{} }
func (tickerPredictor) NewOutput() any { return int64(0) }

func TestBuildInfoStreamingIterator(t *testing.T) {
	info, err := predictor.BuildInfo("example", "Ticker", tickerPredictor{})
	if err != nil {
		t.Fatalf("BuildInfo: %v", err)
	}
	if info.Output.Kind != predictor.Iterator {
		t.Fatalf("Output.Kind = %s, want iterator", info.Output.Kind)
	}
	if info.Output.Primitive != algebra.TypeInteger {
		t.Errorf("Output.Primitive = %s, want integer", info.Output.Primitive)
	}
}

type chatPredictor struct{}

func (chatPredictor) Setup(ctx context.Context) error                     { return nil }
func (chatPredictor) Predict(ctx context.Context, in any) (any, error)    { return "", nil }
func (chatPredictor) PredictStream(ctx context.Context, in any) (<-chan any, error) {
	ch := make(chan any)
	close(ch)
	return ch, nil
}
func (chatPredictor) NewInput() any  { return &struct{}{} }
func (chatPredictor) NewOutput() any { return predictor.ConcatString("") }

func TestBuildInfoConcatIterator(t *testing.T) {
	info, err := predictor.BuildInfo("example", "Chat", chatPredictor{})
	if err != nil {
		t.Fatalf("BuildInfo: %v", err)
	}
	if info.Output.Kind != predictor.ConcatIterator {
		t.Fatalf("Output.Kind = %s, want concat_iterator", info.Output.Kind)
	}
}

// --- list and single output shapes ---

type listPredictor struct{}

func (listPredictor) Setup(ctx context.Context) error                  { return nil }
func (listPredictor) Predict(ctx context.Context, in any) (any, error) { return []string{}, nil }
func (listPredictor) NewInput() any                                    { return &struct{}{} }
func (listPredictor) NewOutput() any                                   { return []string{} }

func TestBuildInfoList(t *testing.T) {
	info, err := predictor.BuildInfo("example", "List", listPredictor{})
	if err != nil {
		t.Fatalf("BuildInfo: %v", err)
	}
	if info.Output.Kind != predictor.List || info.Output.Primitive != algebra.TypeString {
		t.Errorf("Output = %+v, want list of string", info.Output)
	}
}

type singlePredictor struct{}

func (singlePredictor) Setup(ctx context.Context) error                  { return nil }
func (singlePredictor) Predict(ctx context.Context, in any) (any, error) { return "", nil }
func (singlePredictor) NewInput() any                                    { return &struct{}{} }
func (singlePredictor) NewOutput() any                                   { return "" }

func TestBuildInfoSingle(t *testing.T) {
	info, err := predictor.BuildInfo("example", "Single", singlePredictor{})
	if err != nil {
		t.Fatalf("BuildInfo: %v", err)
	}
	if info.Output.Kind != predictor.Single || info.Output.Primitive != algebra.TypeString {
		t.Errorf("Output = %+v, want single string", info.Output)
	}
}

type pointerOutputPredictor struct{}

func (pointerOutputPredictor) Setup(ctx context.Context) error                  { return nil }
func (pointerOutputPredictor) Predict(ctx context.Context, in any) (any, error) { return nil, nil }
func (pointerOutputPredictor) NewInput() any                                    { return &struct{}{} }
func (pointerOutputPredictor) NewOutput() any {
	var s *string
	return s
}

func TestBuildInfoRejectsOptionalOutput(t *testing.T) {
	_, err := predictor.BuildInfo("example", "PointerOutput", pointerOutputPredictor{})
	if err == nil {
		t.Fatal("expected error for pointer-typed output")
	}
}

// --- constraint shape and default validation ---

type badConstraintInput struct {
	Name string `cog:"ge=1"`
}
type badConstraintPredictor struct{}

func (badConstraintPredictor) Setup(ctx context.Context) error                  { return nil }
func (badConstraintPredictor) Predict(ctx context.Context, in any) (any, error) { return "", nil }
func (badConstraintPredictor) NewInput() any                                    { return &badConstraintInput{} }
func (badConstraintPredictor) NewOutput() any                                   { return "" }

func TestBuildInfoRejectsGeOnNonNumeric(t *testing.T) {
	_, err := predictor.BuildInfo("example", "BadConstraint", badConstraintPredictor{})
	if err == nil {
		t.Fatal("expected error: ge requires numeric type")
	}
}

type tooFewChoicesInput struct {
	Mode string `cog:"choices=only-one"`
}
type tooFewChoicesPredictor struct{}

func (tooFewChoicesPredictor) Setup(ctx context.Context) error                  { return nil }
func (tooFewChoicesPredictor) Predict(ctx context.Context, in any) (any, error) { return "", nil }
func (tooFewChoicesPredictor) NewInput() any                                    { return &tooFewChoicesInput{} }
func (tooFewChoicesPredictor) NewOutput() any                                   { return "" }

func TestBuildInfoRejectsTooFewChoices(t *testing.T) {
	_, err := predictor.BuildInfo("example", "TooFewChoices", tooFewChoicesPredictor{})
	if err == nil {
		t.Fatal("expected error: choices needs at least 2 options")
	}
}

type redundantOptionalDefaultInput struct {
	Name *string `cog:"default=null"`
}
type redundantOptionalDefaultPredictor struct{}

func (redundantOptionalDefaultPredictor) Setup(ctx context.Context) error { return nil }
func (redundantOptionalDefaultPredictor) Predict(ctx context.Context, in any) (any, error) {
	return "", nil
}
func (redundantOptionalDefaultPredictor) NewInput() any  { return &redundantOptionalDefaultInput{} }
func (redundantOptionalDefaultPredictor) NewOutput() any { return "" }

func TestBuildInfoRejectsRedundantOptionalNullDefault(t *testing.T) {
	_, err := predictor.BuildInfo("example", "RedundantDefault", redundantOptionalDefaultPredictor{})
	if err == nil {
		t.Fatal("expected error: optional field with default=null is redundant")
	}
}

type badDefaultInput struct {
	Count int64 `cog:"le=10,default=20"`
}
type badDefaultPredictor struct{}

func (badDefaultPredictor) Setup(ctx context.Context) error                  { return nil }
func (badDefaultPredictor) Predict(ctx context.Context, in any) (any, error) { return "", nil }
func (badDefaultPredictor) NewInput() any                                    { return &badDefaultInput{} }
func (badDefaultPredictor) NewOutput() any                                   { return "" }

func TestBuildInfoRejectsDefaultViolatingOwnConstraint(t *testing.T) {
	_, err := predictor.BuildInfo("example", "BadDefault", badDefaultPredictor{})
	if !errors.Is(err, predictor.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

type seededInput struct {
	Tags []string `cog:"default_factory=test-seed-tags"`
}
type seededPredictor struct{}

func (seededPredictor) Setup(ctx context.Context) error                  { return nil }
func (seededPredictor) Predict(ctx context.Context, in any) (any, error) { return "", nil }
func (seededPredictor) NewInput() any                                    { return &seededInput{} }
func (seededPredictor) NewOutput() any                                   { return "" }

func TestDefaultFactoryValidatedAtRegistration(t *testing.T) {
	predictor.RegisterDefaultFactory("test-seed-tags", func() (any, error) {
		return []any{"a", "b"}, nil
	})

	info, err := predictor.BuildInfo("example", "Seeded", seededPredictor{})
	if err != nil {
		t.Fatalf("BuildInfo: %v", err)
	}
	tags, ok := info.Input("Tags")
	if !ok {
		t.Fatal("missing Tags field")
	}
	if tags.DefaultFactory == nil {
		t.Fatal("expected DefaultFactory to be set")
	}
	v, err := tags.DefaultFactory()
	if err != nil {
		t.Fatalf("DefaultFactory: %v", err)
	}
	items, ok := v.([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("DefaultFactory() = %#v, want 2-element slice", v)
	}
}
