// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package adapter_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leseb/prediction-runner/pkg/adapter"
	"github.com/leseb/prediction-runner/pkg/algebra"
	"github.com/leseb/prediction-runner/pkg/filestore/memory"
	"github.com/leseb/prediction-runner/pkg/logging"
	"github.com/leseb/prediction-runner/pkg/predictor"
)

// --- a worked example predictor exercised by most tests below ---

type echoInput struct {
	Name  string  `cog:"default=world"`
	Count int64   `cog:"ge=1,le=10,default=1"`
	Tags  *string `cog:"description=optional tag"`
}

type echoOutput struct {
	Greeting string `cog:"name=greeting"`
	Repeats  int64  `cog:"name=repeats"`
}

type echoPredictor struct {
	setupCalled bool
	lastInput   any
}

func (p *echoPredictor) Setup(ctx context.Context) error { p.setupCalled = true; return nil }
func (p *echoPredictor) Predict(ctx context.Context, in any) (any, error) {
	p.lastInput = in
	m := in.(map[string]any)
	return echoOutput{Greeting: "hello " + m["Name"].(string), Repeats: m["Count"].(int64)}, nil
}
func (p *echoPredictor) NewInput() any  { return &echoInput{} }
func (p *echoPredictor) NewOutput() any { return echoOutput{} }

func buildEchoAdapter(t *testing.T) (*adapter.Adapter, *echoPredictor) {
	t.Helper()
	p := &echoPredictor{}
	info, err := predictor.BuildInfo("example", "Echo", p)
	if err != nil {
		t.Fatalf("BuildInfo: %v", err)
	}
	return adapter.New(info, p, nil, nil), p
}

func TestCheckInputSubstitutesDefaultsForMissingFields(t *testing.T) {
	a, _ := buildEchoAdapter(t)
	got, err := a.CheckInput(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("CheckInput: %v", err)
	}
	if got["Name"] != "world" {
		t.Errorf("Name = %v, want world", got["Name"])
	}
	if got["Count"] != int64(1) {
		t.Errorf("Count = %v, want 1", got["Count"])
	}
	if got["Tags"] != nil {
		t.Errorf("Tags = %v, want nil (unset optional)", got["Tags"])
	}
}

func TestCheckInputNormalizesSuppliedValues(t *testing.T) {
	a, _ := buildEchoAdapter(t)
	got, err := a.CheckInput(context.Background(), map[string]any{"Name": "there", "Count": float64(5)})
	if err != nil {
		t.Fatalf("CheckInput: %v", err)
	}
	if got["Name"] != "there" || got["Count"] != int64(5) {
		t.Errorf("got %+v, want Name=there Count=5", got)
	}
}

func TestCheckInputIgnoresUnknownFields(t *testing.T) {
	a, _ := buildEchoAdapter(t)
	got, err := a.CheckInput(context.Background(), map[string]any{"bogus": "value"})
	if err != nil {
		t.Fatalf("CheckInput: %v", err)
	}
	if _, ok := got["bogus"]; ok {
		t.Error("unknown field should not appear in output")
	}
}

func TestCheckInputRejectsConstraintViolation(t *testing.T) {
	a, _ := buildEchoAdapter(t)
	_, err := a.CheckInput(context.Background(), map[string]any{"Count": float64(50)})
	if !errors.Is(err, predictor.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

type requiredOnlyInput struct {
	Name string
}
type requiredOnlyPredictor struct{}

func (requiredOnlyPredictor) Setup(ctx context.Context) error                  { return nil }
func (requiredOnlyPredictor) Predict(ctx context.Context, in any) (any, error) { return "", nil }
func (requiredOnlyPredictor) NewInput() any                                    { return &requiredOnlyInput{} }
func (requiredOnlyPredictor) NewOutput() any                                   { return "" }

func TestCheckInputRejectsMissingRequiredField(t *testing.T) {
	info, err := predictor.BuildInfo("example", "RequiredOnly", requiredOnlyPredictor{})
	if err != nil {
		t.Fatalf("BuildInfo: %v", err)
	}
	a := adapter.New(info, requiredOnlyPredictor{}, nil, nil)
	_, err = a.CheckInput(context.Background(), map[string]any{})
	if !errors.Is(err, adapter.ErrFieldRequired) {
		t.Fatalf("expected ErrFieldRequired, got %v", err)
	}
}

func TestPredictEncodesObjectOutput(t *testing.T) {
	a, _ := buildEchoAdapter(t)
	out, err := a.Predict(context.Background(), map[string]any{"Name": "there"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("Predict() = %T, want map[string]any", out)
	}
	if m["greeting"] != "hello there" {
		t.Errorf("greeting = %v, want %q", m["greeting"], "hello there")
	}
	if m["repeats"] != int64(1) {
		t.Errorf("repeats = %v, want 1", m["repeats"])
	}
}

// --- streaming ---

type tickerPredictor struct{}

func (tickerPredictor) Setup(ctx context.Context) error { return nil }
func (tickerPredictor) Predict(ctx context.Context, in any) (any, error) {
	return int64(0), nil
}
func (tickerPredictor) PredictStream(ctx context.Context, in any) (<-chan any, error) {
	ch := make(chan any, 3)
	ch <- int64(1)
	ch <- int64(2)
	ch <- int64(3)
	close(ch)
	return ch, nil
}
func (tickerPredictor) NewInput() any  { return &struct{}{} }
func (tickerPredictor) NewOutput() any { return int64(0) }

func TestPredictStreamEncodesEachItem(t *testing.T) {
	p := tickerPredictor{}
	info, err := predictor.BuildInfo("example", "Ticker", p)
	if err != nil {
		t.Fatalf("BuildInfo: %v", err)
	}
	a := adapter.New(info, p, nil, nil)

	items, errs := a.PredictStream(context.Background(), map[string]any{})
	var got []any
	for v := range items {
		got = append(got, v)
	}
	if err := <-errs; err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(got) != 3 || got[0] != int64(1) || got[2] != int64(3) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

// --- output JSON preflight ---

type badOutputPredictor struct{}

func (badOutputPredictor) Setup(ctx context.Context) error                  { return nil }
func (badOutputPredictor) Predict(ctx context.Context, in any) (any, error) { return "x", nil }
func (badOutputPredictor) NewInput() any                                    { return &struct{}{} }
func (badOutputPredictor) NewOutput() any                                   { return "" }

func TestEncodeOutputFailsPreflightOnUnserializableValue(t *testing.T) {
	p := badOutputPredictor{}
	info, err := predictor.BuildInfo("example", "BadOutput", p)
	if err != nil {
		t.Fatalf("BuildInfo: %v", err)
	}
	// Force a primitive whose Encode step produces a channel, which
	// encoding/json can never marshal, to exercise the preflight check.
	info.Output.Primitive = algebra.TypeAny
	a := adapter.New(info, p, nil, nil)

	_, err = a.EncodeOutput(context.Background(), make(chan int))
	if err == nil {
		t.Fatal("expected EncodeOutput to reject an unserializable value")
	}
}

// --- weights resolution ---

type weightsCapturingPredictor struct {
	path string
}

func (p *weightsCapturingPredictor) Setup(ctx context.Context) error { return nil }
func (p *weightsCapturingPredictor) Predict(ctx context.Context, in any) (any, error) {
	return "", nil
}
func (p *weightsCapturingPredictor) NewInput() any       { return &struct{}{} }
func (p *weightsCapturingPredictor) NewOutput() any      { return "" }
func (p *weightsCapturingPredictor) SetWeights(path string) { p.path = path }

func TestSetupResolvesWeightsFromURLThroughFileStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("weights-bytes"))
	}))
	defer srv.Close()

	t.Setenv("COG_WEIGHTS_URL", srv.URL+"/model.bin")

	p := &weightsCapturingPredictor{}
	info, err := predictor.BuildInfo("example", "Weighted", p)
	if err != nil {
		t.Fatalf("BuildInfo: %v", err)
	}
	a := adapter.New(info, p, logging.New(logging.Config{}), memory.New())

	if err := a.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if p.path == "" {
		t.Fatal("expected SetWeights to be called with a non-empty path")
	}
}

func TestSetupSkipsWeightsWhenNoURLAndNoLocalFallback(t *testing.T) {
	p := &weightsCapturingPredictor{}
	info, err := predictor.BuildInfo("example", "Weighted", p)
	if err != nil {
		t.Fatalf("BuildInfo: %v", err)
	}
	a := adapter.New(info, p, nil, nil)

	if err := a.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if p.path != "" {
		t.Errorf("path = %q, want empty (no weights source available)", p.path)
	}
}
