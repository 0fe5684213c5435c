// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package predictor defines the Predictor contract a prediction runner
// hosts, the declarative registration API predictors activate through, and
// the reflection pass (BuildInfo) that turns a registered predictor's input
// and output shapes into an immutable PredictorInfo.
package predictor

import (
	"context"

	"github.com/leseb/prediction-runner/pkg/provider"
)

// Predictor is the synchronous, single-result prediction shape. Go's
// goroutine model makes Python's sync/async distinction irrelevant — there
// is exactly one blocking call style — so this interface, plus
// StreamingPredictor below, replace all four of cog's predictor forms
// (sync, async, sync-generator, async-generator).
type Predictor interface {
	// Setup prepares the predictor (loading weights, warming caches). It
	// runs once at startup, before the runner signals readiness.
	Setup(ctx context.Context) error
	// Predict runs one prediction. input is the map[string]any that
	// pkg/adapter's check_input builds from the request: one normalized,
	// defaulted and validated entry per declared field, keyed by field
	// name (not a NewInput() struct); the return value is normalized against
	// OutputType before being written to the response.
	Predict(ctx context.Context, input any) (any, error)
}

// StreamingPredictor additionally yields incremental output items on a
// channel, closing it when done. A send followed by channel close with a
// nil error is the success path; PredictStream returning a non-nil error,
// or the context being canceled, ends the stream early.
type StreamingPredictor interface {
	Predictor
	PredictStream(ctx context.Context, input any) (<-chan any, error)
}

// InputSchema lets BuildInfo discover a predictor's input field layout via
// reflection over a zero-value struct, replacing spec.md's runtime
// annotation inspection. NewInput returns a pointer to a fresh
// cog-tagged struct.
type InputSchema interface {
	NewInput() any
}

// OutputSchema lets BuildInfo discover a predictor's output shape the same
// way. NewOutput returns the zero value of whatever Predict/PredictStream
// produces: a scalar, a slice (LIST), or a cog-tagged struct (OBJECT). For
// a StreamingPredictor, NewOutput describes one yielded item's shape, not
// the aggregate list the response accumulates into.
type OutputSchema interface {
	NewOutput() any
}

// Constructor builds a fresh Predictor instance. It takes no arguments:
// config.json (see pkg/runner) carries no per-predictor construction
// parameters beyond selecting which registered name to instantiate.
type Constructor func() (Predictor, error)

var registry = provider.NewRegistry[Predictor]("predictor")

// Register activates a predictor under name, typically called from an
// init() function in the package that defines it; a blank import of that
// package links it into the runner binary. config.json's predictor_name
// selects among all registered names; module_name selects nothing and is
// only carried into PredictorInfo.ModuleRef.
func Register(name string, ctor Constructor) {
	registry.Register(name, func(_ context.Context, _ map[string]string) (Predictor, error) {
		return ctor()
	})
}

// New constructs the registered predictor named name.
func New(ctx context.Context, name string) (Predictor, error) {
	return registry.New(ctx, name, nil)
}

// Available returns the sorted list of registered predictor names.
func Available() []string {
	return registry.Available()
}
