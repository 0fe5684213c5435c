// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package example registers a handful of minimal predictors that exercise
// cmd/runner end to end without any real model weights: "Predictor", a
// synchronous predictor returning one string; "StreamingPredictor", its
// streaming counterpart; "ConstraintPredictor", which rejects out-of-range
// input; and "SlowPredictor", which sleeps before returning so concurrency
// and cancellation are observable in tests. These are stand-ins for a real
// project's own predictor package — replace the blank import in
// cmd/runner/main.go to host a different one.
package example

import (
	"context"
	"fmt"
	"time"

	"github.com/leseb/prediction-runner/pkg/predictor"
)

func init() {
	predictor.Register("Predictor", func() (predictor.Predictor, error) {
		return &wrapPredictor{}, nil
	})
	predictor.Register("StreamingPredictor", func() (predictor.Predictor, error) {
		return &streamPredictor{}, nil
	})
	predictor.Register("ConstraintPredictor", func() (predictor.Predictor, error) {
		return &constraintPredictor{}, nil
	})
	predictor.Register("SlowPredictor", func() (predictor.Predictor, error) {
		return &slowPredictor{}, nil
	})
}

// wrapInput mirrors the single required string field used throughout
// spec.md's literal scenarios.
type wrapInput struct {
	S string `cog:"description=text to wrap"`
}

// wrapPredictor wraps its input in asterisks: "bar" -> "*bar*".
type wrapPredictor struct{}

func (*wrapPredictor) Setup(ctx context.Context) error { return nil }

func (*wrapPredictor) Predict(ctx context.Context, in any) (any, error) {
	m := in.(map[string]any)
	return fmt.Sprintf("*%s*", m["S"].(string)), nil
}

func (*wrapPredictor) NewInput() any  { return &wrapInput{} }
func (*wrapPredictor) NewOutput() any { return "" }

// streamInput adds a repetition count to wrapInput's text field.
type streamInput struct {
	S string `cog:"description=text to wrap"`
	I int64  `cog:"description=number of items to yield,ge=1,le=10,default=1"`
}

// streamPredictor yields "*<s>-<n>*" for n in [0, i), sleeping briefly
// between items so cancellation mid-stream is observable in tests.
type streamPredictor struct{}

func (*streamPredictor) Setup(ctx context.Context) error { return nil }

func (*streamPredictor) Predict(ctx context.Context, in any) (any, error) {
	return nil, fmt.Errorf("example: StreamingPredictor only supports PredictStream")
}

func (*streamPredictor) PredictStream(ctx context.Context, in any) (<-chan any, error) {
	m := in.(map[string]any)
	s := m["S"].(string)
	i := m["I"].(int64)
	out := make(chan any)
	go func() {
		defer close(out)
		for n := int64(0); n < i; n++ {
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
			select {
			case out <- fmt.Sprintf("*%s-%d*", s, n):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (*streamPredictor) NewInput() any  { return &streamInput{} }
func (*streamPredictor) NewOutput() any { return "" }

// constraintInput exercises the bounded integer literal scenario from
// spec.md §8: count must satisfy 0 <= count <= 100.
type constraintInput struct {
	Count int64 `cog:"ge=0,le=100"`
}

type constraintPredictor struct{}

func (*constraintPredictor) Setup(ctx context.Context) error { return nil }

func (*constraintPredictor) Predict(ctx context.Context, in any) (any, error) {
	m := in.(map[string]any)
	return m["Count"].(int64), nil
}

func (*constraintPredictor) NewInput() any  { return &constraintInput{} }
func (*constraintPredictor) NewOutput() any { return int64(0) }

// slowInput is a single string field; slowPredictor sleeps before
// returning so callers can observe in-flight state (concurrency caps,
// cancellation) while it runs.
type slowInput struct {
	S string `cog:"description=text to wrap"`
}

type slowPredictor struct{}

func (*slowPredictor) Setup(ctx context.Context) error { return nil }

func (*slowPredictor) Predict(ctx context.Context, in any) (any, error) {
	m := in.(map[string]any)
	select {
	case <-time.After(150 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return fmt.Sprintf("*%s*", m["S"].(string)), nil
}

func (*slowPredictor) NewInput() any  { return &slowInput{} }
func (*slowPredictor) NewOutput() any { return "" }
