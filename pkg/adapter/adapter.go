// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package adapter wraps a registered predictor.Predictor with the uniform
// invocation machinery every prediction goes through: input normalization
// and defaulting (check_input), weights resolution ahead of Setup, and
// output normalization plus a JSON-serializability preflight before a
// result is attached to a response.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/leseb/prediction-runner/pkg/filestore"
	"github.com/leseb/prediction-runner/pkg/logging"
	"github.com/leseb/prediction-runner/pkg/predictor"
)

// ErrFieldRequired is returned by CheckInput when a field has neither a
// supplied value nor a resolved default and is not OPTIONAL.
var ErrFieldRequired = errors.New("missing required input field")

// WeightsReceiver is an optional interface a Predictor implements to accept
// a resolved weights path or URL ahead of Setup. Go's static method set
// gives no equivalent to Python's "does setup() accept a weights kwarg"
// signature inspection, so this is the idiomatic stand-in: Setup itself
// never takes a weights parameter, and a predictor that cares about weights
// opts in by implementing SetWeights.
type WeightsReceiver interface {
	SetWeights(path string)
}

// Adapter is the C5 Predictor Adapter: one per running predictor instance,
// constructed once in pkg/runner after predictor.BuildInfo succeeds.
type Adapter struct {
	info      *predictor.PredictorInfo
	predictor predictor.Predictor
	logger    *logging.Logger
	weights   filestore.FileStore
	http      *http.Client
}

// New constructs an Adapter. weights may be nil when no weights store
// backend is configured; Setup then consults only the local ./weights
// fallback path, and fails if COG_WEIGHTS_URL is set.
func New(info *predictor.PredictorInfo, p predictor.Predictor, logger *logging.Logger, weights filestore.FileStore) *Adapter {
	return &Adapter{
		info:      info,
		predictor: p,
		logger:    logger,
		weights:   weights,
		http:      &http.Client{Timeout: 10 * time.Minute},
	}
}

// Info returns the PredictorInfo this Adapter was built from.
func (a *Adapter) Info() *predictor.PredictorInfo {
	return a.info
}

// IsStreaming reports whether the wrapped predictor satisfies
// predictor.StreamingPredictor, i.e. its OutputType.Kind is ITERATOR or
// CONCAT_ITERATOR.
func (a *Adapter) IsStreaming() bool {
	_, ok := a.predictor.(predictor.StreamingPredictor)
	return ok
}

// Setup resolves weights (if the predictor implements WeightsReceiver) and
// then runs the predictor's own Setup.
func (a *Adapter) Setup(ctx context.Context) error {
	if wr, ok := a.predictor.(WeightsReceiver); ok {
		path, err := a.resolveWeights(ctx)
		if err != nil {
			return fmt.Errorf("adapter: resolve weights: %w", err)
		}
		if path != "" {
			wr.SetWeights(path)
		}
	}
	return a.predictor.Setup(ctx)
}

// Predict runs one non-streaming prediction: normalize+default+validate the
// raw input, invoke the predictor, then normalize+preflight the output.
// Callers must not call Predict against a streaming OutputType; use
// PredictStream instead.
func (a *Adapter) Predict(ctx context.Context, raw map[string]any) (any, error) {
	input, err := a.CheckInput(ctx, raw)
	if err != nil {
		return nil, err
	}
	out, err := a.predictor.Predict(ctx, input)
	if err != nil {
		return nil, err
	}
	return a.EncodeOutput(ctx, out)
}

// PredictStream runs a streaming prediction, returning a channel of
// already-encoded, JSON-preflighted output items. A send on the returned
// error channel (buffered, capacity 1) signals the stream ended abnormally;
// the item channel is always closed when the prediction is done, whether it
// succeeded or failed.
func (a *Adapter) PredictStream(ctx context.Context, raw map[string]any) (<-chan any, <-chan error) {
	items := make(chan any)
	errs := make(chan error, 1)

	sp, ok := a.predictor.(predictor.StreamingPredictor)
	if !ok {
		errs <- fmt.Errorf("adapter: predictor is not a StreamingPredictor")
		close(items)
		close(errs)
		return items, errs
	}

	input, err := a.CheckInput(ctx, raw)
	if err != nil {
		errs <- err
		close(items)
		close(errs)
		return items, errs
	}

	go func() {
		defer close(items)
		defer close(errs)

		src, err := sp.PredictStream(ctx, input)
		if err != nil {
			errs <- err
			return
		}
		for item := range src {
			encoded, err := a.EncodeOutput(ctx, item)
			if err != nil {
				errs <- err
				return
			}
			select {
			case items <- encoded:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return items, errs
}
