// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/leseb/prediction-runner/pkg/adapter"
)

// runPrediction executes one prediction end to end: it emits the starting
// response immediately when a webhook is configured, acquires sem (the
// actual concurrency cap; §9 notes this is a deliberate strengthening over
// the original's IPC-only accounting), runs the predictor streaming or not,
// and always emits a terminal response. It never returns an error — every
// failure mode (validation, a predictor's own error, cancellation) is
// captured into the response itself, so one prediction's failure never
// brings down the loop (§7).
func (r *Runner) runPrediction(ctx context.Context, pid string, req Request, adp *adapter.Adapter, sem *semaphore.Weighted) {
	resp := &Response{Status: StatusStarting, StartedAt: nowRFC3339()}
	r.scope.SetContext(pid, req.Context)
	hasWebhook := req.Webhook != ""

	epoch := 0
	if hasWebhook {
		r.respond(pid, epoch, resp)
		epoch++
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		resp.Status = StatusCanceled
		resp.CompletedAt = nowRFC3339()
		r.finish(pid, epoch, resp)
		return
	}
	defer sem.Release(1)

	r.scope.SetCurrent(pid)
	defer r.scope.ClearCurrent()

	if adp.IsStreaming() {
		r.runStreaming(ctx, pid, req, adp, resp, &epoch, hasWebhook)
	} else {
		r.runSingle(ctx, req, adp, resp)
	}

	resp.CompletedAt = nowRFC3339()
	r.finish(pid, epoch, resp)
}

// runSingle drives a non-streaming predictor. ctx.Err() is checked ahead of
// the returned error so a predictor that doesn't itself observe
// cancellation (a genuinely blocking call) still produces a canceled
// response rather than a stale succeeded one.
func (r *Runner) runSingle(ctx context.Context, req Request, adp *adapter.Adapter, resp *Response) {
	out, err := adp.Predict(ctx, req.Input)
	switch {
	case ctx.Err() != nil:
		resp.Status = StatusCanceled
	case err != nil:
		resp.Status = StatusFailed
		resp.Error = err.Error()
		r.logger.Error("prediction failed", "error", err)
	default:
		resp.Status = StatusSucceeded
		resp.Output = out
	}
}

// runStreaming drives a streaming predictor, appending each item to the
// accumulating output and, when a webhook is configured, emitting an
// incremental response per item (§3's "processing" epochs).
func (r *Runner) runStreaming(ctx context.Context, pid string, req Request, adp *adapter.Adapter, resp *Response, epoch *int, hasWebhook bool) {
	items, errs := adp.PredictStream(ctx, req.Input)
	resp.Status = StatusProcessing
	output := []any{}
	resp.Output = output

	canceled := false
loop:
	for {
		select {
		case item, ok := <-items:
			if !ok {
				break loop
			}
			output = append(output, item)
			resp.Output = output
			if hasWebhook {
				r.respond(pid, *epoch, resp)
				*epoch++
			}
		case <-ctx.Done():
			canceled = true
			break loop
		}
	}

	var streamErr error
	select {
	case streamErr = <-errs:
	default:
	}

	switch {
	case canceled || ctx.Err() != nil:
		resp.Status = StatusCanceled
	case streamErr != nil:
		resp.Status = StatusFailed
		resp.Error = streamErr.Error()
		r.logger.Error("prediction failed", "pid", pid, "error", streamErr)
	default:
		resp.Status = StatusSucceeded
	}
}

// respond attaches whatever metrics pkg/scope has recorded so far and
// writes resp at epoch, posting IPC_OUTPUT on success. Used for every
// epoch, non-terminal or terminal alike (§6 "_respond always notifies").
func (r *Runner) respond(pid string, epoch int, resp *Response) {
	if m := r.scope.Metrics(pid); m != nil {
		resp.Metrics = m
	}
	if err := r.writeResponseFile(pid, epoch, resp); err != nil {
		r.logger.Error("failed to write response file", "pid", pid, "epoch", epoch, "error", err)
		return
	}
	r.ipc.send(ipcOutput)
}

// finish emits the terminal response for pid, then flushes its buffered
// log output and discards its scope bookkeeping.
func (r *Runner) finish(pid string, epoch int, resp *Response) {
	r.respond(pid, epoch, resp)
	for _, w := range r.stdio {
		w.Flush(pid)
	}
	r.scope.Cleanup(pid)
}

func (r *Runner) writeResponseFile(pid string, epoch int, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return r.atomicWrite(responseFilename(pid, epoch), data)
}
