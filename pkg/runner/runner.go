// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/leseb/prediction-runner/pkg/adapter"
	"github.com/leseb/prediction-runner/pkg/filestore"
	"github.com/leseb/prediction-runner/pkg/logging"
	"github.com/leseb/prediction-runner/pkg/openapi"
	"github.com/leseb/prediction-runner/pkg/predictor"
	"github.com/leseb/prediction-runner/pkg/scope"
)

// ErrConfigTimeout is returned by Run when no config.json appears within
// Options.ConfigWaitLimit (§4.6 step 1).
var ErrConfigTimeout = errors.New("runner: no config.json appeared before the wait limit")

// Exit codes per §4.7/§7. Go's os.Exit takes a byte-range status; spec.md's
// literal "-1" for the missing/late config case is represented as its
// POSIX-wrapped value, 255.
const (
	ExitOK            = 0
	ExitSetupFailed   = 1
	ExitConfigTimeout = 255
)

const (
	defaultPollInterval    = 100 * time.Millisecond
	defaultConfigWaitLimit = 60 * time.Second
)

// Options configures a Runner. Logger, Scope, and WorkingDir are required;
// the rest have spec-mandated defaults.
type Options struct {
	Name            string
	IPCURL          string
	WorkingDir      string
	PollInterval    time.Duration
	ConfigWaitLimit time.Duration
	Logger          *logging.Logger
	Scope           *scope.Manager
	// Stdio, when non-nil, is flushed per-pid as each prediction completes
	// (see pkg/scope.RedirectStdio). Tests that don't redirect os.Stdout
	// leave this nil.
	Stdio []*scope.TaggingWriter
	// Weights is consulted by pkg/adapter to resolve COG_WEIGHTS_URL. A nil
	// FileStore is valid: Setup then only honors the local ./weights
	// fallback path, and fails if COG_WEIGHTS_URL is set.
	Weights filestore.FileStore
}

// Runner is the C6 File-Runner Loop plus the C7 lifecycle/signal handling
// around it: one Runner drives one predictor process end to end, from the
// startup handshake through the polling loop to a clean or forced stop.
type Runner struct {
	name            string
	workingDir      string
	pollInterval    time.Duration
	configWaitLimit time.Duration
	logger          *logging.Logger
	scope           *scope.Manager
	stdio           []*scope.TaggingWriter
	weights         filestore.FileStore
	ipc             *ipcClient

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// New constructs a Runner from opts, applying spec-mandated defaults for
// any zero-valued tuning knob.
func New(opts Options) *Runner {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	wait := opts.ConfigWaitLimit
	if wait <= 0 {
		wait = defaultConfigWaitLimit
	}
	return &Runner{
		name:            opts.Name,
		workingDir:      opts.WorkingDir,
		pollInterval:    poll,
		configWaitLimit: wait,
		logger:          opts.Logger,
		scope:           opts.Scope,
		stdio:           opts.Stdio,
		weights:         opts.Weights,
		ipc:             newIPCClient(opts.IPCURL, opts.Name, opts.Logger),
		inflight:        make(map[string]context.CancelFunc),
	}
}

// Run executes the full lifecycle: the startup handshake (wait for
// config.json, pre-clean stale artifacts, build the predictor's schema,
// emit openapi.json, run setup, write setup_result.json, install
// cancellation handling, signal readiness) followed by the polling loop
// (§4.6). It returns the process exit code the caller should pass to
// os.Exit; Run itself never calls os.Exit so it stays testable.
func (r *Runner) Run(ctx context.Context) int {
	r.logger.Info("starting file runner",
		"name", r.name, "working_dir", r.workingDir)

	cfg, err := r.waitForConfig(ctx)
	if err != nil {
		r.logger.Error("failed to read startup config", "error", err)
		return ExitConfigTimeout
	}

	r.precleanArtifacts()

	result := SetupResult{StartedAt: nowRFC3339()}

	p, err := predictor.New(ctx, cfg.PredictorName)
	if err != nil {
		return r.failSetup(&result, fmt.Errorf("construct predictor %q: %w", cfg.PredictorName, err))
	}

	info, err := predictor.BuildInfo(cfg.ModuleName, cfg.PredictorName, p)
	if err != nil {
		return r.failSetup(&result, fmt.Errorf("build predictor schema: %w", err))
	}

	doc, err := openapi.Build(ctx, info)
	if err != nil {
		return r.failSetup(&result, fmt.Errorf("build openapi schema: %w", err))
	}
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return r.failSetup(&result, fmt.Errorf("marshal openapi schema: %w", err))
	}
	if err := r.atomicWrite(openapiFilename, docBytes); err != nil {
		return r.failSetup(&result, fmt.Errorf("write openapi.json: %w", err))
	}

	adp := adapter.New(info, p, r.logger, r.weights)

	r.logger.Info("setup started")
	if err := adp.Setup(ctx); err != nil {
		return r.failSetup(&result, fmt.Errorf("predictor setup: %w", err))
	}
	r.logger.Info("setup completed")

	result.Status = "succeeded"
	result.CompletedAt = nowRFC3339()
	if err := r.writeJSONFile(setupResultFilename, result); err != nil {
		r.logger.Error("failed to write setup_result.json", "error", err)
		return ExitSetupFailed
	}

	restore := r.installSignalHandling(adp)
	defer restore()

	r.ipc.send(ipcReady)
	if err := r.atomicWrite(readyFilename, nil); err != nil {
		r.logger.Warn("failed to write ready file", "error", err)
	}

	return r.serve(ctx, adp, cfg.MaxConcurrency)
}

func (r *Runner) failSetup(result *SetupResult, cause error) int {
	r.logger.Error("setup failed", "error", cause)
	result.Status = "failed"
	result.CompletedAt = nowRFC3339()
	if err := r.writeJSONFile(setupResultFilename, result); err != nil {
		r.logger.Error("failed to write setup_result.json", "error", err)
	}
	return ExitSetupFailed
}

// waitForConfig polls for config.json every PollInterval up to
// ConfigWaitLimit, deleting it once read (§4.6 step 1).
func (r *Runner) waitForConfig(ctx context.Context) (*StartupConfig, error) {
	path := filepath.Join(r.workingDir, configFilename)
	deadline := time.Now().Add(r.configWaitLimit)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if rmErr := os.Remove(path); rmErr != nil {
				return nil, fmt.Errorf("delete %s: %w", configFilename, rmErr)
			}
			var cfg StartupConfig
			if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil {
				return nil, fmt.Errorf("parse %s: %w", configFilename, jsonErr)
			}
			if cfg.MaxConcurrency < 1 {
				return nil, fmt.Errorf("%s: max_concurrency must be >= 1, got %d", configFilename, cfg.MaxConcurrency)
			}
			return &cfg, nil
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read %s: %w", configFilename, err)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w (%s)", ErrConfigTimeout, r.configWaitLimit)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// precleanArtifacts removes stale control files a previous run (or a
// crashed one) may have left behind, per §4.6 step 2. Missing files are not
// an error.
func (r *Runner) precleanArtifacts() {
	for _, name := range []string{setupResultFilename, stopFilename, openapiFilename, readyFilename} {
		path := filepath.Join(r.workingDir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("failed to remove stale artifact", "file", name, "error", err)
		}
	}
}

// installSignalHandling wires up the cancellation channel the spec's
// duality requires (§4.6 step 5, §4.7): a streaming predictor is always
// cancelled through cancel-<pid> files (the async_predict marker tells a
// parent not to bother with the signal), so it gets a no-op restore; a
// non-streaming predictor additionally accepts SIGUSR1, which cancels
// whichever pid pkg/scope currently has active. SIGINT is ignored
// unconditionally so a terminal Ctrl-C reaches only the parent (§4.7).
func (r *Runner) installSignalHandling(adp *adapter.Adapter) func() {
	signal.Ignore(syscall.SIGINT)

	if adp.IsStreaming() {
		if err := r.atomicWrite(asyncPredictFilename, nil); err != nil {
			r.logger.Warn("failed to write async_predict marker", "error", err)
		}
		return func() {}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
				if pid, ok := r.scope.CurrentPID(); ok {
					r.cancelPID(pid)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func (r *Runner) cancelPID(pid string) {
	r.mu.Lock()
	cancel, ok := r.inflight[pid]
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// serve runs the §4.6 main loop: a 100ms-ticked scan of the working
// directory dispatching cancel/request entries, ready/busy IPC transitions
// at the max_concurrency boundary, and a clean stop when the parent drops a
// stop file or the context is canceled.
func (r *Runner) serve(ctx context.Context, adp *adapter.Adapter, maxConcurrency int) int {
	sem := semaphore.NewWeighted(int64(maxConcurrency))
	var g errgroup.Group
	ready := true // the startup handshake already sent the initial READY

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.drainAndWait(&g)
			return ExitOK
		case <-ticker.C:
		}

		if r.stopRequested() {
			r.logger.Info("stopping file runner")
			_ = os.Remove(filepath.Join(r.workingDir, stopFilename))
			r.drainAndWait(&g)
			return ExitOK
		}

		entries, err := os.ReadDir(r.workingDir)
		if err != nil {
			r.logger.Error("failed to scan working directory", "error", err)
			continue
		}

		for _, entry := range entries {
			name := entry.Name()

			if pid, ok := matchCancel(name); ok {
				r.handleCancelEntry(name, pid)
				continue
			}

			pid, ok := matchRequest(name)
			if !ok {
				continue
			}
			req, ok := r.readRequestEntry(name, pid)
			if !ok {
				continue
			}

			predCtx, cancel := context.WithCancel(ctx)
			r.mu.Lock()
			r.inflight[pid] = cancel
			n := len(r.inflight)
			r.mu.Unlock()

			if ready && n == maxConcurrency {
				ready = false
				r.ipc.send(ipcBusy)
			}

			r.logger.Info("prediction started", "pid", pid)
			g.Go(func() error {
				r.runPrediction(predCtx, pid, req, adp, sem)
				r.mu.Lock()
				delete(r.inflight, pid)
				r.mu.Unlock()
				return nil
			})
		}

		r.mu.Lock()
		n := len(r.inflight)
		r.mu.Unlock()
		if !ready && n < maxConcurrency {
			ready = true
			r.ipc.send(ipcReady)
		}
	}
}

func (r *Runner) handleCancelEntry(name, pid string) {
	if err := os.Remove(filepath.Join(r.workingDir, name)); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("failed to remove cancel marker", "pid", pid, "error", err)
	}
	r.mu.Lock()
	cancel, found := r.inflight[pid]
	r.mu.Unlock()
	if !found {
		r.logger.Warn("cancel for unknown or already-completed prediction", "pid", pid)
		return
	}
	cancel()
	r.logger.Info("canceling prediction", "pid", pid)
}

func (r *Runner) readRequestEntry(name, pid string) (Request, bool) {
	path := filepath.Join(r.workingDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("failed to read request file", "pid", pid, "error", err)
		return Request{}, false
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("failed to remove request file", "pid", pid, "error", err)
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		r.logger.Error("malformed request file", "pid", pid, "error", err)
		return Request{}, false
	}
	return req, true
}

// drainAndWait cancels every in-flight prediction and blocks until each has
// produced its terminal response, per §4.6's stop handling.
func (r *Runner) drainAndWait(g *errgroup.Group) {
	r.mu.Lock()
	for pid, cancel := range r.inflight {
		cancel()
		r.logger.Info("prediction canceled", "pid", pid)
	}
	r.mu.Unlock()
	_ = g.Wait()
}

func (r *Runner) stopRequested() bool {
	_, err := os.Stat(filepath.Join(r.workingDir, stopFilename))
	return err == nil
}

func (r *Runner) writeJSONFile(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return r.atomicWrite(name, data)
}

// atomicWrite writes data to a temp file alongside name then renames it
// into place, so a reader polling the directory never observes a partial
// file (§5, §9 "Atomic response visibility").
func (r *Runner) atomicWrite(name string, data []byte) error {
	final := filepath.Join(r.workingDir, name)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
