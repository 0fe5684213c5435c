// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leseb/prediction-runner/pkg/config"
	"github.com/leseb/prediction-runner/pkg/filestore"
	"github.com/leseb/prediction-runner/pkg/logging"
	"github.com/leseb/prediction-runner/pkg/runner"
	"github.com/leseb/prediction-runner/pkg/scope"

	// Blank imports register weights store backends via init(). Remove any
	// of these to exclude the backend from the binary.
	_ "github.com/leseb/prediction-runner/pkg/filestore/filesystem"
	_ "github.com/leseb/prediction-runner/pkg/filestore/memory"
	_ "github.com/leseb/prediction-runner/pkg/filestore/s3"

	// The predictor package a deployment hosts is wired in by replacing
	// this import with the project-specific one; it must self-register
	// under a name through predictor.Register in an init().
	_ "github.com/leseb/prediction-runner/pkg/predictor/example"
)

func main() {
	os.Exit(run())
}

// run holds everything main would otherwise do directly, so its deferred
// cleanups (stdio restore, weights store close, signal-context stop) run on
// a normal return instead of being skipped by os.Exit.
func run() int {
	flags := config.Flags{}
	flag.StringVar(&flags.Name, "name", "", "name this runner reports over IPC")
	flag.StringVar(&flags.IPCURL, "ipc-url", "", "parent callback URL for IPC status posts (optional)")
	flag.StringVar(&flags.WorkingDir, "working-dir", ".", "directory the runner watches for request/control files")
	configPath := flag.String("config", "", "optional YAML override file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load runner config:", err)
		return runner.ExitSetupFailed
	}
	cfg.Flags = flags

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	scopeMgr := scope.New()
	stdout, stderr, restoreStdio, err := scope.RedirectStdio(scopeMgr)
	if err != nil {
		logger.Error("failed to redirect stdio", "error", err)
		return runner.ExitSetupFailed
	}
	defer restoreStdio()

	weightsCtx := context.Background()
	weights, err := filestore.Providers.New(weightsCtx, cfg.Weights.Type, map[string]string{
		"base_dir": cfg.Weights.BaseDir,
		"bucket":   cfg.Weights.S3Bucket,
		"region":   cfg.Weights.S3Region,
		"prefix":   cfg.Weights.S3Prefix,
		"endpoint": cfg.Weights.S3Endpoint,
	})
	if err != nil {
		logger.Error("failed to initialize weights store", "type", cfg.Weights.Type, "error", err)
		return runner.ExitSetupFailed
	}
	defer weights.Close(context.Background())
	logger.Info("initialized weights store", "type", cfg.Weights.Type)

	r := runner.New(runner.Options{
		Name:            cfg.Flags.Name,
		IPCURL:          cfg.Flags.IPCURL,
		WorkingDir:      cfg.Flags.WorkingDir,
		PollInterval:    cfg.Runner.PollInterval,
		ConfigWaitLimit: cfg.Runner.ConfigWaitLimit,
		Logger:          logger,
		Scope:           scopeMgr,
		Stdio:           []*scope.TaggingWriter{stdout, stderr},
		Weights:         weights,
	})

	// Shutdown is parent-driven (the `stop` file, per §4.7); SIGTERM from a
	// supervising process manager is honored the same way an HTTP server
	// would honor it, by cancelling the loop's context so in-flight
	// predictions still drain through runner.Run's own stop handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	return r.Run(ctx)
}
