// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"fmt"
	"io"
	"os"
)

// RedirectStdio splices os.Stdout and os.Stderr through pipes into two
// TaggingWriters backed by the process's original stdout/stderr, so any
// write a predictor makes with a bare fmt.Println or the print family — not
// just writes through pkg/logging — still gets pid-tagged (§9 "monkey-
// patched stdio"). It returns the two writers (for Runner.Options.Stdio)
// and a restore function that stops the copy goroutines and points
// os.Stdout/os.Stderr back at the originals; callers should defer restore
// before process exit to avoid leaking the pipe goroutines.
//
// This is wired from cmd/runner only: pkg/runner's own tests drive the
// loop without mutating the process-wide os.Stdout/os.Stderr, so they stay
// hermetic and parallel-safe.
func RedirectStdio(m *Manager) (stdout, stderr *TaggingWriter, restore func(), err error) {
	origStdout, origStderr := os.Stdout, os.Stderr

	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("scope: open stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, nil, nil, fmt.Errorf("scope: open stderr pipe: %w", err)
	}

	stdout = NewTaggingWriter(origStdout, m)
	stderr = NewTaggingWriter(origStderr, m)

	done := make(chan struct{}, 2)
	go func() { io.Copy(stdout, outR); done <- struct{}{} }()
	go func() { io.Copy(stderr, errR); done <- struct{}{} }()

	os.Stdout, os.Stderr = outW, errW

	restore = func() {
		os.Stdout, os.Stderr = origStdout, origStderr
		outW.Close()
		errW.Close()
		<-done
		<-done
	}
	return stdout, stderr, restore, nil
}
