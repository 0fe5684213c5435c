// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package scope tracks per-prediction state — metrics, context key/values,
// and the active pid used to tag captured stdout/stderr — across the
// lifetime of one prediction task. A process hosts exactly one predictor but
// may run several predictions concurrently (bounded by max_concurrency), so
// state is keyed by the pid token extracted from the request filename, not
// by goroutine.
package scope

import (
	"sync"
	"sync/atomic"
)

// Manager owns all per-pid state for one runner process. The zero value is
// not usable; construct with New.
type Manager struct {
	mu       sync.Mutex
	metrics  map[string]map[string]any
	contexts map[string]map[string]string

	current atomic.Pointer[string]
}

// New constructs an empty Manager.
func New() *Manager {
	return &Manager{
		metrics:  make(map[string]map[string]any),
		contexts: make(map[string]map[string]string),
	}
}

// SetCurrent marks pid as the active prediction for log tagging. Call
// ClearCurrent when the prediction's goroutine returns control, since the
// tagging writer falls back to "[pid=logger]" whenever no pid is current.
func (m *Manager) SetCurrent(pid string) {
	p := pid
	m.current.Store(&p)
}

// ClearCurrent marks no prediction as active.
func (m *Manager) ClearCurrent() {
	m.current.Store(nil)
}

// CurrentPID returns the active prediction's pid, or "", false if none is
// set.
func (m *Manager) CurrentPID() (string, bool) {
	p := m.current.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// RecordMetric overwrites (idempotently) a named metric for pid. User code
// reaches this through a Scope handle (see Scope below), never directly.
func (m *Manager) RecordMetric(pid, name string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.metrics[pid]
	if !ok {
		bucket = make(map[string]any)
		m.metrics[pid] = bucket
	}
	bucket[name] = value
}

// Metrics returns a copy of pid's recorded metrics, or nil if none were
// recorded.
func (m *Manager) Metrics(pid string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.metrics[pid]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(bucket))
	for k, v := range bucket {
		out[k] = v
	}
	return out
}

// SetContext replaces pid's context key/value map with ctx as given. The
// request reader passes the request's context through unfiltered, and scope
// itself imposes no filtering either.
func (m *Manager) SetContext(pid string, ctx map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts[pid] = ctx
}

// Context returns pid's context map, or nil if none was set.
func (m *Manager) Context(pid string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contexts[pid]
}

// Cleanup drops pid's metrics and context. The caller is responsible for
// flushing the tagging writer's buffered partial line for pid first (see
// TaggingWriter.Flush) — Cleanup only clears the bookkeeping maps here.
func (m *Manager) Cleanup(pid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.metrics, pid)
	delete(m.contexts, pid)
}

// Scope is the handle user predictor code receives for the active
// prediction: a thin pid-bound view over the Manager, mirroring cog's
// current_scope() compatibility shim.
type Scope struct {
	pid     string
	manager *Manager
}

// Current returns the Scope for the prediction the Manager currently has
// active. Calling it with no active pid is a programming error in caller
// code (user predictors only ever see a Scope from inside Predict), so it
// panics rather than returning a zero-value Scope silently.
func Current(m *Manager) Scope {
	pid, ok := m.CurrentPID()
	if !ok {
		panic("scope: no active prediction")
	}
	return Scope{pid: pid, manager: m}
}

// RecordMetric records a metric against this scope's prediction.
func (s Scope) RecordMetric(name string, value any) {
	s.manager.RecordMetric(s.pid, name, value)
}

// Context returns this scope's context map.
func (s Scope) Context() map[string]string {
	return s.manager.Context(s.pid)
}
