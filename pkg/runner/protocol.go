// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package runner

// StartupConfig is config.json's schema (§6): written once by the parent
// before the runner starts and deleted immediately after being read.
type StartupConfig struct {
	ModuleName     string `json:"module_name"`
	PredictorName  string `json:"predictor_name"`
	MaxConcurrency int    `json:"max_concurrency"`
}

// SetupResult is setup_result.json's schema (§6).
type SetupResult struct {
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
	Status      string `json:"status"` // "succeeded" | "failed"
}

// Status is the closed set of PredictionResponse.status values (§3).
type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusCanceled   Status = "canceled"
	StatusFailed     Status = "failed"
)

// Request is a request-<pid>.json document's schema (§3/§6). Input is left
// as a raw JSON-decoded map; field-by-field normalization happens in
// pkg/adapter's CheckInput against the registered predictor's declared
// InputFields.
type Request struct {
	Input   map[string]any    `json:"input"`
	Context map[string]string `json:"context,omitempty"`
	Webhook string            `json:"webhook,omitempty"`
}

// Response is a response-<pid>-<epoch>.json document's schema (§3/§6). For
// a streaming predictor, Output accumulates across epochs; for a
// non-streaming predictor it is set exactly once, in the terminal epoch.
type Response struct {
	Status      Status         `json:"status"`
	Output      any            `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	Logs        string         `json:"logs,omitempty"`
	Metrics     map[string]any `json:"metrics,omitempty"`
	StartedAt   string         `json:"started_at,omitempty"`
	CompletedAt string         `json:"completed_at,omitempty"`
}
