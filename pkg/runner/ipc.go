// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/leseb/prediction-runner/pkg/logging"
)

// IPC status values posted to the parent's callback endpoint (§6). The
// payload's pid field is the OS process id, matching the original runner's
// os.getpid() — distinct from the per-prediction pid token carried in
// filenames, which is never part of the IPC payload.
const (
	ipcReady  = "READY"
	ipcBusy   = "BUSY"
	ipcOutput = "OUTPUT"
)

type ipcPayload struct {
	Name   string `json:"name"`
	PID    int    `json:"pid"`
	Status string `json:"status"`
}

// ipcClient posts compact status transitions to the parent orchestrator.
// Failures are logged and ignored (§6/§7): the working directory remains
// the authoritative channel regardless of IPC delivery.
type ipcClient struct {
	url    string
	name   string
	client *http.Client
	logger *logging.Logger
}

func newIPCClient(url, name string, logger *logging.Logger) *ipcClient {
	return &ipcClient{
		url:    url,
		name:   name,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// send posts status, silently no-op-ing when no URL is configured (local
// development, or a test driving the loop with no parent to receive IPC).
func (c *ipcClient) send(status string) {
	if c.url == "" {
		return
	}
	payload, err := json.Marshal(ipcPayload{Name: c.name, PID: os.Getpid(), Status: status})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		c.logWarn("ipc: build request failed", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logWarn("ipc: send failed", err)
		return
	}
	defer resp.Body.Close()
}

func (c *ipcClient) logWarn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, "error", err)
	}
}
