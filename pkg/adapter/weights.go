// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/leseb/prediction-runner/pkg/filestore"
)

const localWeightsPath = "./weights"

// resolveWeights follows the original runner's setup() precedence: a
// COG_WEIGHTS_URL naming a remote blob, fetched through the configured
// filestore.FileStore and cached under a stable key derived from the URL;
// otherwise a well-known local "./weights" path if it exists; otherwise no
// weights at all (the zero value, "", which Setup leaves unused).
func (a *Adapter) resolveWeights(ctx context.Context) (string, error) {
	url := os.Getenv("COG_WEIGHTS_URL")
	if url == "" {
		if _, err := os.Stat(localWeightsPath); err == nil {
			return localWeightsPath, nil
		}
		return "", nil
	}

	if a.weights == nil {
		return "", fmt.Errorf("COG_WEIGHTS_URL is set but no weights store is configured")
	}

	key := weightsCacheKey(url)
	if _, err := a.weights.GetFile(ctx, key); err != nil {
		if !errors.Is(err, filestore.ErrFileNotFound) {
			return "", fmt.Errorf("check weights cache: %w", err)
		}
		if err := a.fetchWeights(ctx, url, key); err != nil {
			return "", err
		}
	}

	return a.materializeWeights(ctx, key)
}

func weightsCacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// fetchWeights downloads url and stores it in the weights cache under key.
// Only plain HTTP(S) URLs can be fetched. An s3:// URL is served only when
// the configured store already holds a blob under its cache key (the hash
// of the URL); otherwise it reaches this function and the fetch fails.
func (a *Adapter) fetchWeights(ctx context.Context, url, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build weights request: %w", err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch weights: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch weights: unexpected status %s", resp.Status)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read weights body: %w", err)
	}

	return a.weights.CreateFile(ctx, &filestore.File{
		ID:        key,
		Filename:  filepath.Base(url),
		Bytes:     int64(len(content)),
		Content:   content,
		CreatedAt: time.Now(),
	})
}

// materializeWeights writes the cached weights blob to a local path a
// predictor can open by filename, since WeightsReceiver.SetWeights hands
// over a path, not an in-memory blob.
func (a *Adapter) materializeWeights(ctx context.Context, key string) (string, error) {
	content, err := a.weights.GetFileContent(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read cached weights: %w", err)
	}

	dir := filepath.Join(os.TempDir(), "cog-weights")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create weights materialization dir: %w", err)
	}

	path := filepath.Join(dir, key)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", fmt.Errorf("write weights file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename weights file: %w", err)
	}
	return path, nil
}
