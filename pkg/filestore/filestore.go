// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestore resolves a predictor's weights: a blob named by
// COG_WEIGHTS_URL (see pkg/adapter) and cached locally under a stable key so
// Setup only pays the fetch cost once per process lifetime.
package filestore

import (
	"context"
	"errors"
	"time"

	"github.com/leseb/prediction-runner/pkg/provider"
)

// ErrFileNotFound is returned when a weights blob does not exist under the
// requested key.
var ErrFileNotFound = errors.New("file not found")

// Providers is the registry of weights store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/leseb/prediction-runner/pkg/filestore/memory"
//	import _ "github.com/leseb/prediction-runner/pkg/filestore/filesystem"
//	import _ "github.com/leseb/prediction-runner/pkg/filestore/s3"
var Providers = provider.NewRegistry[FileStore]("file_store")

// File represents a cached weights blob: its stable key (derived from the
// COG_WEIGHTS_URL that produced it) and, once resolved, its content.
type File struct {
	ID        string // cache key, derived from the source URL
	Filename  string // basename hint for the local cache path
	Bytes     int64
	Content   []byte // populated for CreateFile input; nil for GetFile output
	CreatedAt time.Time
}

// FileStore defines the interface for pluggable weights cache backends.
// There is no listing operation: a predictor resolves exactly one weights
// blob per process, named by COG_WEIGHTS_URL, never a browsable collection.
type FileStore interface {
	CreateFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, fileID string) (*File, error)
	GetFileContent(ctx context.Context, fileID string) ([]byte, error)
	DeleteFile(ctx context.Context, fileID string) error
	Close(ctx context.Context) error
}
