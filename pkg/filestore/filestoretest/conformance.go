// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestoretest provides a shared conformance test suite for
// filestore.FileStore implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package filestoretest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leseb/prediction-runner/pkg/filestore"
)

// RunConformanceTests exercises a FileStore implementation against the shared
// contract. The newStore function is called once per sub-test to provide an
// isolated store instance.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) filestore.FileStore) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		f := &filestore.File{
			ID:        "sha256:abc123",
			Filename:  "weights.bin",
			Bytes:     5,
			Content:   []byte("hello"),
			CreatedAt: time.Now().Truncate(time.Millisecond),
		}

		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}

		got, err := store.GetFile(ctx, f.ID)
		if err != nil {
			t.Fatalf("GetFile: %v", err)
		}

		if got.ID != f.ID || got.Filename != f.Filename || got.Bytes != f.Bytes {
			t.Errorf("GetFile returned unexpected metadata: %+v", got)
		}

		// Content should be nil from GetFile (metadata-only)
		if got.Content != nil {
			t.Errorf("expected Content to be nil from GetFile, got %d bytes", len(got.Content))
		}
	})

	t.Run("GetContent", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		content := []byte("weights content here")
		f := &filestore.File{
			ID:        "sha256:content1",
			Filename:  "model.bin",
			Bytes:     int64(len(content)),
			Content:   content,
			CreatedAt: time.Now().Truncate(time.Millisecond),
		}

		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}

		got, err := store.GetFileContent(ctx, f.ID)
		if err != nil {
			t.Fatalf("GetFileContent: %v", err)
		}

		if string(got) != string(content) {
			t.Errorf("content mismatch: got %q, want %q", got, content)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		f := &filestore.File{
			ID:        "sha256:del1",
			Filename:  "del.bin",
			Bytes:     3,
			Content:   []byte("del"),
			CreatedAt: time.Now().Truncate(time.Millisecond),
		}

		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}

		if err := store.DeleteFile(ctx, f.ID); err != nil {
			t.Fatalf("DeleteFile: %v", err)
		}

		_, err := store.GetFile(ctx, f.ID)
		if !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound after delete, got: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		_, err := store.GetFile(ctx, "sha256:nonexistent")
		if !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("GetFile expected ErrFileNotFound, got: %v", err)
		}

		_, err = store.GetFileContent(ctx, "sha256:nonexistent")
		if !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("GetFileContent expected ErrFileNotFound, got: %v", err)
		}

		err = store.DeleteFile(ctx, "sha256:nonexistent")
		if !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("DeleteFile expected ErrFileNotFound, got: %v", err)
		}
	})

	t.Run("DuplicateCreate", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		f := &filestore.File{
			ID:        "sha256:dup1",
			Filename:  "dup.bin",
			Bytes:     3,
			Content:   []byte("dup"),
			CreatedAt: time.Now().Truncate(time.Millisecond),
		}

		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatalf("first CreateFile: %v", err)
		}

		// Memory backend rejects duplicates; filesystem/S3 overwrite is acceptable
		// since weights resolution is keyed by a hash of the source URL, so a
		// second write under the same key carries the same blob.
		_ = store.CreateFile(ctx, f)
	})
}
