// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory_test

import (
	"testing"

	"github.com/leseb/prediction-runner/pkg/filestore"
	"github.com/leseb/prediction-runner/pkg/filestore/filestoretest"
	"github.com/leseb/prediction-runner/pkg/filestore/memory"
)

func TestMemoryConformance(t *testing.T) {
	filestoretest.RunConformanceTests(t, func(t *testing.T) filestore.FileStore {
		return memory.New()
	})
}
