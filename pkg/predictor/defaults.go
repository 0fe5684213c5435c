// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package predictor

import (
	"fmt"
	"sync"
)

// DefaultFactory stands in for a cog:"default_factory=name" tag: invoked
// once by BuildInfo to validate the produced value against the field's
// constraints, and once per prediction by pkg/adapter's check_input to
// apply a missing field's default (Python's equivalent is a mutable-default
// factory re-invoked on every call so separate predictions never share
// state through a shared default slice/map).
type DefaultFactory func() (any, error)

var (
	defaultFactoriesMu sync.RWMutex
	defaultFactories   = map[string]DefaultFactory{}
)

// RegisterDefaultFactory activates a named default factory, typically from
// the same init() that registers the predictor using it.
func RegisterDefaultFactory(name string, f DefaultFactory) {
	defaultFactoriesMu.Lock()
	defer defaultFactoriesMu.Unlock()
	if _, exists := defaultFactories[name]; exists {
		panic(fmt.Sprintf("predictor: default factory %q already registered", name))
	}
	defaultFactories[name] = f
}

func lookupDefaultFactory(name string) (DefaultFactory, error) {
	defaultFactoriesMu.RLock()
	defer defaultFactoriesMu.RUnlock()
	f, ok := defaultFactories[name]
	if !ok {
		return nil, fmt.Errorf("predictor: unknown default factory %q", name)
	}
	return f, nil
}
