// Copyright (c) 2025 The centralised-logging Authors
//
// This file is part of centralised-logging.
//
// centralised-logging is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact the centralised-logging maintainers for commercial licensing options.

// Package factory builds object store backends by name.
package factory

import (
	"sort"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"
)

// StoreCreator is a function that creates a configured object store.
type StoreCreator func(settings map[string]string) (common.ObjectStore, error)

var storeRegistry = make(map[string]StoreCreator)

// RegisterStore registers an object store creator.
func RegisterStore(backendType string, creator StoreCreator) {
	storeRegistry[backendType] = creator
}

// NewStore creates a new object store based on the given type.
func NewStore(backendType string, settings map[string]string) (common.ObjectStore, error) {
	creator, exists := storeRegistry[backendType]
	if !exists {
		return nil, ErrUnknownBackend
	}
	return creator(settings)
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	names := make([]string, 0, len(storeRegistry))
	for name := range storeRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// configured wraps a constructor so the returned store is configured before use.
func configured(newStore func() common.ObjectStore) StoreCreator {
	return func(settings map[string]string) (common.ObjectStore, error) {
		store := newStore()
		if err := store.Configure(settings); err != nil {
			return nil, err
		}
		return store, nil
	}
}
