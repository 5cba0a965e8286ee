// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chain

import (
	"log/slog"
	"sync"

	"github.com/AleutianAI/mockchain/storage"
)

// The default registry holds at most one shared store per process, so
// independently initialized collaborators (interceptor, inspection
// panel) observe the same state without explicit wiring. Tests call
// ResetDefault in setup or teardown for isolation — or construct
// their own stores and skip the registry entirely.
var defaultRegistry struct {
	mu         sync.Mutex
	store      *Store
	persistent *PersistentStore
	logger     *slog.Logger
}

// SetDefaultLogger sets the logger used when the registry constructs
// a default instance. Must be called before the first Default or
// DefaultPersistent call to take effect for that instance.
func SetDefaultLogger(logger *slog.Logger) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.logger = logger
}

// Default returns the process-wide plain store, constructing it on
// first use.
func Default() *Store {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	if defaultRegistry.store == nil {
		defaultRegistry.store = NewStore(WithLogger(defaultRegistry.logger))
	}
	return defaultRegistry.store
}

// DefaultPersistent returns the process-wide persistent store,
// constructing it over backend on first use. Later calls return the
// existing instance and ignore backend; a nil backend on first use
// selects the in-memory fallback.
func DefaultPersistent(backend storage.Store) *PersistentStore {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	if defaultRegistry.persistent == nil {
		if backend == nil {
			backend = storage.NewMemory()
		}
		defaultRegistry.persistent = NewPersistentStore(backend, PersistOptions{
			Logger: defaultRegistry.logger,
		})
	}
	return defaultRegistry.persistent
}

// ResetDefault discards both default instances so the next accessor
// call constructs fresh ones.
func ResetDefault() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	defaultRegistry.store = nil
	defaultRegistry.persistent = nil
}
