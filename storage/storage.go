// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package storage defines the string-keyed storage contract the chain
// persistence layer writes through, plus an in-memory implementation
// for tests and for runtimes without a durable backend.
//
// Durable implementations live in the subpackages badgerkv (embedded
// BadgerDB) and rediskv (Redis). All implementations share the same
// failure discipline: a read of an unset key is not an error, and
// Available never returns an error at all — callers use it to choose
// between a durable backend and the in-memory fallback at
// construction time.
package storage

import "context"

// Store is an asynchronous string-keyed key/value collaborator.
//
// Implementations must treat a missing key as a benign condition:
// Get returns ("", false, nil), never an error. Errors are reserved
// for backend failures (connection loss, I/O errors), which callers
// are expected to degrade on rather than propagate.
type Store interface {
	// Get returns the value for key. The boolean reports whether the
	// key was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is a no-op.
	Remove(ctx context.Context, key string) error

	// Available reports whether the backend is reachable. It must not
	// block beyond a short internal probe and must never panic.
	Available(ctx context.Context) bool
}
