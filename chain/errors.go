// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chain

import "errors"

// Sentinel errors for the chain store. Call sites wrap these with the
// offending identifier, so errors.Is works while the message stays
// descriptive.
var (
	// ErrCheckpointNotFound indicates a referenced checkpoint id does
	// not exist.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrTimelineNotFound indicates a referenced timeline id does not
	// exist.
	ErrTimelineNotFound = errors.New("timeline not found")

	// ErrCaptureNotFound indicates no capture in the live buffer
	// matched the requested method and URL.
	ErrCaptureNotFound = errors.New("capture not found")

	// ErrMainTimelineProtected indicates an attempt to delete the
	// main timeline, which exists for the lifetime of the store.
	ErrMainTimelineProtected = errors.New("main timeline cannot be deleted")

	// ErrInvalidImport indicates a malformed import document. Raised
	// before any state mutation; import is all-or-nothing.
	ErrInvalidImport = errors.New("invalid import document")

	// ErrUnsupportedVersion indicates an import document whose schema
	// version this build does not recognize.
	ErrUnsupportedVersion = errors.New("unsupported export version")

	// ErrStateCorrupt indicates the current timeline id no longer
	// resolves to a known timeline. This is an internal invariant
	// violation, not a user-facing condition.
	ErrStateCorrupt = errors.New("store state corrupt")
)
