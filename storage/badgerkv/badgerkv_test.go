// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badgerkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOpenInMemory verifies in-memory store creation and round-trips.
func TestOpenInMemory(t *testing.T) {
	ctx := context.Background()

	kv, err := OpenInMemory()
	require.NoError(t, err)
	defer kv.Close()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok, "missing key must not be an error")

	require.NoError(t, kv.Set(ctx, "state", `{"v":1}`))

	value, ok, err := kv.Get(ctx, "state")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"v":1}`, value)
}

// TestOpenPersistent verifies data survives close and reopen.
func TestOpenPersistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	kv, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "k", "persisted"))
	require.NoError(t, kv.Close())

	kv2, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer kv2.Close()

	value, ok, err := kv2.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", value)
}

// TestOpenRequiresPath verifies persistent mode needs a path.
func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

// TestRemove verifies deletion and idempotent removal.
func TestRemove(t *testing.T) {
	ctx := context.Background()

	kv, err := OpenInMemory()
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Set(ctx, "k", "v"))
	require.NoError(t, kv.Remove(ctx, "k"))

	_, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Remove(ctx, "k"))
}

// TestAvailable verifies the probe flips to false after Close.
func TestAvailable(t *testing.T) {
	ctx := context.Background()

	kv, err := OpenInMemory()
	require.NoError(t, err)
	assert.True(t, kv.Available(ctx))

	require.NoError(t, kv.Close())
	assert.False(t, kv.Available(ctx))
}

// TestContextCancellation verifies cancelled contexts short-circuit.
func TestContextCancellation(t *testing.T) {
	kv, err := OpenInMemory()
	require.NoError(t, err)
	defer kv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = kv.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, kv.Set(ctx, "k", "v"))
}
