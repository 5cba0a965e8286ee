// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rediskv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestKV starts an in-process Redis and returns a store over it.
func newTestKV(t *testing.T) (*KV, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	kv, err := New(client, nil)
	require.NoError(t, err)
	return kv, mr
}

// TestNewRequiresClient verifies construction fails without a client.
func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

// TestGetSetRemove verifies basic contract round-trips.
func TestGetSetRemove(t *testing.T) {
	ctx := context.Background()
	kv, _ := newTestKV(t)

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok, "missing key must not be an error")

	require.NoError(t, kv.Set(ctx, "state", `{"v":1}`))

	value, ok, err := kv.Get(ctx, "state")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"v":1}`, value)

	require.NoError(t, kv.Remove(ctx, "state"))
	_, ok, err = kv.Get(ctx, "state")
	require.NoError(t, err)
	assert.False(t, ok)

	// Idempotent removal.
	require.NoError(t, kv.Remove(ctx, "state"))
}

// TestAvailable verifies the ping probe against a live and a dead server.
func TestAvailable(t *testing.T) {
	ctx := context.Background()
	kv, mr := newTestKV(t)

	assert.True(t, kv.Available(ctx))

	mr.Close()
	assert.False(t, kv.Available(ctx))
}
