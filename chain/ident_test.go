// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewIDUnique verifies ids do not collide across a burst.
func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

// TestNewIDOrdering verifies the timestamp prefix makes lexical order
// track creation order across a millisecond boundary.
func TestNewIDOrdering(t *testing.T) {
	first := NewID()
	time.Sleep(2 * time.Millisecond)
	second := NewID()

	assert.Less(t, first, second)
}

// TestFingerprintStable verifies equal triples hash equally and
// different triples differ.
func TestFingerprintStable(t *testing.T) {
	body := map[string]any{"user": "alice", "active": true}

	a := Fingerprint("POST", "/login", body)
	b := Fingerprint("POST", "/login", map[string]any{"user": "alice", "active": true})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "sha256 hex")

	assert.NotEqual(t, a, Fingerprint("GET", "/login", body))
	assert.NotEqual(t, a, Fingerprint("POST", "/logout", body))
	assert.NotEqual(t, a, Fingerprint("POST", "/login", nil))
}

// TestCanonicalURL verifies query parameters sort while the rest of
// the URL is preserved.
func TestCanonicalURL(t *testing.T) {
	t.Run("sorts query parameters", func(t *testing.T) {
		got := CanonicalURL("https://api.test/users?b=2&a=1&c=3")
		assert.Equal(t, "https://api.test/users?a=1&b=2&c=3", got)
	})

	t.Run("equal after canonicalization", func(t *testing.T) {
		x := CanonicalURL("/search?q=go&page=2")
		y := CanonicalURL("/search?page=2&q=go")
		assert.Equal(t, x, y)
	})

	t.Run("no query is unchanged", func(t *testing.T) {
		assert.Equal(t, "/plain/path", CanonicalURL("/plain/path"))
	})

	t.Run("unparseable input is returned as-is", func(t *testing.T) {
		raw := "http://%zz"
		assert.Equal(t, raw, CanonicalURL(raw))
	})
}

// TestDeepCopy verifies nested structures are fully detached.
func TestDeepCopy(t *testing.T) {
	src := map[string]any{
		"nested": map[string]any{"list": []any{1.0, 2.0}},
	}

	dup, ok := DeepCopy(src).(map[string]any)
	require.True(t, ok)

	src["nested"].(map[string]any)["list"] = []any{"mutated"}

	nested, ok := dup["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{1.0, 2.0}, nested["list"])
}

// TestDeepCopyNil verifies nil passes through.
func TestDeepCopyNil(t *testing.T) {
	assert.Nil(t, DeepCopy(nil))
}
