// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLevelString verifies level names.
func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

// TestNewEmitsJSON verifies records are JSON with the service attribute.
func TestNewEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Service: "chain", Writer: &buf})

	logger.Info("checkpoint created", "checkpoint_id", "cp-1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "checkpoint created", record["msg"])
	assert.Equal(t, "chain", record["service"])
	assert.Equal(t, "cp-1", record["checkpoint_id"])
}

// TestLevelFiltering verifies records below the minimum level are dropped.
func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Writer: &buf})

	logger.Info("should be filtered")
	assert.Zero(t, buf.Len())

	logger.Warn("should pass")
	assert.NotZero(t, buf.Len())
}

// TestDiscard verifies the discard logger never panics.
func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("dropped", "key", "value")
}
