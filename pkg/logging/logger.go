// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for mockchain components.
//
// The package is a thin configuration layer over Go's standard library
// slog. Components receive a *slog.Logger and scope it with
// logger.With("component", name), so log output from the store, the
// persistence adapter, and the storage backends is distinguishable in
// a single stream.
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("checkpoint created", "checkpoint_id", cp.ID)
//
// For tests and callers that want no output:
//
//	logger := logging.Discard()
//
// # Log Levels
//
// Four levels are supported, matching slog conventions:
//
//   - Debug: development troubleshooting, verbose output
//   - Info: normal operations (state changes, hydration complete)
//   - Warn: recoverable issues (storage write failed, degraded mode)
//   - Error: operation failures (but the store continues)
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level represents log severity levels, ordered by severity:
// Debug < Info < Warn < Error.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	LevelInfo

	// LevelWarn is for potentially problematic situations the system
	// can recover from, such as a failed persistence write.
	LevelWarn

	// LevelError is for failed operations.
	LevelError
)

// String returns the human-readable name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// slogLevel maps Level to the slog equivalent.
func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config controls logger construction.
type Config struct {
	// Level is the minimum severity to emit. Defaults to LevelInfo.
	Level Level

	// Service is attached to every record as the "service" attribute.
	// Empty means no service attribute.
	Service string

	// Writer receives the JSON log stream. Defaults to os.Stderr,
	// following the Unix convention of keeping stdout for payload.
	Writer io.Writer
}

// New creates a logger from the given configuration.
func New(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.Level.slogLevel(),
	})

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	return logger
}

// Default returns a stderr JSON logger at Info level.
func Default() *slog.Logger {
	return New(Config{Level: LevelInfo})
}

// Discard returns a logger that drops every record. Useful as the
// fallback when a caller passes a nil logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
