// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rediskv implements the storage.Store contract on Redis.
//
// Redis is the backend of choice when several store instances on
// different hosts should share one persisted history. Note that the
// chain layer provides no cross-instance locking: concurrent writers
// to the same key are last-write-wins (see chain.PersistentStore).
package rediskv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AleutianAI/mockchain/pkg/logging"
)

// probeTimeout bounds the Available ping so construction-time backend
// selection cannot hang on an unreachable server.
const probeTimeout = 2 * time.Second

// KV is a storage.Store backed by a Redis server.
type KV struct {
	client *redis.Client
	logger *slog.Logger
}

// New creates a Redis-backed store over an existing client. The
// caller retains ownership of the client and its lifecycle. A nil
// logger disables logging.
func New(client *redis.Client, logger *slog.Logger) (*KV, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &KV{
		client: client,
		logger: logger.With("component", "rediskv"),
	}, nil
}

// NewFromAddr dials addr and returns a store over the new client.
// Close releases the client.
func NewFromAddr(addr string, logger *slog.Logger) (*KV, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return New(client, logger)
}

// Get returns the value for key, if present. A missing key reads as
// ("", false, nil).
func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := k.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes value under key with no expiry.
func (k *KV) Set(ctx context.Context, key, value string) error {
	if err := k.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Deleting an absent key is a no-op.
func (k *KV) Remove(ctx context.Context, key string) error {
	if err := k.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis remove %s: %w", key, err)
	}
	return nil
}

// Available reports whether the server answers a ping within the
// probe timeout. It never returns an error.
func (k *KV) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := k.client.Ping(ctx).Err(); err != nil {
		k.logger.Debug("redis unavailable", "error", err)
		return false
	}
	return true
}

// Close closes the underlying client.
func (k *KV) Close() error {
	return k.client.Close()
}
