// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chain

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/mockchain/pkg/logging"
	"github.com/AleutianAI/mockchain/storage"
)

const (
	// DefaultStorageKey is the backend key the state document is
	// persisted under.
	DefaultStorageKey = "mockchain:state"

	// writeTimeout bounds each backend write so a stalled backend
	// cannot pin the writer goroutine forever.
	writeTimeout = 10 * time.Second
)

// PersistOptions configures a PersistentStore.
type PersistOptions struct {
	// Key overrides DefaultStorageKey.
	Key string

	// Logger receives persistence diagnostics. Nil discards output.
	Logger *slog.Logger
}

// PersistentStore wraps Store with write-through persistence to an
// abstract string-keyed backend.
//
// Mutations stay synchronous: the in-memory state changes first, then
// a snapshot write is scheduled and not awaited, so persistence is
// eventually consistent with memory. Writes to the storage key are
// serialized through a single-slot latest-wins queue — at most one
// write is in flight, and while it runs newer snapshots replace each
// other rather than queueing, which keeps a slow-but-early write from
// clobbering the backend with stale data.
//
// On construction a hydration sequence runs exactly once: the
// persisted document is loaded and installed over the fresh initial
// state. Callers should block on Ready before issuing operations if
// they need the restored state:
//
//	ps := chain.NewPersistentStore(backend, chain.PersistOptions{})
//	<-ps.Ready()
type PersistentStore struct {
	*Store

	backend storage.Store
	key     string
	logger  *slog.Logger

	ready    chan struct{}
	hydrated atomic.Bool

	writeMu    sync.Mutex
	writing    bool
	pending    *pendingWrite
	generation uint64

	// idle signals each time the writer goroutine drains. Tests use
	// Flush; nothing else consumes it.
	idle chan struct{}
}

// pendingWrite is a snapshot payload tagged with the generation it was
// taken in. ClearPersistedState bumps the generation, so the writer
// can tell a pre-clear snapshot from a live one and drop it instead of
// resurrecting the removed key.
type pendingWrite struct {
	payload    string
	generation uint64
}

// NewPersistentStore creates a persistent store over the given
// backend and starts hydration. The backend must not be nil; callers
// without a durable backend pass storage.NewMemory().
func NewPersistentStore(backend storage.Store, opts PersistOptions) *PersistentStore {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("component", "persist")

	key := opts.Key
	if key == "" {
		key = DefaultStorageKey
	}

	ps := &PersistentStore{
		Store:   NewStore(WithLogger(opts.Logger)),
		backend: backend,
		key:     key,
		logger:  logger,
		ready:   make(chan struct{}),
		idle:    make(chan struct{}, 1),
	}

	ps.Store.subscribe(ps.enqueueWrite)
	go ps.hydrate()
	return ps
}

// NewPersistentStoreAuto probes preferred and falls back to the
// in-memory backend when it is nil or unreachable, so construction
// never fails on an absent durable backend.
func NewPersistentStoreAuto(ctx context.Context, preferred storage.Store, opts PersistOptions) *PersistentStore {
	backend := preferred
	if backend == nil || !backend.Available(ctx) {
		backend = storage.NewMemory()
	}
	return NewPersistentStore(backend, opts)
}

// Ready returns a channel closed once the initial load completes.
func (ps *PersistentStore) Ready() <-chan struct{} {
	return ps.ready
}

// Hydrated reports whether the initial load has completed.
func (ps *PersistentStore) Hydrated() bool {
	return ps.hydrated.Load()
}

// hydrate loads the persisted document and installs it over the
// initial state. Runs exactly once, from the constructor. A failing
// read degrades to the fresh initial state.
func (ps *PersistentStore) hydrate() {
	defer func() {
		ps.hydrated.Store(true)
		close(ps.ready)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	raw, ok, err := ps.backend.Get(ctx, ps.key)
	if err != nil {
		ps.logger.Warn("hydration read failed, starting empty", "key", ps.key, "error", err)
		return
	}
	if !ok {
		return
	}

	var ser serializedState
	if err := json.Unmarshal([]byte(raw), &ser); err != nil {
		ps.logger.Warn("persisted state unreadable, starting empty", "key", ps.key, "error", err)
		return
	}

	ps.Store.install(deserializeState(ser))
	ps.logger.Info("state hydrated",
		"key", ps.key,
		"timelines", len(ser.Timelines),
		"checkpoints", len(ser.Checkpoints),
	)
}

// enqueueWrite schedules a snapshot write. Fire-and-forget from the
// mutating caller's perspective.
func (ps *PersistentStore) enqueueWrite(snap serializedState) {
	data, err := json.Marshal(snap)
	if err != nil {
		ps.logger.Warn("state snapshot not serializable", "error", err)
		return
	}
	ps.writeMu.Lock()
	w := pendingWrite{payload: string(data), generation: ps.generation}
	if ps.writing {
		ps.pending = &w
		ps.writeMu.Unlock()
		return
	}
	ps.writing = true
	ps.writeMu.Unlock()

	go ps.writeLoop(w)
}

// writeLoop writes w, then any snapshot that arrived meanwhile, until
// the pending slot drains. Snapshots from a superseded generation are
// dropped without touching the backend. Storage failures are logged
// and swallowed; the store keeps operating in memory.
func (ps *PersistentStore) writeLoop(w pendingWrite) {
	for {
		ps.writeMu.Lock()
		stale := w.generation != ps.generation
		ps.writeMu.Unlock()

		if !stale {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := ps.backend.Set(ctx, ps.key, w.payload)
			cancel()
			if err != nil {
				ps.logger.Warn("persistence write failed", "key", ps.key, "error", err)
			}
		}

		ps.writeMu.Lock()
		if ps.pending != nil {
			w = *ps.pending
			ps.pending = nil
			ps.writeMu.Unlock()
			continue
		}
		ps.writing = false
		ps.writeMu.Unlock()

		select {
		case ps.idle <- struct{}{}:
		default:
		}
		return
	}
}

// Flush blocks until no write is in flight or ctx expires. Intended
// for tests and orderly shutdown; normal operation never waits on
// persistence.
func (ps *PersistentStore) Flush(ctx context.Context) error {
	for {
		ps.writeMu.Lock()
		busy := ps.writing
		ps.writeMu.Unlock()
		if !busy {
			return nil
		}

		select {
		case <-ps.idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ClearPersistedState removes the backend entry and resets the
// in-memory state to the freshly constructed initial state. Snapshot
// writes scheduled before the clear are discarded, and any write
// already in flight is waited out before the remove, so a pre-clear
// snapshot can never land afterward and resurrect the key. A failing
// backend remove is logged and swallowed; the in-memory reset always
// happens.
func (ps *PersistentStore) ClearPersistedState(ctx context.Context) {
	ps.writeMu.Lock()
	ps.generation++
	ps.pending = nil
	ps.writeMu.Unlock()

	if err := ps.Flush(ctx); err != nil {
		ps.logger.Warn("clear could not drain in-flight write", "key", ps.key, "error", err)
	}

	if err := ps.backend.Remove(ctx, ps.key); err != nil {
		ps.logger.Warn("persisted state remove failed", "key", ps.key, "error", err)
	}

	// Reset without firing the write-through: the backend entry was
	// just removed and must stay absent until the next real mutation.
	ps.Store.install(newChainState())
}
