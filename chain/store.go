// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chain implements a checkpoint/timeline state engine for
// request/response mocking layers.
//
// The Store records intercepted request/response pairs, snapshots the
// recorded history as named checkpoints, restores state to any prior
// checkpoint, and branches into isolated parallel timelines so
// multiple test scenarios can be explored without destroying each
// other's state.
//
// # Model
//
// Timelines form a tree rooted at the main timeline. Each timeline
// has a live buffer of not-yet-checkpointed captures; a checkpoint is
// an immutable copy of that buffer tied to the timeline that was
// active when it was taken.
//
// Branching and switching are deliberately asymmetric: CreateBranch
// carries the in-progress buffer (or a checkpoint's buffer) into the
// new timeline, because a branch continues working from "now".
// SwitchTimeline clears the buffer, because revisiting an existing
// timeline starts from a clean slate — callers restore a checkpoint
// if they want prior state back.
//
// # Basic Usage
//
//	store := chain.NewStore()
//	store.Capture(pair)
//	cp, _ := store.CreateCheckpoint(chain.CheckpointOptions{Name: "logged in"})
//	store.Capture(otherPair)
//	_ = store.RestoreCheckpoint(cp.ID) // buffer is [pair] again
//
// For durable history, see PersistentStore; for interchange between
// store instances, see ExportState and ImportState.
//
// # Thread Safety
//
// All Store methods are safe for concurrent use. Each mutation runs
// to completion under the store lock, so two sequential calls from
// one goroutine observe a strict before/after ordering.
package chain

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/mockchain/pkg/logging"
)

// Store is the single source of truth for timelines, checkpoints, and
// the active capture buffer. Construct with NewStore; the zero value
// is not usable.
type Store struct {
	mu     sync.RWMutex
	state  *chainState
	logger *slog.Logger

	// hooks fire after every successful mutation with a serialized
	// snapshot of the new state. Used by the persistence layer.
	hooks []func(serializedState)
}

// StoreOption configures a Store at construction.
type StoreOption func(*Store)

// WithLogger sets the store's logger. The default discards output.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.With("component", "chain")
		}
	}
}

// NewStore creates a store holding exactly the main timeline, no
// checkpoints, and an empty capture buffer.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		state:  newChainState(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// subscribe registers fn to run after every successful mutation with
// a snapshot of the resulting state. Hooks run outside the store
// lock, in registration order, on the mutating caller's goroutine.
func (s *Store) subscribe(fn func(serializedState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// mutate runs fn under the write lock and, when fn succeeds, fires
// the change hooks with a snapshot taken before the lock is released.
func (s *Store) mutate(fn func(*chainState) error) error {
	s.mu.Lock()
	err := fn(s.state)

	var snap serializedState
	var hooks []func(serializedState)
	if err == nil && len(s.hooks) > 0 {
		snap = serializeState(s.state)
		hooks = append(hooks, s.hooks...)
	}
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(snap)
	}
	return err
}

// Capture appends pair to the current timeline's live buffer. Pure
// append, preserves insertion order, never fails.
func (s *Store) Capture(pair CapturedPair) {
	_ = s.mutate(func(st *chainState) error {
		st.captures = append(st.captures, pair)
		return nil
	})
}

// ClearCaptures empties the live buffer for the current timeline.
// Checkpoints are untouched.
func (s *Store) ClearCaptures() {
	_ = s.mutate(func(st *chainState) error {
		st.captures = []CapturedPair{}
		return nil
	})
}

// CreateCheckpoint snapshots the current timeline id and a copy of
// the live buffer into a new checkpoint. Always succeeds.
func (s *Store) CreateCheckpoint(opts CheckpointOptions) Checkpoint {
	var cp Checkpoint
	_ = s.mutate(func(st *chainState) error {
		cp = Checkpoint{
			ID:          NewID(),
			Name:        opts.Name,
			TimelineID:  st.currentTimelineID,
			Captures:    copyCaptures(st.captures),
			CreatedAt:   time.Now().UnixMilli(),
			Description: opts.Description,
		}
		st.addCheckpoint(cp)
		return nil
	})

	s.logger.Debug("checkpoint created",
		"checkpoint_id", cp.ID,
		"timeline_id", cp.TimelineID,
		"captures", len(cp.Captures),
	)
	return cp
}

// RestoreCheckpoint sets the current timeline to the checkpoint's
// timeline and replaces the live buffer with a fresh copy of the
// checkpoint's captures. Returns ErrCheckpointNotFound for unknown
// ids.
func (s *Store) RestoreCheckpoint(checkpointID string) error {
	return s.mutate(func(st *chainState) error {
		cp, ok := st.checkpoints[checkpointID]
		if !ok {
			return fmt.Errorf("restore %q: %w", checkpointID, ErrCheckpointNotFound)
		}
		st.currentTimelineID = cp.TimelineID
		st.captures = copyCaptures(cp.Captures)
		return nil
	})
}

// DeleteCheckpoint removes the checkpoint if present. Deleting an
// unknown id is a no-op.
func (s *Store) DeleteCheckpoint(checkpointID string) {
	_ = s.mutate(func(st *chainState) error {
		st.removeCheckpoint(checkpointID)
		return nil
	})
}

// GetCheckpoint returns the checkpoint for id, or
// ErrCheckpointNotFound.
func (s *Store) GetCheckpoint(checkpointID string) (Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.state.checkpoints[checkpointID]
	if !ok {
		return Checkpoint{}, fmt.Errorf("get %q: %w", checkpointID, ErrCheckpointNotFound)
	}
	return cp, nil
}

// ListCheckpoints returns checkpoints in insertion order. When a
// timeline id is given, only checkpoints belonging to that timeline
// are returned.
func (s *Store) ListCheckpoints(timelineID ...string) []Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := ""
	if len(timelineID) > 0 {
		filter = timelineID[0]
	}

	out := make([]Checkpoint, 0, len(s.state.checkpointOrder))
	for _, id := range s.state.checkpointOrder {
		cp := s.state.checkpoints[id]
		if filter != "" && cp.TimelineID != filter {
			continue
		}
		out = append(out, cp)
	}
	return out
}

// CreateBranch forks a new timeline from the current one. The new
// timeline's parent is the current timeline; its buffer is seeded
// from the named checkpoint when FromCheckpointID is set, otherwise
// from the current live buffer. The store switches to the new
// timeline. Returns ErrCheckpointNotFound when FromCheckpointID does
// not resolve.
func (s *Store) CreateBranch(opts BranchOptions) (Timeline, error) {
	var branch Timeline
	err := s.mutate(func(st *chainState) error {
		seed := st.captures
		if opts.FromCheckpointID != "" {
			cp, ok := st.checkpoints[opts.FromCheckpointID]
			if !ok {
				return fmt.Errorf("branch from %q: %w", opts.FromCheckpointID, ErrCheckpointNotFound)
			}
			seed = cp.Captures
		}

		branch = Timeline{
			ID:                       NewID(),
			Name:                     opts.Name,
			ParentID:                 st.currentTimelineID,
			BranchedFromCheckpointID: opts.FromCheckpointID,
			CreatedAt:                time.Now().UnixMilli(),
		}
		st.addTimeline(branch)
		st.currentTimelineID = branch.ID
		st.captures = copyCaptures(seed)
		return nil
	})
	if err != nil {
		return Timeline{}, err
	}

	s.logger.Debug("timeline branched",
		"timeline_id", branch.ID,
		"parent_id", branch.ParentID,
		"from_checkpoint_id", branch.BranchedFromCheckpointID,
	)
	return branch, nil
}

// SwitchTimeline sets the current timeline and clears the live
// buffer. In-progress uncheckpointed captures do not carry over;
// only an explicit checkpoint restore preserves history across a
// timeline change. Returns ErrTimelineNotFound for unknown ids.
func (s *Store) SwitchTimeline(timelineID string) error {
	return s.mutate(func(st *chainState) error {
		if _, ok := st.timelines[timelineID]; !ok {
			return fmt.Errorf("switch to %q: %w", timelineID, ErrTimelineNotFound)
		}
		st.currentTimelineID = timelineID
		st.captures = []CapturedPair{}
		return nil
	})
}

// DeleteTimeline removes the timeline and cascades deletion to every
// checkpoint belonging to it. Deleting the main timeline returns
// ErrMainTimelineProtected; unknown ids return ErrTimelineNotFound.
// If the deleted timeline was current, the store falls back to main
// with an empty buffer.
func (s *Store) DeleteTimeline(timelineID string) error {
	return s.mutate(func(st *chainState) error {
		if timelineID == MainTimelineID {
			return fmt.Errorf("delete %q: %w", timelineID, ErrMainTimelineProtected)
		}
		if _, ok := st.timelines[timelineID]; !ok {
			return fmt.Errorf("delete %q: %w", timelineID, ErrTimelineNotFound)
		}

		st.removeTimeline(timelineID)

		// Cascade: drop every checkpoint owned by the timeline.
		for _, id := range append([]string(nil), st.checkpointOrder...) {
			if st.checkpoints[id].TimelineID == timelineID {
				st.removeCheckpoint(id)
			}
		}

		if st.currentTimelineID == timelineID {
			st.currentTimelineID = MainTimelineID
			st.captures = []CapturedPair{}
		}
		return nil
	})
}

// GetCurrentTimeline returns the Timeline for the current timeline
// id. Under correct internal state this cannot fail; an
// ErrStateCorrupt return indicates a program defect, not a
// user-facing condition.
func (s *Store) GetCurrentTimeline() (Timeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.state.timelines[s.state.currentTimelineID]
	if !ok {
		return Timeline{}, fmt.Errorf("current timeline %q unresolved: %w",
			s.state.currentTimelineID, ErrStateCorrupt)
	}
	return t, nil
}

// ListTimelines returns all timelines in insertion order.
func (s *Store) ListTimelines() []Timeline {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Timeline, 0, len(s.state.timelineOrder))
	for _, id := range s.state.timelineOrder {
		out = append(out, s.state.timelines[id])
	}
	return out
}

// Captures returns a snapshot copy of the live buffer. The copy is
// detached from the store: later mutations do not alter it.
func (s *Store) Captures() []CapturedPair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyCaptures(s.state.captures)
}

// CaptureCount returns the size of the live buffer.
func (s *Store) CaptureCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.state.captures)
}

// HasCheckpoint reports whether a checkpoint with the given id exists.
func (s *Store) HasCheckpoint(checkpointID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.state.checkpoints[checkpointID]
	return ok
}

// FindCapture scans the live buffer from most recent backward and
// returns the first pair whose request method and URL equal the given
// values exactly. No normalization is applied at this layer; callers
// wanting canonical comparison should pass CanonicalURL output on
// both sides. Duplicate method+URL pairs resolve last-write-wins.
// Returns ErrCaptureNotFound when nothing matches.
func (s *Store) FindCapture(method, url string) (CapturedPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.state.captures) - 1; i >= 0; i-- {
		pair := s.state.captures[i]
		if pair.Request.Method == method && pair.Request.URL == url {
			return pair, nil
		}
	}
	return CapturedPair{}, fmt.Errorf("find %s %s: %w", method, url, ErrCaptureNotFound)
}
