// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chain

// The aggregate keeps its collections in maps for ownership-clear
// lookups, but maps are not JSON-safe in a way that preserves
// insertion order. The serialized form flattens each map into an
// ordered entry list, so a round-trip through any string-keyed
// storage backend reproduces iteration order exactly.

// timelineEntry is one ordered (id, Timeline) pair.
type timelineEntry struct {
	ID       string   `json:"id"`
	Timeline Timeline `json:"value"`
}

// checkpointEntry is one ordered (id, Checkpoint) pair.
type checkpointEntry struct {
	ID         string     `json:"id"`
	Checkpoint Checkpoint `json:"value"`
}

// serializedState is the JSON-safe representation of the aggregate,
// used both as the persisted document and as the change-hook payload.
type serializedState struct {
	CurrentTimelineID string            `json:"currentTimelineId"`
	Timelines         []timelineEntry   `json:"timelines"`
	Checkpoints       []checkpointEntry `json:"checkpoints"`
	CurrentCaptures   []CapturedPair    `json:"currentCaptures"`
}

// serializeState flattens the aggregate into its JSON-safe form.
// Entries appear in map insertion order.
func serializeState(st *chainState) serializedState {
	out := serializedState{
		CurrentTimelineID: st.currentTimelineID,
		Timelines:         make([]timelineEntry, 0, len(st.timelineOrder)),
		Checkpoints:       make([]checkpointEntry, 0, len(st.checkpointOrder)),
		CurrentCaptures:   copyCaptures(st.captures),
	}
	for _, id := range st.timelineOrder {
		out.Timelines = append(out.Timelines, timelineEntry{ID: id, Timeline: st.timelines[id]})
	}
	for _, id := range st.checkpointOrder {
		out.Checkpoints = append(out.Checkpoints, checkpointEntry{ID: id, Checkpoint: st.checkpoints[id]})
	}
	return out
}

// deserializeState rebuilds the aggregate from its serialized form.
// Degenerate documents (no timelines, or a dangling current timeline
// pointer) degrade to the initial state's guarantees: the main
// timeline always exists and the current pointer always resolves.
func deserializeState(ser serializedState) *chainState {
	st := &chainState{
		currentTimelineID: ser.CurrentTimelineID,
		timelines:         make(map[string]Timeline, len(ser.Timelines)),
		timelineOrder:     make([]string, 0, len(ser.Timelines)),
		checkpoints:       make(map[string]Checkpoint, len(ser.Checkpoints)),
		checkpointOrder:   make([]string, 0, len(ser.Checkpoints)),
		captures:          copyCaptures(ser.CurrentCaptures),
	}
	for _, entry := range ser.Timelines {
		st.addTimeline(entry.Timeline)
	}
	for _, entry := range ser.Checkpoints {
		cp := entry.Checkpoint
		cp.Captures = copyCaptures(cp.Captures)
		st.addCheckpoint(cp)
	}

	if len(st.timelineOrder) == 0 {
		return newChainState()
	}
	if _, ok := st.timelines[st.currentTimelineID]; !ok {
		if _, hasMain := st.timelines[MainTimelineID]; !hasMain {
			fresh := newChainState()
			st.timelines[MainTimelineID] = fresh.timelines[MainTimelineID]
			st.timelineOrder = append([]string{MainTimelineID}, st.timelineOrder...)
		}
		st.currentTimelineID = MainTimelineID
		st.captures = []CapturedPair{}
	}
	return st
}

// install replaces the aggregate wholesale. Used by hydration and
// import; does not fire change hooks, so a freshly loaded snapshot is
// not immediately written back to storage.
func (s *Store) install(st *chainState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// snapshot returns the serialized form of the current state.
func (s *Store) snapshot() serializedState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return serializeState(s.state)
}
