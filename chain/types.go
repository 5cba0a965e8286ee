// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chain

import "time"

const (
	// MainTimelineID is the fixed identifier of the root timeline.
	// The main timeline exists from store construction and can never
	// be deleted.
	MainTimelineID = "main"

	// MainTimelineName is the user-visible name of the root timeline.
	MainTimelineName = "Main"
)

// CapturedRequest is the request half of a recorded exchange.
// Immutable once created; the store never modifies it.
type CapturedRequest struct {
	ID        string            `json:"id"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      any               `json:"body,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// CapturedResponse is the response half of a recorded exchange.
// Immutable once created.
type CapturedResponse struct {
	Status    int               `json:"status"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      any               `json:"body,omitempty"`
	LatencyMs int64             `json:"latencyMs"`
}

// CapturedPair is one recorded request/response exchange, the atomic
// unit of history. Pairs are created by the interception collaborator
// and owned by the store afterwards. Because pair contents are never
// mutated after creation, buffers can be copied at the slice level.
type CapturedPair struct {
	Request  CapturedRequest  `json:"request"`
	Response CapturedResponse `json:"response"`
}

// Timeline is an isolated line of history with its own live capture
// buffer. Timelines form a tree rooted at main via ParentID; only the
// main timeline has an empty ParentID.
type Timeline struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`

	// ParentID references the timeline that was current when this
	// one was branched. Empty only for main.
	ParentID string `json:"parentId,omitempty"`

	// BranchedFromCheckpointID is set when the timeline was created
	// via checkpoint-relative branching.
	BranchedFromCheckpointID string `json:"branchedFromCheckpointId,omitempty"`

	CreatedAt int64 `json:"createdAt"`
}

// Checkpoint is a named, immutable snapshot of the capture buffer at
// a point in time, tied to the timeline that was active when it was
// taken. Captures never changes after creation.
type Checkpoint struct {
	ID         string         `json:"id" validate:"required"`
	Name       string         `json:"name" validate:"required"`
	TimelineID string         `json:"timelineId" validate:"required"`
	Captures   []CapturedPair `json:"captures"`
	CreatedAt  int64          `json:"createdAt"`

	// Description is optional free text supplied at creation.
	Description string `json:"description,omitempty"`
}

// CheckpointOptions parameterizes CreateCheckpoint.
type CheckpointOptions struct {
	Name        string
	Description string
}

// BranchOptions parameterizes CreateBranch.
type BranchOptions struct {
	Name string

	// FromCheckpointID, when set, seeds the new timeline's buffer
	// from that checkpoint instead of the current live buffer.
	FromCheckpointID string
}

// chainState is the aggregate root: all timelines, all checkpoints,
// the current timeline pointer, and the live capture buffer for the
// current timeline. It is mutated only through Store operations.
//
// Maps carry the data; the order slices preserve insertion order,
// which Go maps do not.
type chainState struct {
	currentTimelineID string
	timelines         map[string]Timeline
	timelineOrder     []string
	checkpoints       map[string]Checkpoint
	checkpointOrder   []string
	captures          []CapturedPair
}

// newChainState builds the initial aggregate: exactly the main
// timeline, no checkpoints, an empty buffer.
func newChainState() *chainState {
	main := Timeline{
		ID:        MainTimelineID,
		Name:      MainTimelineName,
		CreatedAt: time.Now().UnixMilli(),
	}
	return &chainState{
		currentTimelineID: main.ID,
		timelines:         map[string]Timeline{main.ID: main},
		timelineOrder:     []string{main.ID},
		checkpoints:       make(map[string]Checkpoint),
		checkpointOrder:   []string{},
		captures:          []CapturedPair{},
	}
}

// addTimeline inserts t preserving insertion order. Existing ids are
// left untouched (first writer wins, per merge import semantics).
func (st *chainState) addTimeline(t Timeline) bool {
	if _, exists := st.timelines[t.ID]; exists {
		return false
	}
	st.timelines[t.ID] = t
	st.timelineOrder = append(st.timelineOrder, t.ID)
	return true
}

// addCheckpoint inserts c preserving insertion order. Existing ids
// are left untouched.
func (st *chainState) addCheckpoint(c Checkpoint) bool {
	if _, exists := st.checkpoints[c.ID]; exists {
		return false
	}
	st.checkpoints[c.ID] = c
	st.checkpointOrder = append(st.checkpointOrder, c.ID)
	return true
}

// removeCheckpoint deletes id from both map and order slice.
func (st *chainState) removeCheckpoint(id string) {
	if _, exists := st.checkpoints[id]; !exists {
		return
	}
	delete(st.checkpoints, id)
	for i, cid := range st.checkpointOrder {
		if cid == id {
			st.checkpointOrder = append(st.checkpointOrder[:i], st.checkpointOrder[i+1:]...)
			break
		}
	}
}

// removeTimeline deletes id from both map and order slice.
func (st *chainState) removeTimeline(id string) {
	if _, exists := st.timelines[id]; !exists {
		return
	}
	delete(st.timelines, id)
	for i, tid := range st.timelineOrder {
		if tid == id {
			st.timelineOrder = append(st.timelineOrder[:i], st.timelineOrder[i+1:]...)
			break
		}
	}
}
