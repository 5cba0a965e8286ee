// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chain

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ExportVersion is the current export document schema version
// (semver). Importers reject documents carrying any other version
// rather than guessing field shapes.
const ExportVersion = "1.0.0"

// ExportDocument is the versioned, fully JSON-serializable snapshot
// format used to interchange state between store instances. It must
// stay free of non-JSON-safe values and cycles: the same structure is
// round-tripped through generic string-keyed storage.
type ExportDocument struct {
	Version     string         `json:"version" validate:"required"`
	ExportedAt  string         `json:"exportedAt"`
	Timelines   []Timeline     `json:"timelines" validate:"dive"`
	Checkpoints []Checkpoint   `json:"checkpoints" validate:"dive"`
	Captures    []CapturedPair `json:"captures"`
}

// ImportStrategy selects how an imported document is applied.
type ImportStrategy string

const (
	// StrategyReplace discards existing state and installs the
	// imported document wholesale.
	StrategyReplace ImportStrategy = "replace"

	// StrategyMerge keeps existing state and adds imported entries
	// whose ids are not already present; imported captures are
	// appended to the live buffer.
	StrategyMerge ImportStrategy = "merge"
)

// ExportOptions scopes an export.
type ExportOptions struct {
	// Timeline, when set, restricts the export to that one timeline
	// and its checkpoints. The live buffer is included only when the
	// scoped timeline is the currently active one; there is no way to
	// inspect another timeline's uncommitted buffer.
	Timeline string
}

// ImportOptions controls import application.
type ImportOptions struct {
	// Strategy defaults to StrategyReplace when empty.
	Strategy ImportStrategy
}

// importValidator validates document entries via struct tags on
// Timeline and Checkpoint.
var importValidator = validator.New()

// ExportState produces a self-describing snapshot of all timelines,
// checkpoints, and the active live buffer — or of a single timeline
// when scoped via ExportOptions. Returns ErrTimelineNotFound when the
// scope names an unknown timeline.
func (s *Store) ExportState(opts ...ExportOptions) (ExportDocument, error) {
	scope := ""
	if len(opts) > 0 {
		scope = opts[0].Timeline
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := ExportDocument{
		Version:     ExportVersion,
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Timelines:   []Timeline{},
		Checkpoints: []Checkpoint{},
		Captures:    []CapturedPair{},
	}

	if scope == "" {
		for _, id := range s.state.timelineOrder {
			doc.Timelines = append(doc.Timelines, s.state.timelines[id])
		}
		for _, id := range s.state.checkpointOrder {
			doc.Checkpoints = append(doc.Checkpoints, s.state.checkpoints[id])
		}
		doc.Captures = copyCaptures(s.state.captures)
		return doc, nil
	}

	t, ok := s.state.timelines[scope]
	if !ok {
		return ExportDocument{}, fmt.Errorf("export %q: %w", scope, ErrTimelineNotFound)
	}

	doc.Timelines = append(doc.Timelines, t)
	for _, id := range s.state.checkpointOrder {
		if cp := s.state.checkpoints[id]; cp.TimelineID == scope {
			doc.Checkpoints = append(doc.Checkpoints, cp)
		}
	}
	if scope == s.state.currentTimelineID {
		doc.Captures = copyCaptures(s.state.captures)
	}
	return doc, nil
}

// validateImport rejects malformed documents before any mutation.
// The first violation found is reported, naming the offending field.
func validateImport(doc ExportDocument) error {
	if doc.Version == "" {
		return fmt.Errorf("missing version field: %w", ErrInvalidImport)
	}
	if doc.Version != ExportVersion {
		return fmt.Errorf("version %q, want %q: %w", doc.Version, ExportVersion, ErrUnsupportedVersion)
	}
	if doc.Timelines == nil {
		return fmt.Errorf("timelines must be an array: %w", ErrInvalidImport)
	}
	if doc.Checkpoints == nil {
		return fmt.Errorf("checkpoints must be an array: %w", ErrInvalidImport)
	}
	if doc.Captures == nil {
		return fmt.Errorf("captures must be an array: %w", ErrInvalidImport)
	}

	if err := importValidator.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("field %s is %s: %w", first.Namespace(), first.Tag(), ErrInvalidImport)
		}
		return fmt.Errorf("%s: %w", err, ErrInvalidImport)
	}
	return nil
}

// ImportState applies an export document. Validation runs fully
// before any mutation, so a rejected document leaves state untouched.
//
// Replace discards existing state, installs the imported entries,
// guarantees the main timeline exists afterward (synthesizing it if
// the document lacks one), points the current timeline at the first
// imported timeline (main when the document carries none), and
// installs the imported captures as the live buffer.
//
// Merge keeps existing state, adds imported timelines and checkpoints
// only for unknown ids (first writer wins), appends imported captures
// to the live buffer, and leaves the current timeline unchanged.
func (s *Store) ImportState(doc ExportDocument, opts ...ImportOptions) error {
	strategy := StrategyReplace
	if len(opts) > 0 && opts[0].Strategy != "" {
		strategy = opts[0].Strategy
	}
	if strategy != StrategyReplace && strategy != StrategyMerge {
		return fmt.Errorf("unknown strategy %q: %w", strategy, ErrInvalidImport)
	}

	if err := validateImport(doc); err != nil {
		return err
	}

	err := s.mutate(func(st *chainState) error {
		if strategy == StrategyMerge {
			for _, t := range doc.Timelines {
				st.addTimeline(t)
			}
			for _, cp := range doc.Checkpoints {
				cp.Captures = copyCaptures(cp.Captures)
				st.addCheckpoint(cp)
			}
			st.captures = append(st.captures, copyCaptures(doc.Captures)...)
			return nil
		}

		st.timelines = make(map[string]Timeline, len(doc.Timelines))
		st.timelineOrder = st.timelineOrder[:0]
		st.checkpoints = make(map[string]Checkpoint, len(doc.Checkpoints))
		st.checkpointOrder = st.checkpointOrder[:0]
		for _, t := range doc.Timelines {
			st.addTimeline(t)
		}
		for _, cp := range doc.Checkpoints {
			cp.Captures = copyCaptures(cp.Captures)
			st.addCheckpoint(cp)
		}
		// Main must survive a replace even when the document lacks it.
		if _, ok := st.timelines[MainTimelineID]; !ok {
			st.addTimeline(newChainState().timelines[MainTimelineID])
		}
		if len(doc.Timelines) > 0 {
			st.currentTimelineID = doc.Timelines[0].ID
		} else {
			st.currentTimelineID = MainTimelineID
		}
		st.captures = copyCaptures(doc.Captures)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("state imported",
		"strategy", string(strategy),
		"timelines", len(doc.Timelines),
		"checkpoints", len(doc.Checkpoints),
		"captures", len(doc.Captures),
	)
	return nil
}
