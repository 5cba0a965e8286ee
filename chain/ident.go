// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// NewID generates an opaque identifier with an embedded creation-time
// ordering property: a millisecond timestamp prefix followed by a
// UUID, so lexical order tracks creation order at millisecond
// granularity while the UUID keeps ids collision-resistant.
func NewID() string {
	return fmt.Sprintf("%012x-%s", time.Now().UnixMilli(), uuid.NewString())
}

// Fingerprint computes a stable hex fingerprint of a
// (method, path, body) triple for request matching. Equal triples
// always produce equal fingerprints; the body is serialized as JSON,
// so only JSON-safe values participate.
func Fingerprint(method, path string, body any) string {
	payload := struct {
		Method string `json:"method"`
		Path   string `json:"path"`
		Body   any    `json:"body"`
	}{Method: method, Path: path, Body: body}

	data, err := json.Marshal(payload)
	if err != nil {
		// Non-JSON-safe bodies fall back to their Go formatting.
		data = fmt.Appendf(nil, "%s|%s|%v", method, path, body)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CanonicalURL returns raw with its query parameters sorted by key,
// giving a stable form for URL comparison. Strings that do not parse
// as URLs are returned unchanged.
func CanonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	// Encode sorts parameters by key.
	u.RawQuery = u.Query().Encode()
	return u.String()
}

// DeepCopy copies an arbitrary JSON-safe value via a JSON round-trip,
// so nested maps and slices are fully detached from the source. Values
// that fail to serialize are returned as-is.
func DeepCopy(value any) any {
	if value == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return value
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return value
	}
	return out
}

// copyCaptures copies a capture buffer at the slice level. Pair
// contents are immutable after creation, so sharing the elements is
// safe while the slice itself is detached.
func copyCaptures(src []CapturedPair) []CapturedPair {
	out := make([]CapturedPair, len(src))
	copy(out, src)
	return out
}
