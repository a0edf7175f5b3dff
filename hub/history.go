// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package hub

// frameHistory is a circular buffer of encoded frames, replayed to
// newly connected clients so a reconnecting dashboard recovers the
// traffic it missed. When full, the oldest frame is overwritten.
//
// Not safe for concurrent use on its own; the Hub guards it with its
// client-registry mutex so that history appends and client fanout stay
// atomic (a connecting client must never miss a frame or see one
// twice).
type frameHistory struct {
	entries [][]byte
	start   int
	count   int
}

// newFrameHistory returns a history retaining up to capacity frames.
// A zero or negative capacity disables replay.
func newFrameHistory(capacity int) *frameHistory {
	if capacity < 0 {
		capacity = 0
	}
	return &frameHistory{entries: make([][]byte, capacity)}
}

// append records one encoded frame, discarding the oldest when full.
func (h *frameHistory) append(payload []byte) {
	if len(h.entries) == 0 {
		return
	}
	if h.count < len(h.entries) {
		h.entries[(h.start+h.count)%len(h.entries)] = payload
		h.count++
		return
	}
	h.entries[h.start] = payload
	h.start = (h.start + 1) % len(h.entries)
}

// snapshot returns the retained frames, oldest first.
func (h *frameHistory) snapshot() [][]byte {
	result := make([][]byte, 0, h.count)
	for i := 0; i < h.count; i++ {
		result = append(result, h.entries[(h.start+i)%len(h.entries)])
	}
	return result
}
