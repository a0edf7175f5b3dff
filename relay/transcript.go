// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import "sync"

// Category classifies a transcript line for display. The set is fixed;
// inbound frame kinds outside it collapse to CategoryLog.
type Category string

const (
	// CategoryCommand is a local echo of a user-entered command.
	CategoryCommand Category = "command"
	// CategoryInfo is an informational notice.
	CategoryInfo Category = "info"
	// CategorySuccess reports a completed operation.
	CategorySuccess Category = "success"
	// CategoryError reports a failure.
	CategoryError Category = "error"
	// CategoryLog is raw engine or server output.
	CategoryLog Category = "log"
	// CategoryStatus marks connection lifecycle notices.
	CategoryStatus Category = "status"
)

// CategoryForKind maps an inbound frame kind onto a transcript
// category. Kinds with no display category of their own (response,
// warning, critical, anything unknown) fall back to CategoryLog.
func CategoryForKind(kind string) Category {
	switch category := Category(kind); category {
	case CategoryCommand, CategoryInfo, CategorySuccess, CategoryError, CategoryLog, CategoryStatus:
		return category
	}
	return CategoryLog
}

// Line is one displayable transcript entry. Lines are never mutated
// after creation.
type Line struct {
	Category Category
	Text     string
}

// Transcript is the ordered, append-only log of display lines shown by
// the dashboard. Insertion order is display order: the store never
// reorders and never deduplicates. Safe for concurrent use — the
// channel goroutine, the router's caller, and checkpoint completions
// all append.
type Transcript struct {
	mu     sync.Mutex
	lines  []Line
	notify func()
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// SetNotify registers a callback invoked after every append (and after
// Reset). The presentation layer uses it to schedule a re-render.
// The callback runs on the appending goroutine and must not block.
func (t *Transcript) SetNotify(notify func()) {
	t.mu.Lock()
	t.notify = notify
	t.mu.Unlock()
}

// Append adds a line at the end of the transcript.
func (t *Transcript) Append(line Line) {
	t.mu.Lock()
	t.lines = append(t.lines, line)
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Lines returns a snapshot of the transcript in insertion order. The
// returned slice is a copy; the caller may retain it across appends.
func (t *Transcript) Lines() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := make([]Line, len(t.lines))
	copy(snapshot, t.lines)
	return snapshot
}

// Len returns the number of lines in the transcript.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lines)
}

// Reset discards all lines. Reserved for an explicit session reset;
// nothing clears the transcript during normal operation.
func (t *Transcript) Reset() {
	t.mu.Lock()
	t.lines = nil
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify()
	}
}
