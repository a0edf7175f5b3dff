// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"fmt"
	"sync"
	"testing"
)

func TestTranscriptOrderAndSnapshot(t *testing.T) {
	t.Parallel()

	transcript := NewTranscript()
	transcript.Append(Line{Category: CategoryCommand, Text: "first"})
	transcript.Append(Line{Category: CategoryLog, Text: "second"})
	transcript.Append(Line{Category: CategoryLog, Text: "second"})

	lines := transcript.Lines()
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0].Text != "first" || lines[1].Text != "second" || lines[2].Text != "second" {
		t.Errorf("lines out of order: %+v", lines)
	}

	// The snapshot is a copy: later appends must not show through.
	transcript.Append(Line{Category: CategoryInfo, Text: "third"})
	if len(lines) != 3 {
		t.Errorf("snapshot grew to %d lines", len(lines))
	}
	if transcript.Len() != 4 {
		t.Errorf("Len = %d, want 4", transcript.Len())
	}
}

func TestTranscriptNotify(t *testing.T) {
	t.Parallel()

	transcript := NewTranscript()
	var calls int
	transcript.SetNotify(func() { calls++ })

	transcript.Append(Line{Category: CategoryLog, Text: "a"})
	transcript.Append(Line{Category: CategoryLog, Text: "b"})
	if calls != 2 {
		t.Errorf("notify ran %d times, want 2", calls)
	}

	transcript.Reset()
	if calls != 3 {
		t.Errorf("notify after Reset ran %d times, want 3", calls)
	}
	if transcript.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", transcript.Len())
	}
}

func TestTranscriptConcurrentAppends(t *testing.T) {
	t.Parallel()

	transcript := NewTranscript()
	const writers = 8
	const perWriter = 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				transcript.Append(Line{Category: CategoryLog, Text: fmt.Sprintf("w%d-%d", w, i)})
			}
		}(w)
	}
	wg.Wait()

	if got, want := transcript.Len(), writers*perWriter; got != want {
		t.Errorf("Len = %d, want %d", got, want)
	}
}

func TestCategoryForKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind string
		want Category
	}{
		{"command", CategoryCommand},
		{"info", CategoryInfo},
		{"success", CategorySuccess},
		{"error", CategoryError},
		{"log", CategoryLog},
		{"status", CategoryStatus},
		{"response", CategoryLog},
		{"warning", CategoryLog},
		{"critical", CategoryLog},
		{"", CategoryLog},
		{"no-such-kind", CategoryLog},
	}
	for _, tt := range tests {
		if got := CategoryForKind(tt.kind); got != tt.want {
			t.Errorf("CategoryForKind(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
