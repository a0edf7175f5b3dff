// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"fmt"
	"testing"
)

func historyTexts(h *frameHistory) []string {
	var texts []string
	for _, payload := range h.snapshot() {
		texts = append(texts, string(payload))
	}
	return texts
}

func TestFrameHistoryOrder(t *testing.T) {
	t.Parallel()

	h := newFrameHistory(4)
	for i := 0; i < 3; i++ {
		h.append([]byte(fmt.Sprintf("f%d", i)))
	}

	got := historyTexts(h)
	want := []string{"f0", "f1", "f2"}
	if len(got) != len(want) {
		t.Fatalf("snapshot = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFrameHistoryOverwritesOldest(t *testing.T) {
	t.Parallel()

	h := newFrameHistory(3)
	for i := 0; i < 5; i++ {
		h.append([]byte(fmt.Sprintf("f%d", i)))
	}

	got := historyTexts(h)
	want := []string{"f2", "f3", "f4"}
	if len(got) != len(want) {
		t.Fatalf("snapshot = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFrameHistoryDisabled(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{0, -1} {
		h := newFrameHistory(capacity)
		h.append([]byte("dropped"))
		if got := len(h.snapshot()); got != 0 {
			t.Errorf("capacity %d: snapshot has %d entries, want 0", capacity, got)
		}
	}
}
