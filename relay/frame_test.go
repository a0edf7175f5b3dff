// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"encoding/json"
	"testing"
)

func TestDecodeFrame(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    Frame
	}{
		{
			name:    "tagged frame",
			payload: `{"kind":"status","text":"Executing command..."}`,
			want:    Frame{Kind: "status", Text: "Executing command..."},
		},
		{
			name:    "legacy type discriminator",
			payload: `{"type":"response","text":"done"}`,
			want:    Frame{Kind: "response", Text: "done"},
		},
		{
			name:    "kind wins over type",
			payload: `{"kind":"error","type":"response","text":"boom"}`,
			want:    Frame{Kind: "error", Text: "boom"},
		},
		{
			name:    "missing discriminator defaults to log",
			payload: `{"text":"plain"}`,
			want:    Frame{Kind: "log", Text: "plain"},
		},
		{
			name:    "missing text falls back to raw payload",
			payload: `{"kind":"info"}`,
			want:    Frame{Kind: "info", Text: `{"kind":"info"}`},
		},
		{
			name:    "empty text is preserved",
			payload: `{"kind":"status","text":""}`,
			want:    Frame{Kind: "status", Text: ""},
		},
		{
			name:    "non-JSON payload becomes a log frame",
			payload: "plain text line",
			want:    Frame{Kind: "log", Text: "plain text line"},
		},
		{
			name:    "JSON array becomes a log frame",
			payload: `[1,2,3]`,
			want:    Frame{Kind: "log", Text: `[1,2,3]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DecodeFrame(tt.payload)
			if got != tt.want {
				t.Errorf("DecodeFrame(%q) = %+v, want %+v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestDecodeIntent(t *testing.T) {
	t.Parallel()

	intent, ok := DecodeIntent(`{"kind":"cli_input","command":"list files"}`)
	if !ok {
		t.Fatal("expected intent")
	}
	if got, want := intent.Command, "list files"; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}

	for _, payload := range []string{
		`{"kind":"status","text":"hi"}`,
		`{"kind":"cli_input"}`,
		`{"command":"orphan"}`,
		"not json",
	} {
		if _, ok := DecodeIntent(payload); ok {
			t.Errorf("DecodeIntent(%q) = true, want false", payload)
		}
	}
}

func TestEncodeIntentCarriesCommandVerbatim(t *testing.T) {
	t.Parallel()

	intent := EncodeIntent("checkpoint save v1 initial snapshot")
	payload, err := json.Marshal(intent)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kind":"cli_input","command":"checkpoint save v1 initial snapshot"}`
	if string(payload) != want {
		t.Errorf("encoded intent = %s, want %s", payload, want)
	}

	// The wire shape must round-trip through the hub's decoder.
	decoded, ok := DecodeIntent(string(payload))
	if !ok {
		t.Fatal("hub decoder rejected an encoded intent")
	}
	if decoded.Command != "checkpoint save v1 initial snapshot" {
		t.Errorf("round-tripped command = %q", decoded.Command)
	}
}
