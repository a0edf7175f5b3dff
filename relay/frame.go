// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import "encoding/json"

// Frame kinds with dedicated handling. Every other kind a server may
// emit (response, warning, critical, ...) is carried through unchanged
// and collapses to a log-category transcript line on display.
const (
	// KindStatus updates the session's status indicator without
	// appending a transcript line.
	KindStatus = "status"

	// KindCLIInput marks an outbound relay command for the engine.
	KindCLIInput = "cli_input"

	// KindLog is the fallback kind for malformed or untagged payloads.
	KindLog = "log"
)

// Frame is one decoded unit of inbound channel payload.
type Frame struct {
	// Kind selects the dispatch path. Defaults to "log" when the
	// payload carries no discriminator.
	Kind string `json:"kind"`

	// Text is the displayable payload. Defaults to the raw inbound
	// payload when the field is absent.
	Text string `json:"text"`
}

// Intent is an outbound relay command. The wire shape is
// {"kind":"cli_input","command":"<raw line>"}.
type Intent struct {
	Kind    string `json:"kind"`
	Command string `json:"command"`
}

// wireFrame is the permissive shape used for decoding. Older writers
// name the discriminator "type"; newer frames use "kind". Both are
// accepted; "kind" wins when both are present.
// Text is a pointer to distinguish an absent field from an empty one.
type wireFrame struct {
	Kind    string  `json:"kind"`
	Type    string  `json:"type"`
	Text    *string `json:"text"`
	Command string  `json:"command"`
}

// DecodeFrame decodes a raw channel payload into a Frame. It never
// fails: a payload that is not a JSON object becomes a log frame
// carrying the payload verbatim, an object without a discriminator
// defaults to "log", and an object without text falls back to the raw
// payload. Callers can rely on always receiving a displayable Frame.
func DecodeFrame(payload string) Frame {
	var wire wireFrame
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Frame{Kind: KindLog, Text: payload}
	}

	kind := wire.Kind
	if kind == "" {
		kind = wire.Type
	}
	if kind == "" {
		kind = KindLog
	}

	text := payload
	if wire.Text != nil {
		text = *wire.Text
	}

	return Frame{Kind: kind, Text: text}
}

// DecodeIntent reports whether a raw payload is a relay command
// ({"kind":"cli_input","command":...}) and returns it if so. The hub
// uses this to separate commands bound for the engine from frames that
// should be re-broadcast to other clients.
func DecodeIntent(payload string) (Intent, bool) {
	var wire wireFrame
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Intent{}, false
	}
	kind := wire.Kind
	if kind == "" {
		kind = wire.Type
	}
	if kind != KindCLIInput || wire.Command == "" {
		return Intent{}, false
	}
	return Intent{Kind: KindCLIInput, Command: wire.Command}, true
}

// EncodeIntent wraps a user-entered command line as an outbound intent.
// The command is carried unmodified; the caller guarantees it is
// non-blank (the router drops blank input before reaching here).
func EncodeIntent(command string) Intent {
	return Intent{Kind: KindCLIInput, Command: command}
}
