// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"fmt"
	"strings"
)

// Handle classifies and executes one user-entered line. Blank or
// whitespace-only input is a no-op. When the channel is open, the line
// is echoed to the transcript and relayed verbatim to the engine — the
// relay path is authoritative for every command. "checkpoint save"
// additionally persists the checkpoint through the direct store, since
// the engine's echo of the command is not durable storage. When the
// channel is not open, the command is refused with an error line; no
// direct fallback exists for any other command.
func (s *Session) Handle(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	if s.channel.State() != StateOpen {
		s.transcript.Append(Line{Category: CategoryError, Text: "Live channel is not connected. Command not sent."})
		s.setStatus("Live channel unavailable.")
		return
	}

	s.transcript.Append(Line{Category: CategoryCommand, Text: line})

	if err := s.channel.Send(EncodeIntent(line)); err != nil {
		s.transcript.Append(Line{Category: CategoryError, Text: fmt.Sprintf("Failed to send command: %v", err)})
		s.setStatus("Live channel unavailable.")
		return
	}
	s.setStatus("Executing command...")

	// The checkpoint carve-out: "checkpoint save <name> [message...]"
	// runs the direct persistence call alongside the relay echo. Only
	// this one compound verb has a dual path; the asymmetry is
	// deliberate and not generalized to other commands.
	fields := strings.Fields(trimmed)
	if len(fields) >= 3 && strings.EqualFold(fields[0], "checkpoint") && strings.EqualFold(fields[1], "save") {
		name := fields[2]
		message := strings.Join(fields[3:], " ")
		if message == "" {
			message = fmt.Sprintf("Checkpoint '%s' saved.", name)
		}
		go s.saveCheckpoint(name, message)
	}
}

// saveCheckpoint runs the direct persistence call and reports its
// outcome to the transcript. Every failure is converted to an error
// line — a broken memory service must never take the session down.
// Results that arrive after Close are discarded: the transcript they
// would land in has been abandoned.
func (s *Session) saveCheckpoint(name, message string) {
	if s.checkpoints == nil {
		s.transcript.Append(Line{Category: CategoryError, Text: "Memory service not configured; cannot save checkpoint."})
		return
	}

	_, err := s.checkpoints.StoreCheckpoint(s.ctx, name, message)
	if s.disposed() {
		return
	}
	if err != nil {
		s.transcript.Append(Line{Category: CategoryError, Text: fmt.Sprintf("Error saving checkpoint '%s': %v", name, err)})
		return
	}

	s.transcript.Append(Line{Category: CategorySuccess, Text: fmt.Sprintf("Checkpoint '%s' saved successfully.", name)})
	s.refreshCheckpoints()
}

// refreshCheckpoints reloads the cached checkpoint view after a
// successful save. A failed refresh is logged but not surfaced — the
// save itself already succeeded.
func (s *Session) refreshCheckpoints() {
	checkpoints, err := s.checkpoints.LoadCheckpoints(s.ctx)
	if s.disposed() {
		return
	}
	if err != nil {
		s.logger.Warn("checkpoint view refresh failed", "error", err)
		return
	}

	s.mu.Lock()
	s.saved = checkpoints
	s.mu.Unlock()
	s.notifyUpdate()
}
