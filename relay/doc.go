// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay implements the dashboard's session relay: a persistent
// live-update channel between the dashboard and the hub process that
// fronts the interactive command-line engine.
//
// The package is organized around the data flow:
//
//   - frame.go: wire codec — inbound frames and outbound intents as
//     JSON text payloads. Decoding never fails: malformed payloads
//     become log frames carrying the raw text.
//   - transcript.go: the ordered, append-only display log and the
//     fixed category set its lines are tagged with.
//   - channel.go: connection ownership and the fixed-delay reconnect
//     loop. At most one connection is current at any instant; [Channel.Send]
//     fails fast with [ErrNotReady] instead of buffering.
//   - websocket.go: the production transport behind the [Dialer] and
//     [Conn] seams.
//   - session.go, router.go: [Session] composes the pieces and routes
//     user-entered lines — every command relays to the engine while
//     the channel is open, and "checkpoint save" additionally persists
//     through the memory service so the checkpoint survives even if
//     the engine does not store it.
//
// Failure philosophy: nothing in this package is fatal. Transport
// errors reconnect forever at a fixed delay, decode errors degrade to
// raw log lines, and persistence errors become transcript lines. The
// only way to stop the relay is [Session.Close].
package relay
