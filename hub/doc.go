// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

// Package hub implements the relay server the dashboard connects to.
//
// The [Hub] accepts websocket clients and fans frames out to all of
// them. Inbound client traffic is split three ways: cli_input intents
// go to the attached [Executor] (the command-line engine), well-formed
// frames are re-broadcast to every client, and unparsable payloads are
// broadcast as warning frames quoting the offender. A bounded frame
// history is replayed to each connecting client, so a dashboard that
// reconnects after a transport drop recovers the traffic it missed.
//
// [Engine] is the production Executor: it runs the engine as a child
// process, feeds commands to its stdin, and broadcasts its stdout and
// stderr line by line.
package hub
