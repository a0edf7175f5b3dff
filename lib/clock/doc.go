// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The session relay's reconnect loop waits on a fixed delay between
// connection attempts. Testing that loop against the real time package
// means either slow tests or flaky sleeps; instead, every component
// that waits on time accepts a [Clock]. Production wiring passes
// [Real], tests pass [Fake] and drive it with Advance.
//
// The interface is deliberately small: Now, After, and Sleep are the
// only operations the relay needs. Grow it only when a caller appears.
package clock
