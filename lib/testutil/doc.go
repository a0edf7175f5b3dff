// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides channel assertion helpers shared by tests
// across the repository. Every helper takes an explicit timeout so a
// broken test hangs for a bounded time instead of forever.
package testutil
