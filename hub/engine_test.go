// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"context"
	"testing"
	"time"

	"github.com/coddy-project/coddy/lib/testutil"
	"github.com/coddy-project/coddy/relay"
)

func startTestEngine(t *testing.T, argv []string) (*Engine, chan relay.Frame) {
	t.Helper()
	frames := make(chan relay.Frame, 64)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	engine, err := StartEngine(ctx, argv, func(frame relay.Frame) { frames <- frame }, nil)
	if err != nil {
		t.Fatalf("StartEngine: %v", err)
	}
	return engine, frames
}

func TestEngineBridgesStdoutToLogFrames(t *testing.T) {
	t.Parallel()

	// cat echoes stdin back on stdout, so a submitted command comes
	// back as one log frame per line.
	engine, frames := startTestEngine(t, []string{"cat"})

	if err := engine.Submit("hello engine"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	frame := testutil.RequireReceive(t, frames, 2*time.Second, "stdout frame")
	if frame.Kind != relay.KindLog || frame.Text != "hello engine" {
		t.Errorf("frame = %+v", frame)
	}

	engine.Stop()
	testutil.RequireClosed(t, engine.Done(), 2*time.Second, "engine exit")

	// The exit is announced as a status frame.
	exitFrame := testutil.RequireReceive(t, frames, 2*time.Second, "exit frame")
	if exitFrame.Kind != relay.KindStatus {
		t.Errorf("exit frame = %+v, want status kind", exitFrame)
	}
}

func TestEngineBridgesStderrToErrorFrames(t *testing.T) {
	t.Parallel()

	engine, frames := startTestEngine(t, []string{"sh", "-c", "echo oops >&2"})

	frame := testutil.RequireReceive(t, frames, 2*time.Second, "stderr frame")
	if frame.Kind != "error" || frame.Text != "oops" {
		t.Errorf("frame = %+v", frame)
	}
	testutil.RequireClosed(t, engine.Done(), 2*time.Second, "engine exit")
}

func TestEngineRejectsEmptyCommand(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := StartEngine(ctx, nil, func(relay.Frame) {}, nil); err == nil {
		t.Error("expected error for empty argv")
	}
	if _, err := StartEngine(ctx, []string{"cat"}, nil, nil); err == nil {
		t.Error("expected error for nil broadcast")
	}
}
