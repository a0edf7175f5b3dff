// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/coddy-project/coddy/relay"
)

// Engine runs the interactive command-line engine as a child process
// and bridges it to the hub: relay commands are written to the
// engine's stdin, stdout lines are broadcast as log frames, and stderr
// lines as error frames. When the engine exits, a status frame
// announces it and Done is closed.
type Engine struct {
	broadcast func(relay.Frame)
	logger    *slog.Logger
	cmd       *exec.Cmd

	stdinMu sync.Mutex
	stdin   io.WriteCloser

	done chan struct{}
}

// StartEngine launches the engine command. The process is killed when
// ctx is cancelled. broadcast receives every frame the engine
// produces.
func StartEngine(ctx context.Context, argv []string, broadcast func(relay.Frame), logger *slog.Logger) (*Engine, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("hub: engine command is required")
	}
	if broadcast == nil {
		return nil, fmt.Errorf("hub: engine broadcast function is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("hub: engine stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("hub: engine stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("hub: engine stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("hub: start engine %q: %w", argv[0], err)
	}
	logger.Info("engine started", "command", argv[0], "pid", cmd.Process.Pid)

	engine := &Engine{
		broadcast: broadcast,
		logger:    logger,
		cmd:       cmd,
		stdin:     stdin,
		done:      make(chan struct{}),
	}

	// Both pipes must be fully drained before Wait reaps the process.
	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		engine.pump(stdout, relay.KindLog)
	}()
	go func() {
		defer pumps.Done()
		engine.pump(stderr, "error")
	}()

	go func() {
		pumps.Wait()
		err := cmd.Wait()
		if err != nil {
			logger.Warn("engine exited", "error", err)
		} else {
			logger.Info("engine exited")
		}
		broadcast(relay.Frame{Kind: relay.KindStatus, Text: "CLI engine exited."})
		close(engine.done)
	}()

	return engine, nil
}

// Submit implements Executor: one command line to the engine's stdin.
func (e *Engine) Submit(command string) error {
	e.stdinMu.Lock()
	defer e.stdinMu.Unlock()
	if _, err := io.WriteString(e.stdin, command+"\n"); err != nil {
		return fmt.Errorf("hub: write to engine stdin: %w", err)
	}
	return nil
}

// Done is closed once the engine process has exited.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Stop closes the engine's stdin, the conventional shutdown signal for
// a line-oriented engine. The process is force-killed by context
// cancellation if it ignores the EOF.
func (e *Engine) Stop() {
	e.stdinMu.Lock()
	defer e.stdinMu.Unlock()
	_ = e.stdin.Close()
}

// pump broadcasts each line read from the pipe as a frame of the given
// kind. Scanner errors end the pump; the exit watcher reports the
// process outcome.
func (e *Engine) pump(pipe io.Reader, kind string) {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		e.broadcast(relay.Frame{Kind: kind, Text: scanner.Text()})
	}
	if err := scanner.Err(); err != nil {
		e.logger.Warn("engine output read failed", "kind", kind, "error", err)
	}
}
