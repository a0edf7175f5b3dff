// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

// coddy-dash is the terminal dashboard for a running Coddy hub. It
// maintains a session over the hub's websocket channel, renders the
// session transcript with per-category styling, and submits typed
// commands to the engine through the relay. "checkpoint save" commands
// are additionally persisted to the memory service directly.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/coddy-project/coddy/lib/config"
	"github.com/coddy-project/coddy/memory"
	"github.com/coddy-project/coddy/relay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var channelURL string
	var memoryURL string
	var userID string
	var logFile string

	flagSet := pflag.NewFlagSet("coddy-dash", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (overrides CODDY_CONFIG)")
	flagSet.StringVar(&channelURL, "url", "", "hub websocket URL (overrides config)")
	flagSet.StringVar(&memoryURL, "memory-url", "", "memory service URL (overrides config)")
	flagSet.StringVar(&userID, "user", "", "user ID recorded on checkpoints (overrides config)")
	flagSet.StringVar(&logFile, "log-file", "", "write JSON log records to this file")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("coddy-dash requires a terminal")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if channelURL != "" {
		cfg.Dashboard.ChannelURL = channelURL
	}
	if memoryURL != "" {
		cfg.Memory.BaseURL = memoryURL
	}
	if userID != "" {
		cfg.Dashboard.UserID = userID
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	retryDelay, err := cfg.RetryDelay()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so log records go to a file or
	// nowhere. Stderr would corrupt the display.
	logWriter := io.Writer(io.Discard)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer file.Close()
		logWriter = file
	}
	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	var checkpoints relay.CheckpointStore
	if cfg.Memory.BaseURL != "" {
		client, err := memory.NewClient(memory.ClientConfig{
			BaseURL:    cfg.Memory.BaseURL,
			SessionID:  uuid.NewString(),
			UserID:     cfg.Dashboard.UserID,
			HTTPClient: &http.Client{Timeout: 10 * time.Second},
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("memory client: %w", err)
		}
		checkpoints = &checkpointStoreAdapter{client: client}
	}

	// The session emits updates before the tea.Program exists, so the
	// callback reads the program through an atomic pointer and drops
	// updates until SetProgram-equivalent publication happens below.
	var program atomic.Pointer[tea.Program]
	session, err := relay.NewSession(relay.SessionConfig{
		ChannelURL:  cfg.Dashboard.ChannelURL,
		Checkpoints: checkpoints,
		RetryDelay:  retryDelay,
		Logger:      logger,
		OnUpdate: func() {
			if p := program.Load(); p != nil {
				p.Send(sessionUpdateMsg{})
			}
		},
	})
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	defer session.Close()

	p := tea.NewProgram(newModel(session), tea.WithAltScreen())
	program.Store(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// checkpointStoreAdapter narrows the memory client to the session's
// checkpoint interface, converting stored records to the session's
// checkpoint type.
type checkpointStoreAdapter struct {
	client *memory.Client
}

func (a *checkpointStoreAdapter) StoreCheckpoint(ctx context.Context, name, message string) (string, error) {
	return a.client.StoreCheckpoint(ctx, name, message)
}

func (a *checkpointStoreAdapter) LoadCheckpoints(ctx context.Context) ([]relay.Checkpoint, error) {
	records, err := a.client.LoadCheckpoints(ctx)
	if err != nil {
		return nil, err
	}
	checkpoints := make([]relay.Checkpoint, 0, len(records))
	for _, record := range records {
		checkpoints = append(checkpoints, relay.Checkpoint{
			Name:    record.Name,
			Message: record.Message,
			SavedAt: record.SavedAt,
		})
	}
	return checkpoints, nil
}
