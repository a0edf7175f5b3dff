// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

// coddy-hub is the relay server between the Coddy CLI engine and any
// number of dashboard clients. It serves a websocket endpoint at /ws,
// fans engine output out to every connected dashboard, and feeds
// dashboard commands into the engine's stdin.
//
// The engine command line comes from configuration or from positional
// arguments:
//
//	coddy-hub --listen localhost:8080 -- python -m coddy --interactive
//
// Without an engine, the hub still relays frames between clients, which
// is useful for development and for driving the engine process
// separately.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/coddy-project/coddy/hub"
	"github.com/coddy-project/coddy/lib/config"
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
	var listen string
	var historySize int

	flagSet := pflag.NewFlagSet("coddy-hub", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (overrides CODDY_CONFIG)")
	flagSet.StringVar(&listen, "listen", "", "listen address (overrides config)")
	flagSet.IntVar(&historySize, "history", -1, "frames replayed to connecting clients (overrides config)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Hub.Listen = listen
	}
	if historySize >= 0 {
		cfg.Hub.HistorySize = historySize
	}
	engineArgs := cfg.Hub.Engine
	if args := flagSet.Args(); len(args) > 0 {
		engineArgs = args
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	relayHub := hub.New(hub.Config{
		HistorySize: cfg.Hub.HistorySize,
		Logger:      logger,
	})
	defer relayHub.Close()

	var engine *hub.Engine
	if len(engineArgs) > 0 {
		engine, err = hub.StartEngine(ctx, engineArgs, relayHub.Broadcast, logger)
		if err != nil {
			return fmt.Errorf("start engine: %w", err)
		}
		relayHub.SetExecutor(engine)
		logger.Info("engine started", "command", engineArgs)
	} else {
		logger.Info("no engine configured, relaying between clients only")
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", relayHub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{
		Addr:              cfg.Hub.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("hub listening", "address", cfg.Hub.Listen)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("hub server: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	case <-engineDone(engine):
		logger.Warn("engine exited, shutting down")
		relayHub.Broadcast(relay.Frame{Kind: relay.KindStatus, Text: "Hub shutting down."})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if engine != nil {
		engine.Stop()
	}
	return nil
}

// engineDone returns the engine's exit channel, or a channel that never
// fires when no engine is attached.
func engineDone(engine *hub.Engine) <-chan struct{} {
	if engine == nil {
		return nil
	}
	return engine.Done()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
