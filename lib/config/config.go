// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Coddy components.
//
// Configuration is loaded from a single YAML file specified by:
//   - CODDY_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery beyond the built-in
// defaults, which describe a hub and memory service on localhost.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for Coddy.
type Config struct {
	// Hub configures the relay server.
	Hub HubConfig `yaml:"hub"`

	// Dashboard configures the terminal dashboard.
	Dashboard DashboardConfig `yaml:"dashboard"`

	// Memory configures the memory service client.
	Memory MemoryConfig `yaml:"memory"`
}

// HubConfig configures the relay server.
type HubConfig struct {
	// Listen is the address the hub serves on.
	// Default: localhost:8080
	Listen string `yaml:"listen"`

	// HistorySize is the number of frames replayed to a connecting
	// client. Default: 256. Negative disables replay.
	HistorySize int `yaml:"history_size"`

	// Engine is the command line of the interactive engine the hub
	// bridges to. Empty means no engine is attached.
	Engine []string `yaml:"engine"`
}

// DashboardConfig configures the terminal dashboard.
type DashboardConfig struct {
	// ChannelURL is the hub's websocket endpoint.
	// Default: ws://localhost:8080/ws
	ChannelURL string `yaml:"channel_url"`

	// RetryDelay is the fixed wait between reconnection attempts,
	// as a duration string. Default: 5s.
	RetryDelay string `yaml:"retry_delay"`

	// UserID identifies the user on stored checkpoints.
	// Default: default_user (matching the engine's own default).
	UserID string `yaml:"user_id"`
}

// MemoryConfig configures the memory service client.
type MemoryConfig struct {
	// BaseURL is the memory service endpoint.
	// Default: http://localhost:8000
	BaseURL string `yaml:"base_url"`
}

// Default returns the default configuration: everything on localhost,
// matching a development checkout where the hub, engine, and memory
// service run on one machine.
func Default() *Config {
	return &Config{
		Hub: HubConfig{
			Listen:      "localhost:8080",
			HistorySize: 256,
		},
		Dashboard: DashboardConfig{
			ChannelURL: "ws://localhost:8080/ws",
			RetryDelay: "5s",
			UserID:     "default_user",
		},
		Memory: MemoryConfig{
			BaseURL: "http://localhost:8000",
		},
	}
}

// Load loads configuration from the CODDY_CONFIG environment variable.
// When the variable is unset, the defaults are returned unchanged —
// unlike most knobs, a missing config file is not an error here, since
// the defaults describe a complete local setup.
func Load() (*Config, error) {
	path := os.Getenv("CODDY_CONFIG")
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merging over
// the defaults. The file is the single source of truth; environment
// variables do not override its values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Hub.Listen == "" {
		errs = append(errs, fmt.Errorf("hub.listen is required"))
	}

	if c.Dashboard.ChannelURL == "" {
		errs = append(errs, fmt.Errorf("dashboard.channel_url is required"))
	} else if parsed, err := url.Parse(c.Dashboard.ChannelURL); err != nil {
		errs = append(errs, fmt.Errorf("dashboard.channel_url: %w", err))
	} else if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		errs = append(errs, fmt.Errorf("dashboard.channel_url must use ws or wss, got %q", parsed.Scheme))
	}

	if _, err := c.RetryDelay(); err != nil {
		errs = append(errs, err)
	}

	if c.Memory.BaseURL != "" {
		if _, err := url.Parse(c.Memory.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("memory.base_url: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RetryDelay parses the dashboard's reconnect delay.
func (c *Config) RetryDelay() (time.Duration, error) {
	if c.Dashboard.RetryDelay == "" {
		return 5 * time.Second, nil
	}
	delay, err := time.ParseDuration(c.Dashboard.RetryDelay)
	if err != nil {
		return 0, fmt.Errorf("dashboard.retry_delay: %w", err)
	}
	if delay <= 0 {
		return 0, fmt.Errorf("dashboard.retry_delay must be positive, got %s", delay)
	}
	return delay, nil
}
