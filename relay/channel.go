// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coddy-project/coddy/lib/clock"
)

// State is the connection state of a Channel. Transitions form a loop:
// connecting → open (handshake succeeded), open → closed (error or
// server close), closed → connecting (after the fixed retry delay).
// The loop runs for the life of the session; teardown is the only exit.
type State string

const (
	// StateConnecting means a dial attempt is in flight.
	StateConnecting State = "connecting"
	// StateOpen means the channel is live and Send will deliver.
	StateOpen State = "open"
	// StateClosed means the channel is down and a reconnect is pending.
	StateClosed State = "closed"
)

// ErrNotReady is returned by Send when the channel is not open. The
// channel never buffers: an intent that cannot be delivered immediately
// is the caller's problem to surface to the user.
var ErrNotReady = errors.New("relay: live channel is not open")

// DefaultRetryDelay is the fixed wait between reconnection attempts.
// There is no backoff growth and no attempt cap — reconnection is
// perpetual until the session is torn down.
const DefaultRetryDelay = 5 * time.Second

// Conn is one live duplex connection carrying UTF-8 text payloads.
// Production connections wrap a websocket; tests substitute fakes.
type Conn interface {
	// ReadText blocks until the next text payload arrives.
	ReadText() (string, error)

	// WriteText sends one text payload.
	WriteText(payload string) error

	// Close tears the connection down, unblocking a pending ReadText.
	Close() error
}

// Dialer establishes Conns. The dial must honor context cancellation.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Sink receives channel events. All methods are invoked from the
// channel's single event goroutine, in arrival order, so implementations
// need no ordering logic of their own (they still need locking if other
// goroutines touch the same state).
type Sink interface {
	// Connected fires after each successful dial.
	Connected()

	// HandleFrame fires once per decoded inbound frame.
	HandleFrame(frame Frame)

	// Disconnected fires when an open channel goes down or a dial
	// fails. err is nil for a clean server-side close. It does not
	// fire on teardown.
	Disconnected(err error)
}

// ChannelConfig configures a Channel.
type ChannelConfig struct {
	// URL is the channel endpoint (e.g. "ws://localhost:8080/ws").
	URL string

	// Dialer establishes connections. Required.
	Dialer Dialer

	// Sink receives lifecycle and frame events. Required.
	Sink Sink

	// RetryDelay is the fixed wait between reconnection attempts.
	// Defaults to DefaultRetryDelay.
	RetryDelay time.Duration

	// Clock is the time source for the retry wait. Defaults to the
	// real clock.
	Clock clock.Clock

	// Logger receives structured connection lifecycle logs. Defaults
	// to slog.Default().
	Logger *slog.Logger
}

// Channel owns at most one live duplex connection at a time and keeps
// it alive with fixed-delay reconnection. The connect/read loop runs on
// a single goroutine (Run); inbound payloads are decoded and handed to
// the Sink in arrival order. Send fails fast when the channel is not
// open — nothing is buffered or retried internally.
type Channel struct {
	url        string
	dialer     Dialer
	sink       Sink
	retryDelay time.Duration
	clock      clock.Clock
	logger     *slog.Logger

	mu    sync.Mutex
	state State
	conn  Conn

	// sendMu serializes writes; the underlying connection allows only
	// one concurrent writer.
	sendMu sync.Mutex
}

// NewChannel validates the configuration and returns a Channel. Call
// Run to start the connect loop.
func NewChannel(config ChannelConfig) (*Channel, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("relay: channel URL is required")
	}
	if config.Dialer == nil {
		return nil, fmt.Errorf("relay: channel dialer is required")
	}
	if config.Sink == nil {
		return nil, fmt.Errorf("relay: channel sink is required")
	}

	retryDelay := config.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Channel{
		url:        config.URL,
		dialer:     config.Dialer,
		sink:       config.Sink,
		retryDelay: retryDelay,
		clock:      clk,
		logger:     logger,
		state:      StateConnecting,
	}, nil
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send delivers one intent over the live connection. Returns
// ErrNotReady when the channel is not open; the caller must reflect
// the failure to the user rather than expect a retry.
func (c *Channel) Send(intent Intent) error {
	c.mu.Lock()
	state, conn := c.state, c.conn
	c.mu.Unlock()

	if state != StateOpen || conn == nil {
		return ErrNotReady
	}

	payload, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("relay: encode intent: %w", err)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := conn.WriteText(string(payload)); err != nil {
		return fmt.Errorf("relay: send intent: %w", err)
	}
	return nil
}

// Run drives the connect/read/reconnect loop until ctx is cancelled.
// It blocks; callers run it on its own goroutine. Cancellation is the
// only terminating path: the current connection is detached before
// closing so that teardown never schedules another reconnect and never
// reports a disconnect to the Sink.
func (c *Channel) Run(ctx context.Context) {
	// Closing the connection is the only way to unblock a pending
	// read, so watch for cancellation on the side.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.Close()
			}
			c.mu.Unlock()
		case <-watchDone:
		}
	}()

	for {
		c.setState(StateConnecting)
		conn, err := c.dialer.Dial(ctx, c.url)
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
		if err != nil {
			c.logger.Warn("channel dial failed",
				"url", c.url,
				"error", err,
				"retry_in", c.retryDelay,
			)
			c.setState(StateClosed)
			c.sink.Disconnected(err)
			if !c.waitRetry(ctx) {
				return
			}
			continue
		}

		c.setConn(conn)
		c.setState(StateOpen)
		c.logger.Info("channel connected", "url", c.url)
		c.sink.Connected()

		readErr := c.readLoop(conn)

		// Detach before closing: once the connection is no longer
		// current, nothing it does can trigger another reconnect.
		c.setConn(nil)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		c.setState(StateClosed)
		c.logger.Warn("channel disconnected",
			"error", readErr,
			"retry_in", c.retryDelay,
		)
		c.sink.Disconnected(readErr)
		if !c.waitRetry(ctx) {
			return
		}
	}
}

// readLoop decodes and dispatches inbound payloads until the
// connection fails or closes. Returns nil for a clean close, the
// transport error otherwise.
func (c *Channel) readLoop(conn Conn) error {
	for {
		payload, err := conn.ReadText()
		if err != nil {
			if isCleanClose(err) {
				return nil
			}
			return err
		}
		c.sink.HandleFrame(DecodeFrame(payload))
	}
}

// waitRetry blocks for the fixed retry delay. Returns false if the
// context was cancelled first.
func (c *Channel) waitRetry(ctx context.Context) bool {
	select {
	case <-c.clock.After(c.retryDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Channel) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Channel) setConn(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}
