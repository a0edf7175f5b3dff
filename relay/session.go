// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coddy-project/coddy/lib/clock"
)

// Checkpoint is one stored session checkpoint, as seen in the
// dashboard's cached view of the memory service.
type Checkpoint struct {
	Name    string
	Message string
	SavedAt time.Time
}

// CheckpointStore persists checkpoints independently of the live
// channel. The memory service client implements it; tests use fakes.
// Persistence through this interface is the durable path — the relay
// echo of a checkpoint command is display only.
type CheckpointStore interface {
	// StoreCheckpoint persists one checkpoint and returns the
	// service's acknowledgment message.
	StoreCheckpoint(ctx context.Context, name, message string) (string, error)

	// LoadCheckpoints returns the stored checkpoints, newest first.
	LoadCheckpoints(ctx context.Context) ([]Checkpoint, error)
}

// SessionConfig configures a dashboard session.
type SessionConfig struct {
	// ChannelURL is the live channel endpoint. Required.
	ChannelURL string

	// Dialer establishes channel connections. Defaults to the
	// production websocket dialer.
	Dialer Dialer

	// Checkpoints is the direct persistence path for the checkpoint
	// carve-out. Optional: when nil, checkpoint saves report that no
	// store is configured.
	Checkpoints CheckpointStore

	// RetryDelay overrides the channel's fixed reconnect delay.
	RetryDelay time.Duration

	// Clock is the time source for the reconnect delay. Defaults to
	// the real clock.
	Clock clock.Clock

	// Logger receives structured logs. Defaults to slog.Default().
	Logger *slog.Logger

	// OnUpdate is invoked after every observable state change
	// (transcript append, status change, connectivity change) so the
	// presentation layer can re-render. Runs on whichever goroutine
	// made the change; must not block. Optional.
	OnUpdate func()
}

// Session is the dashboard session: it composes the transcript, the
// status indicator, the live channel, and the command router, and
// exposes the read surface the presentation layer renders from. The
// only mutation entry point offered to the presentation layer is
// Handle.
type Session struct {
	transcript  *Transcript
	channel     *Channel
	checkpoints CheckpointStore
	logger      *slog.Logger
	onUpdate    func()

	// ctx covers the session's background work (channel loop,
	// checkpoint calls). Cancelled by Close.
	ctx     context.Context
	cancel  context.CancelFunc
	runDone chan struct{}

	mu     sync.Mutex
	status string
	saved  []Checkpoint
	closed bool
}

// NewSession builds the session and starts the channel's connect loop.
// The caller must Close the session when done; nothing else terminates
// the reconnect loop.
func NewSession(config SessionConfig) (*Session, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialer := config.Dialer
	if dialer == nil {
		dialer = NewWebSocketDialer()
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := &Session{
		transcript:  NewTranscript(),
		checkpoints: config.Checkpoints,
		logger:      logger,
		onUpdate:    config.OnUpdate,
		ctx:         ctx,
		cancel:      cancel,
		runDone:     make(chan struct{}),
	}
	session.transcript.SetNotify(session.notifyUpdate)

	channel, err := NewChannel(ChannelConfig{
		URL:        config.ChannelURL,
		Dialer:     dialer,
		Sink:       session,
		RetryDelay: config.RetryDelay,
		Clock:      config.Clock,
		Logger:     logger,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	session.channel = channel

	go func() {
		defer close(session.runDone)
		channel.Run(ctx)
	}()

	return session, nil
}

// Lines returns the transcript snapshot in display order.
func (s *Session) Lines() []Line {
	return s.transcript.Lines()
}

// Status returns the current status indicator text. Empty means idle.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ConnectionState returns the live channel's state.
func (s *Session) ConnectionState() State {
	return s.channel.State()
}

// Checkpoints returns the cached view of stored checkpoints, refreshed
// after each successful checkpoint save.
func (s *Session) Checkpoints() []Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]Checkpoint, len(s.saved))
	copy(snapshot, s.saved)
	return snapshot
}

// Close tears the session down: the channel's reconnect loop stops and
// in-flight checkpoint calls are discarded when they complete. Safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.runDone
}

// Connected implements Sink. A status-category line marks the
// connection in the transcript; the status indicator returns to idle.
func (s *Session) Connected() {
	s.transcript.Append(Line{Category: CategoryStatus, Text: "Live channel connected."})
	s.setStatus("")
}

// HandleFrame implements Sink. Status frames update only the status
// indicator; every other kind becomes a transcript line with the
// matching category (unknown kinds collapse to log).
func (s *Session) HandleFrame(frame Frame) {
	if frame.Kind == KindStatus {
		s.setStatus(frame.Text)
		return
	}
	s.transcript.Append(Line{Category: CategoryForKind(frame.Kind), Text: frame.Text})
}

// Disconnected implements Sink. A transport failure surfaces as an
// error line; either way the disconnect is noted and the status
// indicator announces the retry. The channel handles the reconnect
// itself — this is display only.
func (s *Session) Disconnected(err error) {
	if err != nil {
		s.transcript.Append(Line{Category: CategoryError, Text: fmt.Sprintf("Live channel error: %v", err)})
	}
	s.transcript.Append(Line{Category: CategoryInfo, Text: "Live channel disconnected. Retrying..."})
	s.setStatus("Live channel disconnected. Retrying...")
}

// setStatus overwrites the status slot. Last write wins; nothing is
// queued.
func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.notifyUpdate()
}

// disposed reports whether Close has been called. Background work that
// completes after disposal must discard its result instead of touching
// the transcript.
func (s *Session) disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) notifyUpdate() {
	if s.onUpdate != nil {
		s.onUpdate()
	}
}
