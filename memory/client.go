// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the base URL of the memory service
	// (e.g. "http://localhost:8000").
	BaseURL string

	// SessionID identifies the dashboard session; stamped onto every
	// stored entry.
	SessionID string

	// UserID identifies the user; stamped onto stored entries and
	// used to scope queries.
	UserID string

	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client talks to the memory service — the document store behind the
// dashboard's checkpoint persistence. It is the "direct call" side of
// the session relay: requests here never pass through the live
// channel.
type Client struct {
	baseURL    string
	sessionID  string
	userID     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a memory service client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("memory: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("memory: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if config.UserID == "" {
		return nil, fmt.Errorf("memory: UserID is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		sessionID:  config.SessionID,
		userID:     config.UserID,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Entry is the request body for storing a memory record.
type Entry struct {
	Content   map[string]any `json:"content"`
	Tags      []string       `json:"tags,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// StoredEntry is one record returned by a load query.
type StoredEntry struct {
	Content   map[string]any `json:"content"`
	Tags      []string       `json:"tags"`
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Timestamp string         `json:"timestamp"`
}

// ServiceError is a non-2xx response from the memory service, carrying
// the service's human-readable message.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("memory service returned %d: %s", e.StatusCode, e.Message)
}

// StoreCheckpoint persists one named checkpoint and returns the
// service's acknowledgment message. The entry shape matches what the
// engine's own "checkpoint save" path writes, so records stored from
// either side are interchangeable:
//
//	{content: {type: "checkpoint", name, message}, tags: ["checkpoint", name]}
func (c *Client) StoreCheckpoint(ctx context.Context, name, message string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("memory: checkpoint name is required")
	}

	entry := Entry{
		Content: map[string]any{
			"type":    "checkpoint",
			"name":    name,
			"message": message,
		},
		Tags:      []string{"checkpoint", name},
		SessionID: c.sessionID,
		UserID:    c.userID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	body, err := c.doRequest(ctx, "/api/memory/store", entry)
	if err != nil {
		return "", err
	}

	var response struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("memory: parse store response: %w", err)
	}

	c.logger.Info("checkpoint stored", "name", name, "session_id", c.sessionID)
	return response.Message, nil
}

// LoadCheckpoints returns the caller's stored checkpoints, newest
// first. Entries whose content is not a checkpoint record (the tag
// query can match unrelated records) are skipped.
func (c *Client) LoadCheckpoints(ctx context.Context) ([]CheckpointRecord, error) {
	request := map[string]any{
		"query": map[string]any{
			"tags":    []string{"checkpoint"},
			"user_id": c.userID,
		},
	}

	body, err := c.doRequest(ctx, "/api/memory/load", request)
	if err != nil {
		return nil, err
	}

	var entries []StoredEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("memory: parse load response: %w", err)
	}

	var records []CheckpointRecord
	for _, entry := range entries {
		record, ok := checkpointFromEntry(entry)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].SavedAt.After(records[j].SavedAt)
	})
	return records, nil
}

// CheckpointRecord is a checkpoint as reconstructed from a stored
// memory entry.
type CheckpointRecord struct {
	Name    string
	Message string
	SavedAt time.Time
}

// checkpointFromEntry extracts a checkpoint from a stored entry.
// Returns false when the entry's content is not a checkpoint record.
func checkpointFromEntry(entry StoredEntry) (CheckpointRecord, bool) {
	if entry.Content == nil {
		return CheckpointRecord{}, false
	}
	if kind, _ := entry.Content["type"].(string); kind != "checkpoint" {
		return CheckpointRecord{}, false
	}
	name, _ := entry.Content["name"].(string)
	if name == "" {
		return CheckpointRecord{}, false
	}
	message, _ := entry.Content["message"].(string)

	savedAt, err := time.Parse(time.RFC3339, entry.Timestamp)
	if err != nil {
		// Stored by an older writer with a nonstandard timestamp;
		// keep the record, just without an ordering key.
		savedAt = time.Time{}
	}

	return CheckpointRecord{Name: name, Message: message, SavedAt: savedAt}, true
}

// doRequest POSTs a JSON body to the memory service and returns the
// response body. On 2xx, returns the body. On any other status,
// returns a *ServiceError with the service's message.
func (c *Client) doRequest(ctx context.Context, path string, requestBody any) ([]byte, error) {
	encoded, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("memory: encode request body: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("memory: create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("memory: request to %s failed: %w", path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("memory: read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	return nil, &ServiceError{
		StatusCode: response.StatusCode,
		Message:    serviceMessage(responseBody),
	}
}

// serviceMessage extracts the human-readable message from an error
// response. The service reports errors as {"detail": "..."} (or
// {"message": "..."} from older deployments); anything else falls back
// to the raw body.
func serviceMessage(body []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}
