// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL:   server.URL,
		SessionID: "session-1",
		UserID:    "alice",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientConfig{UserID: "alice"}); err == nil {
		t.Error("expected error for missing BaseURL")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "http://localhost:8000"}); err == nil {
		t.Error("expected error for missing UserID")
	}
}

func TestStoreCheckpoint(t *testing.T) {
	t.Parallel()

	var captured Entry
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/memory/store" {
			t.Errorf("path = %q, want /api/memory/store", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"message":"Memory stored successfully"}`)
	})

	message, err := client.StoreCheckpoint(context.Background(), "v1", "initial snapshot")
	if err != nil {
		t.Fatalf("StoreCheckpoint: %v", err)
	}
	if message != "Memory stored successfully" {
		t.Errorf("message = %q", message)
	}

	if got, _ := captured.Content["type"].(string); got != "checkpoint" {
		t.Errorf("content.type = %q, want checkpoint", got)
	}
	if got, _ := captured.Content["name"].(string); got != "v1" {
		t.Errorf("content.name = %q, want v1", got)
	}
	if got, _ := captured.Content["message"].(string); got != "initial snapshot" {
		t.Errorf("content.message = %q", got)
	}
	if len(captured.Tags) != 2 || captured.Tags[0] != "checkpoint" || captured.Tags[1] != "v1" {
		t.Errorf("tags = %v, want [checkpoint v1]", captured.Tags)
	}
	if captured.SessionID != "session-1" || captured.UserID != "alice" {
		t.Errorf("identity = %q/%q", captured.SessionID, captured.UserID)
	}
	if _, err := time.Parse(time.RFC3339, captured.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", captured.Timestamp, err)
	}
}

func TestStoreCheckpointRequiresName(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := client.StoreCheckpoint(context.Background(), "", "msg"); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestStoreCheckpointServiceError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"detail":"storage backend unavailable"}`)
	})

	_, err := client.StoreCheckpoint(context.Background(), "v1", "snap")
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("error = %v, want *ServiceError", err)
	}
	if serviceErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", serviceErr.StatusCode)
	}
	if serviceErr.Message != "storage backend unavailable" {
		t.Errorf("message = %q", serviceErr.Message)
	}
	if !strings.Contains(err.Error(), "storage backend unavailable") {
		t.Errorf("error text %q lacks service message", err)
	}
}

func TestServiceErrorFallbackBody(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream timeout\n")
	})

	_, err := client.StoreCheckpoint(context.Background(), "v1", "snap")
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("error = %v, want *ServiceError", err)
	}
	if serviceErr.Message != "upstream timeout" {
		t.Errorf("message = %q, want raw body", serviceErr.Message)
	}
}

func TestLoadCheckpoints(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/memory/load" {
			t.Errorf("path = %q, want /api/memory/load", r.URL.Path)
		}
		var request struct {
			Query struct {
				Tags   []string `json:"tags"`
				UserID string   `json:"user_id"`
			} `json:"query"`
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &request); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(request.Query.Tags) != 1 || request.Query.Tags[0] != "checkpoint" {
			t.Errorf("query tags = %v", request.Query.Tags)
		}
		if request.Query.UserID != "alice" {
			t.Errorf("query user = %q", request.Query.UserID)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"content":{"type":"checkpoint","name":"old","message":"first"},"timestamp":"2026-08-01T10:00:00Z"},
			{"content":{"type":"note","text":"not a checkpoint"},"timestamp":"2026-08-02T10:00:00Z"},
			{"content":{"type":"checkpoint","name":"new","message":"second"},"timestamp":"2026-08-03T10:00:00Z"},
			{"content":{"type":"checkpoint","message":"nameless"},"timestamp":"2026-08-04T10:00:00Z"}
		]`)
	})

	records, err := client.LoadCheckpoints(context.Background())
	if err != nil {
		t.Fatalf("LoadCheckpoints: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(records), records)
	}
	if records[0].Name != "new" || records[1].Name != "old" {
		t.Errorf("records not newest first: %+v", records)
	}
	if records[0].Message != "second" {
		t.Errorf("message = %q", records[0].Message)
	}
}

func TestLoadCheckpointsEmpty(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})

	records, err := client.LoadCheckpoints(context.Background())
	if err != nil {
		t.Fatalf("LoadCheckpoints: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-block
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.StoreCheckpoint(ctx, "v1", "snap"); err == nil {
		t.Error("expected error from cancelled context")
	}
}
