package chatlog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestWrite_PostsEntry(t *testing.T) {
	var received Entry
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ai/chat-logs" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Service-Token") != "svc-secret" {
			t.Errorf("missing service token header")
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode entry: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	wr := New(&Config{BaseURL: server.URL, ServiceToken: "svc-secret", Logger: zap.NewNop()})

	wr.Write(context.Background(), Entry{
		UserID:         "user-1",
		Query:          "I have a headache",
		Answer:         "Rest and hydrate.",
		Intent:         "health_inquiry",
		CrisisDetected: false,
	})

	if received.UserID != "user-1" {
		t.Errorf("unexpected user id %q", received.UserID)
	}
	if received.ID == "" {
		t.Error("expected generated entry id")
	}
	if received.Timestamp == "" {
		t.Error("expected generated timestamp")
	}
}

func TestWrite_SwallowsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	server.Close() // connection refused

	wr := New(&Config{BaseURL: server.URL, ServiceToken: "svc-secret", Logger: zap.NewNop()})

	// Must not panic or propagate anything.
	wr.Write(context.Background(), Entry{UserID: "user-1", Query: "hi", Answer: "hello"})
}

func TestWrite_DisabledWithoutBaseURL(t *testing.T) {
	wr := New(&Config{Logger: zap.NewNop()})
	wr.Write(context.Background(), Entry{UserID: "user-1"})
}
