package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tokengate "github.com/chimerakang/tokengate-go"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func alice() *tokengate.Identity {
	return &tokengate.Identity{ID: 42, ExternalID: "ext-42", Username: "alice", Active: true}
}

func TestEventEmission(t *testing.T) {
	rec := &recorder{}
	logger := New(10, WithHandler(rec.handle))

	logger.Log(Event{EventName: "Api.TokenRequest", CustomerID: 42})

	// Close drains the queue
	logger.Close()

	events := rec.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].CustomerID != 42 {
		t.Errorf("expected customer 42, got %d", events[0].CustomerID)
	}
	if events[0].Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestMultipleHandlers(t *testing.T) {
	rec1, rec2 := &recorder{}, &recorder{}

	logger := New(10, WithHandler(rec1.handle), WithHandler(rec2.handle))
	logger.Log(Event{EventName: "test"})
	logger.Close()

	if n := len(rec1.snapshot()); n != 1 {
		t.Fatalf("handler1: expected 1 event, got %d", n)
	}
	if n := len(rec2.snapshot()); n != 1 {
		t.Fatalf("handler2: expected 1 event, got %d", n)
	}
}

func TestAppend(t *testing.T) {
	rec := &recorder{}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logger := New(10, WithHandler(rec.handle), WithClock(func() time.Time { return fixed }))

	ctx := tokengate.WithRequestID(context.Background(), "req-12345")
	if err := logger.Append(ctx, alice(), "Api.TokenRequest", "API token request"); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	logger.Close()

	events := rec.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.CustomerID != 42 || e.ExternalID != "ext-42" || e.EventName != "Api.TokenRequest" ||
		e.Description != "API token request" || e.RequestID != "req-12345" {
		t.Errorf("event fields not correctly set: %+v", e)
	}
	if !e.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, fixed)
	}
}

func TestAppend_CancelledContextDropsEvent(t *testing.T) {
	rec := &recorder{}
	logger := New(10, WithHandler(rec.handle))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := logger.Append(ctx, alice(), "Api.TokenRequest", ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Append() error = %v, want context.Canceled", err)
	}
	logger.Close()

	if n := len(rec.snapshot()); n != 0 {
		t.Errorf("cancelled append was recorded: %d events", n)
	}
}

func TestAppend_Errors(t *testing.T) {
	logger := New(10)
	if err := logger.Append(context.Background(), nil, "x", ""); err == nil {
		t.Error("Append(nil identity) should fail")
	}

	logger.Close()
	if err := logger.Append(context.Background(), alice(), "x", ""); !errors.Is(err, ErrClosed) {
		t.Errorf("Append() after Close error = %v, want ErrClosed", err)
	}
	// second Close must not panic
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestQueueBuffer(t *testing.T) {
	var mu sync.Mutex
	var count int

	logger := New(5, WithHandler(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		count++
		time.Sleep(10 * time.Millisecond) // Simulate slow handler
	}))

	// Emit 5 events (fill buffer)
	for i := 0; i < 5; i++ {
		logger.Log(Event{EventName: "test"})
	}
	logger.Close()

	mu.Lock()
	defer mu.Unlock()
	if count != 5 {
		t.Errorf("expected 5 events processed, got %d", count)
	}
}

func TestWriterHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(10, WithWriterHandler(&buf))
	logger.Log(Event{EventName: "Api.TokenRequest", CustomerID: 7})
	logger.Close()

	var e Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &e); err != nil {
		t.Fatalf("handler output is not one JSON object: %v (%q)", err, buf.String())
	}
	if e.EventName != "Api.TokenRequest" || e.CustomerID != 7 {
		t.Errorf("decoded event = %+v", e)
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(10, WithSlogHandler(slog.New(slog.NewJSONHandler(&buf, nil))))
	if err := logger.Append(context.Background(), alice(), "Api.TokenRequest", "API token request"); err != nil {
		t.Fatal(err)
	}
	logger.Close()

	out := buf.String()
	for _, want := range []string{`"msg":"activity"`, `"event":"Api.TokenRequest"`, `"customer_id":42`} {
		if !strings.Contains(out, want) {
			t.Errorf("slog output missing %s: %s", want, out)
		}
	}
}
