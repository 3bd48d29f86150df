package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	return entry
}

func TestContextLogger_WithContext_Keys(t *testing.T) {
	var buf bytes.Buffer
	cl := NewContextLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := context.Background()
	ctx = WithPlaceID(ctx, "place-123")
	ctx = WithSyncRun(ctx, "run-1", "full")
	ctx = WithEventID(ctx, "1700000000000-0")
	ctx = WithQueryRoute(ctx, "index")

	cl.WithContext(ctx).Info("test message")
	entry := decodeEntry(t, &buf)

	tests := []struct {
		key      string
		expected string
	}{
		{"place.id", "place-123"},
		{"sync.run_id", "run-1"},
		{"sync.mode", "full"},
		{"change.event_id", "1700000000000-0"},
		{"query.route", "index"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := entry[tt.key]; got != tt.expected {
				t.Errorf("%s = %v, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestContextLogger_WithContext_Empty(t *testing.T) {
	var buf bytes.Buffer
	cl := NewContextLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	cl.WithContext(context.Background()).Info("bare")
	entry := decodeEntry(t, &buf)

	if _, ok := entry["place.id"]; ok {
		t.Error("place.id should not be present")
	}
}

func TestContextLogger_LogHelpers(t *testing.T) {
	var buf bytes.Buffer
	cl := NewContextLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx := WithPlaceID(context.Background(), "p1")

	cl.LogDuration(ctx, "sync_place", 1500*time.Millisecond)
	entry := decodeEntry(t, &buf)
	if entry["duration_ms"] != float64(1500) {
		t.Errorf("duration_ms = %v", entry["duration_ms"])
	}

	buf.Reset()
	cl.LogError(ctx, "sync_place", errors.New("boom"))
	entry = decodeEntry(t, &buf)
	if entry["level"] != "ERROR" || entry["error"] != "boom" || entry["place.id"] != "p1" {
		t.Errorf("unexpected entry %v", entry)
	}
}
