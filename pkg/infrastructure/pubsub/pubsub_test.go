package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

type batchSummary struct {
	SessionID string `json:"session_id"`
	Succeeded int    `json:"succeeded"`
}

func TestNewCloudEvent(t *testing.T) {
	e, err := NewCloudEvent(EventSourceExerciseMedia, EventTypeMediaUpdated, batchSummary{SessionID: "s-1", Succeeded: 2})
	if err != nil {
		t.Fatalf("NewCloudEvent failed: %v", err)
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("event should be valid: %v", err)
	}
	if e.Type() != "com.fitglue.exercise.media.updated" {
		t.Errorf("unexpected type %q", e.Type())
	}
	if e.Source() != "/exercise-media" {
		t.Errorf("unexpected source %q", e.Source())
	}
	if e.ID() == "" {
		t.Error("expected an event ID")
	}

	var got batchSummary
	if err := json.Unmarshal(e.Data(), &got); err != nil {
		t.Fatalf("data should be JSON: %v", err)
	}
	if got.SessionID != "s-1" || got.Succeeded != 2 {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := &LogPublisher{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	e, err := NewCloudEvent(EventSourceExerciseMedia, EventTypeMediaUpdated, map[string]int{"failed": 0})
	if err != nil {
		t.Fatalf("NewCloudEvent failed: %v", err)
	}

	id, err := p.PublishCloudEvent(context.Background(), "topic-exercise-media-updated", e)
	if err != nil {
		t.Fatalf("PublishCloudEvent failed: %v", err)
	}
	if id != "mock-msg-id" {
		t.Errorf("unexpected message id %q", id)
	}
	if !strings.Contains(buf.String(), "topic-exercise-media-updated") {
		t.Errorf("expected topic in log output, got %s", buf.String())
	}
}
