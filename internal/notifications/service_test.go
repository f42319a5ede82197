package notifications_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/notifications"
)

type capture struct {
	mu       sync.Mutex
	payloads []notifications.Payload
	headers  []http.Header
}

func (c *capture) handler(t *testing.T, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p notifications.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		c.mu.Lock()
		c.payloads = append(c.payloads, p)
		c.headers = append(c.headers, r.Header.Clone())
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func TestNewServiceReturnsNoopWhenWebhookMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.WebhookURL = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.Payload{Event: notifications.EventCompleted}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).Publish(context.Background(), notifications.Payload{}); err != nil {
		t.Fatalf("expected nil config to produce noop, got %v", err)
	}
}

func TestWebhookPostsJSON(t *testing.T) {
	var c capture
	srv := httptest.NewServer(c.handler(t, http.StatusNoContent))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.WebhookURL = srv.URL
	cfg.Notifications.Progress = true
	svc := notifications.NewService(&cfg)

	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	err := svc.Publish(context.Background(), notifications.Payload{
		Event:       notifications.EventProgress,
		JobID:       "job-1",
		Percent:     42,
		CurrentStep: "normalize_01",
		Message:     "Normalize 01",
		UpdatedAt:   at,
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(c.payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(c.payloads))
	}
	got := c.payloads[0]
	if got.JobID != "job-1" || got.Percent != 42 || got.CurrentStep != "normalize_01" || !got.UpdatedAt.Equal(at) {
		t.Fatalf("unexpected payload %+v", got)
	}
	h := c.headers[0]
	if h.Get("Content-Type") != "application/json" || h.Get("X-Reelsmith-Event") != "job.progress" {
		t.Fatalf("unexpected headers %v", h)
	}
}

func TestWebhookSkipsProgressUnlessEnabled(t *testing.T) {
	var c capture
	srv := httptest.NewServer(c.handler(t, http.StatusOK))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.WebhookURL = srv.URL
	cfg.Notifications.Progress = false
	svc := notifications.NewService(&cfg)

	if err := svc.Publish(context.Background(), notifications.Payload{Event: notifications.EventProgress, JobID: "j"}); err != nil {
		t.Fatalf("Publish progress: %v", err)
	}
	if err := svc.Publish(context.Background(), notifications.Payload{Event: notifications.EventFailed, JobID: "j", Error: "boom", ErrorKind: "processing"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(c.payloads) != 1 || c.payloads[0].Event != notifications.EventFailed {
		t.Fatalf("expected only the terminal event, got %+v", c.payloads)
	}
	if c.payloads[0].UpdatedAt.IsZero() {
		t.Fatal("expected UpdatedAt to be stamped")
	}
}

func TestWebhookReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.WebhookURL = srv.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.Payload{Event: notifications.EventCompleted}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
