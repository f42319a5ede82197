package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
)

const userAgent = "reelsmith/0.1.0"

// Event enumerates notification types.
type Event string

const (
	EventProgress  Event = "job.progress"
	EventCompleted Event = "job.completed"
	EventFailed    Event = "job.failed"
	EventTest      Event = "test"
)

// Payload is the JSON body posted for every event.
type Payload struct {
	Event         Event     `json:"event"`
	JobID         string    `json:"jobId,omitempty"`
	Operation     string    `json:"operation,omitempty"`
	Percent       int       `json:"percent"`
	CurrentStep   string    `json:"currentStep,omitempty"`
	Message       string    `json:"message,omitempty"`
	ResultMediaID string    `json:"resultMediaId,omitempty"`
	Error         string    `json:"error,omitempty"`
	ErrorKind     string    `json:"errorKind,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Service publishes job events.
type Service interface {
	Publish(ctx context.Context, payload Payload) error
}

// NewService builds a webhook publisher when a URL is configured and a no-op
// otherwise. Progress events are dropped unless notifications.progress is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	endpoint := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if endpoint == "" {
		return noopService{}
	}
	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &webhookService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		progress: cfg.Notifications.Progress,
	}
}

type webhookService struct {
	endpoint string
	client   *http.Client
	progress bool
}

func (w *webhookService) Publish(ctx context.Context, payload Payload) error {
	if w == nil || w.client == nil {
		return nil
	}
	if payload.Event == EventProgress && !w.progress {
		return nil
	}
	if payload.UpdatedAt.IsZero() {
		payload.UpdatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Reelsmith-Event", string(payload.Event))

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Payload) error { return nil }
