package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/queue"
)

// Store persists progress. The store applies its own monotonic guard.
type Store interface {
	UpdateProgress(ctx context.Context, id string, p queue.Progress) (bool, error)
}

type accepted struct {
	percent int
	at      time.Time
}

// Reporter validates, persists and forwards progress events.
type Reporter struct {
	store    Store
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	last    map[string]accepted
	sampler map[string]*logging.ProgressSampler
}

// NewReporter builds a reporter. A nil notifier disables forwarding.
func NewReporter(store Store, notifier notifications.Service, logger *slog.Logger) *Reporter {
	return &Reporter{
		store:    store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "progress"),
		now:      time.Now,
		last:     make(map[string]accepted),
		sampler:  make(map[string]*logging.ProgressSampler),
	}
}

// Consume reports every event from the channel until it is closed.
func (r *Reporter) Consume(ctx context.Context, events <-chan Event) {
	for ev := range events {
		r.Report(ctx, ev)
	}
}

// Report applies one event and reports whether it was accepted. Events older
// than, or with a lower percent than, the last accepted event for the job are
// dropped.
func (r *Reporter) Report(ctx context.Context, ev Event) bool {
	if r == nil || ev.JobID == "" {
		return false
	}
	if ev.UpdatedAt.IsZero() {
		ev.UpdatedAt = r.now().UTC()
	}
	ev.Percent = min(max(ev.Percent, 0), Done)

	r.mu.Lock()
	prev, seen := r.last[ev.JobID]
	if seen && (ev.Percent < prev.percent || ev.UpdatedAt.Before(prev.at)) {
		r.mu.Unlock()
		r.logger.Debug("stale progress dropped",
			logging.String(logging.FieldJobID, ev.JobID),
			logging.Int("percent", ev.Percent),
			logging.Int("last_percent", prev.percent),
		)
		return false
	}
	r.last[ev.JobID] = accepted{percent: ev.Percent, at: ev.UpdatedAt}
	sampler := r.sampler[ev.JobID]
	if sampler == nil {
		sampler = logging.NewProgressSampler(10)
		r.sampler[ev.JobID] = sampler
	}
	r.mu.Unlock()

	applied, err := r.store.UpdateProgress(ctx, ev.JobID, queue.Progress{
		Percent:   ev.Percent,
		Step:      ev.CurrentStep,
		Message:   ev.Message,
		UpdatedAt: ev.UpdatedAt,
	})
	if err != nil {
		logging.WarnWithContext(r.logger, "progress update failed", "progress_persist_failed",
			logging.String(logging.FieldJobID, ev.JobID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "job store may be locked or unavailable"),
			logging.String(logging.FieldImpact, "job status shows stale progress"),
		)
		return false
	}
	if !applied {
		return false
	}

	if sampler.ShouldLog(ev.Percent, ev.CurrentStep) {
		r.logger.Info("job progress",
			logging.String(logging.FieldJobID, ev.JobID),
			logging.Int("percent", ev.Percent),
			logging.String("step", ev.CurrentStep),
			logging.String("message", ev.Message),
		)
	}

	if r.notifier != nil {
		err := r.notifier.Publish(ctx, notifications.Payload{
			Event:       notifications.EventProgress,
			JobID:       ev.JobID,
			Percent:     ev.Percent,
			CurrentStep: ev.CurrentStep,
			Message:     ev.Message,
			UpdatedAt:   ev.UpdatedAt,
		})
		if err != nil {
			r.logger.Debug("progress notification failed",
				logging.String(logging.FieldJobID, ev.JobID),
				logging.Error(err),
			)
		}
	}
	return true
}

// Forget drops the state kept for a finished job.
func (r *Reporter) Forget(jobID string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.last, jobID)
	delete(r.sampler, jobID)
	r.mu.Unlock()
}
