package workflow

import (
	"context"
	"log/slog"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/queue"
)

func (m *Manager) notifyTerminal(ctx context.Context, logger *slog.Logger, final terminal) {
	if m.notifier == nil || final.job == nil {
		return
	}
	payload := notifications.Payload{
		Event:     notifications.EventCompleted,
		JobID:     final.job.ID,
		Operation: string(final.job.Operation),
		Percent:   final.job.Progress.Percent,
		Message:   final.message(),
		UpdatedAt: time.Now().UTC(),
	}
	if final.Status == queue.StatusFailed {
		payload.Event = notifications.EventFailed
		payload.Error = final.Err
		payload.ErrorKind = final.Kind
	} else {
		payload.Percent = 100
		payload.ResultMediaID = final.ResultRef
	}
	if err := m.notifier.Publish(ctx, payload); err != nil {
		logger.Debug("terminal notification failed",
			logging.String("event", string(payload.Event)),
			logging.Error(err),
		)
	}
}
