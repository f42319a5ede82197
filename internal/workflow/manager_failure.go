package workflow

import (
	"context"
	"log/slog"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

// terminal is the recorded end state of a job.
type terminal struct {
	job       *queue.Job
	Status    queue.Status
	ResultRef string
	Err       string
	Kind      string
}

func (t terminal) message() string {
	if t.Status == queue.StatusFailed {
		return t.Err
	}
	return "completed"
}

// finish records the terminal state for job. A job whose completion cannot be
// persisted is failed instead.
func (m *Manager) finish(ctx context.Context, logger *slog.Logger, job *queue.Job, result outcome) terminal {
	if result.err == nil {
		if err := m.store.Complete(ctx, job.ID, result.resultRef, "completed"); err != nil {
			result.err = services.Wrap(services.ErrInternal, "uploading", "complete", "persist result", err)
		} else {
			return terminal{job: m.reload(ctx, logger, job), Status: queue.StatusCompleted, ResultRef: result.resultRef}
		}
	}
	return m.failJob(ctx, logger, job, result.err)
}

func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, job *queue.Job, cause error) terminal {
	m.setLastError(cause)
	message := cause.Error()
	kind := services.Kind(cause)
	fault := services.FaultOf(cause)

	attrs := []logging.Attr{
		logging.String("error_kind", kind),
		logging.String("fault", string(fault)),
		logging.Error(cause),
	}
	if fault == services.FaultServer {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "check daemon logs and engine configuration"))
		logging.ErrorWithContext(logger, "job failed", "job_failed", attrs...)
	} else {
		logging.WarnWithContext(logger, "job failed", "job_failed", attrs...)
	}

	if err := m.store.Fail(ctx, job.ID, message, kind); err != nil {
		logging.ErrorWithContext(logger, "failed to persist job failure", "job_fail_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the job database"),
		)
	}
	return terminal{job: m.reload(ctx, logger, job), Status: queue.StatusFailed, Err: message, Kind: kind}
}

func (m *Manager) reload(ctx context.Context, logger *slog.Logger, job *queue.Job) *queue.Job {
	fresh, err := m.store.Get(ctx, job.ID)
	if err != nil || fresh == nil {
		logger.Debug("failed to reload job", logging.Error(err))
		return job
	}
	return fresh
}
