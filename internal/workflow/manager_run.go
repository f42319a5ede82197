package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
)

// Start launches the workers.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workers)
	m.mu.Unlock()

	for i := range m.workers {
		name := fmt.Sprintf("worker-%d", i+1)
		logger := logging.NewComponentLogger(m.logger, "workflow").With(logging.String("worker", name))
		go m.runWorker(runCtx, name, logger)
	}
	m.logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_start"),
		logging.Int("workers", m.workers),
	)
	return nil
}

// Stop stops claiming new tasks and waits for in-flight jobs to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, name string, logger *slog.Logger) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := m.store.ClaimNext(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if task == nil {
			m.waitForWork(ctx)
			continue
		}
		// The job runs to completion even when shutdown starts mid-way.
		m.processTask(context.WithoutCancel(ctx), name, logger, task)
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logging.ErrorWithContext(logger, "failed to claim next task", "queue_claim_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check job database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.retryInterval):
	}
}

func (m *Manager) waitForWork(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-m.wake:
	case <-time.After(m.pollInterval):
	}
}

func (m *Manager) trackActive(jobID, worker string) {
	m.mu.Lock()
	m.active[jobID] = worker
	m.mu.Unlock()
}

func (m *Manager) untrackActive(jobID string, job *queue.Job) {
	m.mu.Lock()
	delete(m.active, jobID)
	if job != nil {
		snapshot := *job
		m.lastJob = &snapshot
	}
	m.mu.Unlock()
}
