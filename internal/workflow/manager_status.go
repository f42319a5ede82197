package workflow

import (
	"context"
	"maps"

	"reelsmith/internal/queue"
)

// StatusSummary exposes the manager's runtime state.
type StatusSummary struct {
	Running   bool
	Workers   int
	Active    map[string]string
	LastError string
	LastJob   *queue.Job
	Counts    map[queue.Status]int
}

// Status returns a snapshot of the manager and the job table counts.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running: m.running,
		Workers: m.workers,
		Active:  maps.Clone(m.active),
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastJob != nil {
		snapshot := *m.lastJob
		summary.LastJob = &snapshot
	}
	m.mu.RUnlock()

	if counts, err := m.store.Stats(ctx); err == nil {
		summary.Counts = counts
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
