package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	taskPending = "pending"
	taskClaimed = "claimed"
	taskDone    = "done"
)

// Enqueue appends a task for jobID. name is the operation's task identifier
// (for example "video.concat") and payload its descriptor.
func (s *Store) Enqueue(ctx context.Context, jobID, name string, payload []byte) (int64, error) {
	res, err := s.exec(
		ctx,
		`INSERT INTO tasks (job_id, name, payload, state, enqueued_at) VALUES (?, ?, ?, ?, ?)`,
		jobID,
		name,
		string(payload),
		taskPending,
		s.timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue task for job %s: %w", jobID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// ClaimNext hands the oldest pending task to worker. The claim is a single
// UPDATE so two workers can never receive the same task. It returns nil, nil
// when the queue is empty.
func (s *Store) ClaimNext(ctx context.Context, worker string) (*Task, error) {
	ts := s.now()
	var (
		task    Task
		payload string
	)
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(
			ctx,
			`UPDATE tasks SET state = ?, worker = ?, claimed_at = ?
             WHERE id = (SELECT id FROM tasks WHERE state = ? ORDER BY id LIMIT 1) AND state = ?
             RETURNING id, job_id, name, payload`,
			taskClaimed,
			worker,
			ts.Format(timeLayout),
			taskPending,
			taskPending,
		).Scan(&task.ID, &task.JobID, &task.Name, &payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	task.Payload = []byte(payload)
	task.Worker = worker
	task.ClaimedAt = ts
	return &task, nil
}

// FinishTask marks a claimed task done.
func (s *Store) FinishTask(ctx context.Context, taskID int64) error {
	if _, err := s.exec(
		ctx,
		`UPDATE tasks SET state = ?, finished_at = ? WHERE id = ?`,
		taskDone,
		s.timestamp(),
		taskID,
	); err != nil {
		return fmt.Errorf("finish task %d: %w", taskID, err)
	}
	return nil
}

// PendingTasks counts tasks not yet claimed.
func (s *Store) PendingTasks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks WHERE state = ?`, taskPending).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending tasks: %w", err)
	}
	return n, nil
}

// SetClock replaces the store clock. Tests use it to produce deterministic
// timestamps.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}
