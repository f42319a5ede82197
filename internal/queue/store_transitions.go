package queue

import (
	"context"
	"fmt"
	"strings"

	"reelsmith/internal/services"
)

// Transition moves a job to a non-terminal status. The update applies only
// when the job's current status is an allowed predecessor of to.
func (s *Store) Transition(ctx context.Context, id string, to Status) error {
	if to.IsTerminal() {
		return fmt.Errorf("%w: use Complete or Fail to reach %s", ErrInvalidTransition, to)
	}
	from := predecessors(to)
	if len(from) == 0 {
		return fmt.Errorf("%w: nothing transitions to %s", ErrInvalidTransition, to)
	}
	placeholders, fromArgs := statusArgs(from)
	ts := s.timestamp()

	query := `UPDATE jobs SET status = ?, updated_at = ?`
	args := []any{to, ts}
	if to == StatusDownloading {
		query += `, started_at = COALESCE(started_at, ?)`
		args = append(args, ts)
	}
	query += ` WHERE id = ? AND status IN (` + placeholders + `)`
	args = append(args, id)
	args = append(args, fromArgs...)

	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition job %s to %s: %w", id, to, err)
	}
	return s.checkApplied(ctx, res, id, to)
}

// Complete records the result reference and marks the job completed. Percent
// is forced to 100 in the same statement.
func (s *Store) Complete(ctx context.Context, id, resultRef, message string) error {
	if strings.TrimSpace(resultRef) == "" {
		return fmt.Errorf("complete job %s: result reference is required", id)
	}
	now := s.now()
	ts := now.Format(timeLayout)
	res, err := s.exec(
		ctx,
		`UPDATE jobs
         SET status = ?, result_ref = ?, progress_percent = 100, progress_step = ?,
             progress_message = ?, progress_updated_ns = MAX(progress_updated_ns, ?),
             finished_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted,
		resultRef,
		string(StatusCompleted),
		nullableString(message),
		now.UnixNano(),
		ts,
		ts,
		id,
		StatusUploading,
	)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	return s.checkApplied(ctx, res, id, StatusCompleted)
}

// Fail marks a non-terminal job failed with a message and error kind.
// Progress percent is left where it was.
func (s *Store) Fail(ctx context.Context, id, message, kind string) error {
	if strings.TrimSpace(message) == "" {
		message = "job failed"
	}
	placeholders, fromArgs := statusArgs(predecessors(StatusFailed))
	ts := s.timestamp()
	args := []any{StatusFailed, message, nullableString(kind), ts, ts, id}
	args = append(args, fromArgs...)
	res, err := s.exec(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, error_kind = ?, finished_at = ?, updated_at = ?
         WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	return s.checkApplied(ctx, res, id, StatusFailed)
}

// UpdateProgress persists a progress update unless it would move percent or
// the update timestamp backwards, or the job is already terminal. It reports
// whether the update was applied.
func (s *Store) UpdateProgress(ctx context.Context, id string, p Progress) (bool, error) {
	percent := min(max(p.Percent, 0), 100)
	updatedNs := p.UpdatedAt.UnixNano()
	if p.UpdatedAt.IsZero() {
		updatedNs = s.now().UnixNano()
	}
	res, err := s.exec(
		ctx,
		`UPDATE jobs
         SET progress_percent = ?, progress_step = ?, progress_message = ?,
             progress_updated_ns = ?, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?)
           AND progress_percent <= ? AND progress_updated_ns <= ?`,
		percent,
		nullableString(p.Step),
		nullableString(p.Message),
		updatedNs,
		s.timestamp(),
		id,
		StatusCompleted,
		StatusFailed,
		percent,
		updatedNs,
	)
	if err != nil {
		return false, fmt.Errorf("update progress for job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update progress for job %s: %w", id, err)
	}
	return n > 0, nil
}

// FailOrphaned fails jobs a previous process left in flight, including queued
// jobs whose task had already been claimed, and closes their tasks. Nothing is
// requeued.
func (s *Store) FailOrphaned(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin orphan tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := s.timestamp()
	res, err := tx.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, error_kind = ?, finished_at = ?, updated_at = ?
         WHERE status IN (?, ?, ?)
            OR (status = ? AND id IN (SELECT job_id FROM tasks WHERE state = ?))`,
		StatusFailed,
		OrphanedReason,
		services.KindInternal,
		ts,
		ts,
		StatusDownloading,
		StatusProcessing,
		StatusUploading,
		StatusQueued,
		taskClaimed,
	)
	if err != nil {
		return 0, fmt.Errorf("fail orphaned jobs: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE tasks SET state = ?, finished_at = ? WHERE state = ?`,
		taskDone,
		ts,
		taskClaimed,
	); err != nil {
		return 0, fmt.Errorf("close orphaned tasks: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit orphan tx: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) checkApplied(ctx context.Context, res interface{ RowsAffected() (int64, error) }, id string, to Status) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return fmt.Errorf("%w: job %s is %s, cannot move to %s", ErrInvalidTransition, id, job.Status, to)
}
