package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Create inserts a new job in the queued state.
func (s *Store) Create(ctx context.Context, req NewJob) (*Job, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, errors.New("job id is required")
	}
	if !req.Descriptor.Operation.Valid() {
		return nil, fmt.Errorf("unknown operation %q", req.Descriptor.Operation)
	}
	params, err := req.Descriptor.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	inputs, err := json.Marshal(nonNil(req.Descriptor.MediaIDs()))
	if err != nil {
		return nil, fmt.Errorf("encode inputs: %w", err)
	}
	var metadata any
	if len(req.Descriptor.Metadata) > 0 {
		raw, err := json.Marshal(req.Descriptor.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(raw)
	}

	ts := s.timestamp()
	if _, err := s.exec(
		ctx,
		`INSERT INTO jobs (
            id, operation, params_json, inputs_json, metadata_json, status,
            progress_percent, progress_step, progress_message, request_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		req.ID,
		req.Descriptor.Operation,
		string(params),
		string(inputs),
		metadata,
		StatusQueued,
		string(StatusQueued),
		"waiting for a worker",
		nullableString(req.RequestID),
		ts,
		ts,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, req.ID)
}

// Get fetches a job by identifier. It returns nil, nil when no job exists.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns the newest jobs first, optionally filtered by status.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if len(statuses) > 0 {
		placeholders, statusValues := statusArgs(statuses)
		query += ` WHERE status IN (` + placeholders + `)`
		args = append(args, statusValues...)
	}
	query += ` ORDER BY created_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats counts jobs per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
