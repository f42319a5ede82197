package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"reelsmith/internal/ops"
)

const jobColumns = "id, operation, params_json, inputs_json, metadata_json, status, progress_percent, progress_step, progress_message, progress_updated_ns, result_ref, error_message, error_kind, request_id, created_at, updated_at, started_at, finished_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		operation       string
		params          string
		inputs          string
		metadata        sql.NullString
		status          string
		progressPercent int
		progressStep    sql.NullString
		progressMessage sql.NullString
		progressNanos   int64
		resultRef       sql.NullString
		errorMessage    sql.NullString
		errorKind       sql.NullString
		requestID       sql.NullString
		createdRaw      string
		updatedRaw      string
		startedRaw      sql.NullString
		finishedRaw     sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&operation,
		&params,
		&inputs,
		&metadata,
		&status,
		&progressPercent,
		&progressStep,
		&progressMessage,
		&progressNanos,
		&resultRef,
		&errorMessage,
		&errorKind,
		&requestID,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:        id,
		Operation: ops.Operation(operation),
		Params:    json.RawMessage(params),
		Status:    Status(status),
		Progress: Progress{
			Percent: progressPercent,
			Step:    progressStep.String,
			Message: progressMessage.String,
		},
		ResultRef:  resultRef.String,
		Error:      errorMessage.String,
		ErrorKind:  errorKind.String,
		RequestID:  requestID.String,
		StartedAt:  parseNullableTime(startedRaw),
		FinishedAt: parseNullableTime(finishedRaw),
	}
	if progressNanos > 0 {
		job.Progress.UpdatedAt = time.Unix(0, progressNanos).UTC()
	}
	if err := json.Unmarshal([]byte(inputs), &job.Inputs); err != nil {
		return nil, fmt.Errorf("decode inputs for job %s: %w", id, err)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &job.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for job %s: %w", id, err)
		}
	}
	var err error
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
		return nil, fmt.Errorf("parse created_at for job %s: %w", id, err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedRaw); err != nil {
		return nil, fmt.Errorf("parse updated_at for job %s: %w", id, err)
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func statusArgs(statuses []Status) (string, []any) {
	placeholders := make([]byte, 0, len(statuses)*2)
	args := make([]any, 0, len(statuses))
	for i, status := range statuses {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, status)
	}
	return string(placeholders), args
}
