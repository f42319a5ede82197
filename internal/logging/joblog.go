package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"reelsmith/internal/config"
)

// JobRecord is the one-line summary written when a job reaches a terminal state.
type JobRecord struct {
	RequestID  string
	JobID      string
	Operation  string
	Inputs     []string
	StartedAt  time.Time
	FinishedAt time.Time
	ExitCode   int
	Status     string
	Message    string
}

// Attrs renders the record as structured attributes.
func (r JobRecord) Attrs() []Attr {
	inputs := r.Inputs
	if inputs == nil {
		inputs = []string{}
	}
	var duration int64
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		duration = r.FinishedAt.Sub(r.StartedAt).Milliseconds()
	}
	return []Attr{
		String(FieldEventType, "job_finished"),
		String(FieldRequestID, r.RequestID),
		String(FieldJobID, r.JobID),
		String(FieldOperation, r.Operation),
		Strings("inputs", inputs),
		String("started_at", formatTime(r.StartedAt)),
		String("finished_at", formatTime(r.FinishedAt)),
		Int64("duration_ms", duration),
		Int("exit_code", r.ExitCode),
		String("status", r.Status),
		String("message", r.Message),
	}
}

// JobLog writes job summary lines as JSON whatever logging.format says. It
// carries no context fields, so each record key appears once per line.
type JobLog struct {
	logger *slog.Logger
}

// NewJobLog writes job lines to w.
func NewJobLog(w io.Writer) *JobLog {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	return &JobLog{logger: slog.New(newJSONHandler(w, level, false))}
}

// NewJobLogFromConfig appends job lines to log_dir/reelsmith.log, or to
// stdout when no log directory is configured.
func NewJobLogFromConfig(cfg *config.Config) (*JobLog, error) {
	if cfg == nil || cfg.Paths.LogDir == "" {
		return NewJobLog(os.Stdout), nil
	}
	w, err := openWriters([]string{filepath.Join(cfg.Paths.LogDir, "reelsmith.log")})
	if err != nil {
		return nil, fmt.Errorf("open job log: %w", err)
	}
	return NewJobLog(w), nil
}

// Write emits the record at info level, or error level for failures. A nil
// JobLog discards the record.
func (j *JobLog) Write(record JobRecord) {
	if j == nil {
		return
	}
	level := slog.LevelInfo
	if record.Status == "failed" {
		level = slog.LevelError
	}
	j.logger.LogAttrs(context.Background(), level, "job finished", record.Attrs()...)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
