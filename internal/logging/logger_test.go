package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello file")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "reelsmith.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello file") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "workflow").
		WithGroup("step").
		Info("step started", logging.String("name", "normalize 01"), logging.Int("index", 1))
	logger.Debug("hidden")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"INFO workflow: step started", `step.name="normalize 01"`, "step.index=1"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, "hidden") || strings.Contains(line, ".go:") {
		t.Fatalf("unexpected debug output or caller in %q", line)
	}
}

func TestJSONLoggerUsesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "job-9")
	ctx = services.WithStage(ctx, "processing")
	ctx = services.WithRequestID(ctx, "req-1")
	logging.WithContext(ctx, logger).Info("context message")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("decode log line %q: %v", content, err)
	}
	if entry["ts"] == nil || entry["level"] != "info" || entry["msg"] != "context message" {
		t.Fatalf("unexpected envelope: %v", entry)
	}
	if entry[logging.FieldJobID] != "job-9" || entry[logging.FieldStage] != "processing" || entry[logging.FieldRequestID] != "req-1" {
		t.Fatalf("missing context fields: %v", entry)
	}
}

func TestJobLogWritesSingleRecord(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "console"

	jobLog, err := logging.NewJobLogFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewJobLogFromConfig returned error: %v", err)
	}
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	jobLog.Write(logging.JobRecord{
		RequestID:  "req-2",
		JobID:      "job-2",
		Operation:  "concat",
		Inputs:     []string{"a", "b"},
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		ExitCode:   1,
		Status:     "failed",
		Message:    "processing error: concat: exit status 1",
	})

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "reelsmith.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if n := strings.Count(strings.TrimSpace(string(content)), "\n"); n != 0 {
		t.Fatalf("expected one line, got %d extra", n)
	}
	var entry map[string]any
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["level"] != "error" || entry["msg"] != "job finished" {
		t.Fatalf("unexpected envelope: %v", entry)
	}
	if entry["duration_ms"] != float64(1500) || entry["exit_code"] != float64(1) {
		t.Fatalf("unexpected timing fields: %v", entry)
	}
	inputs, ok := entry["inputs"].([]any)
	if !ok || len(inputs) != 2 {
		t.Fatalf("unexpected inputs: %v", entry["inputs"])
	}
}

func TestJobLogBesideContextLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "console"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	jobLog, err := logging.NewJobLogFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewJobLogFromConfig returned error: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "job-3")
	ctx = services.WithOperation(ctx, "trim")
	ctx = services.WithRequestID(ctx, "req-3")
	logging.WithContext(ctx, logger).Info("job claimed")
	jobLog.Write(logging.JobRecord{RequestID: "req-3", JobID: "job-3", Operation: "trim", Status: "completed"})

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "reelsmith.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", content)
	}
	if json.Valid([]byte(lines[0])) {
		t.Fatalf("expected console line first, got %q", lines[0])
	}
	last := lines[1]
	var entry map[string]any
	if err := json.Unmarshal([]byte(last), &entry); err != nil {
		t.Fatalf("job line is not JSON: %q: %v", last, err)
	}
	for _, key := range []string{logging.FieldJobID, logging.FieldOperation, logging.FieldRequestID} {
		if n := strings.Count(last, `"`+key+`":`); n != 1 {
			t.Fatalf("key %q appears %d times in %q", key, n, last)
		}
	}
	if entry[logging.FieldJobID] != "job-3" || entry["status"] != "completed" || entry["level"] != "info" {
		t.Fatalf("unexpected job line: %v", entry)
	}
}
