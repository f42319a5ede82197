package main

import (
	"encoding/json"
	"strings"
	"testing"

	"reelsmith/internal/api"
	"reelsmith/internal/testsupport"
)

func TestStatusOffline(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewJob(t, env.store, testsupport.TrimDescriptor("clip-a", 0, 1000))

	out, _, err := runCLI(t, []string{"status"}, env.configPath, "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "not running")
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "ffmpeg")
	requireContains(t, out, "== Jobs ==")
	requireContains(t, out, "queued")
	requireNotContains(t, out, ansiReset)
}

func TestStatusFromDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	addr := env.startDaemon(t)

	out, _, err := runCLI(t, []string{"status", "--json"}, env.configPath, addr)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if !status.Running || status.Workflow.Workers != 1 || status.DatabasePath != env.cfg.DatabasePath() {
		t.Fatalf("unexpected status: %+v", status)
	}

	out, _, err = runCLI(t, []string{"status"}, env.configPath, addr)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "running (pid")
	requireContains(t, out, "Workers:")
}

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Daemon", statusWarn, "not running", false)
	if !strings.HasPrefix(line, "  Daemon:") || !strings.HasSuffix(line, "[WARN] not running") {
		t.Fatalf("unexpected line %q", line)
	}
	colored := renderStatusLine("Daemon", statusOK, "", true)
	if !strings.HasPrefix(colored, ansiGreen) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected colored line, got %q", colored)
	}
}

func TestRenderJobCountsIncludesEveryStatus(t *testing.T) {
	table := renderJobCounts(map[string]int{"queued": 2})
	for _, status := range []string{"queued", "downloading", "processing", "uploading", "completed", "failed"} {
		requireContains(t, table, status)
	}
}
