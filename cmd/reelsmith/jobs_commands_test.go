package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/api"
	"reelsmith/internal/services"
	"reelsmith/internal/testsupport"
)

func TestJobsListFallsBackToStore(t *testing.T) {
	env := setupCLITestEnv(t)
	queued := testsupport.NewJob(t, env.store, testsupport.TrimDescriptor("clip-a", 0, 1000))
	failed := testsupport.NewJob(t, env.store, testsupport.ConcatDescriptor("clip-a", "clip-b"))
	if err := env.store.Fail(context.Background(), failed.ID, "missing media", services.KindMediaFetch); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	out, _, err := runCLI(t, []string{"jobs", "list"}, env.configPath, "")
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, queued.ID)
	requireContains(t, out, failed.ID)
	requireContains(t, out, "media_fetch: missing media")

	out, _, err = runCLI(t, []string{"jobs", "list", "--status", "failed", "--json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("jobs list --status: %v", err)
	}
	var resp api.JobListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(resp.Jobs) != 1 || resp.Jobs[0].JobID != failed.ID || resp.Jobs[0].ErrorKind != "media_fetch" {
		t.Fatalf("unexpected filtered jobs: %+v", resp.Jobs)
	}

	if _, _, err := runCLI(t, []string{"jobs", "list", "--status", "paused"}, env.configPath, ""); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestJobsShow(t *testing.T) {
	env := setupCLITestEnv(t)
	job := testsupport.NewJob(t, env.store, testsupport.TrimDescriptor("clip-a", 250, 1250))

	out, _, err := runCLI(t, []string{"jobs", "show", job.ID}, env.configPath, "")
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	requireContains(t, out, "Job:")
	requireContains(t, out, job.ID)
	requireContains(t, out, "trim")
	requireContains(t, out, "clip-a")

	_, _, err = runCLI(t, []string{"jobs", "show", "no-such-job"}, env.configPath, "")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestJobsSubmitRequiresDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"jobs", "submit", "trim", "--data", `{"input":"clip-a","startMs":0,"endMs":1000}`}, env.configPath, "")
	if err == nil {
		t.Fatal("expected submit to fail without a daemon")
	}
	requireContains(t, err.Error(), "reelsmith serve")
}

func TestJobsSubmitAndWait(t *testing.T) {
	env := setupCLITestEnv(t)
	env.media.AddAsset("clip-a", "clip-a.mp4", []byte("source"), 8000)
	addr := env.startDaemon(t)

	out, _, err := runCLI(t, []string{"jobs", "submit", "trim", "--data", `{"input":"clip-a","startMs":500,"endMs":2500}`, "--wait", "--json"}, env.configPath, addr)
	if err != nil {
		t.Fatalf("jobs submit: %v", err)
	}
	var job api.Job
	if err := json.Unmarshal([]byte(out), &job); err != nil {
		t.Fatalf("decode job: %v\n%s", err, out)
	}
	if job.Status != "completed" || job.ResultMediaID == "" {
		t.Fatalf("unexpected job: %+v", job)
	}

	out, _, err = runCLI(t, []string{"jobs", "show", job.JobID}, env.configPath, addr)
	if err != nil {
		t.Fatalf("jobs show via daemon: %v", err)
	}
	requireContains(t, out, job.ResultMediaID)
}

func TestJobsSubmitRejected(t *testing.T) {
	env := setupCLITestEnv(t)
	addr := env.startDaemon(t)

	_, _, err := runCLI(t, []string{"jobs", "submit", "trim", "--data", `{"input":"clip-a","startMs":900,"endMs":100}`}, env.configPath, addr)
	var statusErr *api.StatusError
	if err == nil || !errors.As(err, &statusErr) || statusErr.StatusCode != 422 {
		t.Fatalf("expected 422 rejection, got %v", err)
	}

	if _, _, err := runCLI(t, []string{"jobs", "submit", "splice", "--data", `{}`}, env.configPath, addr); err == nil {
		t.Fatal("expected unknown operation to be rejected")
	}
}

func TestReadSubmitBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.json")
	if err := os.WriteFile(path, []byte(`{"inputs":["a","b"]}`), 0o644); err != nil {
		t.Fatalf("write body: %v", err)
	}

	tests := []struct {
		name    string
		data    string
		file    string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "inline", data: `{"input":"a"}`, want: `{"input":"a"}`},
		{name: "file", file: path, want: `{"inputs":["a","b"]}`},
		{name: "stdin", file: "-", stdin: `{"x":1}`, want: `{"x":1}`},
		{name: "both", data: "{}", file: path, wantErr: true},
		{name: "neither", wantErr: true},
		{name: "missing file", file: filepath.Join(t.TempDir(), "absent.json"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readSubmitBody(strings.NewReader(tt.stdin), tt.data, tt.file)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("readSubmitBody: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("body = %q, want %q", got, tt.want)
			}
		})
	}
}
