package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/engine"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/mediastore"
	"reelsmith/internal/ops"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/testsupport"
)

type fakeRunner struct {
	calls    atomic.Int32
	failStep string
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, inv engine.Invocation) (engine.Result, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if inv.Step == f.failStep {
		return engine.Result{ExitCode: 1, Tail: []string{"Invalid data found when processing input"}}, nil
	}
	out := inv.Args[len(inv.Args)-1]
	if err := os.WriteFile(out, []byte("media"), 0o644); err != nil {
		return engine.Result{}, err
	}
	return engine.Result{}, nil
}

func probeAll(context.Context, string) (ffprobe.Summary, error) {
	return ffprobe.Summary{
		DurationMs:   10000,
		VideoCodec:   "h264",
		Width:        1920,
		Height:       1080,
		AudioCodec:   "aac",
		AudioStreams: 1,
		HasVideo:     true,
		HasAudio:     true,
	}, nil
}

type harness struct {
	cfg     *config.Config
	store   *queue.Store
	media   *testsupport.FakeMediaStore
	runner  *fakeRunner
	manager *Manager
}

func newHarness(t *testing.T, workers int, runner *fakeRunner) *harness {
	t.Helper()
	media := testsupport.NewFakeMediaStore(t)
	cfg := testsupport.NewConfig(t, testsupport.WithMediaStore(media.BaseURL()), testsupport.WithWorkers(workers))
	store := testsupport.MustOpenStore(t, cfg)
	client, err := mediastore.New(cfg.MediaStore, logging.NewNop())
	if err != nil {
		t.Fatalf("mediastore.New: %v", err)
	}
	if runner == nil {
		runner = &fakeRunner{}
	}
	mgr, err := NewManager(cfg, store, Dependencies{Media: client, Runner: runner, Probe: probeAll}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return &harness{cfg: cfg, store: store, media: media, runner: runner, manager: mgr}
}

func (h *harness) submit(t *testing.T, desc ops.Descriptor) *queue.Job {
	t.Helper()
	job := testsupport.NewJob(t, h.store, desc)
	payload, err := desc.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := h.store.Enqueue(context.Background(), job.ID, desc.Operation.TaskName(), payload); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	h.manager.Notify()
	return job
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(h.manager.Stop)
}

func waitTerminal(t *testing.T, store *queue.Store, id string) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job != nil && job.Status.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

func requireWorkspaceRemoved(t *testing.T, workDir string) {
	t.Helper()
	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace not removed: %v", entries)
	}
}

func countRequests(media *testsupport.FakeMediaStore, prefix string) int {
	n := 0
	for _, r := range media.Requests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func TestManagerCompletesTrimJob(t *testing.T) {
	h := newHarness(t, 1, nil)
	h.media.AddAsset("clip-a", "clip-a.mp4", []byte("source"), 10000)
	h.start(t)

	job := h.submit(t, testsupport.TrimDescriptor("clip-a", 1000, 3000))
	got := waitTerminal(t, h.store, job.ID)

	if got.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", got.Status, got.Error)
	}
	if got.ResultRef != "out-1" {
		t.Fatalf("result ref = %q, want out-1", got.ResultRef)
	}
	if got.Progress.Percent != 100 {
		t.Fatalf("percent = %d, want 100", got.Progress.Percent)
	}
	if got.StartedAt == nil || got.FinishedAt == nil {
		t.Fatalf("expected timestamps, got %+v", got)
	}

	uploads := h.media.Uploads()
	if len(uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(uploads))
	}
	fields := uploads[0].Fields
	if fields["jobId"] != job.ID || fields["operation"] != "trim" || fields["inputs"] != `["clip-a"]` {
		t.Fatalf("unexpected metadata: %+v", fields)
	}
	if fields["codecSummary"] != "h264/aac" {
		t.Fatalf("codecSummary = %q", fields["codecSummary"])
	}
	requireWorkspaceRemoved(t, h.cfg.Paths.WorkDir)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

func TestManagerJobLogLineHasEachFieldOnce(t *testing.T) {
	h := newHarness(t, 1, nil)
	h.media.AddAsset("clip-a", "clip-a.mp4", []byte("source"), 10000)
	client, err := mediastore.New(h.cfg.MediaStore, logging.NewNop())
	if err != nil {
		t.Fatalf("mediastore.New: %v", err)
	}
	var out lockedBuffer
	logger := slog.New(slog.NewJSONHandler(&out, nil))
	h.manager, err = NewManager(h.cfg, h.store, Dependencies{
		Media:  client,
		Runner: h.runner,
		Probe:  probeAll,
		JobLog: logging.NewJobLog(&out),
	}, logger)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	h.start(t)

	job := h.submit(t, testsupport.TrimDescriptor("clip-a", 1000, 3000))
	waitTerminal(t, h.store, job.ID)

	var line string
	deadline := time.Now().Add(5 * time.Second)
	for line == "" && time.Now().Before(deadline) {
		for _, l := range out.Lines() {
			if strings.Contains(l, `"msg":"job finished"`) {
				line = l
			}
		}
		if line == "" {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if line == "" {
		t.Fatalf("no job finished line in %q", out.Lines())
	}

	claimed := false
	for _, l := range out.Lines() {
		if strings.Contains(l, `"msg":"job claimed"`) && strings.Contains(l, `"job_id":"`+job.ID+`"`) {
			claimed = true
		}
	}
	if !claimed {
		t.Fatalf("expected context fields on the worker logger, got %q", out.Lines())
	}

	for _, key := range []string{logging.FieldJobID, logging.FieldOperation, logging.FieldRequestID} {
		if n := strings.Count(line, `"`+key+`":`); n != 1 {
			t.Fatalf("key %q appears %d times in %q", key, n, line)
		}
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	if entry[logging.FieldJobID] != job.ID || entry[logging.FieldRequestID] != "test-request" || entry["status"] != "completed" {
		t.Fatalf("unexpected job line: %v", entry)
	}
}

func TestManagerValidationFailureRunsNoEngine(t *testing.T) {
	h := newHarness(t, 1, nil)
	h.media.AddAsset("clip-a", "clip-a.mp4", []byte("source"), 10000)
	h.start(t)

	job := h.submit(t, testsupport.TrimDescriptor("clip-a", 5000, 20000))
	got := waitTerminal(t, h.store, job.ID)

	if got.Status != queue.StatusFailed || got.ErrorKind != services.KindValidation {
		t.Fatalf("status = %s kind = %s, want failed validation", got.Status, got.ErrorKind)
	}
	if !strings.Contains(got.Error, "past the input duration") {
		t.Fatalf("unexpected error: %s", got.Error)
	}
	if n := h.runner.calls.Load(); n != 0 {
		t.Fatalf("engine invoked %d times", n)
	}
	if len(h.media.Uploads()) != 0 {
		t.Fatal("nothing should be uploaded")
	}
	requireWorkspaceRemoved(t, h.cfg.Paths.WorkDir)
}

func TestManagerEngineFailureFailsJob(t *testing.T) {
	h := newHarness(t, 1, &fakeRunner{failStep: "trim"})
	h.media.AddAsset("clip-a", "clip-a.mp4", []byte("source"), 10000)
	h.start(t)

	job := h.submit(t, testsupport.TrimDescriptor("clip-a", 0, 2000))
	got := waitTerminal(t, h.store, job.ID)

	if got.Status != queue.StatusFailed || got.ErrorKind != services.KindProcessing {
		t.Fatalf("status = %s kind = %s, want failed processing", got.Status, got.ErrorKind)
	}
	if !strings.Contains(got.Error, "exit status 1") || !strings.Contains(got.Error, "Invalid data") {
		t.Fatalf("diagnostic missing from error: %s", got.Error)
	}
	if n := h.runner.calls.Load(); n != 1 {
		t.Fatalf("engine invoked %d times, want 1", n)
	}
	if got.Progress.Percent >= 100 {
		t.Fatalf("failed job progress = %d", got.Progress.Percent)
	}
	requireWorkspaceRemoved(t, h.cfg.Paths.WorkDir)
}

func TestManagerMissingMediaFailsBeforeEngine(t *testing.T) {
	h := newHarness(t, 1, nil)
	h.media.AddAsset("clip-a", "clip-a.mp4", []byte("source"), 10000)
	h.start(t)

	job := h.submit(t, testsupport.ConcatDescriptor("clip-a", "missing"))
	got := waitTerminal(t, h.store, job.ID)

	if got.Status != queue.StatusFailed || got.ErrorKind != services.KindMediaFetch {
		t.Fatalf("status = %s kind = %s, want failed media_fetch", got.Status, got.ErrorKind)
	}
	if !strings.Contains(got.Error, "missing") {
		t.Fatalf("error should name the missing media: %s", got.Error)
	}
	if n := h.runner.calls.Load(); n != 0 {
		t.Fatalf("engine invoked %d times", n)
	}
}

func TestManagerUploadFailureIsNotRetried(t *testing.T) {
	h := newHarness(t, 1, nil)
	h.media.AddAsset("clip-a", "clip-a.mp4", []byte("source"), 10000)
	h.media.FailUploads(503)
	h.start(t)

	job := h.submit(t, testsupport.TrimDescriptor("clip-a", 0, 2000))
	got := waitTerminal(t, h.store, job.ID)

	if got.Status != queue.StatusFailed || got.ErrorKind != services.KindUpload {
		t.Fatalf("status = %s kind = %s, want failed upload", got.Status, got.ErrorKind)
	}
	if n := countRequests(h.media, "POST /api/media"); n != 1 {
		t.Fatalf("upload attempts = %d, want 1", n)
	}
	if got.ResultRef != "" {
		t.Fatalf("failed job has result ref %q", got.ResultRef)
	}
	requireWorkspaceRemoved(t, h.cfg.Paths.WorkDir)
}

func TestManagerRejectsMismatchedTask(t *testing.T) {
	concatPayload, err := testsupport.ConcatDescriptor("clip-a", "clip-a").Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	tests := []struct {
		name     string
		taskName string
		payload  []byte
		want     string
	}{
		{name: "unknown task", taskName: "video.bogus", payload: []byte("not json"), want: "resolve task"},
		{name: "operation mismatch", taskName: "video.concat", payload: concatPayload, want: "does not match job operation"},
		{name: "undecodable payload", taskName: "video.trim", payload: []byte("not json"), want: "decode task payload"},
		{name: "payload mismatch", taskName: "video.trim", payload: concatPayload, want: "task payload describes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 1, nil)
			h.media.AddAsset("clip-a", "clip-a.mp4", []byte("source"), 10000)
			h.start(t)

			job := testsupport.NewJob(t, h.store, testsupport.TrimDescriptor("clip-a", 0, 1000))
			if _, err := h.store.Enqueue(context.Background(), job.ID, tt.taskName, tt.payload); err != nil {
				t.Fatalf("Enqueue: %v", err)
			}
			h.manager.Notify()

			got := waitTerminal(t, h.store, job.ID)
			if got.Status != queue.StatusFailed || got.ErrorKind != services.KindInternal {
				t.Fatalf("status = %s kind = %s, want failed internal", got.Status, got.ErrorKind)
			}
			if !strings.Contains(got.Error, tt.want) {
				t.Fatalf("error %q does not mention %q", got.Error, tt.want)
			}
			if n := h.runner.calls.Load(); n != 0 {
				t.Fatalf("engine invoked %d times", n)
			}
			if reqs := h.media.Requests(); len(reqs) != 0 {
				t.Fatalf("media store contacted: %v", reqs)
			}
		})
	}
}

func TestManagerProcessesEachJobOnce(t *testing.T) {
	h := newHarness(t, 4, nil)
	h.media.AddAsset("clip-a", "clip-a.mp4", []byte("source"), 10000)

	const jobs = 8
	ids := make([]string, 0, jobs)
	for range jobs {
		ids = append(ids, h.submit(t, testsupport.TrimDescriptor("clip-a", 0, 1000)).ID)
	}
	h.start(t)

	refs := make(map[string]bool, jobs)
	for _, id := range ids {
		got := waitTerminal(t, h.store, id)
		if got.Status != queue.StatusCompleted {
			t.Fatalf("job %s status = %s (%s)", id, got.Status, got.Error)
		}
		if refs[got.ResultRef] {
			t.Fatalf("result ref %s reused", got.ResultRef)
		}
		refs[got.ResultRef] = true
	}
	if n := h.runner.calls.Load(); n != jobs {
		t.Fatalf("engine invoked %d times, want %d", n, jobs)
	}
	if n := len(h.media.Uploads()); n != jobs {
		t.Fatalf("uploads = %d, want %d", n, jobs)
	}
	pending, err := h.store.PendingTasks(context.Background())
	if err != nil {
		t.Fatalf("PendingTasks: %v", err)
	}
	if pending != 0 {
		t.Fatalf("pending tasks = %d", pending)
	}
}

func TestManagerStopWaitsForInFlightJob(t *testing.T) {
	runner := &fakeRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
	h := newHarness(t, 1, runner)
	h.media.AddAsset("clip-a", "clip-a.mp4", []byte("source"), 10000)
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := h.submit(t, testsupport.TrimDescriptor("clip-a", 0, 1000))
	select {
	case <-runner.started:
	case <-time.After(10 * time.Second):
		t.Fatal("engine never started")
	}

	var stopped atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.manager.Stop()
		stopped.Store(true)
	}()

	time.Sleep(50 * time.Millisecond)
	if stopped.Load() {
		t.Fatal("Stop returned while a job was running")
	}
	close(runner.release)
	wg.Wait()

	got, err := h.store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", got.Status, got.Error)
	}
	if h.manager.Status(context.Background()).Running {
		t.Fatal("manager still reports running")
	}
}

func TestManagerWithStubbedEngine(t *testing.T) {
	media := testsupport.NewFakeMediaStore(t)
	media.AddAsset("clip-a", "clip-a.mp4", []byte("source"), 0)
	media.AddAsset("clip-b", "clip-b.mp4", []byte("source"), 0)
	cfg := testsupport.NewConfig(t,
		testsupport.WithMediaStore(media.BaseURL()),
		testsupport.WithEngineScripts(
			testsupport.FFmpegTouchOutput(filepath.Join(t.TempDir(), "ffmpeg.calls")),
			testsupport.FFprobeJSON("4.000", true),
		),
	)
	store := testsupport.MustOpenStore(t, cfg)
	client, err := mediastore.New(cfg.MediaStore, logging.NewNop())
	if err != nil {
		t.Fatalf("mediastore.New: %v", err)
	}
	mgr, err := NewManager(cfg, store, Dependencies{
		Media:  client,
		Runner: engine.NewFFmpeg(cfg.Engine, logging.NewNop()),
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)

	desc := testsupport.ConcatDescriptor("clip-a", "clip-b")
	job := testsupport.NewJob(t, store, desc)
	payload, _ := desc.Encode()
	if _, err := store.Enqueue(context.Background(), job.ID, desc.Operation.TaskName(), payload); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	mgr.Notify()

	got := waitTerminal(t, store, job.ID)
	if got.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", got.Status, got.Error)
	}
	uploads := media.Uploads()
	if len(uploads) != 1 || uploads[0].Fields["durationMs"] != "4000" {
		t.Fatalf("unexpected uploads: %+v", uploads)
	}
}

func TestNewManagerRequiresCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := NewManager(cfg, store, Dependencies{}, nil); err == nil {
		t.Fatal("expected error without media store and runner")
	}
	if _, err := NewManager(nil, store, Dependencies{}, nil); err == nil {
		t.Fatal("expected error without config")
	}
}
