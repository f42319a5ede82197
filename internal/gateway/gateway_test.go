package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/mediastore"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/testsupport"
)

type countingWaker struct{ n atomic.Int32 }

func (w *countingWaker) Notify() { w.n.Add(1) }

type brokenQueue struct {
	*queue.Store
}

func (brokenQueue) Enqueue(context.Context, string, string, []byte) (int64, error) {
	return 0, errors.New("disk full")
}

type fixture struct {
	cfg    *config.Config
	store  *queue.Store
	waker  *countingWaker
	server *Server
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	waker := &countingWaker{}
	return &fixture{
		cfg:    cfg,
		store:  store,
		waker:  waker,
		server: New(cfg, store, Options{Waker: waker}, logging.NewNop()),
	}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (f *fixture) jobCount(t *testing.T) int {
	t.Helper()
	jobs, err := f.store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return len(jobs)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitTrimCreatesQueuedJob(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/jobs/trim",
		`{"input":"clip-a","startMs":1000,"endMs":4000,"outputFormat":"mov","metadata":{"project":"promo"}}`,
		HeaderRequestID, "req-42",
	)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(HeaderRequestID); got != "req-42" {
		t.Fatalf("request id header = %q", got)
	}
	resp := decode[api.SubmitResponse](t, rec)

	job, err := f.store.Get(context.Background(), resp.JobID)
	if err != nil || job == nil {
		t.Fatalf("Get: %v %v", job, err)
	}
	if job.Status != queue.StatusQueued || job.RequestID != "req-42" || job.Metadata["project"] != "promo" {
		t.Fatalf("unexpected job: %+v", job)
	}
	desc, err := job.Descriptor()
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	if desc.Trim == nil || desc.Trim.EndMs != 4000 || desc.OutputFormat != "mov" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
	pending, err := f.store.PendingTasks(context.Background())
	if err != nil || pending != 1 {
		t.Fatalf("pending = %d err = %v", pending, err)
	}
	if f.waker.n.Load() != 1 {
		t.Fatalf("waker notified %d times", f.waker.n.Load())
	}
}

func TestSubmitRejectsMalformedJSON(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/jobs/concat", `{"inputs": [`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.jobCount(t) != 0 {
		t.Fatal("no job should be created")
	}
}

func TestSubmitRejectsInvalidRequests(t *testing.T) {
	cases := []struct {
		name string
		path string
		body string
		want string
	}{
		{"trim window", "/jobs/trim", `{"input":"clip-a","startMs":5000,"endMs":1000}`, "must be after start"},
		{"concat no inputs", "/jobs/concat", `{"inputs":[]}`, "at least one input"},
		{"overlay no elements", "/jobs/overlay", `{"input":"clip-a","overlays":[]}`, "at least one overlay"},
		{"mixdown bad rule", "/jobs/mixdown", `{"inputs":[{"mediaId":"a"}],"rule":"blend"}`, "rule must be"},
		{"bad media id", "/jobs/trim", `{"input":"../etc/passwd","startMs":0,"endMs":10}`, "media"},
		{"bad format", "/jobs/trim", `{"input":"clip-a","startMs":0,"endMs":10,"outputFormat":"avi"}`, "output format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, tc.path, tc.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			resp := decode[api.ErrorResponse](t, rec)
			if resp.Kind != services.KindValidation || !strings.Contains(resp.Error, tc.want) {
				t.Fatalf("unexpected error body: %+v", resp)
			}
			if f.jobCount(t) != 0 {
				t.Fatal("no job should be created")
			}
		})
	}
}

func TestSubmitBodyLimit(t *testing.T) {
	f := newFixture(t)
	f.cfg.Gateway.MaxBodyBytes = 16
	f.server = New(f.cfg, f.store, Options{}, logging.NewNop())
	rec := f.do(t, http.MethodPost, "/jobs/trim", `{"input":"clip-a","startMs":0,"endMs":1000}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rec.Code)
	}
}

func newMediaFixture(t *testing.T, media *testsupport.FakeMediaStore) *fixture {
	t.Helper()
	f := newFixture(t, testsupport.WithMediaStore(media.BaseURL()))
	client, err := mediastore.New(f.cfg.MediaStore, logging.NewNop())
	if err != nil {
		t.Fatalf("mediastore.New: %v", err)
	}
	f.server = New(f.cfg, f.store, Options{Describer: client, Waker: f.waker}, logging.NewNop())
	return f
}

func TestMediaPreflight(t *testing.T) {
	media := testsupport.NewFakeMediaStore(t)
	media.AddAsset("base", "base.mp4", []byte("x"), 5000)
	f := newMediaFixture(t, media)
	if !f.cfg.Gateway.PreflightMedia {
		t.Fatal("media preflight should be enabled by default")
	}

	late := `{"input":"base","overlays":[{"kind":"text","text":"hi","x":10,"y":10,"startMs":6000}]}`
	rec := f.do(t, http.MethodPost, "/jobs/overlay", late)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "after the base clip ends") {
		t.Fatalf("late overlay: %d %s", rec.Code, rec.Body.String())
	}

	missing := `{"input":"nope","startMs":0,"endMs":1000}`
	rec = f.do(t, http.MethodPost, "/jobs/trim", missing)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing media: %d %s", rec.Code, rec.Body.String())
	}

	media.FailDescribe("base", http.StatusServiceUnavailable)
	rec = f.do(t, http.MethodPost, "/jobs/trim", `{"input":"base","startMs":0,"endMs":1000}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("store outage: %d %s", rec.Code, rec.Body.String())
	}
	if f.jobCount(t) != 0 {
		t.Fatal("no job should be created")
	}
}

func TestMediaPreflightRejectsLateOverlayWithoutJob(t *testing.T) {
	media := testsupport.NewFakeMediaStore(t)
	media.AddAsset("base", "base.mp4", []byte("x"), 5000)
	f := newMediaFixture(t, media)

	rec := f.do(t, http.MethodPost, "/jobs/overlay",
		`{"input":"base","overlays":[{"kind":"text","text":"late","x":10,"y":10,"startMs":6000}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if resp := decode[api.ErrorResponse](t, rec); resp.Kind != services.KindValidation {
		t.Fatalf("kind = %q, want validation", resp.Kind)
	}
	if f.jobCount(t) != 0 {
		t.Fatal("no job should be created")
	}
	if f.waker.n.Load() != 0 {
		t.Fatal("waker should not be notified")
	}
}

func TestMediaPreflightDisabled(t *testing.T) {
	media := testsupport.NewFakeMediaStore(t)
	media.AddAsset("base", "base.mp4", []byte("x"), 5000)
	f := newMediaFixture(t, media)
	f.cfg.Gateway.PreflightMedia = false

	rec := f.do(t, http.MethodPost, "/jobs/overlay",
		`{"input":"base","overlays":[{"kind":"text","text":"late","x":10,"y":10,"startMs":6000}]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	for _, r := range media.Requests() {
		if strings.HasPrefix(r, "GET /api/media/") {
			t.Fatalf("media store described with preflight disabled: %v", media.Requests())
		}
	}
}

func TestEnqueueFailureFailsJob(t *testing.T) {
	f := newFixture(t)
	f.server = New(f.cfg, brokenQueue{f.store}, Options{Waker: f.waker}, logging.NewNop())

	rec := f.do(t, http.MethodPost, "/jobs/trim", `{"input":"clip-a","startMs":0,"endMs":1000}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	jobs, err := f.store.List(context.Background(), 0)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("jobs = %v err = %v", jobs, err)
	}
	if jobs[0].Status != queue.StatusFailed || jobs[0].ErrorKind != services.KindInternal {
		t.Fatalf("unexpected job: %+v", jobs[0])
	}
	if f.waker.n.Load() != 0 {
		t.Fatal("waker should not be notified")
	}
}

func TestGetAndListJobs(t *testing.T) {
	f := newFixture(t)
	job := testsupport.NewJob(t, f.store, testsupport.TrimDescriptor("clip-a", 0, 1000))

	rec := f.do(t, http.MethodGet, "/jobs/"+job.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decode[api.Job](t, rec)
	if got.JobID != job.ID || got.Status != "queued" || got.Operation != "trim" {
		t.Fatalf("unexpected job: %+v", got)
	}

	if rec := f.do(t, http.MethodGet, "/jobs/unknown", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/jobs?status=queued,failed", "")
	list := decode[api.JobListResponse](t, rec)
	if len(list.Jobs) != 1 {
		t.Fatalf("list = %+v", list)
	}
	rec = f.do(t, http.MethodGet, "/jobs?status=completed", "")
	if list := decode[api.JobListResponse](t, rec); len(list.Jobs) != 0 {
		t.Fatalf("filtered list = %+v", list)
	}
	if rec := f.do(t, http.MethodGet, "/jobs?status=bogus", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus status = %d", rec.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	f := newFixture(t)
	f.cfg.Paths.APIToken = "s3cret"
	f.server = New(f.cfg, f.store, Options{}, logging.NewNop())

	if rec := f.do(t, http.MethodGet, "/jobs", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/jobs", "", "Authorization", "Bearer wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/jobs", "", "Authorization", "Bearer s3cret"); rec.Code != http.StatusOK {
		t.Fatalf("good token: %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health should be public: %d", rec.Code)
	}
}

func TestClientRoundTrip(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.server.Handler())
	t.Cleanup(srv.Close)
	client := api.NewClient(srv.URL, "")
	ctx := context.Background()

	resp, err := client.Submit(ctx, "trim", []byte(`{"input":"clip-a","startMs":0,"endMs":1000}`))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job, err := client.Job(ctx, resp.JobID)
	if err != nil || job.Status != "queued" {
		t.Fatalf("Job: %+v %v", job, err)
	}
	jobs, err := client.Jobs(ctx, "queued")
	if err != nil || len(jobs) != 1 {
		t.Fatalf("Jobs: %v %v", jobs, err)
	}

	_, err = client.Submit(ctx, "trim", []byte(`{"input":"clip-a","startMs":10,"endMs":1}`))
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnprocessableEntity || statusErr.Kind != services.KindValidation {
		t.Fatalf("expected 422 status error, got %v", err)
	}
	status, err := client.Status(ctx)
	if err != nil || !status.Running {
		t.Fatalf("Status: %+v %v", status, err)
	}
}
