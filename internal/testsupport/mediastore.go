package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeUpload records one multipart upload received by FakeMediaStore.
type FakeUpload struct {
	ID          string
	Filename    string
	ContentType string
	Fields      map[string]string
	Data        []byte
}

type fakeAsset struct {
	filename   string
	mimeType   string
	data       []byte
	durationMs int64
}

// FakeMediaStore is an in-memory media store served over HTTP with the same
// routes as the real one: GET /api/media/{id}, POST /api/media and a file
// endpoint for downloads.
type FakeMediaStore struct {
	Server *httptest.Server

	mu             sync.Mutex
	assets         map[string]fakeAsset
	uploads        []FakeUpload
	requests       []string
	describeStatus map[string]int
	uploadStatus   int
	token          string
}

// NewFakeMediaStore starts a fake store that is closed when the test ends.
func NewFakeMediaStore(t testing.TB) *FakeMediaStore {
	t.Helper()
	f := &FakeMediaStore{
		assets:         make(map[string]fakeAsset),
		describeStatus: make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/media/{id}", f.describe)
	mux.HandleFunc("POST /api/media", f.upload)
	mux.HandleFunc("GET /files/{id}", f.download)
	f.Server = httptest.NewServer(f.record(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// BaseURL is the value for media_store.base_url.
func (f *FakeMediaStore) BaseURL() string {
	return f.Server.URL + "/api"
}

// RequireToken makes every API call demand the bearer token.
func (f *FakeMediaStore) RequireToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// AddAsset registers downloadable content. A zero duration is omitted from
// the describe response.
func (f *FakeMediaStore) AddAsset(id, filename string, data []byte, durationMs int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets[id] = fakeAsset{filename: filename, mimeType: "video/mp4", data: data, durationMs: durationMs}
}

// FailDescribe makes describe calls for id answer with status.
func (f *FakeMediaStore) FailDescribe(id string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describeStatus[id] = status
}

// FailUploads makes every upload answer with status.
func (f *FakeMediaStore) FailUploads(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadStatus = status
}

// Uploads returns the uploads received so far.
func (f *FakeMediaStore) Uploads() []FakeUpload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeUpload(nil), f.uploads...)
}

// Requests returns "METHOD path" for every request received.
func (f *FakeMediaStore) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *FakeMediaStore) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		token := f.token
		f.mu.Unlock()
		if token != "" && strings.HasPrefix(r.URL.Path, "/api/") && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, `{"errors":[{"message":"unauthorized"}]}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeMediaStore) describe(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	status := f.describeStatus[id]
	asset, ok := f.assets[id]
	f.mu.Unlock()
	if status != 0 {
		http.Error(w, `{"errors":[{"message":"injected failure"}]}`, status)
		return
	}
	if !ok {
		http.Error(w, `{"errors":[{"message":"Not Found"}]}`, http.StatusNotFound)
		return
	}
	doc := map[string]any{
		"id":       id,
		"filename": asset.filename,
		"mimeType": asset.mimeType,
		"url":      "/files/" + id,
	}
	if asset.durationMs > 0 {
		doc["duration"] = float64(asset.durationMs) / 1000
	}
	writeJSON(w, http.StatusOK, doc)
}

func (f *FakeMediaStore) download(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	asset, ok := f.assets[r.PathValue("id")]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", asset.mimeType)
	_, _ = w.Write(asset.data)
}

func (f *FakeMediaStore) upload(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status := f.uploadStatus
	f.mu.Unlock()
	if status != 0 {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, `{"errors":[{"message":"injected failure"}]}`, status)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fields := make(map[string]string, len(r.MultipartForm.Value))
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	f.mu.Lock()
	up := FakeUpload{
		ID:          fmt.Sprintf("out-%d", len(f.uploads)+1),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Fields:      fields,
		Data:        data,
	}
	f.uploads = append(f.uploads, up)
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"doc": map[string]any{"id": up.ID}, "message": "created"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
