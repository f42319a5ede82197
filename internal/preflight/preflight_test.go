package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/config"
)

func TestCheckDirectoryAccess(t *testing.T) {
	if r := CheckDirectoryAccess("test", t.TempDir()); !r.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", r.Detail)
	}
	if r := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope")); r.Passed || r.Detail == "" {
		t.Fatalf("expected failure for missing dir, got %+v", r)
	}
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckDirectoryAccess("test", f); r.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeSpace("space", dir, 1); !r.Passed {
		t.Fatalf("expected pass with 1 byte minimum, got %s", r.Detail)
	}
	if r := CheckFreeSpace("space", dir, ^uint64(0)); r.Passed {
		t.Fatal("expected failure with impossible minimum")
	}
	if r := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); r.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckMediaStore(t *testing.T) {
	tests := []struct {
		name   string
		status int
		token  string
		passed bool
	}{
		{"ok", http.StatusOK, "tok", true},
		{"not found still reachable", http.StatusNotFound, "", true},
		{"unauthorized", http.StatusUnauthorized, "bad", false},
		{"server error", http.StatusBadGateway, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.token != "" && r.Header.Get("Authorization") != "Bearer "+tt.token {
					t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			r := CheckMediaStore(context.Background(), srv.Client(), srv.URL+"/", tt.token)
			if r.Passed != tt.passed {
				t.Fatalf("Passed = %v, want %v (%s)", r.Passed, tt.passed, r.Detail)
			}
		})
	}
	if r := CheckMediaStore(context.Background(), nil, "", ""); r.Passed {
		t.Fatal("expected failure without base url")
	}
}

func TestRunAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.MediaStore.BaseURL = srv.URL
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), &cfg, srv.Client())
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results[:2] {
		if !r.Passed {
			t.Fatalf("expected %s to pass: %s", r.Name, r.Detail)
		}
	}
	if !results[3].Passed {
		t.Fatalf("expected media store check to pass: %s", results[3].Detail)
	}
	if RunAll(context.Background(), nil, nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestFormatBytes(t *testing.T) {
	if got := formatBytes(512); got != "512 B" {
		t.Fatalf("formatBytes(512) = %q", got)
	}
	if got := formatBytes(3 << 30); got != "3.0 GiB" {
		t.Fatalf("formatBytes(3GiB) = %q", got)
	}
}
