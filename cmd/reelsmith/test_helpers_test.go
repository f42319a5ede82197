package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"reelsmith/internal/config"
	"reelsmith/internal/daemon"
	"reelsmith/internal/engine"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/mediastore"
	"reelsmith/internal/queue"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	media      *testsupport.FakeMediaStore
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	media := testsupport.NewFakeMediaStore(t)
	cfg := testsupport.NewConfig(t, testsupport.WithMediaStore(media.BaseURL()), testsupport.WithStubbedBinaries())
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("REELSMITH_API_TOKEN", "")

	configPath := filepath.Join(home, ".config", "reelsmith", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		media:      media,
		configPath: configPath,
	}
}

type touchRunner struct{}

func (touchRunner) Run(_ context.Context, inv engine.Invocation) (engine.Result, error) {
	return engine.Result{}, os.WriteFile(inv.Args[len(inv.Args)-1], []byte("media"), 0o644)
}

func probe(context.Context, string) (ffprobe.Summary, error) {
	return ffprobe.Summary{DurationMs: 8000, VideoCodec: "h264", AudioCodec: "aac", Width: 1280, Height: 720, HasVideo: true, HasAudio: true, AudioStreams: 1}, nil
}

// startDaemon runs an in-process daemon against env and returns its address.
func (env *cliTestEnv) startDaemon(t *testing.T) string {
	t.Helper()
	client, err := mediastore.New(env.cfg.MediaStore, logging.NewNop())
	if err != nil {
		t.Fatalf("mediastore.New: %v", err)
	}
	mgr, err := workflow.NewManager(env.cfg, env.store, workflow.Dependencies{Media: client, Runner: touchRunner{}, Probe: probe}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	d, err := daemon.New(env.cfg, env.store, mgr, client, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d.Addr()
}

func runCLI(t *testing.T, args []string, configPath, addr string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	if addr != "" {
		flags = append(flags, "--addr", addr)
	}
	cmd.SetArgs(append(flags, args...))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
