package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
)

func TestTailBufferKeepsLastLines(t *testing.T) {
	buf := newTailBuffer(3)
	for _, line := range []string{"one", "", "two", "three", "four\r"} {
		buf.Add(line)
	}
	got := strings.Join(buf.Lines(), ",")
	if got != "two,three,four" {
		t.Fatalf("Lines() = %q", got)
	}

	partial := newTailBuffer(5)
	partial.Add("only")
	if lines := partial.Lines(); len(lines) != 1 || lines[0] != "only" {
		t.Fatalf("unexpected partial tail %v", lines)
	}
}

func TestSanitizerRedactsPathsAndSecrets(t *testing.T) {
	s := Sanitizer{
		Workspace: "/var/lib/reelsmith/work/job-abc-123",
		Secrets:   []string{"s3cr3t-token"},
		MaxChars:  600,
	}
	tail := []string{
		"[in#0] Error opening input file /var/lib/reelsmith/work/job-abc-123/input_00_clip.mp4.",
		"loading /usr/share/fonts/DejaVuSans.ttf",
		"GET https://cdn.example.com/media/a.mp4?signature=xyz failed",
		"Authorization: s3cr3t-token",
		"api_key=abcd1234",
	}
	out := s.Summary(tail)
	for _, leaked := range []string{"/var/lib", "/usr/share", "signature=xyz", "s3cr3t-token", "abcd1234"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("summary leaked %q: %q", leaked, out)
		}
	}
	for _, kept := range []string{"<workspace>/input_00_clip.mp4", "<path>", "https://cdn.example.com/media/a.mp4?<redacted>", "Error opening input file"} {
		if !strings.Contains(out, kept) {
			t.Fatalf("expected %q in %q", kept, out)
		}
	}
}

func TestSanitizerCapsLengthKeepingTail(t *testing.T) {
	s := Sanitizer{MaxChars: 20}
	out := s.Summary([]string{strings.Repeat("a", 50), "final error"})
	if n := len([]rune(out)); n != 20 {
		t.Fatalf("expected 20 runes, got %d (%q)", n, out)
	}
	if !strings.HasSuffix(out, "final error") || !strings.HasPrefix(out, "…") {
		t.Fatalf("unexpected truncation %q", out)
	}
	if (Sanitizer{}).Summary(nil) != "" {
		t.Fatal("expected empty summary for empty tail")
	}
}

func TestFFmpegRunCapturesExitCodeAndTail(t *testing.T) {
	prev := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestEngineHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "ENGINE_HELPER=1")
		return cmd
	}
	t.Cleanup(func() { commandContext = prev })

	runner := NewFFmpeg(config.Engine{FFmpegBinary: "ffmpeg", DiagnosticTailLines: 2}, logging.NewNop())

	res, err := runner.Run(context.Background(), Invocation{Step: "trim", Args: []string{"ok"}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected success, got exit %d", res.ExitCode)
	}

	res, err = runner.Run(context.Background(), Invocation{Step: "trim", Args: []string{"fail"}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("expected exit 3, got %d", res.ExitCode)
	}
	if len(res.Tail) != 2 || res.Tail[1] != "Conversion failed!" {
		t.Fatalf("unexpected tail %v", res.Tail)
	}
}

func TestEngineHelperProcess(t *testing.T) {
	if os.Getenv("ENGINE_HELPER") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) > 0 {
		args = args[1:]
	}
	// args: ffmpeg -hide_banner -nostdin -y <mode>
	mode := args[len(args)-1]
	if mode == "fail" {
		for i := 0; i < 5; i++ {
			fmt.Fprintf(os.Stderr, "frame=%d\n", i)
		}
		fmt.Fprintln(os.Stderr, "Conversion failed!")
		os.Exit(3)
	}
	fmt.Fprintln(os.Stderr, "done")
	os.Exit(0)
}
