package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
)

var commandContext = exec.CommandContext

const (
	defaultTailLines = 12
	maxStderrLine    = 4096
)

// Invocation is one engine run.
type Invocation struct {
	Step string
	Args []string
	Dir  string
}

// Result reports how an invocation ended.
type Result struct {
	ExitCode int
	Tail     []string
	Elapsed  time.Duration
}

// Runner executes engine invocations. An error is returned only when the
// process could not be started; a non-zero exit is reported in Result.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// FFmpeg runs the configured ffmpeg binary.
type FFmpeg struct {
	Binary    string
	TailLines int
	logger    *slog.Logger
}

// NewFFmpeg builds a runner from engine configuration.
func NewFFmpeg(cfg config.Engine, logger *slog.Logger) *FFmpeg {
	binary := strings.TrimSpace(cfg.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	tail := cfg.DiagnosticTailLines
	if tail <= 0 {
		tail = defaultTailLines
	}
	return &FFmpeg{
		Binary:    binary,
		TailLines: tail,
		logger:    logging.NewComponentLogger(logger, "engine"),
	}
}

// Run executes ffmpeg with the invocation arguments. Standard output is
// discarded; stderr is kept as a rolling tail.
func (f *FFmpeg) Run(ctx context.Context, inv Invocation) (Result, error) {
	if f == nil {
		return Result{}, errors.New("engine runner unavailable")
	}
	args := append([]string{"-hide_banner", "-nostdin", "-y"}, inv.Args...)
	cmd := commandContext(ctx, f.Binary, args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = io.Discard
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("engine stderr pipe: %w", err)
	}

	f.logger.Debug("engine invocation",
		logging.String("step", inv.Step),
		logging.String("binary", f.Binary),
		logging.Int("arg_count", len(args)),
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", f.Binary, err)
	}
	tail := newTailBuffer(f.TailLines)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		tail.Add(scanner.Text())
	}
	waitErr := cmd.Wait()

	res := Result{Tail: tail.Lines(), Elapsed: time.Since(start)}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return res, fmt.Errorf("wait %s: %w", f.Binary, waitErr)
		}
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode == 0 {
			res.ExitCode = -1
		}
	}
	return res, nil
}

// tailBuffer keeps the last n non-empty lines.
type tailBuffer struct {
	lines []string
	next  int
	full  bool
}

func newTailBuffer(n int) *tailBuffer {
	if n <= 0 {
		n = defaultTailLines
	}
	return &tailBuffer{lines: make([]string, n)}
}

func (t *tailBuffer) Add(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	if len(line) > maxStderrLine {
		line = line[:maxStderrLine]
	}
	t.lines[t.next] = line
	t.next = (t.next + 1) % len(t.lines)
	if t.next == 0 {
		t.full = true
	}
}

func (t *tailBuffer) Lines() []string {
	if !t.full {
		return append([]string(nil), t.lines[:t.next]...)
	}
	out := make([]string, 0, len(t.lines))
	out = append(out, t.lines[t.next:]...)
	return append(out, t.lines[:t.next]...)
}
