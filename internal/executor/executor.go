package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/engine"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/progress"
	"reelsmith/internal/services"
)

// ProbeFunc inspects a media file.
type ProbeFunc func(ctx context.Context, path string) (ffprobe.Summary, error)

// Artifact is the verified output of a plan.
type Artifact struct {
	Path         string
	DurationMs   int64
	CodecSummary string
	Summary      ffprobe.Summary
}

// StepError reports a step that exited non-zero.
type StepError struct {
	Step       string
	ExitCode   int
	Diagnostic string
	err        error
}

func (e *StepError) Error() string { return e.err.Error() }

func (e *StepError) Unwrap() error { return e.err }

// ExitCode extracts the engine exit code from err, or 0 when err did not come
// from a failed step.
func ExitCode(err error) int {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.ExitCode
	}
	return 0
}

// Executor runs plans.
type Executor struct {
	runner    engine.Runner
	probe     ProbeFunc
	tolerance time.Duration
	maxChars  int
	secrets   []string
	logger    *slog.Logger
}

// New builds an executor that probes outputs with the configured ffprobe.
func New(cfg *config.Config, runner engine.Runner, logger *slog.Logger) *Executor {
	binary := cfg.Engine.FFprobeBinary
	return &Executor{
		runner: runner,
		probe: func(ctx context.Context, path string) (ffprobe.Summary, error) {
			return ffprobe.Probe(ctx, binary, path)
		},
		tolerance: time.Duration(cfg.Workflow.DurationToleranceMs) * time.Millisecond,
		maxChars:  cfg.Engine.DiagnosticMaxChars,
		secrets:   []string{cfg.MediaStore.APIToken, cfg.Paths.APIToken},
		logger:    logging.NewComponentLogger(logger, "executor"),
	}
}

// WithProbe replaces the output probe.
func (e *Executor) WithProbe(probe ProbeFunc) *Executor {
	if probe != nil {
		e.probe = probe
	}
	return e
}

// Probe inspects a file with the executor's probe.
func (e *Executor) Probe(ctx context.Context, path string) (ffprobe.Summary, error) {
	return e.probe(ctx, path)
}

// Sanitizer returns the diagnostic sanitizer for ws.
func (e *Executor) Sanitizer(ws *Workspace) engine.Sanitizer {
	s := engine.Sanitizer{Secrets: slices.Clone(e.secrets), MaxChars: e.maxChars}
	if ws != nil {
		s.Workspace = ws.Dir
	}
	return s
}

// Run executes plan inside ws, emitting progress in the processing band at
// every step boundary. The events channel may be nil.
func (e *Executor) Run(ctx context.Context, ws *Workspace, plan pipeline.Plan, events chan<- progress.Event) (Artifact, error) {
	if len(plan.Steps) == 0 {
		return Artifact{}, services.Wrap(services.ErrProcessing, "processing", string(plan.Operation), "plan has no steps", nil)
	}
	logger := e.logger.With(logging.String(logging.FieldJobID, ws.JobID))
	sanitizer := e.Sanitizer(ws)

	total := 0
	for _, step := range plan.Steps {
		total += max(step.Weight, 1)
	}
	done := 0

	for i, step := range plan.Steps {
		e.emit(ctx, events, progress.Event{
			JobID:       ws.JobID,
			Percent:     progress.Scale(progress.ProcessingStart, progress.UploadStart, float64(done), float64(total)),
			CurrentStep: step.Name,
			Message:     fmt.Sprintf("%s (%d/%d)", step.Label, i+1, len(plan.Steps)),
		})
		for _, name := range slices.Sorted(maps.Keys(step.Files)) {
			if _, err := ws.WriteFile(name, step.Files[name]); err != nil {
				return Artifact{}, services.Wrap(services.ErrProcessing, "processing", step.Name, "write "+name, err)
			}
		}

		logger.Info("step started",
			logging.String("step", step.Name),
			logging.Int("index", i+1),
			logging.Int("steps", len(plan.Steps)),
		)
		res, err := e.runner.Run(ctx, engine.Invocation{Step: step.Name, Args: step.Args, Dir: ws.Dir})
		if err != nil {
			return Artifact{}, services.Wrap(services.ErrProcessing, "processing", step.Name, "engine did not start", errors.New(sanitizer.Redact(err.Error())))
		}
		if res.ExitCode != 0 {
			diag := sanitizer.Summary(res.Tail)
			msg := fmt.Sprintf("exit status %d", res.ExitCode)
			if diag != "" {
				msg += ": " + diag
			}
			logging.ErrorWithContext(logger, "step failed", "step_failed",
				logging.String("step", step.Name),
				logging.Int("exit_code", res.ExitCode),
				logging.String("diagnostic", diag),
				logging.String(logging.FieldErrorHint, "inspect the input media or the step arguments"),
			)
			return Artifact{}, &StepError{
				Step:       step.Name,
				ExitCode:   res.ExitCode,
				Diagnostic: diag,
				err:        services.Wrap(services.ErrProcessing, "processing", step.Name, msg, nil),
			}
		}
		logger.Info("step finished",
			logging.String("step", step.Name),
			logging.Duration("elapsed", res.Elapsed),
		)
		done += max(step.Weight, 1)
	}

	return e.verify(ctx, logger, ws, plan, events)
}

func (e *Executor) verify(ctx context.Context, logger *slog.Logger, ws *Workspace, plan pipeline.Plan, events chan<- progress.Event) (Artifact, error) {
	info, err := os.Stat(plan.Output)
	if err != nil || info.Size() == 0 {
		return Artifact{}, services.Wrap(services.ErrProcessing, "processing", string(plan.Operation), "engine produced no output", nil)
	}
	summary, err := e.probe(ctx, plan.Output)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrProcessing, "processing", "probe", "output could not be inspected", errors.New(e.Sanitizer(ws).Redact(err.Error())))
	}
	if !summary.HasVideo && !summary.HasAudio {
		return Artifact{}, services.Wrap(services.ErrProcessing, "processing", "probe", "output has no media streams", nil)
	}

	if plan.ExpectedDurationMs > 0 && e.tolerance > 0 {
		drift := time.Duration(summary.DurationMs-plan.ExpectedDurationMs) * time.Millisecond
		if drift < 0 {
			drift = -drift
		}
		if drift > e.tolerance {
			logging.WarnWithContext(logger, "output duration differs from plan", "duration_mismatch",
				logging.Int64("expected_ms", plan.ExpectedDurationMs),
				logging.Int64("actual_ms", summary.DurationMs),
				logging.Duration("tolerance", e.tolerance),
				logging.String(logging.FieldImpact, "output is uploaded as produced"),
			)
		}
	}

	e.emit(ctx, events, progress.Event{
		JobID:       ws.JobID,
		Percent:     progress.UploadStart,
		CurrentStep: "processed",
		Message:     "Processing complete",
	})
	return Artifact{
		Path:         plan.Output,
		DurationMs:   summary.DurationMs,
		CodecSummary: summary.CodecSummary(),
		Summary:      summary,
	}, nil
}

func (e *Executor) emit(ctx context.Context, events chan<- progress.Event, ev progress.Event) {
	if events == nil {
		return
	}
	if ev.UpdatedAt.IsZero() {
		ev.UpdatedAt = time.Now().UTC()
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
