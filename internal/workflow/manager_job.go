package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reelsmith/internal/executor"
	"reelsmith/internal/logging"
	"reelsmith/internal/mediastore"
	"reelsmith/internal/ops"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/progress"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

// outcome is what one job run produced, success or not.
type outcome struct {
	resultRef string
	artifact  executor.Artifact
	err       error
}

func (m *Manager) processTask(ctx context.Context, worker string, logger *slog.Logger, task *queue.Task) {
	// The task stays claimed until the job is terminal so a crash mid-job
	// leaves it for orphan recovery.
	defer func() {
		if err := m.store.FinishTask(ctx, task.ID); err != nil {
			logger.Warn("failed to close task",
				logging.Int64("task_id", task.ID),
				logging.String(logging.FieldJobID, task.JobID),
				logging.Error(err),
			)
		}
	}()

	job, err := m.store.Get(ctx, task.JobID)
	if err != nil {
		m.setLastError(err)
		logging.ErrorWithContext(logger, "failed to load job for task", "job_load_failed",
			logging.String(logging.FieldJobID, task.JobID),
			logging.Error(err),
		)
		return
	}
	if job == nil || job.Status != queue.StatusQueued {
		status := "missing"
		if job != nil {
			status = string(job.Status)
		}
		logger.Warn("skipping task for job that is not queued",
			logging.String(logging.FieldJobID, task.JobID),
			logging.String("status", status),
		)
		return
	}

	ctx = withJobContext(ctx, job)
	jobLogger := logging.WithContext(ctx, logger)

	m.trackActive(job.ID, worker)
	started := time.Now().UTC()
	jobLogger.Info("job claimed",
		logging.String(logging.FieldEventType, "job_claimed"),
		logging.Strings("inputs", job.Inputs),
	)

	events := make(chan progress.Event, 16)
	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		m.reporter.Consume(ctx, events)
	}()

	result := m.execute(ctx, jobLogger, job, task, events)
	close(events)
	consumer.Wait()
	m.reporter.Forget(job.ID)

	finished := time.Now().UTC()
	final := m.finish(ctx, jobLogger, job, result)
	m.jobLog.Write(logging.JobRecord{
		RequestID:  job.RequestID,
		JobID:      job.ID,
		Operation:  string(job.Operation),
		Inputs:     job.Inputs,
		StartedAt:  started,
		FinishedAt: finished,
		ExitCode:   executor.ExitCode(result.err),
		Status:     string(final.Status),
		Message:    final.message(),
	})
	m.untrackActive(job.ID, final.job)
	m.notifyTerminal(ctx, jobLogger, final)
}

// execute drives one job from downloading to the uploaded result. It does not
// record the terminal state.
func (m *Manager) execute(ctx context.Context, logger *slog.Logger, job *queue.Job, task *queue.Task, events chan<- progress.Event) outcome {
	desc, err := m.resolveTask(job, task)
	if err != nil {
		return outcome{err: err}
	}

	if err := m.enterStage(ctx, logger, job.ID, queue.StatusDownloading); err != nil {
		return outcome{err: err}
	}
	ws, err := executor.OpenWorkspace(m.cfg.Paths.WorkDir, job.ID)
	if err != nil {
		return outcome{err: services.Wrap(services.ErrInternal, "download", "workspace", "open workspace", err)}
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			logger.Warn("failed to remove workspace",
				logging.String("workspace", ws.Dir),
				logging.Error(cerr),
			)
		}
	}()

	refs, err := m.download(withStage(ctx, queue.StatusDownloading), logger, ws, desc, events)
	if err != nil {
		return outcome{err: err}
	}

	plan, err := m.registry.Build(desc, refs, ws.Dir, m.defaults)
	if err != nil {
		return outcome{err: err}
	}
	logger.Info("plan built",
		logging.Int("steps", len(plan.Steps)),
		logging.Int64("expected_duration_ms", plan.ExpectedDurationMs),
	)

	if err := m.enterStage(ctx, logger, job.ID, queue.StatusProcessing); err != nil {
		return outcome{err: err}
	}
	artifact, err := m.executor.Run(withStage(ctx, queue.StatusProcessing), ws, plan, events)
	if err != nil {
		return outcome{err: err}
	}

	if err := m.enterStage(ctx, logger, job.ID, queue.StatusUploading); err != nil {
		return outcome{artifact: artifact, err: err}
	}
	send(ctx, events, progress.Event{
		JobID:       job.ID,
		Percent:     progress.UploadStart,
		CurrentStep: "upload",
		Message:     "uploading result",
	})
	ref, err := m.media.Store(withStage(ctx, queue.StatusUploading), artifact.Path, mediastore.Metadata{
		JobID:        job.ID,
		Operation:    string(desc.Operation),
		Inputs:       desc.MediaIDs(),
		DurationMs:   artifact.DurationMs,
		CodecSummary: artifact.CodecSummary,
		Extra:        job.Metadata,
	})
	if err != nil {
		return outcome{artifact: artifact, err: err}
	}
	logger.Info("result stored",
		logging.String(logging.FieldEventType, "result_stored"),
		logging.String("result_media_id", ref),
		logging.Int64("duration_ms", artifact.DurationMs),
		logging.String("codecs", artifact.CodecSummary),
	)
	return outcome{resultRef: ref, artifact: artifact}
}

// resolveTask maps the claimed task onto its planner and descriptor. The
// task name and payload must agree with the job they reference.
func (m *Manager) resolveTask(job *queue.Job, task *queue.Task) (ops.Descriptor, error) {
	op, err := task.Operation()
	if err != nil {
		return ops.Descriptor{}, services.Wrap(services.ErrInternal, "plan", task.Name, "resolve task", err)
	}
	if op != job.Operation {
		return ops.Descriptor{}, services.Wrap(services.ErrInternal, "plan", task.Name,
			fmt.Sprintf("task does not match job operation %q", job.Operation), nil)
	}
	if !m.registry.Has(op) {
		return ops.Descriptor{}, services.Wrap(services.ErrInternal, "plan", string(op), "no planner registered", nil)
	}
	desc, err := ops.Decode(task.Payload)
	if err != nil {
		return ops.Descriptor{}, services.Wrap(services.ErrInternal, "plan", string(op), "decode task payload", err)
	}
	if desc.Operation != op {
		return ops.Descriptor{}, services.Wrap(services.ErrInternal, "plan", string(op),
			fmt.Sprintf("task payload describes %q", desc.Operation), nil)
	}
	return desc, nil
}

// download fetches and probes every referenced input concurrently.
func (m *Manager) download(ctx context.Context, logger *slog.Logger, ws *executor.Workspace, desc ops.Descriptor, events chan<- progress.Event) (pipeline.Refs, error) {
	ids := desc.MediaIDs()
	send(ctx, events, progress.Event{
		JobID:       ws.JobID,
		Percent:     progress.DownloadStart,
		CurrentStep: "download",
		Message:     fmt.Sprintf("fetching %d input(s)", len(ids)),
	})

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		refs = make(pipeline.Refs, len(ids))
		errs = make([]error, len(ids))
		done int
	)
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := m.fetchOne(ctx, ws, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[i] = err
				return
			}
			refs[id] = ref
			done++
			send(ctx, events, progress.Event{
				JobID:       ws.JobID,
				Percent:     progress.Scale(progress.DownloadStart, progress.ProcessingStart, float64(done), float64(len(ids))),
				CurrentStep: "download",
				Message:     fmt.Sprintf("fetched %d/%d", done, len(ids)),
			})
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	logger.Info("inputs ready", logging.Int("inputs", len(refs)))
	return refs, nil
}

func (m *Manager) fetchOne(ctx context.Context, ws *executor.Workspace, id string) (pipeline.MediaReference, error) {
	path, err := m.media.Fetch(ctx, id, ws.Dir)
	if err != nil {
		return pipeline.MediaReference{}, err
	}
	summary, err := m.executor.Probe(ctx, path)
	if err != nil {
		return pipeline.MediaReference{}, services.Wrap(services.ErrMediaFetch, "download", "probe", id+": unreadable media", err)
	}
	return pipeline.MediaReference{
		MediaID:      id,
		LocalPath:    path,
		DurationMs:   summary.DurationMs,
		CodecSummary: summary.CodecSummary(),
		Width:        summary.Width,
		Height:       summary.Height,
		HasVideo:     summary.HasVideo,
		HasAudio:     summary.HasAudio,
		AudioStreams: summary.AudioStreams,
	}, nil
}

func (m *Manager) enterStage(ctx context.Context, logger *slog.Logger, jobID string, status queue.Status) error {
	if err := m.store.Transition(ctx, jobID, status); err != nil {
		return services.Wrap(services.ErrInternal, string(status), "transition", "persist status", err)
	}
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldStage, string(status)),
	)
	return nil
}

// send delivers ev unless ctx is done.
func send(ctx context.Context, events chan<- progress.Event, ev progress.Event) {
	if ev.UpdatedAt.IsZero() {
		ev.UpdatedAt = time.Now().UTC()
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
