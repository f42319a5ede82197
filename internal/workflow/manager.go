package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/engine"
	"reelsmith/internal/executor"
	"reelsmith/internal/logging"
	"reelsmith/internal/mediastore"
	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/progress"
	"reelsmith/internal/queue"
)

// JobStore is the persistence surface the manager needs.
type JobStore interface {
	progress.Store
	Get(ctx context.Context, id string) (*queue.Job, error)
	Transition(ctx context.Context, id string, to queue.Status) error
	Complete(ctx context.Context, id, resultRef, message string) error
	Fail(ctx context.Context, id, message, kind string) error
	ClaimNext(ctx context.Context, worker string) (*queue.Task, error)
	FinishTask(ctx context.Context, taskID int64) error
	Stats(ctx context.Context) (map[queue.Status]int, error)
}

// MediaStore fetches inputs and stores outputs.
type MediaStore interface {
	Fetch(ctx context.Context, id, dir string) (string, error)
	Store(ctx context.Context, path string, meta mediastore.Metadata) (string, error)
}

// Dependencies are the collaborators a Manager drives.
type Dependencies struct {
	Media    MediaStore
	Runner   engine.Runner
	Notifier notifications.Service
	Registry *pipeline.Registry
	Probe    executor.ProbeFunc
	// JobLog receives one JSON line per finished job. Nil drops them.
	JobLog   *logging.JobLog
}

// Manager coordinates the worker pool.
type Manager struct {
	cfg           *config.Config
	store         JobStore
	logger        *slog.Logger
	pollInterval  time.Duration
	retryInterval time.Duration
	workers       int

	media    MediaStore
	notifier notifications.Service
	registry *pipeline.Registry
	executor *executor.Executor
	reporter *progress.Reporter
	jobLog   *logging.JobLog
	defaults pipeline.Defaults

	wake chan struct{}

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	active  map[string]string
	lastErr error
	lastJob *queue.Job
}

// NewManager constructs a manager. Missing optional dependencies fall back
// to the default registry and a no-op notifier.
func NewManager(cfg *config.Config, store JobStore, deps Dependencies, logger *slog.Logger) (*Manager, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("workflow: config and store are required")
	}
	if deps.Media == nil || deps.Runner == nil {
		return nil, errors.New("workflow: media store and engine runner are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = pipeline.DefaultRegistry()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	exec := executor.New(cfg, deps.Runner, logger).WithProbe(deps.Probe)

	workers := max(cfg.Workflow.Workers, 1)
	return &Manager{
		cfg:           cfg,
		store:         store,
		logger:        logger,
		pollInterval:  cfg.PollInterval(),
		retryInterval: cfg.ErrorRetryInterval(),
		workers:       workers,
		media:         deps.Media,
		notifier:      notifier,
		registry:      registry,
		executor:      exec,
		reporter:      progress.NewReporter(store, notifier, logger),
		jobLog:        deps.JobLog,
		defaults:      pipeline.DefaultsFromConfig(cfg.Encoding),
		wake:          make(chan struct{}, workers),
		active:        make(map[string]string),
	}, nil
}

// Notify wakes an idle worker after a local enqueue.
func (m *Manager) Notify() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
