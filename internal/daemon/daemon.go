package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
	"reelsmith/internal/deps"
	"reelsmith/internal/gateway"
	"reelsmith/internal/logging"
	"reelsmith/internal/preflight"
	"reelsmith/internal/queue"
	"reelsmith/internal/workflow"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	workflow  *workflow.Manager
	describer gateway.Describer

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc

	mu     sync.RWMutex
	deps   []deps.Status
	checks []preflight.Result
}

// New constructs a daemon with initialized dependencies. describer may be nil
// when submission preflight is disabled.
func New(cfg *config.Config, store *queue.Store, wf *workflow.Manager, describer gateway.Describer, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		workflow:  wf,
		describer: describer,
		lockPath:  cfg.LockPath(),
		lock:      flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, recovers orphaned jobs and launches the
// workers and the gateway.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelsmith daemon instance is already running")
	}

	if n, err := d.store.FailOrphaned(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("recover orphaned jobs: %w", err)
	} else if n > 0 {
		logging.WarnWithContext(d.logger, "failed jobs left in flight by a previous run", "orphans_failed",
			logging.Int64("jobs", n),
			logging.String(logging.FieldImpact, "these jobs must be resubmitted"),
		)
	}

	d.runChecks(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(); err != nil {
		cancel()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("reelsmith daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()),
	)
	return nil
}

// Stop stops the gateway, waits for in-flight jobs and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("reelsmith daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the gateway listen address, empty when it is not listening.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

func (d *Daemon) runChecks(ctx context.Context) {
	statuses := deps.CheckBinaries(ctx, deps.EngineRequirements(d.cfg))
	client := &http.Client{Timeout: d.cfg.MediaStoreTimeout()}
	results := preflight.RunAll(ctx, d.cfg, client)

	for _, missing := range deps.Missing(statuses) {
		logging.WarnWithContext(d.logger, "required binary unavailable", "dependency_missing",
			logging.String("dependency", missing.Name),
			logging.String("detail", missing.Detail),
			logging.String(logging.FieldImpact, "jobs will fail at the processing stage"),
			logging.String(logging.FieldErrorHint, "install it or set the [engine] binary paths"),
		)
	}
	for _, failed := range preflight.Failed(results) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
		)
	}

	d.mu.Lock()
	d.deps = statuses
	d.checks = results
	d.mu.Unlock()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	d.mu.RLock()
	statuses := d.deps
	results := d.checks
	d.mu.RUnlock()

	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Workflow:     api.FromStatusSummary(d.workflow.Status(ctx)),
		Dependencies: make([]api.DependencyStatus, 0, len(statuses)),
		Checks:       make([]api.CheckStatus, 0, len(results)),
	}
	for _, dep := range statuses {
		status.Dependencies = append(status.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	for _, r := range results {
		status.Checks = append(status.Checks, api.CheckStatus{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return status
}
