package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shelfsync/internal/catalog"
	"shelfsync/internal/config"
	"shelfsync/internal/logging"
	"shelfsync/internal/queue"
	"shelfsync/internal/sweep"
	"shelfsync/internal/worker"
)

// Daemon coordinates the background services and enforces single-instance
// execution through a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *queue.Store
	books   *catalog.Store
	worker  *worker.Worker
	sweeper *sweep.Sweeper

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	lastErrMu sync.Mutex
	lastErr   error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDBPath  string
	LockFilePath string
	QueueStats   map[queue.Status]int
	Catalog      catalog.Stats
	LastError    error
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, books *catalog.Store, w *worker.Worker, sweeper *sweep.Sweeper, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || books == nil || w == nil || sweeper == nil {
		return nil, errors.New("daemon requires config, stores, worker, and sweeper")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockFilePath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		books:    books,
		worker:   w,
		sweeper:  sweeper,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = server
	return d, nil
}

// Start acquires the daemon lock and launches the worker, the periodic
// sweeper, and the API listener.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("another shelfsync daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.worker.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.worker.Stop()
			_ = d.lock.Unlock()
			cancel()
			d.cancel = nil
			return err
		}
	}

	d.wg.Add(1)
	go d.runSweepLoop(runCtx)

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.worker.Stop()
	d.wg.Wait()
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var firstErr error
	if d.store != nil {
		firstErr = d.store.Close()
	}
	if d.books != nil {
		if err := d.books.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Daemon) runSweepLoop(ctx context.Context) {
	defer d.wg.Done()
	interval := time.Duration(d.cfg.Sync.SweepInterval) * time.Second
	if interval <= 0 {
		return
	}

	// One reconciliation right away so a restart catches up immediately.
	d.runSweep(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runSweep(ctx)
		}
	}
}

func (d *Daemon) runSweep(ctx context.Context) {
	if _, err := d.sweeper.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
		d.setLastError(err)
		d.logger.Warn("periodic sweep failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "sweep_failed"),
		)
	}
}

func (d *Daemon) setLastError(err error) {
	d.lastErrMu.Lock()
	d.lastErr = err
	d.lastErrMu.Unlock()
}

// LastError returns the most recent background failure, if any.
func (d *Daemon) LastError() error {
	d.lastErrMu.Lock()
	defer d.lastErrMu.Unlock()
	if d.lastErr != nil {
		return d.lastErr
	}
	return d.worker.LastError()
}

// APIAddr returns the bound management API address, or empty when disabled.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Sweep runs an on-demand reconciliation pass.
func (d *Daemon) Sweep(ctx context.Context) (*sweep.Report, error) {
	return d.sweeper.Sweep(ctx)
}

// MatchFile ranks a file name against unbound catalog books.
func (d *Daemon) MatchFile(ctx context.Context, fileName string) ([]Match, error) {
	matches, err := d.sweeper.Match(ctx, fileName)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(matches))
	for _, match := range matches {
		out = append(out, Match{
			BookID:       match.Candidate.ID,
			Title:        match.Candidate.Title,
			Author:       match.Candidate.Author,
			Score:        match.Score,
			MatchedWords: match.MatchedWords.Words(),
		})
	}
	return out, nil
}

// Match is a ranked candidate for a file name.
type Match struct {
	BookID       int64
	Title        string
	Author       string
	Score        int
	MatchedWords []string
}

// Enqueue adds a channel message to the sync queue.
func (d *Daemon) Enqueue(ctx context.Context, params queue.EnqueueParams) (*queue.Task, bool, error) {
	return d.store.Enqueue(ctx, params)
}

// ListQueue returns tasks filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Task, error) {
	return d.store.List(ctx, statuses...)
}

// RetryFailed resets failed tasks (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// RemoveTask deletes a task unless it is processing.
func (d *Daemon) RemoveTask(ctx context.Context, id int64) (bool, error) {
	return d.store.Remove(ctx, id)
}

// ClearQueue removes all non-processing tasks.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed tasks.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed tasks.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.setLastError(err)
	}
	catalogStats, err := d.books.CatalogStats(ctx)
	if err != nil {
		d.setLastError(err)
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		QueueStats:   stats,
		Catalog:      catalogStats,
		LastError:    d.LastError(),
	}
}
