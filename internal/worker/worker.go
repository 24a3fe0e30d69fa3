// Package worker drains the sync queue. A single loop claims due tasks one
// at a time, runs the bind through a per-task timeout, and classifies
// failures into reschedule or permanent failure. Daemon shutdown releases
// the in-flight task back to pending without consuming a retry.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"shelfsync/internal/binder"
	"shelfsync/internal/config"
	"shelfsync/internal/logging"
	"shelfsync/internal/queue"
	"shelfsync/internal/retry"
	"shelfsync/internal/services"
)

// TaskBinder executes the bind step for a claimed task.
type TaskBinder interface {
	Bind(ctx context.Context, task *queue.Task, progress binder.ProgressFunc) error
}

// Worker processes sync tasks sequentially.
type Worker struct {
	store      *queue.Store
	binder     TaskBinder
	policy     retry.Policy
	heartbeat  *HeartbeatMonitor
	logger     *slog.Logger
	maxRetries int

	pollInterval       time.Duration
	errorRetryInterval time.Duration
	fetchTimeout       time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	lastErrMu sync.Mutex
	lastErr   error
}

// New creates a Worker wired from configuration.
func New(store *queue.Store, taskBinder TaskBinder, cfg *config.Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	seconds := func(v int) time.Duration { return time.Duration(v) * time.Second }
	return &Worker{
		store:  store,
		binder: taskBinder,
		policy: retry.NewPolicy(
			seconds(cfg.Sync.BackoffBase),
			seconds(cfg.Sync.BackoffCeiling),
			seconds(cfg.Sync.ThrottleMargin),
		),
		heartbeat: NewHeartbeatMonitor(store, logger,
			seconds(cfg.Sync.HeartbeatInterval),
			seconds(cfg.Sync.HeartbeatTimeout),
		),
		logger:             logging.NewComponentLogger(logger, "worker"),
		maxRetries:         cfg.Sync.MaxRetries,
		pollInterval:       seconds(cfg.Sync.PollInterval),
		errorRetryInterval: seconds(cfg.Sync.ErrorRetryInterval),
		fetchTimeout:       seconds(cfg.Sync.FetchTimeout),
	}
}

// Start begins background processing. Tasks stranded in processing by an
// earlier crash are demoted to pending before the loop starts.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	reset, err := w.store.ResetStuckProcessing(runCtx)
	if err != nil {
		w.logger.Warn("reset of interrupted tasks failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	} else if reset > 0 {
		w.logger.Info("requeued interrupted tasks", logging.Int64("count", reset))
	}

	go w.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the in-flight task to
// be released.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

// LastError returns the most recent loop-level failure, if any.
func (w *Worker) LastError() error {
	w.lastErrMu.Lock()
	defer w.lastErrMu.Unlock()
	return w.lastErr
}

func (w *Worker) setLastError(err error) {
	w.lastErrMu.Lock()
	w.lastErr = err
	w.lastErrMu.Unlock()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.heartbeat.ReclaimStale(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Warn("reclaim stale processing failed; stuck tasks may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
			)
		}

		task, err := w.store.ClaimNextDue(ctx, time.Now().UTC())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.setLastError(err)
			w.logger.Error("failed to claim next task",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_claim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			w.sleep(ctx, w.errorRetryInterval)
			continue
		}
		if task == nil {
			w.sleep(ctx, w.pollInterval)
			continue
		}

		w.processTask(ctx, task)
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (w *Worker) processTask(ctx context.Context, task *queue.Task) {
	logger := w.logger.With(
		logging.Int64(logging.FieldTaskID, task.ID),
		logging.Int64(logging.FieldMessageID, task.MessageID),
		logging.Int64(logging.FieldBookID, task.BookID),
		logging.String(logging.FieldCorrelationID, uuid.NewString()),
	)
	logger.Info("task claimed",
		logging.String("file", task.FileName),
		logging.Int("attempt", task.RetryCount+1),
	)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go w.heartbeat.StartLoop(hbCtx, &hbWG, task.ID)

	bindCtx := ctx
	var cancelBind context.CancelFunc
	if w.fetchTimeout > 0 {
		bindCtx, cancelBind = context.WithTimeout(ctx, w.fetchTimeout)
	}

	progress := func(stage, message string, percent float64) {
		task.SetProgress(stage, message, percent)
		if err := w.store.Update(bindCtx, task); err != nil {
			logger.Warn("progress update failed", logging.Error(err))
		}
	}

	bindErr := w.binder.Bind(bindCtx, task, progress)
	if cancelBind != nil {
		cancelBind()
	}
	stopHeartbeat()
	hbWG.Wait()

	w.settle(ctx, logger, task, bindErr)
}

// settle persists the task's terminal or rescheduled state. Uses a detached
// context so the outcome survives daemon shutdown.
func (w *Worker) settle(ctx context.Context, logger *slog.Logger, task *queue.Task, bindErr error) {
	updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch {
	case bindErr == nil:
		task.SetCompleted("File bound to book")
		logger.Info("task completed")

	case ctx.Err() != nil:
		// Shutdown, not a task failure. Hand the task back untouched.
		task.Release()
		logger.Info("task released on shutdown")

	case !services.IsRetryable(bindErr):
		task.SetFailed(bindErr.Error())
		logger.Error("task failed permanently", logging.Error(bindErr))

	case task.RetryCount >= w.maxRetries:
		task.SetFailed("retry budget exhausted: " + bindErr.Error())
		logger.Error("task failed after exhausting retries",
			logging.Error(bindErr),
			logging.Int("attempts", task.RetryCount+1),
		)

	default:
		delay := w.policy.NextDelay(bindErr, task.RetryCount)
		task.ScheduleRetry(time.Now().UTC().Add(delay), bindErr.Error())
		logger.Warn("task rescheduled",
			logging.Error(bindErr),
			logging.Duration("delay", delay),
			logging.Int("attempt", task.RetryCount),
		)
	}

	if err := w.store.Update(updateCtx, task); err != nil {
		w.setLastError(err)
		logger.Error("failed to persist task outcome",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
}
