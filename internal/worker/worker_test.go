package worker_test

import (
	"context"
	"testing"
	"time"

	"shelfsync/internal/binder"
	"shelfsync/internal/config"
	"shelfsync/internal/queue"
	"shelfsync/internal/services"
	"shelfsync/internal/testsupport"
	"shelfsync/internal/worker"
)

type fakeBinder struct {
	results chan error
	started chan int64
}

func newFakeBinder() *fakeBinder {
	return &fakeBinder{
		results: make(chan error, 16),
		started: make(chan int64, 16),
	}
}

func (f *fakeBinder) Bind(ctx context.Context, task *queue.Task, progress binder.ProgressFunc) error {
	f.started <- task.ID
	select {
	case err := <-f.results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func testConfig(t *testing.T) *config.Config {
	return testsupport.NewConfig(t, func(cfg *config.Config) {
		cfg.Sync.MaxRetries = 2
		cfg.Sync.PollInterval = 1
		cfg.Sync.ErrorRetryInterval = 1
		cfg.Sync.FetchTimeout = 30
		cfg.Sync.HeartbeatInterval = 1
		cfg.Sync.HeartbeatTimeout = 60
	})
}

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	return testsupport.MustOpenQueue(t, testConfig(t))
}

func waitForTask(t *testing.T, store *queue.Store, id int64, cond func(*queue.Task) bool) *queue.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get task: %v", err)
		}
		if task != nil && cond(task) {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	task, _ := store.GetByID(context.Background(), id)
	t.Fatalf("task %d never reached expected state, last: %+v", id, task)
	return nil
}

func startWorker(t *testing.T, store *queue.Store, b worker.TaskBinder) *worker.Worker {
	t.Helper()
	w := worker.New(store, b, testConfig(t), nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start worker: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWorkerCompletesTask(t *testing.T) {
	store := openStore(t)
	fake := newFakeBinder()
	fake.results <- nil

	task, _, err := store.Enqueue(context.Background(), queue.EnqueueParams{MessageID: 1, ChannelID: -1, BookID: 10})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	startWorker(t, store, fake)

	done := waitForTask(t, store, task.ID, func(task *queue.Task) bool {
		return task.Status == queue.StatusCompleted
	})
	if done.CompletedAt == nil {
		t.Fatal("completed task missing completed_at")
	}
	if done.ErrorMessage != "" {
		t.Fatalf("completed task carries error %q", done.ErrorMessage)
	}
}

func TestWorkerReschedulesTransientFailure(t *testing.T) {
	store := openStore(t)
	fake := newFakeBinder()
	fake.results <- services.Wrap(services.ErrTransient, "telegram", "download", "connection reset", nil)

	task, _, err := store.Enqueue(context.Background(), queue.EnqueueParams{MessageID: 1, ChannelID: -1, BookID: 10})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	startWorker(t, store, fake)

	rescheduled := waitForTask(t, store, task.ID, func(task *queue.Task) bool {
		return task.Status == queue.StatusPending && task.RetryCount == 1
	})
	delay := time.Until(rescheduled.ScheduledFor)
	if delay < 20*time.Second || delay > 40*time.Second {
		t.Fatalf("backoff delay = %s, want about 30s", delay)
	}
	if rescheduled.ErrorMessage == "" {
		t.Fatal("reschedule must record the error")
	}
}

func TestWorkerHonorsThrottleDelay(t *testing.T) {
	store := openStore(t)
	fake := newFakeBinder()
	fake.results <- &services.ThrottledError{RetryAfter: 120 * time.Second, Operation: "getFile"}

	task, _, err := store.Enqueue(context.Background(), queue.EnqueueParams{MessageID: 1, ChannelID: -1, BookID: 10})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	startWorker(t, store, fake)

	rescheduled := waitForTask(t, store, task.ID, func(task *queue.Task) bool {
		return task.Status == queue.StatusPending && task.RetryCount == 1
	})
	// 120s mandated wait plus the configured 10s margin.
	delay := time.Until(rescheduled.ScheduledFor)
	if delay < 115*time.Second || delay > 135*time.Second {
		t.Fatalf("throttle delay = %s, want about 130s", delay)
	}
}

func TestWorkerFailsValidationImmediately(t *testing.T) {
	store := openStore(t)
	fake := newFakeBinder()
	fake.results <- services.Wrap(services.ErrValidation, "binder", "bind", "book already bound", nil)

	task, _, err := store.Enqueue(context.Background(), queue.EnqueueParams{MessageID: 1, ChannelID: -1, BookID: 10})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	startWorker(t, store, fake)

	failed := waitForTask(t, store, task.ID, func(task *queue.Task) bool {
		return task.Status == queue.StatusFailed
	})
	if failed.RetryCount != 0 {
		t.Fatalf("validation failure consumed retries: %d", failed.RetryCount)
	}
}

func TestWorkerExhaustsRetryBudget(t *testing.T) {
	store := openStore(t)
	fake := newFakeBinder()
	transient := services.Wrap(services.ErrTransient, "telegram", "download", "flaky", nil)
	fake.results <- transient

	task, _, err := store.Enqueue(context.Background(), queue.EnqueueParams{MessageID: 1, ChannelID: -1, BookID: 10})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Pre-consume the budget so the next failure is the last allowed attempt.
	claimed, err := store.ClaimNextDue(context.Background(), time.Now().UTC())
	if err != nil || claimed == nil {
		t.Fatalf("claim: task=%v err=%v", claimed, err)
	}
	claimed.RetryCount = 2
	claimed.Status = queue.StatusPending
	claimed.ScheduledFor = time.Now().UTC()
	if err := store.Update(context.Background(), claimed); err != nil {
		t.Fatalf("update: %v", err)
	}

	startWorker(t, store, fake)

	failed := waitForTask(t, store, task.ID, func(task *queue.Task) bool {
		return task.Status == queue.StatusFailed
	})
	if failed.RetryCount != 2 {
		t.Fatalf("retry count = %d, want 2", failed.RetryCount)
	}
	if failed.ErrorMessage == "" {
		t.Fatal("exhausted task must record the final error")
	}
}

func TestWorkerReleasesTaskOnShutdown(t *testing.T) {
	store := openStore(t)
	fake := newFakeBinder() // never produces a result, bind blocks until cancel

	task, _, err := store.Enqueue(context.Background(), queue.EnqueueParams{MessageID: 1, ChannelID: -1, BookID: 10})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	w := worker.New(store, fake, testConfig(t), nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-fake.started:
	case <-time.After(5 * time.Second):
		t.Fatal("bind never started")
	}
	w.Stop()

	released, err := store.GetByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if released.Status != queue.StatusPending {
		t.Fatalf("status after shutdown = %s, want pending", released.Status)
	}
	if released.RetryCount != 0 {
		t.Fatalf("shutdown consumed a retry: %d", released.RetryCount)
	}
	if released.StartedAt != nil || released.LastHeartbeat != nil {
		t.Fatal("released task must clear started_at and last_heartbeat")
	}
}

func TestWorkerResetsInterruptedTasksOnStart(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, _, err := store.Enqueue(ctx, queue.EnqueueParams{MessageID: 1, ChannelID: -1, BookID: 10}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	stuck, err := store.ClaimNextDue(ctx, time.Now().UTC())
	if err != nil || stuck == nil {
		t.Fatalf("claim: task=%v err=%v", stuck, err)
	}

	fake := newFakeBinder()
	fake.results <- nil
	startWorker(t, store, fake)

	waitForTask(t, store, stuck.ID, func(task *queue.Task) bool {
		return task.Status == queue.StatusCompleted
	})
}

func TestWorkerDoubleStart(t *testing.T) {
	store := openStore(t)
	w := worker.New(store, newFakeBinder(), testConfig(t), nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(w.Stop)
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("second start succeeded")
	}
}
