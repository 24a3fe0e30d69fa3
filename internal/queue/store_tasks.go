package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EnqueueParams describes a channel message to be synced.
type EnqueueParams struct {
	MessageID int64
	ChannelID int64
	BookID    int64 // optional, zero leaves the task unbound
	FileName  string
	FileSize  int64
	Priority  int
}

// Enqueue inserts a new pending task for a channel message, due immediately.
// While a pending or processing task for the same (message, channel) pair
// exists the call is idempotent: the existing task is returned unchanged and
// created is false. Terminal tasks do not block re-enqueueing.
func (s *Store) Enqueue(ctx context.Context, params EnqueueParams) (task *Task, created bool, err error) {
	if params.MessageID <= 0 {
		return nil, false, errors.New("message id must be positive")
	}
	if params.ChannelID == 0 {
		return nil, false, errors.New("channel id is required")
	}

	if existing, findErr := s.FindActive(ctx, params.MessageID, params.ChannelID); findErr != nil {
		return nil, false, findErr
	} else if existing != nil {
		return existing, false, nil
	}

	now := time.Now().UTC()
	timestamp := formatTime(now)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO sync_tasks (
            message_id, channel_id, book_id, file_name, file_size, priority,
            status, retry_count, scheduled_for, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		params.MessageID,
		params.ChannelID,
		nullableInt64(params.BookID),
		nullableString(params.FileName),
		params.FileSize,
		params.Priority,
		StatusPending,
		timestamp,
		timestamp,
		timestamp,
	)
	if err != nil {
		// The partial unique index closes the lookup/insert race; fall back
		// to the winning row instead of surfacing the constraint error.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			existing, findErr := s.FindActive(ctx, params.MessageID, params.ChannelID)
			if findErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}

	task, err = s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return task, true, nil
}

// GetByID fetches a task by identifier. Returns nil when no task exists.
func (s *Store) GetByID(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM sync_tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// FindActive returns the pending or processing task for a channel message,
// or nil when none exists.
func (s *Store) FindActive(ctx context.Context, messageID, channelID int64) (*Task, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+taskColumns+` FROM sync_tasks
         WHERE message_id = ? AND channel_id = ? AND status IN (?, ?)
         ORDER BY id LIMIT 1`,
		messageID,
		channelID,
		StatusPending,
		StatusProcessing,
	)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active task: %w", err)
	}
	return task, nil
}

// List returns tasks filtered by status, newest first. With no statuses all
// tasks are returned.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM sync_tasks`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan task: %w", scanErr)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Update persists all mutable fields of an existing task.
func (s *Store) Update(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task is nil")
	}
	task.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE sync_tasks
         SET book_id = ?, file_name = ?, file_size = ?, priority = ?, status = ?,
             retry_count = ?, scheduled_for = ?, started_at = ?, completed_at = ?,
             error_message = ?, progress_stage = ?, progress_percent = ?,
             progress_message = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		nullableInt64(task.BookID),
		nullableString(task.FileName),
		task.FileSize,
		task.Priority,
		task.Status,
		task.RetryCount,
		formatTime(task.ScheduledFor),
		nullableTime(task.StartedAt),
		nullableTime(task.CompletedAt),
		nullableString(task.ErrorMessage),
		nullableString(task.ProgressStage),
		task.ProgressPercent,
		nullableString(task.ProgressMessage),
		nullableTime(task.LastHeartbeat),
		formatTime(task.UpdatedAt),
		task.ID,
	); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ClaimNextDue atomically moves the next due pending task to processing and
// returns it. Eligibility requires scheduled_for at or before now; candidates
// are ordered by priority descending, then due time, then insertion order.
// Returns nil when nothing is due.
func (s *Store) ClaimNextDue(ctx context.Context, now time.Time) (*Task, error) {
	nowUTC := now.UTC()
	for {
		var id int64
		row := s.db.QueryRowContext(
			ctx,
			`SELECT id FROM sync_tasks
             WHERE status = ? AND datetime(scheduled_for) <= datetime(?)
             ORDER BY priority DESC, datetime(scheduled_for) ASC, id ASC
             LIMIT 1`,
			StatusPending,
			formatTime(nowUTC),
		)
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("select due task: %w", err)
		}

		timestamp := formatTime(time.Now().UTC())
		res, err := s.execWithRetry(
			ctx,
			`UPDATE sync_tasks
             SET status = ?, started_at = ?, last_heartbeat = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusProcessing,
			timestamp,
			timestamp,
			timestamp,
			id,
			StatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("claim task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim rows affected: %w", err)
		}
		if affected == 0 {
			// Lost the row to a concurrent claim; pick the next candidate.
			continue
		}
		return s.GetByID(ctx, id)
	}
}

// Remove deletes a task unless it is currently processing.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM sync_tasks WHERE id = ? AND status != ?`,
		id,
		StatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("remove task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ClearCompleted deletes all completed tasks and reports how many were removed.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM sync_tasks WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed tasks: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed deletes all failed tasks and reports how many were removed.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM sync_tasks WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed tasks: %w", err)
	}
	return res.RowsAffected()
}

// Clear deletes every task that is not currently processing.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM sync_tasks WHERE status != ?`, StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("clear tasks: %w", err)
	}
	return res.RowsAffected()
}
