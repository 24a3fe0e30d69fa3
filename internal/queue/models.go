package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a sync task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status is final. Terminal tasks never return
// to the worker and do not block re-enqueueing the same channel message.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task represents a sync task persisted in SQLite. A task binds one channel
// message (an unlabeled file) to at most one catalog book.
type Task struct {
	ID              int64
	MessageID       int64
	ChannelID       int64
	BookID          int64 // zero when the task is not bound to a book yet
	FileName        string
	FileSize        int64
	Priority        int
	Status          Status
	RetryCount      int
	ScheduledFor    time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	ErrorMessage    string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SetProgress updates all three progress fields together.
func (t *Task) SetProgress(stage, message string, percent float64) {
	t.ProgressStage = stage
	t.ProgressMessage = message
	t.ProgressPercent = percent
}

// SetCompleted marks the task as successfully bound.
func (t *Task) SetCompleted(message string) {
	now := time.Now().UTC()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	t.ErrorMessage = ""
	t.LastHeartbeat = nil
	t.SetProgress("Done", message, 100)
}

// SetFailed marks the task as permanently failed with the given message.
func (t *Task) SetFailed(message string) {
	now := time.Now().UTC()
	t.Status = StatusFailed
	t.CompletedAt = &now
	t.ErrorMessage = message
	t.LastHeartbeat = nil
	t.SetProgress("Failed", message, 0)
}

// ScheduleRetry returns the task to pending with an incremented attempt
// counter and a future due time. The retry budget is enforced by the caller.
func (t *Task) ScheduleRetry(at time.Time, message string) {
	t.Status = StatusPending
	t.RetryCount++
	t.ScheduledFor = at.UTC()
	t.ErrorMessage = message
	t.LastHeartbeat = nil
	t.SetProgress("Waiting", message, 0)
}

// Release returns an interrupted task to pending without consuming a retry.
// Used on daemon shutdown so cancellation is not charged against the budget.
func (t *Task) Release() {
	t.Status = StatusPending
	t.StartedAt = nil
	t.LastHeartbeat = nil
	t.SetProgress("", "", 0)
}

// HealthSummary describes aggregated task counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalTasks       int
	Error            string
}
