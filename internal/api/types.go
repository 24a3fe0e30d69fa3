package api

// Task describes a sync task in a transport-friendly format.
type Task struct {
	ID           int64        `json:"id"`
	MessageID    int64        `json:"messageId"`
	ChannelID    int64        `json:"channelId"`
	BookID       int64        `json:"bookId,omitempty"`
	FileName     string       `json:"fileName,omitempty"`
	FileSize     int64        `json:"fileSize,omitempty"`
	Priority     int          `json:"priority"`
	Status       string       `json:"status"`
	RetryCount   int          `json:"retryCount"`
	ScheduledFor string       `json:"scheduledFor,omitempty"`
	StartedAt    string       `json:"startedAt,omitempty"`
	CompletedAt  string       `json:"completedAt,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	Progress     TaskProgress `json:"progress"`
	CreatedAt    string       `json:"createdAt,omitempty"`
	UpdatedAt    string       `json:"updatedAt,omitempty"`
}

// TaskProgress captures stage progress information for a task.
type TaskProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Book describes a catalog entry.
type Book struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author,omitempty"`
	FileMessageID int64  `json:"fileMessageId,omitempty"`
	FileChannelID int64  `json:"fileChannelId,omitempty"`
	FileName      string `json:"fileName,omitempty"`
	FileSize      int64  `json:"fileSize,omitempty"`
	FileURL       string `json:"fileUrl,omitempty"`
	FileBoundAt   string `json:"fileBoundAt,omitempty"`
}

// Match describes one ranked candidate for a file name.
type Match struct {
	BookID       int64    `json:"bookId"`
	Title        string   `json:"title"`
	Author       string   `json:"author,omitempty"`
	Score        int      `json:"score"`
	MatchedWords []string `json:"matchedWords,omitempty"`
}

// SweepFile describes one channel file examined by a sweep.
type SweepFile struct {
	MessageID     int64   `json:"messageId"`
	ChannelID     int64   `json:"channelId"`
	FileName      string  `json:"fileName,omitempty"`
	FileSize      int64   `json:"fileSize,omitempty"`
	Candidates    []Match `json:"candidates,omitempty"`
	AutoEnqueued  bool    `json:"autoEnqueued"`
	AlreadyQueued bool    `json:"alreadyQueued"`
	TaskID        int64   `json:"taskId,omitempty"`
}

// SweepReport summarizes a sweep run.
type SweepReport struct {
	ScannedFiles int         `json:"scannedFiles"`
	BoundSkipped int         `json:"boundSkipped"`
	UnboundBooks int         `json:"unboundBooks"`
	AutoEnqueued int         `json:"autoEnqueued"`
	Files        []SweepFile `json:"files,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	QueueStats   map[string]int `json:"queueStats"`
	Catalog      CatalogStats   `json:"catalog"`
	LastError    string         `json:"lastError,omitempty"`
}

// CatalogStats counts bound and unbound catalog entries.
type CatalogStats struct {
	Total   int `json:"total"`
	Bound   int `json:"bound"`
	Unbound int `json:"unbound"`
}

// TaskListResponse wraps a collection of tasks for API responses.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task Task `json:"task"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// MatchResponse wraps ranked candidates for an ad-hoc match query.
type MatchResponse struct {
	FileName string  `json:"fileName"`
	Matches  []Match `json:"matches"`
}

// EnqueueRequest asks the daemon to queue a channel message for binding.
type EnqueueRequest struct {
	MessageID int64  `json:"messageId"`
	ChannelID int64  `json:"channelId,omitempty"`
	BookID    int64  `json:"bookId,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	Priority  int    `json:"priority,omitempty"`
}

// EnqueueResponse reports the task backing an enqueue request.
type EnqueueResponse struct {
	Task    Task `json:"task"`
	Created bool `json:"created"`
}

// RetryResponse reports how many failed tasks were requeued.
type RetryResponse struct {
	Retried int64 `json:"retried"`
}

// RemoveResponse reports whether a task was deleted.
type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// ClearResponse reports how many tasks a bulk clear removed.
type ClearResponse struct {
	Removed int64 `json:"removed"`
}
