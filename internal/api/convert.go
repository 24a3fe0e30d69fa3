package api

import (
	"time"

	"shelfsync/internal/catalog"
	"shelfsync/internal/queue"
	"shelfsync/internal/relevance"
	"shelfsync/internal/sweep"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}

// FromTask converts a queue task to its transport representation.
func FromTask(task *queue.Task) Task {
	if task == nil {
		return Task{}
	}
	return Task{
		ID:           task.ID,
		MessageID:    task.MessageID,
		ChannelID:    task.ChannelID,
		BookID:       task.BookID,
		FileName:     task.FileName,
		FileSize:     task.FileSize,
		Priority:     task.Priority,
		Status:       string(task.Status),
		RetryCount:   task.RetryCount,
		ScheduledFor: formatTime(task.ScheduledFor),
		StartedAt:    formatTimePtr(task.StartedAt),
		CompletedAt:  formatTimePtr(task.CompletedAt),
		ErrorMessage: task.ErrorMessage,
		Progress: TaskProgress{
			Stage:   task.ProgressStage,
			Percent: task.ProgressPercent,
			Message: task.ProgressMessage,
		},
		CreatedAt: formatTime(task.CreatedAt),
		UpdatedAt: formatTime(task.UpdatedAt),
	}
}

// FromTasks converts a slice of queue tasks.
func FromTasks(tasks []*queue.Task) []Task {
	if len(tasks) == 0 {
		return nil
	}
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, FromTask(task))
	}
	return out
}

// FromBook converts a catalog book to its transport representation.
func FromBook(book *catalog.Book) Book {
	if book == nil {
		return Book{}
	}
	return Book{
		ID:            book.ID,
		Title:         book.Title,
		Author:        book.Author,
		FileMessageID: book.FileMessageID,
		FileChannelID: book.FileChannelID,
		FileName:      book.FileName,
		FileSize:      book.FileSize,
		FileURL:       book.FileURL,
		FileBoundAt:   formatTimePtr(book.FileBoundAt),
	}
}

// FromMatch converts a ranked relevance match.
func FromMatch(match relevance.Match) Match {
	return Match{
		BookID:       match.Candidate.ID,
		Title:        match.Candidate.Title,
		Author:       match.Candidate.Author,
		Score:        match.Score,
		MatchedWords: match.MatchedWords.Words(),
	}
}

// FromMatches converts a slice of ranked matches, preserving order.
func FromMatches(matches []relevance.Match) []Match {
	if len(matches) == 0 {
		return nil
	}
	out := make([]Match, 0, len(matches))
	for _, match := range matches {
		out = append(out, FromMatch(match))
	}
	return out
}

// FromSweepReport converts a sweep report for transport.
func FromSweepReport(report *sweep.Report) SweepReport {
	if report == nil {
		return SweepReport{}
	}
	out := SweepReport{
		ScannedFiles: report.ScannedFiles,
		BoundSkipped: report.BoundSkipped,
		UnboundBooks: report.UnboundBooks,
		AutoEnqueued: report.AutoEnqueued,
	}
	for _, entry := range report.Files {
		out.Files = append(out.Files, SweepFile{
			MessageID:     entry.File.MessageID,
			ChannelID:     entry.File.ChannelID,
			FileName:      entry.File.FileName,
			FileSize:      entry.File.FileSize,
			Candidates:    FromMatches(entry.Candidates),
			AutoEnqueued:  entry.AutoEnqueued,
			AlreadyQueued: entry.AlreadyQueued,
			TaskID:        entry.TaskID,
		})
	}
	return out
}

// MergeQueueStats renders queue stats with every known status present.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	merged := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		merged[string(status)] = stats[status]
	}
	return merged
}

// FromCatalogStats converts catalog counters.
func FromCatalogStats(stats catalog.Stats) CatalogStats {
	return CatalogStats{Total: stats.Total, Bound: stats.Bound, Unbound: stats.Unbound}
}
