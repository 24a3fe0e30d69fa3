package queue

import (
	"database/sql"
	"errors"
	"time"
)

const taskColumns = "id, message_id, channel_id, book_id, file_name, file_size, priority, status, retry_count, scheduled_for, started_at, completed_at, error_message, progress_stage, progress_percent, progress_message, last_heartbeat, created_at, updated_at"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id              int64
		messageID       int64
		channelID       int64
		bookID          sql.NullInt64
		fileName        sql.NullString
		fileSize        int64
		priority        int
		statusStr       string
		retryCount      int
		scheduledRaw    sql.NullString
		startedRaw      sql.NullString
		completedRaw    sql.NullString
		errorMessage    sql.NullString
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		heartbeatRaw    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&messageID,
		&channelID,
		&bookID,
		&fileName,
		&fileSize,
		&priority,
		&statusStr,
		&retryCount,
		&scheduledRaw,
		&startedRaw,
		&completedRaw,
		&errorMessage,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&heartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:              id,
		MessageID:       messageID,
		ChannelID:       channelID,
		BookID:          bookID.Int64,
		FileName:        fileName.String,
		FileSize:        fileSize,
		Priority:        priority,
		Status:          Status(statusStr),
		RetryCount:      retryCount,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}

	if scheduled, err := parseTimeString(scheduledRaw.String); err == nil {
		task.ScheduledFor = scheduled
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			task.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			task.CompletedAt = &completed
		}
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			task.LastHeartbeat = &heartbeat
		}
	}
	return task, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
