package sweep_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"shelfsync/internal/catalog"
	"shelfsync/internal/config"
	"shelfsync/internal/queue"
	"shelfsync/internal/services/telegram"
	"shelfsync/internal/sweep"
)

type fakeChannel struct {
	files []telegram.File
}

func (f *fakeChannel) ListRecentFiles(ctx context.Context, limit int) ([]telegram.File, error) {
	if limit > 0 && limit < len(f.files) {
		return f.files[:limit], nil
	}
	return f.files, nil
}

func (f *fakeChannel) FindFile(ctx context.Context, messageID int64) (*telegram.File, error) {
	for _, file := range f.files {
		if file.MessageID == messageID {
			return &file, nil
		}
	}
	return nil, nil
}

func (f *fakeChannel) FetchFile(ctx context.Context, file telegram.File) (io.ReadCloser, error) {
	return nil, io.EOF
}

func newFixture(t *testing.T, files ...telegram.File) (*sweep.Sweeper, *catalog.Store, *queue.Store) {
	t.Helper()
	dir := t.TempDir()
	books, err := catalog.OpenPath(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = books.Close() })

	tasks, err := queue.OpenPath(filepath.Join(dir, "queue.db"))
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	t.Cleanup(func() { _ = tasks.Close() })

	cfg := config.Default()
	sweeper := sweep.New(&fakeChannel{files: files}, books, tasks, &cfg, nil)
	return sweeper, books, tasks
}

func TestSweepAutoEnqueuesConfidentMatch(t *testing.T) {
	ctx := context.Background()
	sweeper, books, tasks := newFixture(t,
		telegram.File{MessageID: 42, ChannelID: -100200, FileID: "f1", FileName: "Иванов_Иван_Хроники_Заката.zip", FileSize: 100},
		telegram.File{MessageID: 43, ChannelID: -100200, FileID: "f2", FileName: "meeting_notes_2019.txt"},
	)

	match, err := books.AddBook(ctx, "Хроники Заката", "Иван Иванов")
	if err != nil {
		t.Fatalf("add book: %v", err)
	}
	if _, err := books.AddBook(ctx, "Закат", "Петров"); err != nil {
		t.Fatalf("add decoy: %v", err)
	}

	report, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.ScannedFiles != 2 || report.UnboundBooks != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.AutoEnqueued != 1 {
		t.Fatalf("auto enqueued = %d, want 1", report.AutoEnqueued)
	}

	var matched *sweep.FileReport
	for i := range report.Files {
		if report.Files[i].File.MessageID == 42 {
			matched = &report.Files[i]
		}
	}
	if matched == nil || !matched.AutoEnqueued {
		t.Fatalf("message 42 not auto enqueued: %+v", report.Files)
	}
	if len(matched.Candidates) == 0 || matched.Candidates[0].Candidate.ID != match.ID {
		t.Fatalf("wrong best candidate: %+v", matched.Candidates)
	}

	task, err := tasks.GetByID(ctx, matched.TaskID)
	if err != nil || task == nil {
		t.Fatalf("task missing: %v", err)
	}
	if task.BookID != match.ID || task.MessageID != 42 {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestSweepIsIdempotentAcrossRuns(t *testing.T) {
	ctx := context.Background()
	sweeper, books, _ := newFixture(t,
		telegram.File{MessageID: 42, ChannelID: -100200, FileID: "f1", FileName: "Иванов_Иван_Хроники_Заката.zip"},
	)
	if _, err := books.AddBook(ctx, "Хроники Заката", "Иван Иванов"); err != nil {
		t.Fatalf("add book: %v", err)
	}

	first, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if first.AutoEnqueued != 1 {
		t.Fatalf("first sweep enqueued %d", first.AutoEnqueued)
	}

	second, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second.AutoEnqueued != 0 {
		t.Fatalf("second sweep enqueued %d, want 0", second.AutoEnqueued)
	}
	if len(second.Files) != 1 || !second.Files[0].AlreadyQueued {
		t.Fatalf("expected already-queued marker: %+v", second.Files)
	}
}

func TestSweepSkipsBoundFiles(t *testing.T) {
	ctx := context.Background()
	sweeper, books, _ := newFixture(t,
		telegram.File{MessageID: 42, ChannelID: -100200, FileID: "f1", FileName: "Иванов_Иван_Хроники_Заката.zip"},
	)

	book, _ := books.AddBook(ctx, "Хроники Заката", "Иван Иванов")
	if err := books.UpdateBookFile(ctx, book.ID, catalog.FileBinding{MessageID: 42, ChannelID: -100200}); err != nil {
		t.Fatalf("bind: %v", err)
	}

	report, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.BoundSkipped != 1 || report.AutoEnqueued != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Files) != 0 {
		t.Fatalf("bound file still reported: %+v", report.Files)
	}
}

func TestMatchRanksAgainstUnboundBooks(t *testing.T) {
	ctx := context.Background()
	sweeper, books, _ := newFixture(t)

	want, _ := books.AddBook(ctx, "Хроники Заката", "Иван Иванов")
	books.AddBook(ctx, "Закат", "Петров")

	matches, err := sweeper.Match(ctx, "Иванов_Иван_Хроники_Заката.zip")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) == 0 || matches[0].Candidate.ID != want.ID {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}
