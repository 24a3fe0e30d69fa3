// Package sweep reconciles the channel against the catalog. A sweep lists
// recent channel documents, ranks each against books that still lack a file,
// auto-enqueues confident matches, and reports the rest for human review.
package sweep

import (
	"context"
	"log/slog"

	"shelfsync/internal/catalog"
	"shelfsync/internal/config"
	"shelfsync/internal/logging"
	"shelfsync/internal/queue"
	"shelfsync/internal/relevance"
	"shelfsync/internal/services/telegram"
)

// FileReport describes one channel file examined during a sweep.
type FileReport struct {
	File          telegram.File
	Candidates    []relevance.Match
	AutoEnqueued  bool
	AlreadyQueued bool
	TaskID        int64
}

// Report summarizes a sweep run.
type Report struct {
	ScannedFiles int
	BoundSkipped int
	UnboundBooks int
	AutoEnqueued int
	Files        []FileReport
}

// Sweeper drives channel-to-catalog reconciliation.
type Sweeper struct {
	channel       telegram.ChannelReader
	books         *catalog.Store
	tasks         *queue.Store
	matcher       *relevance.Matcher
	listLimit     int
	minScore      int
	autoBindScore int
	maxCandidates int
	logger        *slog.Logger
}

// New creates a Sweeper configured from the matching and channel settings.
func New(channel telegram.ChannelReader, books *catalog.Store, tasks *queue.Store, cfg *config.Config, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{
		channel:       channel,
		books:         books,
		tasks:         tasks,
		matcher:       relevance.NewMatcher(relevance.WeightsFromConfig(cfg.Matching)),
		listLimit:     cfg.Telegram.ListLimit,
		minScore:      cfg.Matching.MinScore,
		autoBindScore: cfg.Matching.AutoBindScore,
		maxCandidates: cfg.Matching.MaxCandidates,
		logger:        logging.NewComponentLogger(logger, "sweep"),
	}
}

// Match ranks a single file name against every book without a file. Used by
// the ad-hoc match endpoint; a sweep does the same per channel document.
func (s *Sweeper) Match(ctx context.Context, fileName string) ([]relevance.Match, error) {
	candidates, err := s.unboundCandidates(ctx)
	if err != nil {
		return nil, err
	}
	return s.matcher.Rank(fileName, candidates, s.minScore, s.maxCandidates), nil
}

// Sweep runs one reconciliation pass.
func (s *Sweeper) Sweep(ctx context.Context) (*Report, error) {
	files, err := s.channel.ListRecentFiles(ctx, s.listLimit)
	if err != nil {
		return nil, err
	}

	candidates, err := s.unboundCandidates(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ScannedFiles: len(files),
		UnboundBooks: len(candidates),
	}

	for _, file := range files {
		bound, err := s.books.FindByFileMessage(ctx, file.MessageID, file.ChannelID)
		if err != nil {
			return nil, err
		}
		if bound != nil {
			report.BoundSkipped++
			continue
		}

		entry := FileReport{File: file}
		entry.Candidates = s.matcher.Rank(file.FileName, candidates, s.minScore, s.maxCandidates)

		if len(entry.Candidates) > 0 && entry.Candidates[0].Score >= s.autoBindScore {
			best := entry.Candidates[0]
			task, created, err := s.tasks.Enqueue(ctx, queue.EnqueueParams{
				MessageID: file.MessageID,
				ChannelID: file.ChannelID,
				BookID:    best.Candidate.ID,
				FileName:  file.FileName,
				FileSize:  file.FileSize,
			})
			if err != nil {
				return nil, err
			}
			entry.TaskID = task.ID
			entry.AutoEnqueued = created
			entry.AlreadyQueued = !created
			if created {
				report.AutoEnqueued++
				s.logger.Info("match enqueued",
					logging.Int64(logging.FieldMessageID, file.MessageID),
					logging.Int64(logging.FieldBookID, best.Candidate.ID),
					logging.Int("score", best.Score),
					logging.String("file", file.FileName),
				)
			}
		}

		report.Files = append(report.Files, entry)
	}

	s.logger.Info("sweep finished",
		logging.Int("scanned", report.ScannedFiles),
		logging.Int("bound_skipped", report.BoundSkipped),
		logging.Int("auto_enqueued", report.AutoEnqueued),
		logging.Int("unbound_books", report.UnboundBooks),
	)
	return report, nil
}

func (s *Sweeper) unboundCandidates(ctx context.Context) ([]relevance.Candidate, error) {
	books, err := s.books.BooksWithoutFile(ctx, 0)
	if err != nil {
		return nil, err
	}
	candidates := make([]relevance.Candidate, 0, len(books))
	for _, book := range books {
		candidates = append(candidates, relevance.NewCandidate(book.ID, book.Title, book.Author))
	}
	return candidates, nil
}
