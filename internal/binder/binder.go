// Package binder performs the bind step of a sync task: fetch the channel
// file, store it, and point the catalog book at the stored copy. Every step
// is safe to repeat, so a task interrupted after any point converges to the
// same final state when retried.
package binder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"shelfsync/internal/catalog"
	"shelfsync/internal/config"
	"shelfsync/internal/logging"
	"shelfsync/internal/queue"
	"shelfsync/internal/relevance"
	"shelfsync/internal/services"
	"shelfsync/internal/services/blobstore"
	"shelfsync/internal/services/telegram"
)

// ProgressFunc receives bind progress for persistence. May be nil.
type ProgressFunc func(stage, message string, percent float64)

// Binder binds channel files to catalog books.
type Binder struct {
	channel       telegram.ChannelReader
	blobs         *blobstore.Store
	books         *catalog.Store
	matcher       *relevance.Matcher
	autoBindScore int
	logger        *slog.Logger
}

// New creates a Binder.
func New(channel telegram.ChannelReader, blobs *blobstore.Store, books *catalog.Store, cfg *config.Config, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Binder{
		channel:       channel,
		blobs:         blobs,
		books:         books,
		matcher:       relevance.NewMatcher(relevance.WeightsFromConfig(cfg.Matching)),
		autoBindScore: cfg.Matching.AutoBindScore,
		logger:        logging.NewComponentLogger(logger, "binder"),
	}
}

// BlobKey returns the deterministic storage key for a book's file. Retries of
// the same bind always target the same key, so a replay overwrites rather
// than accumulates.
func BlobKey(bookID int64, fileName string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "" || name == "." || name == ".." {
		name = "file.bin"
	}
	return path.Join("books", strconv.FormatInt(bookID, 10), name)
}

// resolveBook ranks fileName against every unbound catalog book and returns
// the top candidate when it clears the auto-bind threshold. Anything less
// confident is left for an operator to bind explicitly.
func (b *Binder) resolveBook(ctx context.Context, fileName string) (int64, error) {
	books, err := b.books.BooksWithoutFile(ctx, 0)
	if err != nil {
		return 0, services.Wrap(services.ErrCatalogWrite, "binder", "resolve", "list unbound books", err)
	}
	candidates := make([]relevance.Candidate, 0, len(books))
	for _, book := range books {
		candidates = append(candidates, relevance.NewCandidate(book.ID, book.Title, book.Author))
	}
	match := b.matcher.BestMatch(fileName, candidates, b.autoBindScore)
	if match == nil {
		return 0, services.Wrap(services.ErrValidation, "binder", "resolve",
			fmt.Sprintf("no catalog book matches %q confidently", fileName), nil)
	}
	b.logger.Info("book resolved from filename",
		logging.Int64(logging.FieldBookID, match.Candidate.ID),
		logging.String("file_name", fileName),
		logging.Int("score", match.Score),
	)
	return match.Candidate.ID, nil
}

// Bind downloads the task's channel file and binds it to the task's book.
// A task without a book is resolved by matching first, so sweep-enqueued and
// operator-enqueued tasks follow the same path.
func (b *Binder) Bind(ctx context.Context, task *queue.Task, progress ProgressFunc) error {
	report := func(stage, message string, percent float64) {
		if progress != nil {
			progress(stage, message, percent)
		}
	}

	report("Locating", "Resolving channel message", 10)
	file, err := b.channel.FindFile(ctx, task.MessageID)
	if err != nil {
		return err
	}
	if file == nil {
		return services.Wrap(services.ErrNotFound, "binder", "bind",
			fmt.Sprintf("message %d carries no document", task.MessageID), nil)
	}
	if file.FileName == "" {
		file.FileName = task.FileName
	}

	if task.BookID <= 0 {
		report("Matching", file.FileName, 20)
		bookID, err := b.resolveBook(ctx, file.FileName)
		if err != nil {
			return err
		}
		task.BookID = bookID
	}

	book, err := b.books.GetBook(ctx, task.BookID)
	if err != nil {
		return services.Wrap(services.ErrCatalogWrite, "binder", "bind", "load book", err)
	}
	if book == nil {
		return services.Wrap(services.ErrNotFound, "binder", "bind",
			fmt.Sprintf("book %d not in catalog", task.BookID), nil)
	}
	if book.HasFile() && (book.FileMessageID != task.MessageID || book.FileChannelID != task.ChannelID) {
		return services.Wrap(services.ErrValidation, "binder", "bind",
			fmt.Sprintf("book %d already bound to message %d", book.ID, book.FileMessageID), nil)
	}

	report("Downloading", file.FileName, 30)
	body, err := b.channel.FetchFile(ctx, *file)
	if err != nil {
		return err
	}
	defer body.Close()

	key := BlobKey(book.ID, file.FileName)
	report("Storing", key, 60)
	blobURL, size, err := b.blobs.Put(ctx, key, body)
	if err != nil {
		return err
	}

	report("Cataloging", book.Title, 90)
	binding := catalog.FileBinding{
		MessageID: file.MessageID,
		ChannelID: file.ChannelID,
		FileName:  file.FileName,
		FileSize:  size,
		FileURL:   blobURL,
	}
	if err := b.books.UpdateBookFile(ctx, book.ID, binding); err != nil {
		// Lost a race to another binding; not worth retrying.
		if errors.Is(err, catalog.ErrAlreadyBound) {
			return services.Wrap(services.ErrValidation, "binder", "bind", "book bound concurrently", err)
		}
		return services.Wrap(services.ErrCatalogWrite, "binder", "bind", "persist binding", err)
	}

	b.logger.Info("book bound",
		logging.Int64(logging.FieldBookID, book.ID),
		logging.Int64(logging.FieldMessageID, file.MessageID),
		logging.String("blob_url", blobURL),
		logging.Int64("bytes", size),
	)
	return nil
}
