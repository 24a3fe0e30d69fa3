package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"shelfsync/internal/config"
)

// ErrAlreadyBound reports an attempt to bind a book to a second channel file.
// Binding is write-once; rebinding the same file is a no-op, not an error.
var ErrAlreadyBound = errors.New("book already bound to a different file")

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

//go:embed migrations/*.sql
var migrationFS embed.FS

// Open initializes or connects to the catalog database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.CatalogDBPath())
}

// OpenPath opens the catalog database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the backing database file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) applyMigrations(ctx context.Context) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

const bookColumns = "id, title, author, file_message_id, file_channel_id, file_name, file_size, file_url, file_bound_at, created_at, updated_at"

func scanBook(scanner interface{ Scan(dest ...any) error }) (*Book, error) {
	var (
		id            int64
		title         string
		author        sql.NullString
		fileMessageID sql.NullInt64
		fileChannelID sql.NullInt64
		fileName      sql.NullString
		fileSize      sql.NullInt64
		fileURL       sql.NullString
		boundRaw      sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&author,
		&fileMessageID,
		&fileChannelID,
		&fileName,
		&fileSize,
		&fileURL,
		&boundRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	book := &Book{
		ID:            id,
		Title:         title,
		Author:        author.String,
		FileMessageID: fileMessageID.Int64,
		FileChannelID: fileChannelID.Int64,
		FileName:      fileName.String,
		FileSize:      fileSize.Int64,
		FileURL:       fileURL.String,
	}
	if boundRaw.Valid {
		if bound, err := time.Parse(time.RFC3339Nano, boundRaw.String); err == nil {
			book.FileBoundAt = &bound
		}
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw.String); err == nil {
		book.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw.String); err == nil {
		book.UpdatedAt = updated
	}
	return book, nil
}

// AddBook inserts a catalog entry with bare metadata and no bound file.
func (s *Store) AddBook(ctx context.Context, title, author string) (*Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO books (title, author, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		title,
		strings.TrimSpace(author),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetBook(ctx, id)
}

// GetBook fetches a book by identifier. Returns nil when no book exists.
func (s *Store) GetBook(ctx context.Context, id int64) (*Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// ListBooks returns all books ordered by identifier.
func (s *Store) ListBooks(ctx context.Context) ([]*Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book, scanErr := scanBook(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan book: %w", scanErr)
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// BooksWithoutFile returns up to limit books that have no bound file, oldest
// first. A non-positive limit returns all of them.
func (s *Store) BooksWithoutFile(ctx context.Context, limit int) ([]*Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE file_message_id IS NULL ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unbound books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book, scanErr := scanBook(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan book: %w", scanErr)
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// FileBinding identifies a channel file and its stored location.
type FileBinding struct {
	MessageID int64
	ChannelID int64
	FileName  string
	FileSize  int64
	FileURL   string
}

// UpdateBookFile binds a channel file to a book. All file fields are written
// in one statement so readers never observe a partial binding. Binding the
// same message again refreshes the stored location and succeeds; binding a
// different message to an already bound book returns ErrAlreadyBound.
func (s *Store) UpdateBookFile(ctx context.Context, bookID int64, binding FileBinding) error {
	if binding.MessageID == 0 {
		return errors.New("binding message id is required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE books
         SET file_message_id = ?, file_channel_id = ?, file_name = ?, file_size = ?,
             file_url = ?, file_bound_at = ?, updated_at = ?
         WHERE id = ?
           AND (file_message_id IS NULL
                OR (file_message_id = ? AND file_channel_id = ?))`,
		binding.MessageID,
		binding.ChannelID,
		binding.FileName,
		binding.FileSize,
		binding.FileURL,
		timestamp,
		timestamp,
		bookID,
		binding.MessageID,
		binding.ChannelID,
	)
	if err != nil {
		return fmt.Errorf("bind book file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bind rows affected: %w", err)
	}
	if affected == 0 {
		book, getErr := s.GetBook(ctx, bookID)
		if getErr != nil {
			return getErr
		}
		if book == nil {
			return fmt.Errorf("book %d not found", bookID)
		}
		return fmt.Errorf("book %d: %w", bookID, ErrAlreadyBound)
	}
	return nil
}

// FindByFileMessage returns the book bound to a channel message, or nil when
// no book claims it.
func (s *Store) FindByFileMessage(ctx context.Context, messageID, channelID int64) (*Book, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+bookColumns+` FROM books WHERE file_message_id = ? AND file_channel_id = ? ORDER BY id LIMIT 1`,
		messageID,
		channelID,
	)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by file message: %w", err)
	}
	return book, nil
}

// RemoveBook deletes a catalog entry.
func (s *Store) RemoveBook(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove book: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CatalogStats counts bound and unbound books.
func (s *Store) CatalogStats(ctx context.Context) (Stats, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1), COUNT(file_message_id) FROM books`,
	)
	var stats Stats
	if err := row.Scan(&stats.Total, &stats.Bound); err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	stats.Unbound = stats.Total - stats.Bound
	return stats, nil
}
