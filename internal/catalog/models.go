package catalog

import "time"

// Book is a catalog entry. A book starts as bare metadata and is later bound
// to at most one channel file; the File* fields are set together in a single
// update so a book is never half-bound.
type Book struct {
	ID            int64
	Title         string
	Author        string
	FileMessageID int64 // zero while unbound
	FileChannelID int64
	FileName      string
	FileSize      int64
	FileURL       string
	FileBoundAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasFile reports whether the book is bound to a channel file.
func (b Book) HasFile() bool {
	return b.FileMessageID != 0
}

// Stats aggregates catalog counts for diagnostics.
type Stats struct {
	Total   int
	Bound   int
	Unbound int
}
