package testsupport

import (
	"context"
	"testing"

	"shelfsync/internal/catalog"
	"shelfsync/internal/config"
	"shelfsync/internal/queue"
)

// MustOpenQueue opens a queue.Store for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewBook adds a catalog entry for tests using the provided store.
func NewBook(t testing.TB, store *catalog.Store, title, author string) *catalog.Book {
	t.Helper()

	book, err := store.AddBook(context.Background(), title, author)
	if err != nil {
		t.Fatalf("store.AddBook: %v", err)
	}
	return book
}
