package blobstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shelfsync/internal/services"
	"shelfsync/internal/services/blobstore"
)

func TestPutAndExists(t *testing.T) {
	store, err := blobstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	url, size, err := store.Put(ctx, "books/17/book.fb2.zip", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if size != int64(len("content")) {
		t.Fatalf("size = %d", size)
	}
	if !strings.HasPrefix(url, "file://") || !strings.HasSuffix(url, "books/17/book.fb2.zip") {
		t.Fatalf("url = %q", url)
	}

	exists, err := store.Exists("books/17/book.fb2.zip")
	if err != nil || !exists {
		t.Fatalf("exists = %v err = %v", exists, err)
	}

	data, err := os.ReadFile(filepath.Join(store.Root(), "books", "17", "book.fb2.zip"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "content" {
		t.Fatalf("content = %q", data)
	}

	// Overwriting the same key replaces the blob.
	if _, _, err := store.Put(ctx, "books/17/book.fb2.zip", strings.NewReader("newer")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(store.Root(), "books", "17", "book.fb2.zip"))
	if string(data) != "newer" {
		t.Fatalf("after overwrite = %q", data)
	}

	// No temp file debris.
	entries, err := os.ReadDir(filepath.Join(store.Root(), "books", "17"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("directory holds %d entries, want the blob only", len(entries))
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	store, err := blobstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "../escape", "/abs/path", "a/../../b"} {
		if _, _, err := store.Put(context.Background(), key, strings.NewReader("x")); !errors.Is(err, services.ErrValidation) {
			t.Errorf("key %q: error = %v, want validation", key, err)
		}
	}
}

func TestPutHonorsCancellation(t *testing.T) {
	store, err := blobstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = store.Put(ctx, "books/1/a.zip", strings.NewReader("content"))
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
	if exists, _ := store.Exists("books/1/a.zip"); exists {
		t.Fatal("canceled put left a blob behind")
	}
}
