// Package blobstore writes fetched channel files to local storage. Writes go
// through a temp file and rename so a crash never leaves a partial blob at
// the final key, and re-running a bind simply overwrites the same key.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"shelfsync/internal/services"
)

// Store persists blobs under a root directory keyed by relative paths.
type Store struct {
	root string
}

// New creates a store rooted at dir.
func New(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("storage dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{root: dir}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// Put streams a blob to the given key and returns its URL and written size.
// An existing blob at the key is replaced atomically.
func (s *Store) Put(ctx context.Context, key string, reader io.Reader) (string, int64, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", 0, services.Wrap(services.ErrStorageWrite, "blobstore", "put", "create parent dir", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", 0, services.Wrap(services.ErrStorageWrite, "blobstore", "put", "create temp file", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	size, err := io.Copy(tmp, contextReader{ctx: ctx, r: reader})
	if err != nil {
		cleanup()
		return "", 0, services.Wrap(services.ErrStorageWrite, "blobstore", "put", "write blob", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", 0, services.Wrap(services.ErrStorageWrite, "blobstore", "put", "sync blob", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, services.Wrap(services.ErrStorageWrite, "blobstore", "put", "close blob", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, services.Wrap(services.ErrStorageWrite, "blobstore", "put", "finalize blob", err)
	}
	return s.urlFor(path), size, nil
}

// Exists reports whether a blob is present at the key.
func (s *Store) Exists(key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob: %w", err)
	}
	return !info.IsDir(), nil
}

// URLFor returns the URL a blob at key would have, whether or not it exists.
func (s *Store) URLFor(key string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	return s.urlFor(path), nil
}

func (s *Store) resolve(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", services.Wrap(services.ErrValidation, "blobstore", "resolve", "blob key is empty", nil)
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", services.Wrap(services.ErrValidation, "blobstore", "resolve", "blob key escapes storage root: "+key, nil)
	}
	return filepath.Join(s.root, cleaned), nil
}

func (s *Store) urlFor(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
