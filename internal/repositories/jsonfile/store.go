// Package jsonfile implements the repository ports on top of whole-document
// JSON files. Every writer of a document goes through the same advisory
// lock-file discipline, and every write is a temp-file-plus-rename swap so
// readers never observe a half-written document.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/opexhq/expense_approval_app/internal/apperrors"
)

// Store persists one JSON document of type T. The zero value of T is the
// empty default returned when the file does not exist yet.
type Store[T any] struct {
	path         string
	lockTimeout  time.Duration
	pollInterval time.Duration
}

// NewStore creates a store for the document at path. lockTimeout bounds how
// long Update waits for the advisory lock; pollInterval is the retry period
// while waiting.
func NewStore[T any](path string, lockTimeout, pollInterval time.Duration) *Store[T] {
	return &Store[T]{
		path:         path,
		lockTimeout:  lockTimeout,
		pollInterval: pollInterval,
	}
}

// Path returns the document path.
func (s *Store[T]) Path() string {
	return s.path
}

// Load reads and parses the whole document. A missing or empty file yields
// the zero value of T. A file that exists but cannot be read or parsed
// yields an error wrapping apperrors.ErrCorruptData; the caller decides
// whether to quarantine or abort.
func (s *Store[T]) Load() (T, error) {
	var doc T
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("%w: reading %s: %v", apperrors.ErrCorruptData, s.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: parsing %s: %v", apperrors.ErrCorruptData, s.path, err)
	}
	return doc, nil
}

// Save writes the document atomically: serialize into a temporary file in
// the same directory, then rename over the destination. On any failure the
// temporary file is removed and the error is returned.
func (s *Store[T]) Save(doc T) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create document directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize document %s: %w", s.path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", s.path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file for %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to swap document %s: %w", s.path, err)
	}
	return nil
}

// WithLock acquires the advisory lock file for the document, runs fn, and
// releases the lock on every exit path. Acquisition polls at the configured
// interval until the timeout, after which it fails with
// apperrors.ErrLockTimeout. The lock is advisory: it only excludes
// cooperating processes, and a crash while holding it leaves a stale lock
// file requiring manual cleanup.
func (s *Store[T]) WithLock(ctx context.Context, fn func() error) error {
	lockPath := s.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	deadline := time.Now().Add(s.lockTimeout)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("failed to create lock file %s: %w", lockPath, err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s held for more than %s", apperrors.ErrLockTimeout, lockPath, s.lockTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
	defer os.Remove(lockPath)

	return fn()
}

// Update runs a locked read-modify-write cycle: acquire the lock, load the
// document, apply fn, and save the result. An error from fn aborts the
// cycle without writing.
func (s *Store[T]) Update(ctx context.Context, fn func(T) (T, error)) error {
	return s.WithLock(ctx, func() error {
		doc, err := s.Load()
		if err != nil {
			return err
		}
		doc, err = fn(doc)
		if err != nil {
			return err
		}
		return s.Save(doc)
	})
}

// Quarantine moves a corrupt document aside so the store starts empty on
// the next load. It returns the quarantine path, or "" when the file does
// not exist.
func (s *Store[T]) Quarantine() (string, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	quarantined := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().UTC().Format("20060102T150405Z"))
	if err := os.Rename(s.path, quarantined); err != nil {
		return "", fmt.Errorf("failed to quarantine %s: %w", s.path, err)
	}
	return quarantined, nil
}
