// Package store defines the backing store interface, its implementations,
// and the category-scoped record store built on top of them.
package store

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when no object or record exists at a path.
	ErrNotFound = errors.New("store: not found")

	// ErrCorruptRecord is returned when a stored document is not valid JSON.
	ErrCorruptRecord = errors.New("store: corrupt record")

	// ErrWriteFailure wraps any I/O error raised while persisting.
	ErrWriteFailure = errors.New("store: write failed")

	// ErrInvalidKey is returned for keys, names or paths outside the safe set.
	ErrInvalidKey = errors.New("store: invalid key")

	// ErrUnknownCategory is returned for a category outside the fixed set.
	ErrUnknownCategory = errors.New("store: unknown category")

	// ErrNotDocument is returned when a document operation targets a binary category.
	ErrNotDocument = errors.New("store: category does not hold documents")

	// ErrNotBinary is returned when a binary operation targets a category that
	// cannot hold it.
	ErrNotBinary = errors.New("store: category does not hold binaries")
)

// Object is a stored blob opened for reading. The caller must close Content.
type Object struct {
	Name    string
	Content io.ReadSeekCloser
	Size    int64
	ModTime time.Time
}

// Store is the interface that all backing stores must implement.
// It holds opaque bytes addressed by a slash-separated relative name such as
// "QrCode/app/x1.json". Implementations must be safe for concurrent use and
// must replace objects atomically: a reader sees either the old or the new
// content, never a mix.
type Store interface {
	// Put writes everything read from r under name, creating parents as
	// needed and replacing any previous object. Returns the bytes written.
	Put(ctx context.Context, name string, r io.Reader) (int64, error)

	// Get opens the object stored under name, or returns ErrNotFound.
	Get(ctx context.Context, name string) (*Object, error)

	// Close releases the resources held by the backend.
	Close() error
}
