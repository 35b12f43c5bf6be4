package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Records is the category-scoped record store. It derives every path from
// (category, key) and keeps no in-memory copy of the data: each Get goes to
// the backend.
type Records struct {
	backend Store
	locks   *pathLocks
}

// NewRecords wraps a backend.
func NewRecords(backend Store) *Records {
	return &Records{backend: backend, locks: newPathLocks()}
}

// Put serializes doc to JSON and writes it as the record (c, key),
// overwriting any previous content.
func (r *Records) Put(ctx context.Context, c Category, key string, doc any) error {
	p, err := DocumentPath(c, key)
	if err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c, key, err)
	}
	return r.write(ctx, p, bytes.NewReader(b))
}

// Get reads the record (c, key) and decodes it into dst.
func (r *Records) Get(ctx context.Context, c Category, key string, dst any) error {
	p, err := DocumentPath(c, key)
	if err != nil {
		return err
	}
	obj, err := r.backend.Get(ctx, p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%s/%s: %w", c, key, ErrNotFound)
		}
		return err
	}
	defer obj.Content.Close()

	data, err := io.ReadAll(obj.Content)
	if err != nil {
		return fmt.Errorf("read %s: %w", p, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptRecord, p, err)
	}
	return nil
}

// PutBinary stores src as a flat file of a binary category and returns its
// relative path.
func (r *Records) PutBinary(ctx context.Context, c Category, name string, src io.Reader) (string, error) {
	p, err := BinaryPath(c, name)
	if err != nil {
		return "", err
	}
	if err := r.write(ctx, p, src); err != nil {
		return "", err
	}
	return p, nil
}

// PutAsset stores src next to the nested record (c, key). The record
// directory is created on demand, before or without its document.
func (r *Records) PutAsset(ctx context.Context, c Category, key, name string, src io.Reader) (string, error) {
	p, err := AssetPath(c, key, name)
	if err != nil {
		return "", err
	}
	if err := r.write(ctx, p, src); err != nil {
		return "", err
	}
	return p, nil
}

// Open returns a stored object by relative path for read-only serving.
func (r *Records) Open(ctx context.Context, name string) (*Object, error) {
	p, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	return r.backend.Get(ctx, p)
}

func (r *Records) write(ctx context.Context, p string, src io.Reader) error {
	unlock := r.locks.lock(p)
	defer unlock()

	if _, err := r.backend.Put(ctx, p, src); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailure, p, err)
	}
	return nil
}

// pathLocks hands out one mutex per path, dropping it once unused.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*pathLock)}
}

func (l *pathLocks) lock(p string) func() {
	l.mu.Lock()
	pl, ok := l.locks[p]
	if !ok {
		pl = &pathLock{}
		l.locks[p] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, p)
		}
		l.mu.Unlock()
	}
}
