package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data    []byte
	modTime time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

func (m *MemoryStore) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	clean, err := CleanName(name)
	if err != nil {
		return 0, err
	}
	// Buffered outside the lock.
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), fmt.Errorf("read %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[clean] = memoryObject{data: data, modTime: time.Now()}
	return int64(len(data)), nil
}

func (m *MemoryStore) Get(_ context.Context, name string) (*Object, error) {
	clean, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[clean]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	// Stored slices are never mutated after Put, so readers can share them.
	return &Object{
		Name:    clean,
		Content: nopSeekCloser{bytes.NewReader(obj.data)},
		Size:    int64(len(obj.data)),
		ModTime: obj.modTime,
	}, nil
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MemoryStore) Close() error {
	return nil
}
