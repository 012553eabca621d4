// Package selection keeps the process-wide "current scenario" setting. The
// value is written when the operator switches scenario and read on every
// data fetch.
package selection

import (
	"context"
	"errors"
	"sync"
)

// ErrNotSet is returned by Get when no scenario has been selected yet.
var ErrNotSet = errors.New("scenario selection not set")

// Store persists the selected scenario name.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, name string) error
	Close() error
}

// Watcher is implemented by stores that can report changes made by other
// processes sharing the same backend.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// MemoryStore keeps the selection in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	name  string
	isSet bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isSet {
		return "", ErrNotSet
	}
	return m.name, nil
}

func (m *MemoryStore) Set(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	m.isSet = true
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
