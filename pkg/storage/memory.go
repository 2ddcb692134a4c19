package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and examples.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*Object)}
}

// Get retrieves an object by key. Returns ErrNotFound when absent.
func (s *MemoryStore) Get(_ context.Context, key string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		storageMissesTotal.Inc()
		return nil, ErrNotFound
	}
	storageHitsTotal.Inc()
	return obj, nil
}

// Put stores an object under a key.
func (s *MemoryStore) Put(_ context.Context, key string, obj *Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = obj
	return nil
}

// Delete removes an object.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}
