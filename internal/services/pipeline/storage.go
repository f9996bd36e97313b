package pipeline

import (
	"sync"
)

// MemoryStorage is the per-plugin keyed store. Each plugin gets its own
// instance so plugins cannot read or clobber each other's state.
type MemoryStorage struct {
	data map[string]interface{}
	mu   sync.RWMutex
}

// NewMemoryStorage creates an empty storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data: make(map[string]interface{}),
	}
}

func (s *MemoryStorage) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	return value, ok
}

func (s *MemoryStorage) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *MemoryStorage) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *MemoryStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]interface{})
}

// StorageSet hands out one MemoryStorage per plugin name. The pipeline
// creates a fresh set per run, so storage is scoped to a single job and
// plugins never see each other's keys.
type StorageSet struct {
	stores map[string]*MemoryStorage
	mu     sync.Mutex
}

// NewStorageSet creates an empty set
func NewStorageSet() *StorageSet {
	return &StorageSet{stores: make(map[string]*MemoryStorage)}
}

// For returns the storage owned by the named plugin, creating it on
// first use.
func (s *StorageSet) For(name string) *MemoryStorage {
	s.mu.Lock()
	defer s.mu.Unlock()
	store, ok := s.stores[name]
	if !ok {
		store = NewMemoryStorage()
		s.stores[name] = store
	}
	return store
}
