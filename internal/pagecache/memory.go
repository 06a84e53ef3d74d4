package pagecache

import "sync"

// MemoryStore is an in-memory implementation of the Store interface.
// It uses a map for storage and provides thread-safe operations via RWMutex.
//
// Records live only for the lifetime of the controller that owns the cache.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*PageRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*PageRecord),
	}
}

func (s *MemoryStore) Get(key string) (*PageRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.data[key]
	return record, exists
}

func (s *MemoryStore) Put(key string, record *PageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = record
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*PageRecord)
}

func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}

func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}
