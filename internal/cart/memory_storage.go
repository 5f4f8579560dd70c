package cart

import (
	"context"
	"sync"
)

// MemoryStorage keeps snapshots in process memory.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: map[string][]byte{}}
}

func (s *MemoryStorage) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStorage) Save(ctx context.Context, key string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)
	s.mu.Lock()
	s.data[key] = stored
	s.mu.Unlock()
	return nil
}
