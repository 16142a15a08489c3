package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore keeps encoded offsets in memory. Offsets go through the same
// JSON encoding as the durable stores.
type MemoryStore struct {
	offsets map[string][]byte
	mu      sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{offsets: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, partition map[string]string, offset map[string]any) error {
	key, err := PartitionKey(partition)
	if err != nil {
		return err
	}

	data, err := encodeOffset(offset)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets[key] = data
	return nil
}

func (s *MemoryStore) Load(_ context.Context, partition map[string]string) (map[string]any, error) {
	key, err := PartitionKey(partition)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.offsets[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	return decodeOffset(data)
}

func (s *MemoryStore) Delete(_ context.Context, partition map[string]string) error {
	key, err := PartitionKey(partition)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.offsets, key)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
