package capacity

import (
	"context"
	"sync"
)

// MemoryStore keeps counters in process memory. It is the default backend
// and the one used throughout the tests.
type MemoryStore struct {
	mu       sync.RWMutex
	counters map[Key]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[Key]int)}
}

func (s *MemoryStore) Vacancies(_ context.Context, key Key) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.counters[key]
	return n, ok, nil
}

func (s *MemoryStore) SetBaseline(_ context.Context, key Key, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] = n
	return nil
}

func (s *MemoryStore) Debit(_ context.Context, key Key, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.counters[key]
	if !ok || current < n {
		return ErrInsufficient
	}
	s.counters[key] = current - n
	return nil
}

func (s *MemoryStore) Credit(_ context.Context, key Key, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] += n
	return nil
}
