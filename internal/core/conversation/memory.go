package conversation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 程序內的對話狀態，重啟後遺失
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStore 建立記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	if !ok {
		return nil, ErrNoState
	}
	return &st, nil
}

func (s *MemoryStore) Set(ctx context.Context, userID, ingredients string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[userID] = State{UserID: userID, Ingredients: ingredients, UpdatedAt: time.Now()}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, userID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
