package session

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"outreach/pkg/conversation"
)

// MemoryStore keeps the most recently used sessions in process memory.
// Older sessions are evicted once the bound is reached.
type MemoryStore struct {
	cache *lru.Cache[string, conversation.State]
}

// NewMemoryStore creates a store holding at most size sessions.
func NewMemoryStore(size int) (*MemoryStore, error) {
	cache, err := lru.New[string, conversation.State](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &MemoryStore{cache: cache}, nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*conversation.State, error) {
	state, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(&state)
	return &out, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, id string, state *conversation.State) error {
	m.cache.Add(id, clone(state))
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(_ context.Context, id string) error {
	m.cache.Remove(id)
	return nil
}

// Len reports how many sessions are held.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.cache.Purge()
	return nil
}
