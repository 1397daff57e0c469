package users

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-process demos.
// Unlike the process-wide singleton it replaces, access is synchronized and
// identity resolution never reads shared mutable request state.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

// Create inserts a new user. Returns ErrAlreadyExists if the ID is taken.
func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return ErrAlreadyExists
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// Get retrieves a user by ID. Returns ErrNotFound when absent.
func (s *MemoryStore) Get(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}
