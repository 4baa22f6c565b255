package profile

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Service in process memory. It backs the memory
// data backend and unit tests.
type MemoryStore struct {
	mu         sync.RWMutex
	profiles   map[string]Profile
	byUsername map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:   make(map[string]Profile),
		byUsername: make(map[string]string),
	}
}

func (m *MemoryStore) Create(ctx context.Context, userID string, params CreateParams) (*Profile, error) {
	params, err := prepareCreate(params)
	if err != nil {
		return nil, audit(ctx, "create", userID, err)
	}

	m.mu.Lock()
	if _, exists := m.profiles[userID]; exists {
		m.mu.Unlock()
		return nil, audit(ctx, "create", userID, ErrAlreadyExists)
	}
	if _, taken := m.byUsername[params.Username]; taken {
		m.mu.Unlock()
		return nil, audit(ctx, "create", userID, ErrUsernameTaken)
	}
	now := time.Now().UTC()
	p := Profile{
		ID:          userID,
		Username:    params.Username,
		DisplayName: params.DisplayName,
		Avatar:      params.Avatar,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.profiles[userID] = p
	m.byUsername[p.Username] = userID
	m.mu.Unlock()

	auditSuccess(ctx, "create", userID)
	return &p, nil
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.profiles[userID]
	if !exists {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) GetByUsername(ctx context.Context, username string) (*Profile, error) {
	m.mu.RLock()
	userID, ok := m.byUsername[NormalizeUsername(username)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Get(ctx, userID)
}

func (m *MemoryStore) Update(ctx context.Context, userID string, params UpdateParams) (*Profile, error) {
	m.mu.Lock()
	p, exists := m.profiles[userID]
	if !exists {
		m.mu.Unlock()
		return nil, audit(ctx, "update", userID, ErrNotFound)
	}
	if err := applyUpdate(&p, params); err != nil {
		m.mu.Unlock()
		return nil, audit(ctx, "update", userID, err)
	}
	p.UpdatedAt = time.Now().UTC()
	m.profiles[userID] = p
	m.mu.Unlock()

	auditSuccess(ctx, "update", userID)
	return &p, nil
}

// Delete removes a profile and frees its username. Only tests use it.
func (m *MemoryStore) Delete(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		delete(m.byUsername, p.Username)
		delete(m.profiles, userID)
	}
}

// Clear removes all profiles (useful for test cleanup).
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = make(map[string]Profile)
	m.byUsername = make(map[string]string)
}

// Compile-time interface check
var _ Service = (*MemoryStore)(nil)
