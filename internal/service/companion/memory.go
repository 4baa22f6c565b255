package companion

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	comments map[string]Comment
	messages map[string][]ChatMessage
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		comments: make(map[string]Comment),
		messages: make(map[string][]ChatMessage),
	}
}

func (m *MemoryStore) GetComment(_ context.Context, entryID string) (*Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.comments[entryID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneComment(c), nil
}

func (m *MemoryStore) SaveComment(_ context.Context, c Comment) (*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.comments[c.EntryID]; ok {
		c.CreatedAt = existing.CreatedAt
		c.IsPublic = existing.IsPublic
	}
	c.ID = c.EntryID
	m.comments[c.EntryID] = *cloneComment(c)
	return cloneComment(c), nil
}

func (m *MemoryStore) SetVisibility(_ context.Context, entryID string, isPublic bool, at time.Time) (*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[entryID]
	if !ok {
		return nil, ErrNotFound
	}
	c.IsPublic = isPublic
	c.UpdatedAt = at
	m.comments[entryID] = c
	return cloneComment(c), nil
}

func (m *MemoryStore) Messages(_ context.Context, commentID string) ([]ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.messages[commentID]), nil
}

func (m *MemoryStore) AddMessage(_ context.Context, msg ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[msg.CommentID]; !ok {
		return ErrNotFound
	}
	m.messages[msg.CommentID] = append(m.messages[msg.CommentID], msg)
	return nil
}

func (m *MemoryStore) DeleteForEntry(_ context.Context, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.comments, entryID)
	delete(m.messages, entryID)
	return nil
}

func cloneComment(c Comment) *Comment {
	if c.Score != nil {
		score := *c.Score
		c.Score = &score
	}
	return &c
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)
