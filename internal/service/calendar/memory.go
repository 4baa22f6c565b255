package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/janisto/duo-journal/internal/platform/timeutil"
)

// MemoryStore implements Service in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	marks map[string]Mark
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{marks: make(map[string]Mark)}
}

func (m *MemoryStore) Get(_ context.Context, userID, date string) (*Mark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mark, ok := m.marks[MarkID(userID, date)]
	if !ok {
		return nil, ErrNotFound
	}
	mark.Icons = append([]string(nil), mark.Icons...)
	return &mark, nil
}

func (m *MemoryStore) Set(ctx context.Context, userID, date string, params SetParams) (*Mark, error) {
	id := MarkID(userID, date)
	if err := validate(date, params); err != nil {
		return nil, audit(ctx, userID, id, false, err)
	}

	m.mu.Lock()
	mark, ok := m.marks[id]
	if !ok {
		mark = Mark{ID: id, UserID: userID, Date: date}
	}
	apply(&mark, params)
	if mark.Empty() {
		delete(m.marks, id)
		m.mu.Unlock()
		auditSuccess(ctx, userID, id, true)
		return nil, nil
	}
	mark.UpdatedAt = time.Now().UTC()
	m.marks[id] = mark
	m.mu.Unlock()

	auditSuccess(ctx, userID, id, false)
	mark.Icons = append([]string(nil), mark.Icons...)
	return &mark, nil
}

func (m *MemoryStore) Month(_ context.Context, userID string, year int, month time.Month) (map[string]Mark, error) {
	start, end := timeutil.MonthRange(year, month)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Mark)
	for _, mark := range m.marks {
		if mark.UserID == userID && mark.Date >= start && mark.Date < end {
			mark.Icons = append([]string(nil), mark.Icons...)
			out[mark.Date] = mark
		}
	}
	return out, nil
}

// Compile-time interface check
var _ Service = (*MemoryStore)(nil)
