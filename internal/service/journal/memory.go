package journal

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/janisto/duo-journal/internal/platform/timeutil"
)

// MemoryStore implements Service in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Save(ctx context.Context, userID, date, content string) (*Entry, error) {
	id := EntryID(userID, date)
	if err := validateSave(date, content); err != nil {
		return nil, audit(ctx, "save", userID, id, err)
	}

	now := time.Now().UTC()
	m.mu.Lock()
	e := Entry{
		ID:         id,
		UserID:     userID,
		Date:       date,
		Content:    content,
		HasContent: hasContent(content),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing, ok := m.entries[id]; ok {
		e.CreatedAt = existing.CreatedAt
	}
	m.entries[id] = e
	m.mu.Unlock()

	auditSuccess(ctx, "save", userID, id)
	return &e, nil
}

func (m *MemoryStore) Get(_ context.Context, userID, date string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[EntryID(userID, date)]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID, date string) error {
	id := EntryID(userID, date)
	m.mu.Lock()
	_, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()

	if !ok {
		return audit(ctx, "delete", userID, id, ErrNotFound)
	}
	return audit(ctx, "delete", userID, id, nil)
}

func (m *MemoryStore) List(_ context.Context, userID, after string, limit int) (*EntryPage, error) {
	m.mu.RLock()
	var (
		out   []Entry
		total int64
	)
	for _, e := range m.entries {
		if e.UserID != userID {
			continue
		}
		total++
		if after == "" || e.Date < after {
			out = append(out, e)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(b.Date, a.Date) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return &EntryPage{Entries: out, Total: total}, nil
}

func (m *MemoryStore) MonthDates(_ context.Context, userID string, year int, month time.Month) ([]string, error) {
	start, end := timeutil.MonthRange(year, month)
	m.mu.RLock()
	var dates []string
	for _, e := range m.entries {
		if e.UserID == userID && e.HasContent && e.Date >= start && e.Date < end {
			dates = append(dates, e.Date)
		}
	}
	m.mu.RUnlock()

	slices.Sort(dates)
	return dates, nil
}

func (m *MemoryStore) Count(_ context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, e := range m.entries {
		if e.UserID == userID && e.HasContent {
			n++
		}
	}
	return n, nil
}

// Compile-time interface check
var _ Service = (*MemoryStore)(nil)
