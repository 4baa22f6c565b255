package partner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// watchBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind misses events.
const watchBuffer = 16

var errReadAfterWrite = errors.New("read after write in transaction")

// MemoryStore keeps links in process memory. Transactions hold a single
// mutex and commit only when the callback succeeds.
type MemoryStore struct {
	mu      sync.Mutex
	links   map[string]Link
	subs    map[int]*memorySub
	nextSub int
}

type memorySub struct {
	userID string
	ch     chan Change
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links: make(map[string]Link),
		subs:  make(map[int]*memorySub),
	}
}

// memoryTx buffers writes over the committed map.
type memoryTx struct {
	base    map[string]Link
	writes  map[string]*Link // nil value marks a delete
	order   []string
	written bool
}

func (t *memoryTx) lookup(id string) (Link, bool) {
	if w, ok := t.writes[id]; ok {
		if w == nil {
			return Link{}, false
		}
		return *w, true
	}
	l, ok := t.base[id]
	return l, ok
}

func (t *memoryTx) Get(id string) (*Link, error) {
	if t.written {
		return nil, errReadAfterWrite
	}
	l, ok := t.lookup(id)
	if !ok {
		return nil, errLinkMissing
	}
	return &l, nil
}

func (t *memoryTx) ForUser(userID string) ([]Link, error) {
	if t.written {
		return nil, errReadAfterWrite
	}
	return linksFor(t.base, userID), nil
}

func (t *memoryTx) record(id string, l *Link) {
	if _, seen := t.writes[id]; !seen {
		t.order = append(t.order, id)
	}
	t.writes[id] = l
	t.written = true
}

func (t *memoryTx) Create(link *Link) error {
	if _, exists := t.lookup(link.ID); exists {
		return fmt.Errorf("link %s already exists", link.ID)
	}
	l := *link
	t.record(l.ID, &l)
	return nil
}

func (t *memoryTx) Update(link *Link) error {
	if _, exists := t.lookup(link.ID); !exists {
		return errLinkMissing
	}
	l := *link
	t.record(l.ID, &l)
	return nil
}

func (t *memoryTx) Delete(id string) error {
	if _, exists := t.lookup(id); !exists {
		return errLinkMissing
	}
	t.record(id, nil)
	return nil
}

// RunInTx runs fn under the store lock and applies its writes if it succeeds.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{base: s.links, writes: make(map[string]*Link)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for _, id := range tx.order {
		before, existed := s.links[id]
		after := tx.writes[id]
		var change Change
		switch {
		case after == nil:
			delete(s.links, id)
			change = Change{Type: ChangeRemoved, LinkID: id}
		case existed:
			s.links[id] = *after
			change = Change{Type: ChangeModified, LinkID: id}
		default:
			s.links[id] = *after
			change = Change{Type: ChangeAdded, LinkID: id}
		}
		s.notifyLocked(change, before, after)
	}
	return nil
}

// notifyLocked fans the change out to subscribers of either participant.
func (s *MemoryStore) notifyLocked(change Change, before Link, after *Link) {
	for _, sub := range s.subs {
		if !before.Involves(sub.userID) && (after == nil || !after.Involves(sub.userID)) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
		}
	}
}

func (s *MemoryStore) ForUser(ctx context.Context, userID string) ([]Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return linksFor(s.links, userID), nil
}

func (s *MemoryStore) ListPending(ctx context.Context, userID string, dir Direction) ([]Link, error) {
	links, err := s.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return filterPending(links, userID, dir), nil
}

// Watch registers a subscriber. The channel closes once ctx is done.
func (s *MemoryStore) Watch(ctx context.Context, userID string) (<-chan Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &memorySub{userID: userID, ch: make(chan Change, watchBuffer)}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(sub.ch)
		s.mu.Unlock()
	}()
	return sub.ch, nil
}

// Len returns the number of stored links.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

func linksFor(all map[string]Link, userID string) []Link {
	var out []Link
	for _, l := range all {
		if l.Involves(userID) {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b Link) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// filterPending keeps pending links on the requested side, preserving order.
func filterPending(links []Link, userID string, dir Direction) []Link {
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if l.Status != StatusPending {
			continue
		}
		if (dir == Incoming && l.RecipientID == userID) || (dir == Outgoing && l.InitiatorID == userID) {
			out = append(out, l)
		}
	}
	return out
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)
