package partner

import (
	"context"
	"errors"
)

// errLinkMissing is returned by Tx.Get when no link has the id.
var errLinkMissing = errors.New("partner link missing")

// Tx is the read/write view of links inside one store transaction. All
// reads must happen before the first write.
type Tx interface {
	// Get returns the link or errLinkMissing.
	Get(id string) (*Link, error)
	// ForUser returns every link the user participates in, any status.
	ForUser(userID string) ([]Link, error)
	Create(link *Link) error
	Update(link *Link) error
	Delete(id string) error
}

// Store persists links. Every check-then-write sequence runs inside
// RunInTx so concurrent callers cannot both pass the same check.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// ForUser returns every link the user participates in, outside a transaction.
	ForUser(ctx context.Context, userID string) ([]Link, error)
	// ListPending returns pending links on the given side, newest first.
	ListPending(ctx context.Context, userID string, dir Direction) ([]Link, error)
	// Watch emits a Change for every write to a link involving userID until
	// ctx ends, then closes the channel.
	Watch(ctx context.Context, userID string) (<-chan Change, error)
}

func activeIn(links []Link, exceptID string) *Link {
	for i := range links {
		if links[i].ID != exceptID && links[i].Status.Active() {
			return &links[i]
		}
	}
	return nil
}
