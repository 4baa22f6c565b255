package partner

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	applog "github.com/janisto/duo-journal/internal/platform/logging"
)

const linksCollection = "partner_requests"

// firestoreLink maps to Firestore document structure. Participants holds
// both ids so one array-contains query finds every link of a user.
type firestoreLink struct {
	InitiatorID      string    `firestore:"initiator_id"`
	RecipientID      string    `firestore:"recipient_id"`
	Participants     []string  `firestore:"participants"`
	Status           string    `firestore:"status"`
	BreakRequesterID string    `firestore:"break_requester_id"`
	CreatedAt        time.Time `firestore:"created_at"`
	UpdatedAt        time.Time `firestore:"updated_at"`
}

func toFirestoreLink(l *Link) firestoreLink {
	return firestoreLink{
		InitiatorID:      l.InitiatorID,
		RecipientID:      l.RecipientID,
		Participants:     []string{l.InitiatorID, l.RecipientID},
		Status:           string(l.Status),
		BreakRequesterID: l.BreakRequesterID,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

func linkFromDoc(doc *firestore.DocumentSnapshot) (Link, error) {
	var fl firestoreLink
	if err := doc.DataTo(&fl); err != nil {
		return Link{}, err
	}
	return Link{
		ID:               doc.Ref.ID,
		InitiatorID:      fl.InitiatorID,
		RecipientID:      fl.RecipientID,
		Status:           Status(fl.Status),
		BreakRequesterID: fl.BreakRequesterID,
		CreatedAt:        fl.CreatedAt,
		UpdatedAt:        fl.UpdatedAt,
	}, nil
}

// FirestoreStore implements Store with Firestore transactions and snapshot
// listeners.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) links() *firestore.CollectionRef {
	return s.client.Collection(linksCollection)
}

func (s *FirestoreStore) participantQuery(userID string) firestore.Query {
	return s.links().Where("participants", "array-contains", userID)
}

// firestoreTx adapts a Firestore transaction to Tx.
type firestoreTx struct {
	store *FirestoreStore
	tx    *firestore.Transaction
}

func (t *firestoreTx) Get(id string) (*Link, error) {
	doc, err := t.tx.Get(t.store.links().Doc(id))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errLinkMissing
		}
		return nil, err
	}
	l, err := linkFromDoc(doc)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *firestoreTx) ForUser(userID string) ([]Link, error) {
	return collect(t.tx.Documents(t.store.participantQuery(userID)))
}

func (t *firestoreTx) Create(link *Link) error {
	return t.tx.Create(t.store.links().Doc(link.ID), toFirestoreLink(link))
}

func (t *firestoreTx) Update(link *Link) error {
	return t.tx.Set(t.store.links().Doc(link.ID), toFirestoreLink(link))
}

func (t *firestoreTx) Delete(id string) error {
	return t.tx.Delete(t.store.links().Doc(id), firestore.Exists)
}

// RunInTx runs fn in a Firestore transaction. Firestore retries fn on
// contention, so fn must not have side effects outside tx.
func (s *FirestoreStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{store: s, tx: tx})
	})
}

func (s *FirestoreStore) ForUser(ctx context.Context, userID string) ([]Link, error) {
	return collect(s.participantQuery(userID).Documents(ctx))
}

// ListPending uses two equality filters, which Firestore serves without a
// composite index, and orders in memory.
func (s *FirestoreStore) ListPending(ctx context.Context, userID string, dir Direction) ([]Link, error) {
	field := "recipient_id"
	if dir == Outgoing {
		field = "initiator_id"
	}
	links, err := collect(s.links().
		Where(field, "==", userID).
		Where("status", "==", string(StatusPending)).
		Documents(ctx))
	if err != nil {
		return nil, err
	}
	slices.SortFunc(links, func(a, b Link) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return links, nil
}

// Watch listens to snapshots of the user's links. The first snapshot is the
// current state and is not reported.
func (s *FirestoreStore) Watch(ctx context.Context, userID string) (<-chan Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	it := s.participantQuery(userID).Snapshots(ctx)
	out := make(chan Change, watchBuffer)

	go func() {
		defer close(out)
		defer it.Stop()

		baseline := true
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, iterator.Done) && status.Code(err) != codes.Canceled {
					applog.LogError(ctx, "partner link listener stopped", err)
				}
				return
			}
			if baseline {
				baseline = false
				continue
			}
			for _, dc := range snap.Changes {
				change := Change{LinkID: dc.Doc.Ref.ID}
				switch dc.Kind {
				case firestore.DocumentAdded:
					change.Type = ChangeAdded
				case firestore.DocumentModified:
					change.Type = ChangeModified
				case firestore.DocumentRemoved:
					change.Type = ChangeRemoved
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func collect(iter *firestore.DocumentIterator) ([]Link, error) {
	docs, err := iter.GetAll()
	if err != nil {
		return nil, err
	}
	links := make([]Link, 0, len(docs))
	for _, doc := range docs {
		l, err := linkFromDoc(doc)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, nil
}

// Compile-time interface check
var _ Store = (*FirestoreStore)(nil)
