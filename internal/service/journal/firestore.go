package journal

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/janisto/duo-journal/internal/platform/timeutil"
)

const entriesCollection = "journal_entries"

// firestoreEntry maps to Firestore document structure.
type firestoreEntry struct {
	UserID     string    `firestore:"user_id"`
	Date       string    `firestore:"date"`
	Content    string    `firestore:"content"`
	HasContent bool      `firestore:"has_content"`
	CreatedAt  time.Time `firestore:"created_at"`
	UpdatedAt  time.Time `firestore:"updated_at"`
}

func (fe firestoreEntry) toEntry(id string) *Entry {
	return &Entry{
		ID:         id,
		UserID:     fe.UserID,
		Date:       fe.Date,
		Content:    fe.Content,
		HasContent: fe.HasContent,
		CreatedAt:  fe.CreatedAt,
		UpdatedAt:  fe.UpdatedAt,
	}
}

// FirestoreStore implements Service using Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) entries() *firestore.CollectionRef {
	return s.client.Collection(entriesCollection)
}

// Save upserts the entry in a transaction so CreatedAt survives updates.
func (s *FirestoreStore) Save(ctx context.Context, userID, date, content string) (*Entry, error) {
	id := EntryID(userID, date)
	if err := validateSave(date, content); err != nil {
		return nil, audit(ctx, "save", userID, id, err)
	}
	docRef := s.entries().Doc(id)

	var result *Entry
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := time.Now().UTC()
		fe := firestoreEntry{
			UserID:     userID,
			Date:       date,
			Content:    content,
			HasContent: hasContent(content),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		doc, err := tx.Get(docRef)
		switch {
		case err == nil:
			var existing firestoreEntry
			if err := doc.DataTo(&existing); err != nil {
				return err
			}
			fe.CreatedAt = existing.CreatedAt
		case status.Code(err) != codes.NotFound:
			return err
		}
		if err := tx.Set(docRef, fe); err != nil {
			return err
		}
		result = fe.toEntry(id)
		return nil
	})
	if err != nil {
		return nil, audit(ctx, "save", userID, id, err)
	}
	auditSuccess(ctx, "save", userID, id)
	return result, nil
}

// Get retrieves the entry for the day.
func (s *FirestoreStore) Get(ctx context.Context, userID, date string) (*Entry, error) {
	id := EntryID(userID, date)
	doc, err := s.entries().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var fe firestoreEntry
	if err := doc.DataTo(&fe); err != nil {
		return nil, err
	}
	return fe.toEntry(id), nil
}

// Delete removes the entry, failing with ErrNotFound when absent.
func (s *FirestoreStore) Delete(ctx context.Context, userID, date string) error {
	id := EntryID(userID, date)
	_, err := s.entries().Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		err = ErrNotFound
	}
	return audit(ctx, "delete", userID, id, err)
}

// List reads one window ordered by date descending, starting after the date
// after, and counts all of the user's entries alongside it.
func (s *FirestoreStore) List(ctx context.Context, userID, after string, limit int) (*EntryPage, error) {
	owned := s.entries().Where("user_id", "==", userID)
	q := owned.OrderBy("date", firestore.Desc).Limit(limit)
	if after != "" {
		q = q.StartAfter(after)
	}

	page := &EntryPage{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := q.Documents(gctx).GetAll()
		if err != nil {
			return err
		}
		page.Entries = make([]Entry, 0, len(docs))
		for _, doc := range docs {
			var fe firestoreEntry
			if err := doc.DataTo(&fe); err != nil {
				return err
			}
			page.Entries = append(page.Entries, *fe.toEntry(doc.Ref.ID))
		}
		return nil
	})
	g.Go(func() error {
		n, err := countQuery(gctx, owned)
		page.Total = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}

// MonthDates queries the half-open date range of the month.
func (s *FirestoreStore) MonthDates(ctx context.Context, userID string, year int, month time.Month) ([]string, error) {
	start, end := timeutil.MonthRange(year, month)
	docs, err := s.entries().
		Where("user_id", "==", userID).
		Where("has_content", "==", true).
		Where("date", ">=", start).
		Where("date", "<", end).
		OrderBy("date", firestore.Asc).
		Select("date").
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(docs))
	for _, doc := range docs {
		date, err := doc.DataAt("date")
		if err != nil {
			return nil, err
		}
		if d, ok := date.(string); ok {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

// Count runs a COUNT aggregation over the user's non-empty entries.
func (s *FirestoreStore) Count(ctx context.Context, userID string) (int64, error) {
	return countQuery(ctx, s.entries().
		Where("user_id", "==", userID).
		Where("has_content", "==", true))
}

func countQuery(ctx context.Context, q firestore.Query) (int64, error) {
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count result type %T", res["all"])
	}
	return v.GetIntegerValue(), nil
}

// Compile-time interface check
var _ Service = (*FirestoreStore)(nil)
