package calendar

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/janisto/duo-journal/internal/platform/timeutil"
)

const marksCollection = "calendar_marks"

// firestoreMark maps to Firestore document structure.
type firestoreMark struct {
	UserID    string    `firestore:"user_id"`
	Date      string    `firestore:"date"`
	Comment   string    `firestore:"comment"`
	Icons     []string  `firestore:"icons"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func (fm firestoreMark) toMark(id string) Mark {
	return Mark{
		ID:        id,
		UserID:    fm.UserID,
		Date:      fm.Date,
		Comment:   fm.Comment,
		Icons:     fm.Icons,
		UpdatedAt: fm.UpdatedAt,
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

func (s *FirestoreStore) Get(ctx context.Context, userID, date string) (*Mark, error) {
	id := MarkID(userID, date)
	doc, err := s.client.Collection(marksCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var fm firestoreMark
	if err := doc.DataTo(&fm); err != nil {
		return nil, err
	}
	m := fm.toMark(id)
	return &m, nil
}

// Set merges the update in a transaction and deletes marks left empty.
func (s *FirestoreStore) Set(ctx context.Context, userID, date string, params SetParams) (*Mark, error) {
	id := MarkID(userID, date)
	if err := validate(date, params); err != nil {
		return nil, audit(ctx, userID, id, false, err)
	}
	docRef := s.client.Collection(marksCollection).Doc(id)

	var result *Mark
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result = nil
		m := Mark{ID: id, UserID: userID, Date: date}
		doc, err := tx.Get(docRef)
		switch {
		case err == nil:
			var fm firestoreMark
			if err := doc.DataTo(&fm); err != nil {
				return err
			}
			m = fm.toMark(id)
		case status.Code(err) != codes.NotFound:
			return err
		}

		apply(&m, params)
		if m.Empty() {
			if doc != nil && doc.Exists() {
				return tx.Delete(docRef)
			}
			return nil
		}
		m.UpdatedAt = time.Now().UTC()
		if err := tx.Set(docRef, firestoreMark{
			UserID:    userID,
			Date:      date,
			Comment:   m.Comment,
			Icons:     m.Icons,
			UpdatedAt: m.UpdatedAt,
		}); err != nil {
			return err
		}
		result = &m
		return nil
	})
	if err != nil {
		return nil, audit(ctx, userID, id, false, err)
	}
	auditSuccess(ctx, userID, id, result == nil)
	return result, nil
}

// Month queries the half-open date range of the month.
func (s *FirestoreStore) Month(ctx context.Context, userID string, year int, month time.Month) (map[string]Mark, error) {
	start, end := timeutil.MonthRange(year, month)
	docs, err := s.client.Collection(marksCollection).
		Where("user_id", "==", userID).
		Where("date", ">=", start).
		Where("date", "<", end).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Mark, len(docs))
	for _, doc := range docs {
		var fm firestoreMark
		if err := doc.DataTo(&fm); err != nil {
			return nil, err
		}
		out[fm.Date] = fm.toMark(doc.Ref.ID)
	}
	return out, nil
}

// Compile-time interface check
var _ Service = (*FirestoreStore)(nil)
