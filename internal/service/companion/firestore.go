package companion

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	commentsCollection = "ai_comments"
	messagesCollection = "messages"
)

// firestoreComment maps to Firestore document structure.
type firestoreComment struct {
	EntryID   string    `firestore:"entry_id"`
	UserID    string    `firestore:"user_id"`
	Comment   string    `firestore:"comment"`
	Score     *int      `firestore:"score"`
	IsPublic  bool      `firestore:"is_public"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func (fc firestoreComment) toComment(id string) *Comment {
	return &Comment{
		ID:        id,
		EntryID:   fc.EntryID,
		UserID:    fc.UserID,
		Comment:   fc.Comment,
		Score:     fc.Score,
		IsPublic:  fc.IsPublic,
		CreatedAt: fc.CreatedAt,
		UpdatedAt: fc.UpdatedAt,
	}
}

type firestoreMessage struct {
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	CreatedAt time.Time `firestore:"created_at"`
}

// FirestoreStore implements Store using Firestore. Chat messages live in a
// subcollection of their comment.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) comment(entryID string) *firestore.DocumentRef {
	return s.client.Collection(commentsCollection).Doc(entryID)
}

func (s *FirestoreStore) GetComment(ctx context.Context, entryID string) (*Comment, error) {
	doc, err := s.comment(entryID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var fc firestoreComment
	if err := doc.DataTo(&fc); err != nil {
		return nil, err
	}
	return fc.toComment(doc.Ref.ID), nil
}

func (s *FirestoreStore) SaveComment(ctx context.Context, c Comment) (*Comment, error) {
	docRef := s.comment(c.EntryID)
	var result *Comment
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		fc := firestoreComment{
			EntryID:   c.EntryID,
			UserID:    c.UserID,
			Comment:   c.Comment,
			Score:     c.Score,
			IsPublic:  c.IsPublic,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		}
		doc, err := tx.Get(docRef)
		switch {
		case err == nil:
			var existing firestoreComment
			if err := doc.DataTo(&existing); err != nil {
				return err
			}
			fc.CreatedAt = existing.CreatedAt
			fc.IsPublic = existing.IsPublic
		case status.Code(err) != codes.NotFound:
			return err
		}
		if err := tx.Set(docRef, fc); err != nil {
			return err
		}
		result = fc.toComment(c.EntryID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *FirestoreStore) SetVisibility(ctx context.Context, entryID string, isPublic bool, at time.Time) (*Comment, error) {
	docRef := s.comment(entryID)
	var result *Comment
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		var fc firestoreComment
		if err := doc.DataTo(&fc); err != nil {
			return err
		}
		fc.IsPublic = isPublic
		fc.UpdatedAt = at
		if err := tx.Update(docRef, []firestore.Update{
			{Path: "is_public", Value: isPublic},
			{Path: "updated_at", Value: at},
		}); err != nil {
			return err
		}
		result = fc.toComment(entryID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *FirestoreStore) Messages(ctx context.Context, commentID string) ([]ChatMessage, error) {
	docs, err := s.comment(commentID).Collection(messagesCollection).
		OrderBy("created_at", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]ChatMessage, 0, len(docs))
	for _, doc := range docs {
		var fm firestoreMessage
		if err := doc.DataTo(&fm); err != nil {
			return nil, err
		}
		out = append(out, ChatMessage{
			ID:        doc.Ref.ID,
			CommentID: commentID,
			Role:      Role(fm.Role),
			Content:   fm.Content,
			CreatedAt: fm.CreatedAt,
		})
	}
	return out, nil
}

func (s *FirestoreStore) AddMessage(ctx context.Context, msg ChatMessage) error {
	_, err := s.comment(msg.CommentID).Collection(messagesCollection).Doc(msg.ID).Create(ctx, firestoreMessage{
		Role:      string(msg.Role),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	})
	return err
}

// DeleteForEntry removes the chat and then the comment in one transaction.
func (s *FirestoreStore) DeleteForEntry(ctx context.Context, entryID string) error {
	docRef := s.comment(entryID)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		msgs, err := tx.Documents(docRef.Collection(messagesCollection)).GetAll()
		if err != nil {
			return err
		}
		for _, doc := range msgs {
			if err := tx.Delete(doc.Ref); err != nil {
				return err
			}
		}
		return tx.Delete(docRef)
	})
}

// Compile-time interface check
var _ Store = (*FirestoreStore)(nil)
