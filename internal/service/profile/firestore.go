package profile

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	profilesCollection  = "profiles"
	usernamesCollection = "usernames"
)

// firestoreProfile maps to Firestore document structure.
type firestoreProfile struct {
	Username    string    `firestore:"username"`
	DisplayName string    `firestore:"display_name"`
	Avatar      string    `firestore:"avatar"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

// usernameClaim reserves a username for one user.
type usernameClaim struct {
	UserID string `firestore:"user_id"`
}

func (fp firestoreProfile) toProfile(id string) *Profile {
	return &Profile{
		ID:          id,
		Username:    fp.Username,
		DisplayName: fp.DisplayName,
		Avatar:      fp.Avatar,
		CreatedAt:   fp.CreatedAt,
		UpdatedAt:   fp.UpdatedAt,
	}
}

// FirestoreStore implements Service using Firestore with transactions.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Create writes the profile and its username claim in one transaction.
func (s *FirestoreStore) Create(ctx context.Context, userID string, params CreateParams) (*Profile, error) {
	params, err := prepareCreate(params)
	if err != nil {
		return nil, audit(ctx, "create", userID, err)
	}

	profileRef := s.client.Collection(profilesCollection).Doc(userID)
	claimRef := s.client.Collection(usernamesCollection).Doc(params.Username)
	now := time.Now().UTC()

	var result *Profile
	err = s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if exists, err := docExists(tx, profileRef); err != nil {
			return err
		} else if exists {
			return ErrAlreadyExists
		}
		if exists, err := docExists(tx, claimRef); err != nil {
			return err
		} else if exists {
			return ErrUsernameTaken
		}

		fp := firestoreProfile{
			Username:    params.Username,
			DisplayName: params.DisplayName,
			Avatar:      params.Avatar,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Create(claimRef, usernameClaim{UserID: userID}); err != nil {
			return err
		}
		if err := tx.Create(profileRef, fp); err != nil {
			return err
		}
		result = fp.toProfile(userID)
		return nil
	})
	if err != nil {
		return nil, audit(ctx, "create", userID, err)
	}
	auditSuccess(ctx, "create", userID)
	return result, nil
}

// Get retrieves a profile by user ID.
func (s *FirestoreStore) Get(ctx context.Context, userID string) (*Profile, error) {
	doc, err := s.client.Collection(profilesCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var fp firestoreProfile
	if err := doc.DataTo(&fp); err != nil {
		return nil, err
	}
	return fp.toProfile(userID), nil
}

// GetByUsername resolves the username claim and loads its profile.
func (s *FirestoreStore) GetByUsername(ctx context.Context, username string) (*Profile, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return nil, ErrNotFound
	}
	doc, err := s.client.Collection(usernamesCollection).Doc(username).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var claim usernameClaim
	if err := doc.DataTo(&claim); err != nil {
		return nil, err
	}
	return s.Get(ctx, claim.UserID)
}

// Update updates display fields using a transaction for atomicity.
func (s *FirestoreStore) Update(ctx context.Context, userID string, params UpdateParams) (*Profile, error) {
	docRef := s.client.Collection(profilesCollection).Doc(userID)

	var result *Profile
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		var fp firestoreProfile
		if err := doc.DataTo(&fp); err != nil {
			return err
		}

		p := fp.toProfile(userID)
		if err := applyUpdate(p, params); err != nil {
			return err
		}
		fp.DisplayName = p.DisplayName
		fp.Avatar = p.Avatar
		fp.UpdatedAt = time.Now().UTC()

		if err := tx.Set(docRef, fp); err != nil {
			return err
		}
		result = fp.toProfile(userID)
		return nil
	})
	if err != nil {
		return nil, audit(ctx, "update", userID, err)
	}
	auditSuccess(ctx, "update", userID)
	return result, nil
}

func docExists(tx *firestore.Transaction, ref *firestore.DocumentRef) (bool, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, err
	}
	return doc.Exists(), nil
}

// Compile-time interface check
var _ Service = (*FirestoreStore)(nil)
