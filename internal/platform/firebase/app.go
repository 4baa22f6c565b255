// Package firebase creates the Admin SDK clients the server depends on:
// Authentication verifies ID tokens and Firestore stores journal data.
package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Config selects the project and credentials. Without a credentials file the
// SDK falls back to Application Default Credentials.
type Config struct {
	ProjectID                    string
	GoogleApplicationCredentials string
	// SkipFirestore leaves Clients.Firestore nil for the in-memory backend.
	SkipFirestore bool
}

// Clients are the initialized SDK clients. Firestore is nil when skipped.
type Clients struct {
	Auth      *auth.Client
	Firestore *firestore.Client
}

func clientOptions(cfg Config) ([]option.ClientOption, error) {
	if cfg.GoogleApplicationCredentials == "" {
		return nil, nil
	}
	creds, err := os.ReadFile(cfg.GoogleApplicationCredentials)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentialsJSON(creds)}, nil
}

// InitializeClients builds the Firebase app and its clients. The SDK picks up
// FIREBASE_AUTH_EMULATOR_HOST and FIRESTORE_EMULATOR_HOST on its own.
func InitializeClients(ctx context.Context, cfg Config) (*Clients, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firebase app: %w", err)
	}

	var c Clients
	if c.Auth, err = app.Auth(ctx); err != nil {
		return nil, fmt.Errorf("creating auth client: %w", err)
	}
	if !cfg.SkipFirestore {
		if c.Firestore, err = app.Firestore(ctx); err != nil {
			return nil, fmt.Errorf("creating firestore client: %w", err)
		}
	}
	return &c, nil
}

// Close releases the Firestore connection, if any.
func (c *Clients) Close() error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}
