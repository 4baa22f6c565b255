// Package testutil connects tests to the Firebase Auth and Firestore
// emulators. Tests that need an emulator skip when it is not listening.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
)

// Emulator endpoints, matching firebase.json of the local emulator suite.
const (
	AuthEmulatorHost      = "127.0.0.1:7110"
	FirestoreEmulatorHost = "127.0.0.1:7130"
	ProjectID             = "demo-duo-journal"
	fakeAPIKey            = "fake-api-key" //nolint:gosec // emulator accepts any key
)

func listening(host string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// SkipIfFirestoreUnavailable skips t unless the Firestore emulator is up.
func SkipIfFirestoreUnavailable(t *testing.T) {
	t.Helper()
	if !listening(FirestoreEmulatorHost) {
		t.Skip("Firestore emulator not available")
	}
}

// SkipIfAuthUnavailable skips t unless the Auth emulator is up.
func SkipIfAuthUnavailable(t *testing.T) {
	t.Helper()
	if !listening(AuthEmulatorHost) {
		t.Skip("Auth emulator not available")
	}
}

// NewFirestoreClient returns an emulator client over an empty database. The
// database is wiped again and the client closed when t ends.
func NewFirestoreClient(t *testing.T) *firestore.Client {
	t.Helper()
	SkipIfFirestoreUnavailable(t)
	t.Setenv("FIRESTORE_EMULATOR_HOST", FirestoreEmulatorHost)
	wipe(t, fmt.Sprintf("http://%s/emulator/v1/projects/%s/databases/(default)/documents",
		FirestoreEmulatorHost, ProjectID))

	client, err := firestore.NewClient(context.Background(), ProjectID)
	if err != nil {
		t.Fatalf("failed to create Firestore client: %v", err)
	}
	t.Cleanup(func() {
		wipe(t, fmt.Sprintf("http://%s/emulator/v1/projects/%s/databases/(default)/documents",
			FirestoreEmulatorHost, ProjectID))
		_ = client.Close()
	})
	return client
}

// UseAuthEmulator points the Admin SDK at the Auth emulator and removes its
// accounts before and after t.
func UseAuthEmulator(t *testing.T) {
	t.Helper()
	SkipIfAuthUnavailable(t)
	t.Setenv("FIREBASE_AUTH_EMULATOR_HOST", AuthEmulatorHost)
	accounts := fmt.Sprintf("http://%s/emulator/v1/projects/%s/accounts", AuthEmulatorHost, ProjectID)
	wipe(t, accounts)
	t.Cleanup(func() { wipe(t, accounts) })
}

func wipe(t *testing.T, url string) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to clear emulator: %v", err)
	}
	_ = resp.Body.Close()
}

// Account is an Auth emulator user with a fresh ID token.
type Account struct {
	IDToken string `json:"idToken"`
	UID     string `json:"localId"`
	Email   string `json:"email"`
}

// SignUp creates an email/password account on the Auth emulator.
func SignUp(t *testing.T, email, password string) *Account {
	t.Helper()
	url := fmt.Sprintf("http://%s/identitytoolkit.googleapis.com/v1/accounts:signUp?key=%s",
		AuthEmulatorHost, fakeAPIKey)
	body, _ := json.Marshal(map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to sign up %s: %v", email, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sign up %s: status %d", email, resp.StatusCode)
	}

	var acct Account
	if err := json.NewDecoder(resp.Body).Decode(&acct); err != nil {
		t.Fatalf("failed to decode sign up response: %v", err)
	}
	return &acct
}
