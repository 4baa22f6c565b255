package auth

import "context"

// MockVerifier is a Verifier for handler tests. With Tokens set, each bearer
// token names its own user so a single router can act for both partners;
// otherwise every token resolves to User.
type MockVerifier struct {
	User   *User
	Tokens map[string]*User
	Error  error
}

// Verify implements Verifier.
func (m *MockVerifier) Verify(_ context.Context, token string) (*User, error) {
	switch {
	case m.Error != nil:
		return nil, m.Error
	case m.Tokens == nil:
		return m.User, nil
	}
	if u, ok := m.Tokens[token]; ok {
		return u, nil
	}
	return nil, ErrInvalidToken
}

// TestUser is the default journal owner in handler tests.
func TestUser() *User {
	return &User{UID: "test-user-123", Email: "test@example.com", EmailVerified: true}
}

var _ Verifier = (*MockVerifier)(nil)
