package auth

import (
	"context"
	"errors"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
)

// User is the journal writer behind a verified ID token. UID doubles as the
// profile id in every service call.
type User struct {
	UID           string
	Email         string
	EmailVerified bool
}

// Token verification failures. ErrCertificateFetch is transient and maps to
// 503; the rest map to 401.
var (
	ErrNoToken          = errors.New("missing authorization header")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrUserDisabled     = errors.New("user disabled")
	ErrCertificateFetch = errors.New("failed to fetch certificates")
)

// Verifier turns a bearer token into a User.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// FirebaseVerifier checks Firebase ID tokens with the Admin SDK.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebaseVerifier wraps an Admin SDK auth client.
func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// verifyFailures maps SDK error predicates to our sentinels, first match wins.
var verifyFailures = []struct {
	is  func(error) bool
	err error
}{
	{fbauth.IsCertificateFetchFailed, ErrCertificateFetch},
	{fbauth.IsIDTokenExpired, ErrTokenExpired},
	{fbauth.IsIDTokenRevoked, ErrTokenRevoked},
	{fbauth.IsUserDisabled, ErrUserDisabled},
}

// Verify validates the token and checks revocation, so a disabled or
// signed-out account loses access to its journal at once.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*User, error) {
	token, err := v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		for _, f := range verifyFailures {
			if f.is(err) {
				return nil, f.err
			}
		}
		return nil, ErrInvalidToken
	}

	user := &User{UID: token.UID}
	user.Email, _ = token.Claims["email"].(string)
	user.EmailVerified, _ = token.Claims["email_verified"].(bool)
	return user, nil
}

// ExtractBearerToken returns the token of a "Bearer <token>" header. The
// scheme is case-insensitive.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrNoToken
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrInvalidToken
	}
	return token, nil
}

var _ Verifier = (*FirebaseVerifier)(nil)
