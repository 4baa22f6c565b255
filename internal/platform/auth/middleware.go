package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/duo-journal/internal/platform/logging"
)

type userContextKey struct{}

// ErrUnauthenticated is returned by RequireUser when no user is in context.
var ErrUnauthenticated = errors.New("unauthenticated")

// authReasons are the log categories for verification failures.
var authReasons = []struct {
	err    error
	reason string
}{
	{ErrTokenExpired, "token_expired"},
	{ErrTokenRevoked, "token_revoked"},
	{ErrUserDisabled, "user_disabled"},
	{ErrCertificateFetch, "certificate_fetch_failed"},
	{ErrInvalidToken, "invalid_token"},
}

func categorizeAuthError(err error) string {
	for _, r := range authReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "unknown"
}

// NewAuthMiddleware verifies the bearer token of operations that declare a
// security requirement. The caller becomes the request's User and its uid is
// added to the request logger. Public operations pass through.
func NewAuthMiddleware(api huma.API, verifier Verifier) func(huma.Context, func(huma.Context)) {
	unauthorized := func(ctx huma.Context, reason, detail string) {
		applog.LogWarn(ctx.Context(), "auth rejected", zap.String("reason", reason))
		ctx.SetHeader("WWW-Authenticate", "Bearer")
		_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, detail)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		if len(ctx.Operation().Security) == 0 {
			next(ctx)
			return
		}

		token, err := ExtractBearerToken(ctx.Header("Authorization"))
		if err != nil {
			unauthorized(ctx, "no_token", "missing or invalid authorization header")
			return
		}

		user, err := verifier.Verify(ctx.Context(), token)
		switch {
		case errors.Is(err, ErrCertificateFetch):
			applog.LogWarn(ctx.Context(), "auth unavailable", zap.String("reason", categorizeAuthError(err)))
			ctx.SetHeader("Retry-After", "30")
			_ = huma.WriteErr(api, ctx, http.StatusServiceUnavailable, "authentication service temporarily unavailable")
			return
		case err != nil:
			unauthorized(ctx, categorizeAuthError(err), "invalid or expired token")
			return
		}

		next(huma.WithContext(ctx, applog.WithUserID(WithUser(ctx.Context(), user), user.UID)))
	}
}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the request's User, or nil on public operations.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}

// RequireUser returns the caller, or a 401 error a huma handler can return
// as is.
func RequireUser(ctx context.Context) (*User, error) {
	if user := UserFromContext(ctx); user != nil && user.UID != "" {
		return user, nil
	}
	return nil, huma.Error401Unauthorized(ErrUnauthenticated.Error())
}
