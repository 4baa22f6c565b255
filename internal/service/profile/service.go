package profile

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	applog "github.com/janisto/duo-journal/internal/platform/logging"
)

// Service errors
var (
	ErrNotFound        = errors.New("profile not found")
	ErrAlreadyExists   = errors.New("profile already exists")
	ErrUsernameTaken   = errors.New("username is already taken")
	ErrInvalidUsername = errors.New("username must be 3-30 characters of a-z, 0-9 or _")
	ErrInvalidAvatar   = errors.New("avatar is not one of the available options")
	// ErrInvalidDisplayName is checked after trimming, so a blank name fails.
	ErrInvalidDisplayName = errors.New("display name must be 1-50 characters")
)

// MaxDisplayNameRunes bounds a trimmed display name.
const MaxDisplayNameRunes = 50

// AvatarOptions lists the emoji a profile may use as its avatar.
var AvatarOptions = []string{"🌸", "🌊", "🌺", "🌿", "🌙", "⭐", "🦋", "🌻", "🍃", "🔥", "💜", "🧸"}

// DefaultAvatar is used when a profile is created without one.
const DefaultAvatar = "🌸"

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

// Profile represents stored profile data.
type Profile struct {
	ID          string
	Username    string
	DisplayName string
	Avatar      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateParams for creating a profile.
type CreateParams struct {
	Username    string
	DisplayName string
	Avatar      string
}

// UpdateParams for updating a profile. Only display fields can change.
type UpdateParams struct {
	DisplayName *string
	Avatar      *string
}

// Service defines profile operations.
//
// Implementations must normalize usernames (lowercase, trimmed) both when
// storing and when looking up, so usernames are unique case-insensitively.
type Service interface {
	Create(ctx context.Context, userID string, params CreateParams) (*Profile, error)
	Get(ctx context.Context, userID string) (*Profile, error)
	GetByUsername(ctx context.Context, username string) (*Profile, error)
	Update(ctx context.Context, userID string, params UpdateParams) (*Profile, error)
}

// NormalizeUsername lowercases and trims a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidAvatar reports whether avatar is one of AvatarOptions.
func ValidAvatar(avatar string) bool {
	return slices.Contains(AvatarOptions, avatar)
}

// normalizeDisplayName trims name and checks its length.
func normalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxDisplayNameRunes {
		return name, ErrInvalidDisplayName
	}
	return name, nil
}

// prepareCreate normalizes and validates create parameters.
func prepareCreate(params CreateParams) (CreateParams, error) {
	params.Username = NormalizeUsername(params.Username)
	if !usernamePattern.MatchString(params.Username) {
		return params, ErrInvalidUsername
	}
	name, err := normalizeDisplayName(params.DisplayName)
	if err != nil {
		return params, err
	}
	params.DisplayName = name
	if params.Avatar == "" {
		params.Avatar = DefaultAvatar
	}
	if !ValidAvatar(params.Avatar) {
		return params, ErrInvalidAvatar
	}
	return params, nil
}

// applyUpdate copies the provided fields onto p.
func applyUpdate(p *Profile, params UpdateParams) error {
	if params.Avatar != nil && !ValidAvatar(*params.Avatar) {
		return ErrInvalidAvatar
	}
	if params.DisplayName != nil {
		name, err := normalizeDisplayName(*params.DisplayName)
		if err != nil {
			return err
		}
		p.DisplayName = name
	}
	if params.Avatar != nil {
		p.Avatar = *params.Avatar
	}
	return nil
}

// categorizeError converts errors to audit-safe categories.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrInvalidAvatar), errors.Is(err, ErrInvalidDisplayName):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}

func auditSuccess(ctx context.Context, action, userID string) {
	applog.LogAuditEvent(ctx, action, userID, applog.ResourceProfile, userID, applog.ResultSuccess, nil)
}

func audit(ctx context.Context, action, userID string, err error) error {
	return applog.AuditOutcome(ctx, applog.AuditEvent{
		Action:       action,
		UserID:       userID,
		ResourceType: applog.ResourceProfile,
		ResourceID:   userID,
	}, err, categorizeError)
}
