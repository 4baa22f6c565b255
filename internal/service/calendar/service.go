// Package calendar stores per-day annotations: a short personal comment and
// a few emoji icons.
package calendar

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	applog "github.com/janisto/duo-journal/internal/platform/logging"
	"github.com/janisto/duo-journal/internal/platform/timeutil"
)

const (
	MaxCommentRunes = 200
	MaxIcons        = 5
	maxIconBytes    = 32
)

// Service errors
var (
	ErrNotFound       = errors.New("calendar mark not found")
	ErrInvalidDate    = timeutil.ErrInvalidDate
	ErrCommentTooLong = errors.New("comment must be at most 200 characters")
	ErrTooManyIcons   = errors.New("at most 5 icons per day")
	ErrInvalidIcon    = errors.New("icons must be short non-empty strings")
)

// Mark annotates one day for one user.
type Mark struct {
	ID        string
	UserID    string
	Date      string
	Comment   string
	Icons     []string
	UpdatedAt time.Time
}

// Empty reports whether the mark carries nothing worth storing.
func (m *Mark) Empty() bool {
	return strings.TrimSpace(m.Comment) == "" && len(m.Icons) == 0
}

// MarkID is the storage id of the user's mark for date.
func MarkID(userID, date string) string {
	return userID + "_" + date
}

// SetParams is a partial update. A nil field is left unchanged; an empty
// comment or a non-nil empty icon list clears the field.
type SetParams struct {
	Comment *string
	Icons   []string
}

// Service defines calendar operations.
type Service interface {
	Get(ctx context.Context, userID, date string) (*Mark, error)
	// Set applies params and returns the stored mark, or nil when the
	// update left the mark empty and it was deleted.
	Set(ctx context.Context, userID, date string, params SetParams) (*Mark, error)
	// Month returns the user's marks in the month keyed by date.
	Month(ctx context.Context, userID string, year int, month time.Month) (map[string]Mark, error)
}

func validate(date string, params SetParams) error {
	if _, err := timeutil.ParseDate(date); err != nil {
		return err
	}
	if params.Comment != nil && utf8.RuneCountInString(*params.Comment) > MaxCommentRunes {
		return ErrCommentTooLong
	}
	if len(params.Icons) > MaxIcons {
		return ErrTooManyIcons
	}
	for _, icon := range params.Icons {
		if strings.TrimSpace(icon) == "" || len(icon) > maxIconBytes {
			return ErrInvalidIcon
		}
	}
	return nil
}

// apply merges params into m.
func apply(m *Mark, params SetParams) {
	if params.Comment != nil {
		m.Comment = strings.TrimSpace(*params.Comment)
	}
	if params.Icons != nil {
		m.Icons = append([]string(nil), params.Icons...)
	}
	if len(m.Icons) == 0 {
		m.Icons = nil
	}
}

// categorizeError converts errors to audit-safe categories.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrCommentTooLong),
		errors.Is(err, ErrTooManyIcons),
		errors.Is(err, ErrInvalidIcon):
		return "invalid_input"
	default:
		return "internal_error"
	}
}

func markAction(deleted bool) string {
	if deleted {
		return "clear"
	}
	return "set"
}

func auditSuccess(ctx context.Context, userID, markID string, deleted bool) {
	applog.LogAuditEvent(ctx, markAction(deleted), userID, applog.ResourceCalendar, markID, applog.ResultSuccess, nil)
}

func audit(ctx context.Context, userID, markID string, deleted bool, err error) error {
	return applog.AuditOutcome(ctx, applog.AuditEvent{
		Action:       markAction(deleted),
		UserID:       userID,
		ResourceType: applog.ResourceCalendar,
		ResourceID:   markID,
	}, err, categorizeError)
}
