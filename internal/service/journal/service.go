// Package journal stores one diary entry per user per calendar day.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	applog "github.com/janisto/duo-journal/internal/platform/logging"
	"github.com/janisto/duo-journal/internal/platform/timeutil"
)

// MaxContentBytes bounds entry content, inline images included.
const MaxContentBytes = 1 << 20

// Service errors
var (
	ErrNotFound        = errors.New("entry not found")
	ErrInvalidDate     = timeutil.ErrInvalidDate
	ErrContentTooLarge = fmt.Errorf("entry content exceeds %d bytes", MaxContentBytes)
)

// Entry is a user's journal entry for one day.
type Entry struct {
	ID         string
	UserID     string
	Date       string
	Content    string
	HasContent bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EntryPage is a window of a user's entries, newest date first.
type EntryPage struct {
	Entries []Entry
	// Total counts all of the user's entries, not just this window.
	Total int64
}

// EntryID is the storage id of the user's entry for date.
func EntryID(userID, date string) string {
	return userID + "_" + date
}

// Service defines journal operations. Dates are YYYY-MM-DD.
type Service interface {
	// Save creates or replaces the entry for the day, keeping CreatedAt.
	Save(ctx context.Context, userID, date, content string) (*Entry, error)
	Get(ctx context.Context, userID, date string) (*Entry, error)
	Delete(ctx context.Context, userID, date string) error
	// List returns up to limit entries dated strictly before the date
	// after, newest first. An empty after starts at the newest entry. Dates
	// are totally ordered, so a deleted after still resumes in place.
	List(ctx context.Context, userID, after string, limit int) (*EntryPage, error)
	// MonthDates returns the dates in the month whose entry has content.
	MonthDates(ctx context.Context, userID string, year int, month time.Month) ([]string, error)
	// Count returns the number of entries with content.
	Count(ctx context.Context, userID string) (int64, error)
}

func validateSave(date, content string) error {
	if _, err := timeutil.ParseDate(date); err != nil {
		return err
	}
	if len(content) > MaxContentBytes {
		return ErrContentTooLarge
	}
	return nil
}

func hasContent(content string) bool {
	return strings.TrimSpace(content) != ""
}

// categorizeError converts errors to audit-safe categories.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrContentTooLarge):
		return "invalid_input"
	default:
		return "internal_error"
	}
}

func auditSuccess(ctx context.Context, action, userID, entryID string) {
	applog.LogAuditEvent(ctx, action, userID, applog.ResourceEntry, entryID, applog.ResultSuccess, nil)
}

func audit(ctx context.Context, action, userID, entryID string, err error) error {
	return applog.AuditOutcome(ctx, applog.AuditEvent{
		Action:       action,
		UserID:       userID,
		ResourceType: applog.ResourceEntry,
		ResourceID:   entryID,
	}, err, categorizeError)
}
