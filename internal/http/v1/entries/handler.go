package entries

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/duo-journal/internal/http/v1/access"
	"github.com/janisto/duo-journal/internal/platform/auth"
	applog "github.com/janisto/duo-journal/internal/platform/logging"
	"github.com/janisto/duo-journal/internal/platform/pagination"
	"github.com/janisto/duo-journal/internal/platform/timeutil"
	"github.com/janisto/duo-journal/internal/service/journal"
)

const cursorKind = "entry"

// maxEntryBodyBytes leaves room for JSON escaping around the content limit.
const maxEntryBodyBytes = 2 << 20

var bearerAuth = []map[string][]string{{"bearerAuth": {}}}

// CommentRemover deletes what hangs off an entry when the entry goes away.
type CommentRemover interface {
	DeleteForEntry(ctx context.Context, userID, entryID string) error
}

// Register registers journal entry endpoints.
func Register(api huma.API, svc journal.Service, checker access.Checker, comments CommentRemover, prefix string) {
	huma.Register(api, huma.Operation{
		OperationID: "list-entries",
		Method:      http.MethodGet,
		Path:        "/entries",
		Summary:     "List journal entries",
		Description: "Lists the caller's or the partner's entries, newest first. Use the cursor from the Link header to page.",
		Tags:        []string{"Entries"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *EntriesListInput) (*EntriesListOutput, error) {
		_, ownerID, err := access.Resolve(ctx, checker, input.Owner)
		if err != nil {
			return nil, err
		}
		cursor, err := pagination.DecodeCursorOfKind(input.Cursor, cursorKind)
		if err == nil && cursor.Key != "" {
			_, err = timeutil.ParseDate(cursor.Key)
		}
		if err != nil {
			return nil, huma.Error400BadRequest("invalid cursor format")
		}

		limit := input.DefaultLimit()
		list, err := svc.List(ctx, ownerID, cursor.Key, limit+1)
		if err != nil {
			return nil, mapServiceError(err)
		}
		items := make([]Entry, 0, len(list.Entries))
		for i := range list.Entries {
			items = append(items, toHTTPEntry(&list.Entries[i]))
		}

		query := url.Values{}
		if input.Owner != "" {
			query.Set("owner", input.Owner)
		}
		page := pagination.NewPage(
			items,
			limit,
			int(list.Total),
			cursorKind,
			func(e Entry) string { return e.Date },
			prefix+"/entries",
			query,
		)
		return &EntriesListOutput{
			Link: page.LinkHeader,
			Body: ListData{Items: page.Items, Total: page.Total},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "count-entries",
		Method:      http.MethodGet,
		Path:        "/entries/count",
		Summary:     "Count journal entries",
		Description: "Counts the entries with content of the caller or the partner.",
		Tags:        []string{"Entries"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *EntriesCountInput) (*EntriesCountOutput, error) {
		_, ownerID, err := access.Resolve(ctx, checker, input.Owner)
		if err != nil {
			return nil, err
		}
		n, err := svc.Count(ctx, ownerID)
		if err != nil {
			return nil, mapServiceError(err)
		}
		out := &EntriesCountOutput{}
		out.Body.Count = n
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-entry",
		Method:      http.MethodGet,
		Path:        "/entries/{date}",
		Summary:     "Get a journal entry",
		Description: "Returns the caller's or the partner's entry for the day.",
		Tags:        []string{"Entries"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *EntryGetInput) (*EntryOutput, error) {
		_, ownerID, err := access.Resolve(ctx, checker, input.Owner)
		if err != nil {
			return nil, err
		}
		entry, err := svc.Get(ctx, ownerID, input.Date)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &EntryOutput{Body: toHTTPEntry(entry)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:  "save-entry",
		Method:       http.MethodPut,
		Path:         "/entries/{date}",
		Summary:      "Write a journal entry",
		Description:  "Creates or replaces the caller's entry for the day.",
		Tags:         []string{"Entries"},
		MaxBodyBytes: maxEntryBodyBytes,
		Security:     bearerAuth,
	}, func(ctx context.Context, input *EntrySaveInput) (*EntryOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		entry, err := svc.Save(ctx, user.UID, input.Date, input.Body.Content)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &EntryOutput{Body: toHTTPEntry(entry)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-entry",
		Method:        http.MethodDelete,
		Path:          "/entries/{date}",
		Summary:       "Delete a journal entry",
		Description:   "Deletes the caller's entry for the day together with its AI comment and chat.",
		Tags:          []string{"Entries"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearerAuth,
	}, func(ctx context.Context, input *EntryDeleteInput) (*struct{}, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		if err := svc.Delete(ctx, user.UID, input.Date); err != nil {
			return nil, mapServiceError(err)
		}
		if err := comments.DeleteForEntry(ctx, user.UID, journal.EntryID(user.UID, input.Date)); err != nil {
			applog.LogError(ctx, "failed to delete AI comment of deleted entry", err)
			return nil, huma.Error500InternalServerError("internal error")
		}
		return nil, nil
	})
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, journal.ErrNotFound):
		return huma.Error404NotFound("entry not found")
	case errors.Is(err, journal.ErrInvalidDate):
		return huma.Error422UnprocessableEntity("date must be a valid YYYY-MM-DD day")
	case errors.Is(err, journal.ErrContentTooLarge):
		return huma.NewError(http.StatusRequestEntityTooLarge, "content must be at most 1 MiB")
	default:
		return huma.Error500InternalServerError("internal error")
	}
}

func toHTTPEntry(e *journal.Entry) Entry {
	return Entry{
		ID:         e.ID,
		UserID:     e.UserID,
		Date:       e.Date,
		Content:    e.Content,
		HasContent: e.HasContent,
		CreatedAt:  timeutil.Time{Time: e.CreatedAt},
		UpdatedAt:  timeutil.Time{Time: e.UpdatedAt},
	}
}
