package calendar

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/sync/errgroup"

	"github.com/janisto/duo-journal/internal/http/v1/access"
	"github.com/janisto/duo-journal/internal/platform/auth"
	"github.com/janisto/duo-journal/internal/platform/timeutil"
	calendarsvc "github.com/janisto/duo-journal/internal/service/calendar"
)

var bearerAuth = []map[string][]string{{"bearerAuth": {}}}

// EntryDates lists the days of a month that have journal content.
// journal.Service satisfies it.
type EntryDates interface {
	MonthDates(ctx context.Context, userID string, year int, month time.Month) ([]string, error)
}

// Register registers calendar endpoints.
func Register(api huma.API, svc calendarsvc.Service, entries EntryDates, checker access.Checker) {
	huma.Register(api, huma.Operation{
		OperationID: "get-calendar-month",
		Method:      http.MethodGet,
		Path:        "/calendar/{year}/{month}",
		Summary:     "Get a calendar month",
		Description: "Returns the days with journal entries and the day marks of the caller or the partner.",
		Tags:        []string{"Calendar"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *MonthInput) (*MonthOutput, error) {
		_, ownerID, err := access.Resolve(ctx, checker, input.Owner)
		if err != nil {
			return nil, err
		}
		month := time.Month(input.Month)

		var (
			dates []string
			marks map[string]calendarsvc.Mark
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			dates, err = entries.MonthDates(gctx, ownerID, input.Year, month)
			return err
		})
		g.Go(func() error {
			var err error
			marks, err = svc.Month(gctx, ownerID, input.Year, month)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, mapServiceError(err)
		}

		out := Month{
			Year:       input.Year,
			Month:      input.Month,
			EntryDates: dates,
			Marks:      make([]Mark, 0, len(marks)),
		}
		if out.EntryDates == nil {
			out.EntryDates = []string{}
		}
		for _, m := range marks {
			out.Marks = append(out.Marks, toHTTPMark(&m))
		}
		slices.SortFunc(out.Marks, func(a, b Mark) int {
			return strings.Compare(a.Date, b.Date)
		})
		return &MonthOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-calendar-mark",
		Method:      http.MethodPatch,
		Path:        "/calendar/{date}",
		Summary:     "Annotate a day",
		Description: "Sets the caller's comment and icons for the day. Omitted fields stay unchanged; clearing both removes the mark.",
		Tags:        []string{"Calendar"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *MarkSetInput) (*MarkOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		if input.Body.Comment == nil && input.Body.Icons == nil {
			return nil, huma.Error422UnprocessableEntity("at least one field must be provided")
		}

		mark, err := svc.Set(ctx, user.UID, input.Date, calendarsvc.SetParams{
			Comment: input.Body.Comment,
			Icons:   input.Body.Icons,
		})
		if err != nil {
			return nil, mapServiceError(err)
		}
		if mark == nil {
			return &MarkOutput{Body: Mark{Date: input.Date, Icons: []string{}}}, nil
		}
		return &MarkOutput{Body: toHTTPMark(mark)}, nil
	})
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, calendarsvc.ErrNotFound):
		return huma.Error404NotFound("calendar mark not found")
	case errors.Is(err, calendarsvc.ErrInvalidDate):
		return huma.Error422UnprocessableEntity("date must be a valid YYYY-MM-DD day")
	case errors.Is(err, calendarsvc.ErrCommentTooLong),
		errors.Is(err, calendarsvc.ErrTooManyIcons),
		errors.Is(err, calendarsvc.ErrInvalidIcon):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError("internal error")
	}
}

func toHTTPMark(m *calendarsvc.Mark) Mark {
	icons := m.Icons
	if icons == nil {
		icons = []string{}
	}
	updated := timeutil.Time{Time: m.UpdatedAt}
	return Mark{
		Date:      m.Date,
		Comment:   m.Comment,
		Icons:     icons,
		UpdatedAt: &updated,
	}
}
