package companion

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/duo-journal/internal/http/v1/access"
	"github.com/janisto/duo-journal/internal/platform/auth"
	"github.com/janisto/duo-journal/internal/platform/timeutil"
	companionsvc "github.com/janisto/duo-journal/internal/service/companion"
	"github.com/janisto/duo-journal/internal/service/journal"
)

var bearerAuth = []map[string][]string{{"bearerAuth": {}}}

// Service is the companion API used by the handlers.
// *companion.Service satisfies it.
type Service interface {
	Generate(ctx context.Context, userID, entryID, content string, withScore bool) (*companionsvc.Comment, error)
	Get(ctx context.Context, entryID string) (*companionsvc.Comment, error)
	SetVisibility(ctx context.Context, userID, entryID string, isPublic bool) (*companionsvc.Comment, error)
	Messages(ctx context.Context, entryID string) ([]companionsvc.ChatMessage, error)
	Chat(ctx context.Context, userID, entryID, content, text string) (*companionsvc.ChatMessage, *companionsvc.ChatMessage, error)
}

// EntryReader loads the entry a comment is about.
type EntryReader interface {
	Get(ctx context.Context, userID, date string) (*journal.Entry, error)
}

// Register registers AI companion endpoints.
func Register(api huma.API, svc Service, entries EntryReader, checker access.Checker) {
	huma.Register(api, huma.Operation{
		OperationID: "generate-ai-comment",
		Method:      http.MethodPost,
		Path:        "/entries/{date}/companion",
		Summary:     "Generate an AI comment",
		Description: "Asks the AI companion for a supportive comment on the caller's entry, optionally with a mood score. Replaces any previous comment.",
		Tags:        []string{"Companion"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *GenerateInput) (*CommentOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		entry, err := entries.Get(ctx, user.UID, input.Date)
		if err != nil {
			return nil, mapServiceError(err)
		}
		comment, err := svc.Generate(ctx, user.UID, entry.ID, entry.Content, input.Body.WithScore)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &CommentOutput{Body: toHTTPComment(comment)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-ai-comment",
		Method:      http.MethodGet,
		Path:        "/entries/{date}/companion",
		Summary:     "Get the AI comment",
		Description: "Returns the AI comment on the caller's or the partner's entry. A partner only sees public comments.",
		Tags:        []string{"Companion"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *CommentGetInput) (*CommentOutput, error) {
		viewerID, ownerID, err := access.Resolve(ctx, checker, input.Owner)
		if err != nil {
			return nil, err
		}
		comment, err := svc.Get(ctx, journal.EntryID(ownerID, input.Date))
		if err != nil {
			return nil, mapServiceError(err)
		}
		if viewerID != ownerID && !comment.IsPublic {
			return nil, mapServiceError(companionsvc.ErrNotFound)
		}
		return &CommentOutput{Body: toHTTPComment(comment)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-ai-comment-visibility",
		Method:      http.MethodPatch,
		Path:        "/entries/{date}/companion",
		Summary:     "Show or hide the AI comment",
		Description: "Controls whether the caller's partner may see the AI comment.",
		Tags:        []string{"Companion"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *VisibilityInput) (*CommentOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		comment, err := svc.SetVisibility(ctx, user.UID, journal.EntryID(user.UID, input.Date), input.Body.IsPublic)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &CommentOutput{Body: toHTTPComment(comment)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-ai-chat-messages",
		Method:      http.MethodGet,
		Path:        "/entries/{date}/companion/messages",
		Summary:     "List the companion chat",
		Description: "Returns the chat about the caller's entry, oldest first.",
		Tags:        []string{"Companion"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *MessagesListInput) (*MessagesListOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		msgs, err := svc.Messages(ctx, journal.EntryID(user.UID, input.Date))
		if err != nil {
			return nil, mapServiceError(err)
		}
		out := &MessagesListOutput{}
		out.Body.Items = make([]Message, 0, len(msgs))
		for i := range msgs {
			out.Body.Items = append(out.Body.Items, toHTTPMessage(&msgs[i]))
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "send-ai-chat-message",
		Method:        http.MethodPost,
		Path:          "/entries/{date}/companion/messages",
		Summary:       "Chat with the companion",
		Description:   "Sends a message about the caller's entry and returns it with the companion's reply.",
		Tags:          []string{"Companion"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerAuth,
	}, func(ctx context.Context, input *MessageSendInput) (*MessageSendOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		entry, err := entries.Get(ctx, user.UID, input.Date)
		if err != nil {
			return nil, mapServiceError(err)
		}
		msg, reply, err := svc.Chat(ctx, user.UID, entry.ID, entry.Content, input.Body.Content)
		if err != nil {
			return nil, mapServiceError(err)
		}
		out := &MessageSendOutput{}
		out.Body.Message = toHTTPMessage(msg)
		out.Body.Reply = toHTTPMessage(reply)
		return out, nil
	})
}

func mapServiceError(err error) error {
	var upstream *companionsvc.UpstreamError
	if errors.As(err, &upstream) {
		if upstream.Kind == companionsvc.UpstreamErrorKindRateLimited {
			rateLimitErr := huma.Error429TooManyRequests("AI companion is busy, try again later")
			if upstream.RetryAfter != "" {
				headers := make(http.Header)
				headers.Set("Retry-After", upstream.RetryAfter)
				return huma.ErrorWithHeaders(rateLimitErr, headers)
			}
			return rateLimitErr
		}
		return huma.Error502BadGateway("AI companion is unavailable")
	}

	switch {
	case errors.Is(err, companionsvc.ErrDisabled):
		return huma.Error503ServiceUnavailable("AI companion is not configured")
	case errors.Is(err, companionsvc.ErrNotFound):
		return huma.Error404NotFound("AI comment not found")
	case errors.Is(err, journal.ErrNotFound):
		return huma.Error404NotFound("entry not found")
	case errors.Is(err, journal.ErrInvalidDate):
		return huma.Error422UnprocessableEntity("date must be a valid YYYY-MM-DD day")
	case errors.Is(err, companionsvc.ErrEmptyEntry),
		errors.Is(err, companionsvc.ErrEmptyText),
		errors.Is(err, companionsvc.ErrTextTooLong):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError("internal error")
	}
}

func toHTTPComment(c *companionsvc.Comment) Comment {
	return Comment{
		ID:        c.ID,
		EntryID:   c.EntryID,
		Comment:   c.Comment,
		Score:     c.Score,
		IsPublic:  c.IsPublic,
		CreatedAt: timeutil.Time{Time: c.CreatedAt},
		UpdatedAt: timeutil.Time{Time: c.UpdatedAt},
	}
}

func toHTTPMessage(m *companionsvc.ChatMessage) Message {
	return Message{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: timeutil.Time{Time: m.CreatedAt},
	}
}
