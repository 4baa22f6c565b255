package partner

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/duo-journal/internal/platform/auth"
	"github.com/janisto/duo-journal/internal/platform/timeutil"
	partnersvc "github.com/janisto/duo-journal/internal/service/partner"
	"github.com/janisto/duo-journal/internal/service/profile"
)

var bearerAuth = []map[string][]string{{"bearerAuth": {}}}

// Register registers partner endpoints.
func Register(api huma.API, svc partnersvc.Service, prefix string) {
	huma.Register(api, huma.Operation{
		OperationID: "get-partner-overview",
		Method:      http.MethodGet,
		Path:        "/partner",
		Summary:     "Get partner state",
		Description: "Returns the caller's active partnership and pending requests in both directions.",
		Tags:        []string{"Partner"},
		Security:    bearerAuth,
	}, func(ctx context.Context, _ *OverviewInput) (*OverviewOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		overview, err := svc.Overview(ctx, user.UID)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &OverviewOutput{Body: toHTTPOverview(overview)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "send-partner-request",
		Method:        http.MethodPost,
		Path:          "/partner/requests",
		Summary:       "Send a partner request",
		Description:   "Sends a partner request to the user with the given username.",
		Tags:          []string{"Partner"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerAuth,
	}, func(ctx context.Context, input *SendRequestInput) (*SendRequestOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		link, err := svc.SendRequest(ctx, user.UID, input.Body.Username)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &SendRequestOutput{
			Location: prefix + "/partner",
			Body:     toHTTPLink(link),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-partner-request",
		Method:      http.MethodPost,
		Path:        "/partner/requests/{id}/accept",
		Summary:     "Accept a partner request",
		Description: "Accepts a pending request sent to the caller. Both users must still be without a partner.",
		Tags:        []string{"Partner"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *LinkInput) (*LinkOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		link, err := svc.Accept(ctx, user.UID, input.ID)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &LinkOutput{Body: toHTTPLink(link)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "reject-partner-request",
		Method:        http.MethodDelete,
		Path:          "/partner/requests/{id}",
		Summary:       "Reject or cancel a partner request",
		Description:   "Deletes a pending request. The recipient declines with it and the initiator cancels with it.",
		Tags:          []string{"Partner"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearerAuth,
	}, func(ctx context.Context, input *LinkInput) (*struct{}, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		if err := svc.Reject(ctx, user.UID, input.ID); err != nil {
			return nil, mapServiceError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "request-partner-break",
		Method:      http.MethodPost,
		Path:        "/partner/links/{id}/break",
		Summary:     "Ask to disconnect",
		Description: "Starts the disconnect handshake. The partner then confirms or either side cancels.",
		Tags:        []string{"Partner"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *LinkInput) (*LinkOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		link, err := svc.RequestBreak(ctx, user.UID, input.ID)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &LinkOutput{Body: toHTTPLink(link)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "confirm-partner-break",
		Method:        http.MethodPost,
		Path:          "/partner/links/{id}/break/confirm",
		Summary:       "Confirm a disconnect",
		Description:   "Ends the partnership. Only the partner who did not ask to disconnect may confirm.",
		Tags:          []string{"Partner"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearerAuth,
	}, func(ctx context.Context, input *LinkInput) (*struct{}, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		if err := svc.ConfirmBreak(ctx, user.UID, input.ID); err != nil {
			return nil, mapServiceError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-partner-break",
		Method:      http.MethodDelete,
		Path:        "/partner/links/{id}/break",
		Summary:     "Cancel a disconnect request",
		Description: "Returns the partnership to accepted. Either partner may cancel.",
		Tags:        []string{"Partner"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *LinkInput) (*LinkOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		link, err := svc.CancelBreak(ctx, user.UID, input.ID)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &LinkOutput{Body: toHTTPLink(link)}, nil
	})

	registerEvents(api, svc)
}

// mapServiceError turns partner failures into problem responses carrying
// the service's message.
func mapServiceError(err error) error {
	var perr *partnersvc.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case partnersvc.KindNotFound:
			return huma.Error404NotFound(perr.Message)
		case partnersvc.KindInvalidOperation:
			return huma.Error422UnprocessableEntity(perr.Message)
		case partnersvc.KindConflict:
			return huma.Error409Conflict(perr.Message)
		}
	}
	if errors.Is(err, partnersvc.ErrNotFound) {
		return huma.Error404NotFound("not found")
	}
	return huma.Error500InternalServerError("internal error")
}

func toHTTPLink(l *partnersvc.Link) Link {
	return Link{
		ID:               l.ID,
		InitiatorID:      l.InitiatorID,
		RecipientID:      l.RecipientID,
		Status:           string(l.Status),
		BreakRequesterID: l.BreakRequesterID,
		CreatedAt:        timeutil.Time{Time: l.CreatedAt},
		UpdatedAt:        timeutil.Time{Time: l.UpdatedAt},
	}
}

func toPerson(p *profile.Profile) Person {
	return Person{
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Avatar:      p.Avatar,
	}
}

func toHTTPRequests(in []partnersvc.LinkWithProfiles) []Request {
	out := make([]Request, 0, len(in))
	for i := range in {
		out = append(out, Request{
			Link:      toHTTPLink(&in[i].Link),
			Initiator: toPerson(&in[i].Initiator),
			Recipient: toPerson(&in[i].Recipient),
		})
	}
	return out
}

func toHTTPOverview(o *partnersvc.Overview) Overview {
	out := Overview{
		Incoming: toHTTPRequests(o.Incoming),
		Outgoing: toHTTPRequests(o.Outgoing),
	}
	if o.Active != nil {
		out.Active = &Partnership{
			Link:    toHTTPLink(&o.Active.Link),
			Partner: toPerson(&o.Active.Partner),
		}
	}
	if o.Unresolved != nil {
		link := toHTTPLink(o.Unresolved)
		out.UnresolvedLink = &link
	}
	return out
}
