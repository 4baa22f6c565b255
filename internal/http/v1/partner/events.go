package partner

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"go.uber.org/zap"

	"github.com/janisto/duo-journal/internal/platform/auth"
	applog "github.com/janisto/duo-journal/internal/platform/logging"
	"github.com/janisto/duo-journal/internal/platform/timeutil"
	partnersvc "github.com/janisto/duo-journal/internal/service/partner"
)

// pingInterval is how often an idle stream sends a ping event.
var pingInterval = 25 * time.Second

// registerEvents exposes partner state as a server-sent event stream. The
// first event is the current state; every later change to one of the
// caller's links triggers a full reload.
func registerEvents(api huma.API, svc partnersvc.Service) {
	sse.Register(api, huma.Operation{
		OperationID: "partner-events",
		Method:      http.MethodGet,
		Path:        "/partner/events",
		Summary:     "Stream partner state",
		Description: "Server-sent events. A `state` event carries the full partner overview on connect and after every change.",
		Tags:        []string{"Partner"},
		Security:    bearerAuth,
	}, map[string]any{
		"state": StateEvent{},
		"ping":  PingEvent{},
	}, func(ctx context.Context, _ *EventsInput, send sse.Sender) {
		user := auth.UserFromContext(ctx)
		if user == nil {
			return
		}
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		changes, err := svc.Subscribe(ctx, user.UID)
		if err != nil {
			applog.LogError(ctx, "partner subscription failed", err)
			return
		}
		if !sendState(ctx, svc, user.UID, send) {
			return
		}

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				drain(changes)
				if !sendState(ctx, svc, user.UID, send) {
					return
				}
			case <-ticker.C:
				if err := send.Data(PingEvent{Time: timeutil.Now()}); err != nil {
					return
				}
			}
		}
	})
}

// drain discards queued changes; the next state event covers them all.
func drain(changes <-chan partnersvc.Change) {
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func sendState(ctx context.Context, svc partnersvc.Service, userID string, send sse.Sender) bool {
	overview, err := svc.Overview(ctx, userID)
	if err != nil {
		if ctx.Err() == nil {
			applog.LogWarn(ctx, "partner state reload failed", zap.Error(err))
		}
		return false
	}
	return send.Data(StateEvent{Overview: toHTTPOverview(overview)}) == nil
}
