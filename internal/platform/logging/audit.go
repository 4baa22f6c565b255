package logging

import (
	"context"

	"go.uber.org/zap"
)

// Audit resource types.
const (
	ResourceProfile     = "profile"
	ResourcePartnerLink = "partner_link"
	ResourceEntry       = "journal_entry"
	ResourceCalendar    = "calendar_mark"
	ResourceAIComment   = "ai_comment"
)

// Audit results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// AuditEvent describes one state-changing action on a stored resource.
type AuditEvent struct {
	Action       string
	UserID       string
	ResourceType string
	ResourceID   string
	Result       string
	Details      map[string]any
}

// LogAuditEvent logs a structured audit event.
//
// Args:
//   - action: The action performed (e.g., "create", "accept", "confirm_break")
//   - userID: The user performing the action
//   - resourceType: One of the Resource* constants
//   - resourceID: The ID of the resource
//   - result: ResultSuccess or ResultFailure
//   - details: Optional additional details
func LogAuditEvent(
	ctx context.Context,
	action, userID, resourceType, resourceID, result string,
	details map[string]any,
) {
	Audit(ctx, AuditEvent{
		Action:       action,
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Result:       result,
		Details:      details,
	})
}

// Audit writes ev using the request-scoped logger.
func Audit(ctx context.Context, ev AuditEvent) {
	LoggerFromContext(ctx).Info("Audit event",
		zap.String("audit.action", ev.Action),
		zap.String("audit.user_id", ev.UserID),
		zap.String("audit.resource_type", ev.ResourceType),
		zap.String("audit.resource_id", ev.ResourceID),
		zap.String("audit.result", ev.Result),
		zap.Any("audit.details", ev.Details),
	)
}

// AuditOutcome logs success when err is nil and failure with the given
// category otherwise. It returns err unchanged so callers can tail-call it.
func AuditOutcome(ctx context.Context, ev AuditEvent, err error, category func(error) string) error {
	if err != nil {
		ev.Result = ResultFailure
		if ev.Details == nil {
			ev.Details = map[string]any{}
		}
		ev.Details["error"] = category(err)
	} else {
		ev.Result = ResultSuccess
	}
	Audit(ctx, ev)
	return err
}
