// Package companion generates supportive AI comments and mood scores for
// journal entries and keeps a short follow-up chat per entry.
package companion

import (
	"context"
	"errors"
	"fmt"
)

// Role is the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn sent to a Model.
type Message struct {
	Role    Role
	Content string
}

// Model produces the next assistant turn for a conversation.
type Model interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// FallbackReply is used when a model answers with empty text.
const FallbackReply = "I'm here for you. How are you feeling?"

// Upstream errors
var (
	ErrRateLimited = errors.New("companion rate limit exceeded")
	ErrUpstream    = errors.New("companion upstream error")
)

// UpstreamErrorKind classifies model provider failures.
type UpstreamErrorKind string

const (
	UpstreamErrorKindRateLimited UpstreamErrorKind = "rate_limited"
	UpstreamErrorKindUpstream    UpstreamErrorKind = "upstream"
)

// UpstreamError carries provider response metadata for error mapping.
type UpstreamError struct {
	Kind       UpstreamErrorKind
	Status     int
	RetryAfter string
	cause      error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "companion upstream error"
	}
	if e.cause == nil {
		return fmt.Sprintf("companion upstream error (kind=%s status=%d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("companion upstream error (kind=%s status=%d): %v", e.Kind, e.Status, e.cause)
}

// Unwrap enables errors.Is against ErrRateLimited and ErrUpstream.
func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func newUpstreamError(status int, retryAfter string) *UpstreamError {
	if status == 429 {
		return &UpstreamError{
			Kind:       UpstreamErrorKindRateLimited,
			Status:     status,
			RetryAfter: retryAfter,
			cause:      ErrRateLimited,
		}
	}
	return &UpstreamError{Kind: UpstreamErrorKindUpstream, Status: status, cause: ErrUpstream}
}
