package companion

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	applog "github.com/janisto/duo-journal/internal/platform/logging"
)

// Service errors
var (
	ErrNotFound    = errors.New("ai comment not found")
	ErrDisabled    = errors.New("ai companion is not configured")
	ErrEmptyEntry  = errors.New("entry has no content to comment on")
	ErrEmptyText   = errors.New("message must not be empty")
	ErrTextTooLong = errors.New("message must be at most 2000 characters")
)

// MaxMessageRunes bounds one chat message from the user.
const MaxMessageRunes = 2000

// Comment is the AI's reply to one journal entry. Its id is the entry id.
type Comment struct {
	ID        string
	EntryID   string
	UserID    string
	Comment   string
	Score     *int
	IsPublic  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one turn of the follow-up chat about a comment.
type ChatMessage struct {
	ID        string
	CommentID string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Store persists comments and chat messages.
type Store interface {
	GetComment(ctx context.Context, entryID string) (*Comment, error)
	// SaveComment upserts c, keeping CreatedAt and IsPublic of an existing
	// comment, and returns the stored value.
	SaveComment(ctx context.Context, c Comment) (*Comment, error)
	SetVisibility(ctx context.Context, entryID string, isPublic bool, at time.Time) (*Comment, error)
	// Messages returns the chat, oldest first.
	Messages(ctx context.Context, commentID string) ([]ChatMessage, error)
	AddMessage(ctx context.Context, msg ChatMessage) error
	// DeleteForEntry removes the comment and its chat. Missing is not an error.
	DeleteForEntry(ctx context.Context, entryID string) error
}

// Service runs the companion features on a Store and an optional Model.
type Service struct {
	store Store
	model Model
	now   func() time.Time
}

// NewService creates a Service. A nil model disables generation and chat;
// stored comments stay readable.
func NewService(store Store, model Model) *Service {
	return &Service{
		store: store,
		model: model,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether a model is configured.
func (s *Service) Enabled() bool {
	return s.model != nil
}

// Generate asks the model about the entry and stores the result as the
// entry's comment, replacing any previous one.
func (s *Service) Generate(ctx context.Context, userID, entryID, content string, withScore bool) (*Comment, error) {
	ev := applog.AuditEvent{
		Action:       "generate",
		UserID:       userID,
		ResourceType: applog.ResourceAIComment,
		ResourceID:   entryID,
		Details:      map[string]any{"with_score": withScore},
	}
	if s.model == nil {
		return nil, ErrDisabled
	}
	if strings.TrimSpace(content) == "" {
		return nil, applog.AuditOutcome(ctx, ev, ErrEmptyEntry, categorizeError)
	}

	var (
		text  string
		score *int
	)
	if withScore {
		reply, err := s.model.Complete(ctx, scorePrompt(content))
		if err != nil {
			return nil, applog.AuditOutcome(ctx, ev, err, categorizeError)
		}
		comment, n := parseScored(reply)
		text, score = comment, &n
	} else {
		reply, err := s.model.Complete(ctx, commentPrompt(content))
		if err != nil {
			return nil, applog.AuditOutcome(ctx, ev, err, categorizeError)
		}
		text = reply
	}

	now := s.now()
	saved, err := s.store.SaveComment(ctx, Comment{
		ID:        entryID,
		EntryID:   entryID,
		UserID:    userID,
		Comment:   text,
		Score:     score,
		IsPublic:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err := applog.AuditOutcome(ctx, ev, err, categorizeError); err != nil {
		return nil, err
	}
	return saved, nil
}

// Get returns the entry's comment.
func (s *Service) Get(ctx context.Context, entryID string) (*Comment, error) {
	return s.store.GetComment(ctx, entryID)
}

// SetVisibility controls whether the owner's partner may see the comment.
func (s *Service) SetVisibility(ctx context.Context, userID, entryID string, isPublic bool) (*Comment, error) {
	c, err := s.store.SetVisibility(ctx, entryID, isPublic, s.now())
	err = applog.AuditOutcome(ctx, applog.AuditEvent{
		Action:       "set_visibility",
		UserID:       userID,
		ResourceType: applog.ResourceAIComment,
		ResourceID:   entryID,
		Details:      map[string]any{"is_public": isPublic},
	}, err, categorizeError)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Messages returns the chat about the entry's comment, oldest first.
func (s *Service) Messages(ctx context.Context, entryID string) ([]ChatMessage, error) {
	if _, err := s.store.GetComment(ctx, entryID); err != nil {
		return nil, err
	}
	return s.store.Messages(ctx, entryID)
}

// Chat stores the user's message, asks the model with the entry as context
// and stores the reply. The user's message is kept even if the model fails.
func (s *Service) Chat(ctx context.Context, userID, entryID, content, text string) (*ChatMessage, *ChatMessage, error) {
	if s.model == nil {
		return nil, nil, ErrDisabled
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return nil, nil, ErrTextTooLong
	}
	if _, err := s.store.GetComment(ctx, entryID); err != nil {
		return nil, nil, err
	}
	history, err := s.store.Messages(ctx, entryID)
	if err != nil {
		return nil, nil, err
	}

	userMsg := ChatMessage{
		ID:        uuid.New().String(),
		CommentID: entryID,
		Role:      RoleUser,
		Content:   text,
		CreatedAt: s.now(),
	}
	if err := s.store.AddMessage(ctx, userMsg); err != nil {
		return nil, nil, err
	}

	reply, err := s.model.Complete(ctx, chatPrompt(content, history, text))
	if err != nil {
		applog.LogAuditEvent(ctx, "chat", userID, applog.ResourceAIComment, entryID, applog.ResultFailure,
			map[string]any{"error": categorizeError(err)})
		return &userMsg, nil, err
	}
	replyMsg := ChatMessage{
		ID:        uuid.New().String(),
		CommentID: entryID,
		Role:      RoleAssistant,
		Content:   reply,
		CreatedAt: s.now(),
	}
	if !replyMsg.CreatedAt.After(userMsg.CreatedAt) {
		replyMsg.CreatedAt = userMsg.CreatedAt.Add(time.Microsecond)
	}
	if err := s.store.AddMessage(ctx, replyMsg); err != nil {
		return &userMsg, nil, err
	}
	applog.LogAuditEvent(ctx, "chat", userID, applog.ResourceAIComment, entryID, applog.ResultSuccess, nil)
	return &userMsg, &replyMsg, nil
}

// DeleteForEntry removes the entry's comment and chat.
func (s *Service) DeleteForEntry(ctx context.Context, userID, entryID string) error {
	return applog.AuditOutcome(ctx, applog.AuditEvent{
		Action:       "delete",
		UserID:       userID,
		ResourceType: applog.ResourceAIComment,
		ResourceID:   entryID,
	}, s.store.DeleteForEntry(ctx, entryID), categorizeError)
}

// categorizeError converts errors to audit-safe categories.
func categorizeError(err error) string {
	var upstream *UpstreamError
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrEmptyEntry), errors.Is(err, ErrEmptyText), errors.Is(err, ErrTextTooLong):
		return "invalid_input"
	case errors.As(err, &upstream):
		return "upstream_" + string(upstream.Kind)
	default:
		return "internal_error"
	}
}
