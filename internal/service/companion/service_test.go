package companion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeModel records conversations and answers from a queue.
type fakeModel struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]Message
}

func (f *fakeModel) Complete(_ context.Context, messages []Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return FallbackReply, nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func newTestService(model Model) *Service {
	svc := NewService(NewMemoryStore(), model)
	clock := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc
}

func TestGenerateComment(t *testing.T) {
	model := &fakeModel{replies: []string{"Sounds lovely."}}
	svc := newTestService(model)
	ctx := context.Background()

	c, err := svc.Generate(ctx, "alice", "alice_2025-03-01", "Went hiking.", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Comment != "Sounds lovely." {
		t.Errorf("unexpected comment: %q", c.Comment)
	}
	if c.Score != nil {
		t.Errorf("expected no score, got %d", *c.Score)
	}
	if !c.IsPublic {
		t.Error("expected new comments to be public")
	}
	if c.ID != "alice_2025-03-01" {
		t.Errorf("expected comment id to equal entry id, got %s", c.ID)
	}
	if !strings.Contains(model.calls[0][1].Content, "Went hiking.") {
		t.Error("expected entry content in prompt")
	}
}

func TestGenerateWithScore(t *testing.T) {
	model := &fakeModel{replies: []string{`{"comment": "Great job", "score": 93}`}}
	svc := newTestService(model)

	c, err := svc.Generate(context.Background(), "alice", "e1", "Finished the project.", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Comment != "Great job" {
		t.Errorf("unexpected comment: %q", c.Comment)
	}
	if c.Score == nil || *c.Score != 93 {
		t.Errorf("expected score 93, got %v", c.Score)
	}
}

func TestRegenerateKeepsVisibilityAndCreatedAt(t *testing.T) {
	model := &fakeModel{replies: []string{"first", "second"}}
	svc := newTestService(model)
	ctx := context.Background()

	first, err := svc.Generate(ctx, "alice", "e1", "text", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.SetVisibility(ctx, "alice", "e1", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Generate(ctx, "alice", "e1", "text", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Comment != "second" {
		t.Errorf("expected regenerated comment, got %q", second.Comment)
	}
	if second.IsPublic {
		t.Error("expected visibility to survive regeneration")
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("expected CreatedAt %v, got %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("expected UpdatedAt to advance")
	}
}

func TestGenerateRejectsEmptyEntry(t *testing.T) {
	model := &fakeModel{}
	svc := newTestService(model)
	if _, err := svc.Generate(context.Background(), "alice", "e1", "  \n ", false); !errors.Is(err, ErrEmptyEntry) {
		t.Fatalf("expected ErrEmptyEntry, got %v", err)
	}
	if len(model.calls) != 0 {
		t.Error("model must not be called for an empty entry")
	}
}

func TestGenerateUpstreamFailureStoresNothing(t *testing.T) {
	svc := newTestService(&fakeModel{err: newUpstreamError(429, "5")})
	ctx := context.Background()

	if _, err := svc.Generate(ctx, "alice", "e1", "text", false); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, err := svc.Get(ctx, "e1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDisabledService(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	ctx := context.Background()
	if svc.Enabled() {
		t.Error("expected service to be disabled")
	}
	if _, err := svc.Generate(ctx, "alice", "e1", "text", false); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled from Generate, got %v", err)
	}
	if _, _, err := svc.Chat(ctx, "alice", "e1", "text", "hi"); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled from Chat, got %v", err)
	}
	if _, err := svc.Get(ctx, "e1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from Get, got %v", err)
	}
}

func TestSetVisibilityMissing(t *testing.T) {
	svc := newTestService(&fakeModel{})
	if _, err := svc.SetVisibility(context.Background(), "alice", "nope", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChat(t *testing.T) {
	model := &fakeModel{replies: []string{"comment", "answer one", "answer two"}}
	svc := newTestService(model)
	ctx := context.Background()

	if _, _, err := svc.Chat(ctx, "alice", "e1", "entry", "hi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before a comment exists, got %v", err)
	}
	if _, err := svc.Generate(ctx, "alice", "e1", "entry", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, reply, err := svc.Chat(ctx, "alice", "e1", "entry", "  why?  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Content != "why?" || user.Role != RoleUser {
		t.Errorf("unexpected user message: %+v", user)
	}
	if reply.Content != "answer one" || reply.Role != RoleAssistant {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if !reply.CreatedAt.After(user.CreatedAt) {
		t.Error("expected reply after user message")
	}

	if _, _, err := svc.Chat(ctx, "alice", "e1", "entry", "and then?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := model.calls[len(model.calls)-1]
	// system, context, ack, 2 history turns, new question
	if len(last) != 6 {
		t.Fatalf("expected 6 prompt messages, got %d", len(last))
	}
	if last[3].Content != "why?" || last[4].Content != "answer one" {
		t.Errorf("history not replayed: %+v", last[3:5])
	}

	msgs, err := svc.Messages(ctx, "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
}

func TestChatValidation(t *testing.T) {
	svc := newTestService(&fakeModel{})
	ctx := context.Background()
	if _, _, err := svc.Chat(ctx, "alice", "e1", "entry", "   "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	long := strings.Repeat("字", MaxMessageRunes+1)
	if _, _, err := svc.Chat(ctx, "alice", "e1", "entry", long); !errors.Is(err, ErrTextTooLong) {
		t.Errorf("expected ErrTextTooLong, got %v", err)
	}
}

func TestChatKeepsUserMessageOnModelFailure(t *testing.T) {
	model := &fakeModel{replies: []string{"comment"}}
	svc := newTestService(model)
	ctx := context.Background()
	if _, err := svc.Generate(ctx, "alice", "e1", "entry", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	model.err = newUpstreamError(503, "")
	user, reply, err := svc.Chat(ctx, "alice", "e1", "entry", "hello")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if user == nil || reply != nil {
		t.Fatalf("expected stored user message and no reply, got %v %v", user, reply)
	}
	msgs, err := svc.Messages(ctx, "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Errorf("expected only the user message, got %+v", msgs)
	}
}

func TestDeleteForEntry(t *testing.T) {
	model := &fakeModel{replies: []string{"comment", "reply"}}
	svc := newTestService(model)
	ctx := context.Background()
	if _, err := svc.Generate(ctx, "alice", "e1", "entry", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := svc.Chat(ctx, "alice", "e1", "entry", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeleteForEntry(ctx, "alice", "e1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(ctx, "e1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Messages(ctx, "e1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for messages, got %v", err)
	}
	if err := svc.DeleteForEntry(ctx, "alice", "e1"); err != nil {
		t.Errorf("expected repeated delete to succeed, got %v", err)
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNotFound, "not_found"},
		{ErrEmptyEntry, "invalid_input"},
		{newUpstreamError(429, ""), "upstream_rate_limited"},
		{newUpstreamError(500, ""), "upstream_upstream"},
		{errors.New("boom"), "internal_error"},
	}
	for _, tt := range tests {
		if got := categorizeError(tt.err); got != tt.want {
			t.Errorf("categorizeError(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
