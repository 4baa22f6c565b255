package companion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/janisto/duo-journal/internal/platform/auth"
	applog "github.com/janisto/duo-journal/internal/platform/logging"
	appmiddleware "github.com/janisto/duo-journal/internal/platform/middleware"
	"github.com/janisto/duo-journal/internal/platform/respond"
	companionsvc "github.com/janisto/duo-journal/internal/service/companion"
	"github.com/janisto/duo-journal/internal/service/journal"
	"github.com/janisto/duo-journal/internal/service/partner"
)

type partners struct{}

func (partners) CanView(_ context.Context, viewerID, ownerID string) error {
	if viewerID == ownerID || (viewerID == "bob" && ownerID == "alice") {
		return nil
	}
	return partner.ErrNotFound
}

// scriptedModel answers with reply, or fails with err.
type scriptedModel struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (m *scriptedModel) Complete(context.Context, []companionsvc.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type testEnv struct {
	router  chi.Router
	model   *scriptedModel
	journal *journal.MemoryStore
}

func newTestEnv(t *testing.T, enabled bool) *testEnv {
	t.Helper()
	env := &testEnv{
		model:   &scriptedModel{reply: `{"comment": "Proud of you!", "score": 91}`},
		journal: journal.NewMemoryStore(),
	}
	var model companionsvc.Model
	if enabled {
		model = env.model
	}
	svc := companionsvc.NewService(companionsvc.NewMemoryStore(), model)

	tokens := map[string]*auth.User{
		"alice-token": {UID: "alice"},
		"bob-token":   {UID: "bob"},
		"carol-token": {UID: "carol"},
	}
	router := chi.NewRouter()
	router.Use(appmiddleware.RequestID(), applog.RequestLogger(), respond.Recoverer())
	api := humachi.New(router, huma.DefaultConfig("CompanionTest", "test"))
	api.UseMiddleware(auth.NewAuthMiddleware(api, &auth.MockVerifier{Tokens: tokens}))
	Register(api, svc, env.journal, partners{})
	env.router = router

	if _, err := env.journal.Save(context.Background(), "alice", "2024-01-15", "Finished my first marathon."); err != nil {
		t.Fatalf("save entry: %v", err)
	}
	return env
}

func (e *testEnv) call(user, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+user+"-token")
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func decodeComment(t *testing.T, resp *httptest.ResponseRecorder) Comment {
	t.Helper()
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var c Comment
	if err := json.Unmarshal(resp.Body.Bytes(), &c); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	return c
}

func TestGenerateWithScore(t *testing.T) {
	env := newTestEnv(t, true)

	c := decodeComment(t, env.call("alice", http.MethodPost, "/entries/2024-01-15/companion", `{"withScore":true}`))
	if c.Comment != "Proud of you!" {
		t.Errorf("unexpected comment: %q", c.Comment)
	}
	if c.Score == nil || *c.Score != 91 {
		t.Errorf("expected score 91, got %v", c.Score)
	}
	if !c.IsPublic || c.EntryID != "alice_2024-01-15" {
		t.Errorf("unexpected comment: %+v", c)
	}
}

func TestGenerateWithoutBody(t *testing.T) {
	env := newTestEnv(t, true)
	env.model.reply = "Keep going."

	c := decodeComment(t, env.call("alice", http.MethodPost, "/entries/2024-01-15/companion", ""))
	if c.Comment != "Keep going." || c.Score != nil {
		t.Errorf("unexpected comment: %+v", c)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		err     error
		path    string
		status  int
	}{
		{"disabled", false, nil, "/entries/2024-01-15/companion", http.StatusServiceUnavailable},
		{"missing entry", true, nil, "/entries/2024-01-16/companion", http.StatusNotFound},
		{"upstream failure", true, &companionsvc.UpstreamError{Kind: companionsvc.UpstreamErrorKindUpstream, Status: 500}, "/entries/2024-01-15/companion", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.enabled)
			env.model.err = tt.err
			resp := env.call("alice", http.MethodPost, tt.path, `{}`)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestGenerateRateLimited(t *testing.T) {
	env := newTestEnv(t, true)
	env.model.err = &companionsvc.UpstreamError{
		Kind:       companionsvc.UpstreamErrorKindRateLimited,
		Status:     http.StatusTooManyRequests,
		RetryAfter: "30",
	}

	resp := env.call("alice", http.MethodPost, "/entries/2024-01-15/companion", `{}`)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Retry-After"); got != "30" {
		t.Errorf("expected Retry-After 30, got %q", got)
	}
}

func TestCommentVisibility(t *testing.T) {
	env := newTestEnv(t, true)
	decodeComment(t, env.call("alice", http.MethodPost, "/entries/2024-01-15/companion", `{}`))

	decodeComment(t, env.call("bob", http.MethodGet, "/entries/2024-01-15/companion?owner=alice", ""))
	if resp := env.call("carol", http.MethodGet, "/entries/2024-01-15/companion?owner=alice", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for stranger, got %d", resp.Code)
	}

	c := decodeComment(t, env.call("alice", http.MethodPatch, "/entries/2024-01-15/companion", `{"isPublic":false}`))
	if c.IsPublic {
		t.Fatal("expected comment to be private")
	}
	if resp := env.call("bob", http.MethodGet, "/entries/2024-01-15/companion?owner=alice", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for private comment, got %d", resp.Code)
	}
	decodeComment(t, env.call("alice", http.MethodGet, "/entries/2024-01-15/companion", ""))
}

func TestSetVisibilityMissing(t *testing.T) {
	env := newTestEnv(t, true)
	resp := env.call("alice", http.MethodPatch, "/entries/2024-01-15/companion", `{"isPublic":false}`)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, true)

	if resp := env.call("alice", http.MethodPost, "/entries/2024-01-15/companion/messages", `{"content":"hi"}`); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before a comment exists, got %d", resp.Code)
	}
	decodeComment(t, env.call("alice", http.MethodPost, "/entries/2024-01-15/companion", `{}`))

	env.model.reply = "Rest well tonight."
	resp := env.call("alice", http.MethodPost, "/entries/2024-01-15/companion/messages", `{"content":"My legs hurt."}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var sent MessageSendOutput
	if err := json.Unmarshal(resp.Body.Bytes(), &sent.Body); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if sent.Body.Message.Role != "user" || sent.Body.Reply.Content != "Rest well tonight." {
		t.Errorf("unexpected exchange: %+v", sent.Body)
	}

	resp = env.call("alice", http.MethodGet, "/entries/2024-01-15/companion/messages", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var list MessagesListOutput
	if err := json.Unmarshal(resp.Body.Bytes(), &list.Body); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if len(list.Body.Items) != 2 || list.Body.Items[0].Content != "My legs hurt." {
		t.Errorf("unexpected chat: %+v", list.Body.Items)
	}
}

func TestChatValidation(t *testing.T) {
	env := newTestEnv(t, true)
	resp := env.call("alice", http.MethodPost, "/entries/2024-01-15/companion/messages", `{"content":""}`)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}
}
