package partner

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/janisto/duo-journal/internal/platform/auth"
	applog "github.com/janisto/duo-journal/internal/platform/logging"
	appmiddleware "github.com/janisto/duo-journal/internal/platform/middleware"
	"github.com/janisto/duo-journal/internal/platform/respond"
	partnersvc "github.com/janisto/duo-journal/internal/service/partner"
	profilesvc "github.com/janisto/duo-journal/internal/service/profile"
)

// newTestRouter serves the partner API for users alice, bob and carol; each
// authenticates with "<name>-token".
func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	router, _ := newTestRouterWithProfiles(t)
	return router
}

func newTestRouterWithProfiles(t *testing.T) (chi.Router, *profilesvc.MemoryStore) {
	t.Helper()
	profiles := profilesvc.NewMemoryStore()
	tokens := make(map[string]*auth.User)
	for _, name := range []string{"alice", "bob", "carol"} {
		if _, err := profiles.Create(context.Background(), name, profilesvc.CreateParams{
			Username:    name,
			DisplayName: strings.ToUpper(name[:1]) + name[1:],
		}); err != nil {
			t.Fatalf("create profile %s: %v", name, err)
		}
		tokens[name+"-token"] = &auth.User{UID: name}
	}
	svc := partnersvc.NewLinkService(partnersvc.NewMemoryStore(), profiles)

	router := chi.NewRouter()
	router.Use(
		appmiddleware.RequestID(),
		applog.RequestLogger(),
		respond.Recoverer(),
	)
	api := humachi.New(router, huma.DefaultConfig("PartnerTest", "test"))
	api.UseMiddleware(auth.NewAuthMiddleware(api, &auth.MockVerifier{Tokens: tokens}))
	Register(api, svc, "/v1")
	return router, profiles
}

func call(t *testing.T, router http.Handler, user, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user+"-token")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func expectStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, resp.Code, resp.Body.String())
	}
}

func expectProblem(t *testing.T, resp *httptest.ResponseRecorder, status int, detail string) {
	t.Helper()
	expectStatus(t, resp, status)
	var problem huma.ErrorModel
	if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if problem.Detail != detail {
		t.Errorf("expected detail %q, got %q", detail, problem.Detail)
	}
}

func sendRequest(t *testing.T, router http.Handler, from, to string) Link {
	t.Helper()
	resp := call(t, router, from, http.MethodPost, "/partner/requests", `{"username":"`+to+`"}`)
	expectStatus(t, resp, http.StatusCreated)
	var link Link
	if err := json.Unmarshal(resp.Body.Bytes(), &link); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	return link
}

func overview(t *testing.T, router http.Handler, user string) Overview {
	t.Helper()
	resp := call(t, router, user, http.MethodGet, "/partner", "")
	expectStatus(t, resp, http.StatusOK)
	var o Overview
	if err := json.Unmarshal(resp.Body.Bytes(), &o); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	return o
}

func TestPartnerLifecycle(t *testing.T) {
	router := newTestRouter(t)

	link := sendRequest(t, router, "alice", "Bob")
	if link.Status != "pending" || link.InitiatorID != "alice" || link.RecipientID != "bob" {
		t.Fatalf("unexpected link: %+v", link)
	}

	bobView := overview(t, router, "bob")
	if len(bobView.Incoming) != 1 || bobView.Incoming[0].Initiator.Username != "alice" {
		t.Fatalf("expected incoming request from alice, got %+v", bobView.Incoming)
	}
	if len(overview(t, router, "alice").Outgoing) != 1 {
		t.Fatal("expected outgoing request for alice")
	}

	expectProblem(t, call(t, router, "alice", http.MethodPost, "/partner/requests/"+link.ID+"/accept", ""),
		http.StatusUnprocessableEntity, partnersvc.MsgOnlyRecipientAccepts)

	resp := call(t, router, "bob", http.MethodPost, "/partner/requests/"+link.ID+"/accept", "")
	expectStatus(t, resp, http.StatusOK)

	aliceView := overview(t, router, "alice")
	if aliceView.Active == nil || aliceView.Active.Partner.ID != "bob" {
		t.Fatalf("expected bob as active partner, got %+v", aliceView.Active)
	}

	resp = call(t, router, "alice", http.MethodPost, "/partner/links/"+link.ID+"/break", "")
	expectStatus(t, resp, http.StatusOK)
	var broken Link
	if err := json.Unmarshal(resp.Body.Bytes(), &broken); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if broken.Status != "break_pending" || broken.BreakRequesterID != "alice" {
		t.Fatalf("unexpected link after break request: %+v", broken)
	}

	expectProblem(t, call(t, router, "alice", http.MethodPost, "/partner/links/"+link.ID+"/break/confirm", ""),
		http.StatusUnprocessableEntity, partnersvc.MsgRequesterCannotConfirm)

	resp = call(t, router, "bob", http.MethodDelete, "/partner/links/"+link.ID+"/break", "")
	expectStatus(t, resp, http.StatusOK)
	if !strings.Contains(resp.Body.String(), `"status":"accepted"`) {
		t.Errorf("expected accepted after cancel, got %s", resp.Body.String())
	}

	expectStatus(t, call(t, router, "bob", http.MethodPost, "/partner/links/"+link.ID+"/break", ""), http.StatusOK)
	expectStatus(t, call(t, router, "alice", http.MethodPost, "/partner/links/"+link.ID+"/break/confirm", ""),
		http.StatusNoContent)

	if overview(t, router, "alice").Active != nil {
		t.Fatal("expected no partner after confirmed break")
	}
}

func TestSendRequestErrors(t *testing.T) {
	router := newTestRouter(t)

	expectProblem(t, call(t, router, "alice", http.MethodPost, "/partner/requests", `{"username":"nobody"}`),
		http.StatusNotFound, partnersvc.MsgUserNotFound)
	expectProblem(t, call(t, router, "alice", http.MethodPost, "/partner/requests", `{"username":"alice"}`),
		http.StatusUnprocessableEntity, partnersvc.MsgSelfRequest)

	sendRequest(t, router, "alice", "bob")
	expectProblem(t, call(t, router, "bob", http.MethodPost, "/partner/requests", `{"username":"alice"}`),
		http.StatusConflict, partnersvc.MsgAlreadyPending)

	expectStatus(t, call(t, router, "alice", http.MethodPost, "/partner/requests", `{}`), http.StatusUnprocessableEntity)
}

func TestOverviewWithDeletedPartnerProfile(t *testing.T) {
	router, profiles := newTestRouterWithProfiles(t)
	link := sendRequest(t, router, "alice", "bob")
	expectStatus(t, call(t, router, "bob", http.MethodPost, "/partner/requests/"+link.ID+"/accept", ""), http.StatusOK)
	profiles.Delete("bob")

	view := overview(t, router, "alice")
	if view.Active != nil {
		t.Fatalf("expected no active partnership, got %+v", view.Active)
	}
	if view.UnresolvedLink == nil || view.UnresolvedLink.ID != link.ID {
		t.Fatalf("expected unresolved link %s, got %+v", link.ID, view.UnresolvedLink)
	}
	expectStatus(t, call(t, router, "alice", http.MethodPost, "/partner/links/"+link.ID+"/break", ""), http.StatusOK)
}

func TestRejectAndCancel(t *testing.T) {
	router := newTestRouter(t)

	declined := sendRequest(t, router, "alice", "bob")
	expectStatus(t, call(t, router, "bob", http.MethodDelete, "/partner/requests/"+declined.ID, ""), http.StatusNoContent)
	expectProblem(t, call(t, router, "bob", http.MethodDelete, "/partner/requests/"+declined.ID, ""),
		http.StatusNotFound, partnersvc.MsgRequestNotFound)

	cancelled := sendRequest(t, router, "alice", "carol")
	expectStatus(t, call(t, router, "alice", http.MethodDelete, "/partner/requests/"+cancelled.ID, ""), http.StatusNoContent)
	if len(overview(t, router, "carol").Incoming) != 0 {
		t.Error("expected cancelled request to disappear for the recipient")
	}
}

func TestOutsiderSeesNotFound(t *testing.T) {
	router := newTestRouter(t)
	link := sendRequest(t, router, "alice", "bob")

	expectProblem(t, call(t, router, "carol", http.MethodPost, "/partner/requests/"+link.ID+"/accept", ""),
		http.StatusNotFound, partnersvc.MsgRequestNotFound)
	expectProblem(t, call(t, router, "carol", http.MethodDelete, "/partner/requests/"+link.ID, ""),
		http.StatusNotFound, partnersvc.MsgRequestNotFound)
}

func TestPartnerUnauthorized(t *testing.T) {
	router := newTestRouter(t)
	resp := call(t, router, "", http.MethodGet, "/partner", "")
	expectStatus(t, resp, http.StatusUnauthorized)
	if got := resp.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("expected WWW-Authenticate: Bearer, got %s", got)
	}
}

// readEvent returns the next SSE event name and data payload.
func readEvent(t *testing.T, scanner *bufio.Scanner) (string, string) {
	t.Helper()
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	t.Fatalf("stream ended: %v", scanner.Err())
	return "", ""
}

func TestPartnerEvents(t *testing.T) {
	router := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/partner/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer bob-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected event stream, got %s", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	event, data := readEvent(t, scanner)
	if event != "state" {
		t.Fatalf("expected initial state event, got %q", event)
	}
	var initial StateEvent
	if err := json.Unmarshal([]byte(data), &initial); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if len(initial.Incoming) != 0 {
		t.Fatalf("expected empty initial state, got %+v", initial)
	}

	sendRequest(t, router, "alice", "bob")

	event, data = readEvent(t, scanner)
	if event != "state" {
		t.Fatalf("expected state event after change, got %q", event)
	}
	var next StateEvent
	if err := json.Unmarshal([]byte(data), &next); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if len(next.Incoming) != 1 || next.Incoming[0].Initiator.ID != "alice" {
		t.Fatalf("expected incoming request from alice, got %+v", next.Incoming)
	}
}

func TestPartnerEventsUnauthorized(t *testing.T) {
	router := newTestRouter(t)
	resp := call(t, router, "", http.MethodGet, "/partner/events", "")
	expectStatus(t, resp, http.StatusUnauthorized)
}
