package partner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/janisto/duo-journal/internal/service/profile"
)

type fixture struct {
	svc      *LinkService
	profiles *profile.MemoryStore
	store    Store
}

// newFixture creates a service with users alice, bob, carol and dave.
func newFixture(t *testing.T, store Store) *fixture {
	t.Helper()
	profiles := profile.NewMemoryStore()
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		if _, err := profiles.Create(context.Background(), name, profile.CreateParams{
			Username:    name,
			DisplayName: name,
		}); err != nil {
			t.Fatalf("failed to create profile %s: %v", name, err)
		}
	}

	var mu sync.Mutex
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return &fixture{
		svc:      NewLinkService(store, profiles, WithClock(now)),
		profiles: profiles,
		store:    store,
	}
}

func (f *fixture) send(t *testing.T, from, to string) *Link {
	t.Helper()
	link, err := f.svc.SendRequest(context.Background(), from, to)
	if err != nil {
		t.Fatalf("SendRequest(%s, %s): %v", from, to, err)
	}
	return link
}

func (f *fixture) pair(t *testing.T, a, b string) *Link {
	t.Helper()
	link := f.send(t, a, b)
	accepted, err := f.svc.Accept(context.Background(), b, link.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	return accepted
}

func (f *fixture) links(t *testing.T, userID string) []Link {
	t.Helper()
	links, err := f.store.ForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ForUser: %v", err)
	}
	return links
}

func assertKind(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *Error of kind %s, got %v", kind, err)
	}
	if pe.Kind != kind {
		t.Errorf("expected kind %s, got %s (%s)", kind, pe.Kind, pe.Message)
	}
	if msg != "" && pe.Message != msg {
		t.Errorf("expected message %q, got %q", msg, pe.Message)
	}
}

// linkServiceContract exercises the state machine against a Store.
func linkServiceContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("send request creates pending link", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.send(t, "alice", " BOB ")
		if link.Status != StatusPending {
			t.Errorf("expected pending, got %s", link.Status)
		}
		if link.InitiatorID != "alice" || link.RecipientID != "bob" {
			t.Errorf("unexpected participants: %+v", link)
		}
		if link.BreakRequesterID != "" {
			t.Errorf("expected no break requester, got %s", link.BreakRequesterID)
		}
	})

	t.Run("send request validation order", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		_, err := f.svc.SendRequest(ctx, "alice", "nobody")
		assertKind(t, err, KindNotFound, MsgUserNotFound)

		_, err = f.svc.SendRequest(ctx, "alice", "Alice")
		assertKind(t, err, KindInvalidOperation, MsgSelfRequest)

		f.send(t, "alice", "bob")
		_, err = f.svc.SendRequest(ctx, "alice", "bob")
		assertKind(t, err, KindConflict, MsgAlreadyPending)
		_, err = f.svc.SendRequest(ctx, "bob", "alice")
		assertKind(t, err, KindConflict, MsgAlreadyPending)

		if n := len(f.links(t, "alice")); n != 1 {
			t.Errorf("expected exactly one link, got %d", n)
		}
	})

	t.Run("send request to connected user", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		f.pair(t, "alice", "bob")
		_, err := f.svc.SendRequest(ctx, "bob", "alice")
		assertKind(t, err, KindConflict, MsgAlreadyConnected)
	})

	t.Run("send request while partnered", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		f.pair(t, "alice", "bob")

		_, err := f.svc.SendRequest(ctx, "alice", "carol")
		assertKind(t, err, KindConflict, MsgYouHavePartner)

		_, err = f.svc.SendRequest(ctx, "carol", "bob")
		assertKind(t, err, KindConflict, MsgTheyHavePartner)

		if n := len(f.links(t, "carol")); n != 0 {
			t.Errorf("expected no row for carol, got %d", n)
		}
	})

	t.Run("send request without own profile", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		_, err := f.svc.SendRequest(ctx, "stranger", "bob")
		assertKind(t, err, KindInvalidOperation, MsgProfileRequired)
	})

	t.Run("accept pairs both users", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.pair(t, "alice", "bob")
		if link.Status != StatusAccepted {
			t.Fatalf("expected accepted, got %s", link.Status)
		}
		for user, partner := range map[string]string{"alice": "bob", "bob": "alice"} {
			active, err := f.svc.ActiveLink(ctx, user)
			if err != nil {
				t.Fatalf("ActiveLink(%s): %v", user, err)
			}
			if active == nil || active.Partner.ID != partner {
				t.Errorf("expected %s to be paired with %s, got %+v", user, partner, active)
			}
		}
	})

	t.Run("only recipient accepts", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.send(t, "alice", "bob")
		_, err := f.svc.Accept(ctx, "alice", link.ID)
		assertKind(t, err, KindInvalidOperation, MsgOnlyRecipientAccepts)

		_, err = f.svc.Accept(ctx, "carol", link.ID)
		assertKind(t, err, KindNotFound, MsgRequestNotFound)

		_, err = f.svc.Accept(ctx, "bob", "missing")
		assertKind(t, err, KindNotFound, MsgRequestNotFound)
	})

	t.Run("accept twice", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.pair(t, "alice", "bob")
		_, err := f.svc.Accept(ctx, "bob", link.ID)
		assertKind(t, err, KindInvalidOperation, MsgNotPending)
	})

	t.Run("accept rechecks both participants", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		toBob := f.send(t, "alice", "bob")
		toCarol := f.send(t, "dave", "carol")
		fromBob := f.send(t, "bob", "carol")

		if _, err := f.svc.Accept(ctx, "carol", toCarol.ID); err != nil {
			t.Fatalf("Accept: %v", err)
		}
		_, err := f.svc.Accept(ctx, "carol", fromBob.ID)
		assertKind(t, err, KindConflict, MsgAcceptorHasPartner)

		// Pair bob with alice and free carol: now the initiator check fails.
		if _, err := f.svc.Accept(ctx, "bob", toBob.ID); err != nil {
			t.Fatalf("Accept: %v", err)
		}
		if _, err := f.svc.RequestBreak(ctx, "dave", toCarol.ID); err != nil {
			t.Fatalf("RequestBreak: %v", err)
		}
		if err := f.svc.ConfirmBreak(ctx, "carol", toCarol.ID); err != nil {
			t.Fatalf("ConfirmBreak: %v", err)
		}
		_, err = f.svc.Accept(ctx, "carol", fromBob.ID)
		assertKind(t, err, KindConflict, MsgInitiatorHasPartner)
	})

	t.Run("reject deletes pending link", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.send(t, "alice", "bob")
		if err := f.svc.Reject(ctx, "bob", link.ID); err != nil {
			t.Fatalf("Reject: %v", err)
		}
		err := f.svc.Reject(ctx, "bob", link.ID)
		assertKind(t, err, KindNotFound, MsgRequestNotFound)
		if n := len(f.links(t, "alice")); n != 0 {
			t.Errorf("expected link to be deleted, got %d", n)
		}
	})

	t.Run("initiator cancels own request", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.send(t, "alice", "bob")
		if err := f.svc.Reject(ctx, "alice", link.ID); err != nil {
			t.Fatalf("Reject: %v", err)
		}
	})

	t.Run("reject cannot end a partnership", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.pair(t, "alice", "bob")
		err := f.svc.Reject(ctx, "alice", link.ID)
		assertKind(t, err, KindInvalidOperation, MsgNotPending)
		err = f.svc.Reject(ctx, "carol", link.ID)
		assertKind(t, err, KindNotFound, MsgRequestNotFound)
	})

	t.Run("break round trip", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		accepted := f.pair(t, "alice", "bob")

		pending, err := f.svc.RequestBreak(ctx, "alice", accepted.ID)
		if err != nil {
			t.Fatalf("RequestBreak: %v", err)
		}
		if pending.Status != StatusBreakPending || pending.BreakRequesterID != "alice" {
			t.Fatalf("unexpected link after RequestBreak: %+v", pending)
		}

		restored, err := f.svc.CancelBreak(ctx, "bob", accepted.ID)
		if err != nil {
			t.Fatalf("CancelBreak: %v", err)
		}
		if restored.Status != StatusAccepted || restored.BreakRequesterID != "" {
			t.Errorf("unexpected link after CancelBreak: %+v", restored)
		}
		if restored.InitiatorID != accepted.InitiatorID ||
			restored.RecipientID != accepted.RecipientID ||
			!restored.CreatedAt.Equal(accepted.CreatedAt) {
			t.Errorf("round trip changed more than updated_at: %+v vs %+v", restored, accepted)
		}
		if !restored.UpdatedAt.After(accepted.UpdatedAt) {
			t.Error("expected UpdatedAt to advance")
		}
	})

	t.Run("request break on pending link", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.send(t, "alice", "bob")
		_, err := f.svc.RequestBreak(ctx, "alice", link.ID)
		assertKind(t, err, KindInvalidOperation, MsgNotAccepted)

		links := f.links(t, "alice")
		if len(links) != 1 || links[0].Status != StatusPending {
			t.Errorf("expected row unchanged, got %+v", links)
		}
	})

	t.Run("request break twice", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.pair(t, "alice", "bob")
		if _, err := f.svc.RequestBreak(ctx, "alice", link.ID); err != nil {
			t.Fatalf("RequestBreak: %v", err)
		}
		_, err := f.svc.RequestBreak(ctx, "bob", link.ID)
		assertKind(t, err, KindInvalidOperation, MsgNotAccepted)
	})

	t.Run("confirm break needs the other participant", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.pair(t, "alice", "bob")

		err := f.svc.ConfirmBreak(ctx, "bob", link.ID)
		assertKind(t, err, KindInvalidOperation, MsgNoBreakPending)

		if _, err := f.svc.RequestBreak(ctx, "alice", link.ID); err != nil {
			t.Fatalf("RequestBreak: %v", err)
		}
		err = f.svc.ConfirmBreak(ctx, "alice", link.ID)
		assertKind(t, err, KindInvalidOperation, MsgRequesterCannotConfirm)
		err = f.svc.ConfirmBreak(ctx, "carol", link.ID)
		assertKind(t, err, KindNotFound, MsgRequestNotFound)

		if err := f.svc.ConfirmBreak(ctx, "bob", link.ID); err != nil {
			t.Fatalf("ConfirmBreak: %v", err)
		}
		for _, user := range []string{"alice", "bob"} {
			active, err := f.svc.ActiveLink(ctx, user)
			if err != nil {
				t.Fatalf("ActiveLink: %v", err)
			}
			if active != nil {
				t.Errorf("expected %s to have no partner, got %+v", user, active)
			}
		}
	})

	t.Run("cancel break without pending break", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.pair(t, "alice", "bob")
		_, err := f.svc.CancelBreak(ctx, "alice", link.ID)
		assertKind(t, err, KindInvalidOperation, MsgNoBreakPending)
	})

	t.Run("incoming and outgoing lists", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		first := f.send(t, "alice", "carol")
		second := f.send(t, "bob", "carol")
		f.send(t, "carol", "dave")

		in, err := f.svc.Incoming(ctx, "carol")
		if err != nil {
			t.Fatalf("Incoming: %v", err)
		}
		if len(in) != 2 {
			t.Fatalf("expected 2 incoming, got %d", len(in))
		}
		if in[0].Link.ID != second.ID || in[1].Link.ID != first.ID {
			t.Errorf("expected newest first, got %s, %s", in[0].Link.ID, in[1].Link.ID)
		}
		if in[0].Initiator.Username != "bob" || in[0].Recipient.Username != "carol" {
			t.Errorf("unexpected profiles: %+v", in[0])
		}

		out, err := f.svc.Outgoing(ctx, "carol")
		if err != nil {
			t.Fatalf("Outgoing: %v", err)
		}
		if len(out) != 1 || out[0].Recipient.ID != "dave" {
			t.Errorf("unexpected outgoing: %+v", out)
		}
	})

	t.Run("lists skip links with missing profiles", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		f.send(t, "alice", "carol")
		f.send(t, "bob", "carol")
		f.profiles.Delete("alice")

		in, err := f.svc.Incoming(ctx, "carol")
		if err != nil {
			t.Fatalf("Incoming: %v", err)
		}
		if len(in) != 1 || in[0].Initiator.ID != "bob" {
			t.Errorf("expected only bob's request, got %+v", in)
		}
	})

	t.Run("active link with missing partner profile", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		f.pair(t, "alice", "bob")
		f.profiles.Delete("bob")
		_, err := f.svc.ActiveLink(ctx, "alice")
		assertKind(t, err, KindNotFound, MsgPartnerProfileMissing)
	})

	t.Run("overview keeps a link whose partner profile is gone", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.pair(t, "alice", "bob")
		f.profiles.Delete("bob")

		ov, err := f.svc.Overview(ctx, "alice")
		if err != nil {
			t.Fatalf("Overview: %v", err)
		}
		if ov.Active != nil {
			t.Errorf("expected no active partnership, got %+v", ov.Active)
		}
		if ov.Unresolved == nil || ov.Unresolved.ID != link.ID {
			t.Fatalf("expected unresolved link %s, got %+v", link.ID, ov.Unresolved)
		}

		broken, err := f.svc.RequestBreak(ctx, "alice", ov.Unresolved.ID)
		if err != nil {
			t.Fatalf("RequestBreak: %v", err)
		}
		if broken.Status != StatusBreakPending {
			t.Errorf("expected break_pending, got %s", broken.Status)
		}
	})

	t.Run("overview", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		f.pair(t, "alice", "bob")
		f.send(t, "carol", "dave")

		ov, err := f.svc.Overview(ctx, "alice")
		if err != nil {
			t.Fatalf("Overview: %v", err)
		}
		if ov.Active == nil || ov.Active.Partner.ID != "bob" {
			t.Errorf("unexpected active link: %+v", ov.Active)
		}
		if len(ov.Incoming) != 0 || len(ov.Outgoing) != 0 {
			t.Errorf("expected no pending requests, got %+v", ov)
		}

		ov, err = f.svc.Overview(ctx, "dave")
		if err != nil {
			t.Fatalf("Overview: %v", err)
		}
		if ov.Active != nil || len(ov.Incoming) != 1 {
			t.Errorf("unexpected overview for dave: %+v", ov)
		}
	})

	t.Run("can view", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		link := f.pair(t, "alice", "bob")
		f.send(t, "carol", "dave")

		if err := f.svc.CanView(ctx, "alice", "alice"); err != nil {
			t.Errorf("owner must see own journal: %v", err)
		}
		if err := f.svc.CanView(ctx, "alice", "bob"); err != nil {
			t.Errorf("partner must see journal: %v", err)
		}
		if err := f.svc.CanView(ctx, "carol", "dave"); !errors.Is(err, ErrNotFound) {
			t.Errorf("pending request must not grant access, got %v", err)
		}
		if err := f.svc.CanView(ctx, "carol", "alice"); !errors.Is(err, ErrNotFound) {
			t.Errorf("stranger must not see journal, got %v", err)
		}

		if _, err := f.svc.RequestBreak(ctx, "alice", link.ID); err != nil {
			t.Fatalf("RequestBreak: %v", err)
		}
		if err := f.svc.CanView(ctx, "bob", "alice"); err != nil {
			t.Errorf("break pending still counts as partnered: %v", err)
		}
	})

	t.Run("end to end", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		f.send(t, "alice", "bob")

		in, err := f.svc.Incoming(ctx, "bob")
		if err != nil || len(in) != 1 {
			t.Fatalf("expected one incoming request, got %v, %v", in, err)
		}
		if _, err := f.svc.Accept(ctx, "bob", in[0].Link.ID); err != nil {
			t.Fatalf("Accept: %v", err)
		}
		a, _ := f.svc.ActiveLink(ctx, "alice")
		b, _ := f.svc.ActiveLink(ctx, "bob")
		if a == nil || b == nil || a.Partner.ID != "bob" || b.Partner.ID != "alice" {
			t.Fatalf("expected alice and bob to be partners")
		}

		if _, err := f.svc.RequestBreak(ctx, "alice", a.Link.ID); err != nil {
			t.Fatalf("RequestBreak: %v", err)
		}
		b, _ = f.svc.ActiveLink(ctx, "bob")
		if b == nil || b.Link.Status != StatusBreakPending {
			t.Fatalf("expected bob to see break pending, got %+v", b)
		}
		if err := f.svc.ConfirmBreak(ctx, "bob", b.Link.ID); err != nil {
			t.Fatalf("ConfirmBreak: %v", err)
		}
		a, _ = f.svc.ActiveLink(ctx, "alice")
		b, _ = f.svc.ActiveLink(ctx, "bob")
		if a != nil || b != nil {
			t.Errorf("expected both to be unpaired")
		}
	})

	t.Run("concurrent accepts keep one partner", func(t *testing.T) {
		f := newFixture(t, newStore(t))
		fromBob := f.send(t, "bob", "alice")
		fromCarol := f.send(t, "carol", "alice")
		fromDave := f.send(t, "dave", "alice")

		var wg sync.WaitGroup
		for _, id := range []string{fromBob.ID, fromCarol.ID, fromDave.ID} {
			wg.Go(func() {
				_, _ = f.svc.Accept(ctx, "alice", id)
			})
		}
		wg.Wait()

		active := 0
		for _, l := range f.links(t, "alice") {
			if l.Status.Active() {
				active++
			}
		}
		if active != 1 {
			t.Errorf("expected exactly one active link, got %d", active)
		}
	})
}

func TestLinkServiceMemory(t *testing.T) {
	linkServiceContract(t, func(*testing.T) Store { return NewMemoryStore() })
}

func TestSubscribeDeliversChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())

	aliceCh, err := f.svc.Subscribe(ctx, "alice")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	carolCh, err := f.svc.Subscribe(ctx, "carol")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	link := f.send(t, "alice", "bob")
	expectChange(t, aliceCh, Change{Type: ChangeAdded, LinkID: link.ID})

	if _, err := f.svc.Accept(context.Background(), "bob", link.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	expectChange(t, aliceCh, Change{Type: ChangeModified, LinkID: link.ID})

	if err := f.svc.Reject(context.Background(), "bob", link.ID); err == nil {
		t.Fatal("expected reject of accepted link to fail")
	}
	if _, err := f.svc.RequestBreak(context.Background(), "bob", link.ID); err != nil {
		t.Fatalf("RequestBreak: %v", err)
	}
	expectChange(t, aliceCh, Change{Type: ChangeModified, LinkID: link.ID})
	if err := f.svc.ConfirmBreak(context.Background(), "alice", link.ID); err != nil {
		t.Fatalf("ConfirmBreak: %v", err)
	}
	expectChange(t, aliceCh, Change{Type: ChangeRemoved, LinkID: link.ID})

	select {
	case c := <-carolCh:
		t.Errorf("carol must not see alice's links, got %+v", c)
	default:
	}

	cancel()
	for range aliceCh {
	}
	for range carolCh {
	}
}

func TestFailedTransactionLeavesNoWrite(t *testing.T) {
	store := NewMemoryStore()
	boom := errors.New("boom")
	err := store.RunInTx(context.Background(), func(_ context.Context, tx Tx) error {
		if err := tx.Create(&Link{ID: "l1", InitiatorID: "a", RecipientID: "b", Status: StatusPending}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected no links after failed transaction, got %d", store.Len())
	}
}

func TestErrorUnwrapsToSentinel(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{notFound("x"), ErrNotFound},
		{invalidOp("x"), ErrInvalidOperation},
		{conflict("x"), ErrConflict},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("expected %v to unwrap to %v", tt.err, tt.want)
		}
	}
	if got := categorizeError(conflict("x")); got != "conflict" {
		t.Errorf("unexpected category %q", got)
	}
	if got := categorizeError(errors.New("db down")); got != "internal_error" {
		t.Errorf("unexpected category %q", got)
	}
}

func expectChange(t *testing.T, ch <-chan Change, want Change) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("expected change %+v, got %+v", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %+v", want)
	}
}
