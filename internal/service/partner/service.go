package partner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	applog "github.com/janisto/duo-journal/internal/platform/logging"
	"github.com/janisto/duo-journal/internal/service/profile"
)

// profileJoinLimit bounds concurrent profile reads when joining lists.
const profileJoinLimit = 8

// ProfileLookup resolves participants. profile.Service satisfies it.
type ProfileLookup interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
	GetByUsername(ctx context.Context, username string) (*profile.Profile, error)
}

// Service defines partner operations. The acting user is always explicit.
// A caller who is not a participant of the referenced link gets a
// KindNotFound error.
type Service interface {
	ActiveLink(ctx context.Context, userID string) (*ActiveLink, error)
	Incoming(ctx context.Context, userID string) ([]LinkWithProfiles, error)
	Outgoing(ctx context.Context, userID string) ([]LinkWithProfiles, error)
	Overview(ctx context.Context, userID string) (*Overview, error)
	SendRequest(ctx context.Context, initiatorID, username string) (*Link, error)
	Accept(ctx context.Context, actorID, linkID string) (*Link, error)
	Reject(ctx context.Context, actorID, linkID string) error
	RequestBreak(ctx context.Context, requesterID, linkID string) (*Link, error)
	ConfirmBreak(ctx context.Context, actorID, linkID string) error
	CancelBreak(ctx context.Context, actorID, linkID string) (*Link, error)
	CanView(ctx context.Context, viewerID, ownerID string) error
	Subscribe(ctx context.Context, userID string) (<-chan Change, error)
}

// LinkService implements Service on top of a Store.
type LinkService struct {
	store    Store
	profiles ProfileLookup
	now      func() time.Time
	newID    func() string
}

// Option configures a LinkService.
type Option func(*LinkService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *LinkService) { s.now = now }
}

// NewLinkService creates a LinkService.
func NewLinkService(store Store, profiles ProfileLookup, opts ...Option) *LinkService {
	s := &LinkService{
		store:    store,
		profiles: profiles,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ActiveLink returns the user's live partnership, or nil when there is none.
func (s *LinkService) ActiveLink(ctx context.Context, userID string) (*ActiveLink, error) {
	link, partner, err := s.loadActive(ctx, userID)
	switch {
	case err != nil:
		return nil, err
	case link == nil:
		return nil, nil
	case partner == nil:
		return nil, notFound(MsgPartnerProfileMissing)
	}
	return &ActiveLink{Link: *link, Partner: *partner}, nil
}

// loadActive returns the live link and the partner's profile. The profile
// is nil when the partner has no profile any more.
func (s *LinkService) loadActive(ctx context.Context, userID string) (*Link, *profile.Profile, error) {
	links, err := s.store.ForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	link := activeIn(links, "")
	if link == nil {
		return nil, nil, nil
	}
	partner, err := s.profiles.Get(ctx, link.Other(userID))
	if errors.Is(err, profile.ErrNotFound) {
		return link, nil, nil
	} else if err != nil {
		return nil, nil, err
	}
	return link, partner, nil
}

// Incoming lists pending requests sent to the user, newest first.
func (s *LinkService) Incoming(ctx context.Context, userID string) ([]LinkWithProfiles, error) {
	return s.pending(ctx, userID, Incoming)
}

// Outgoing lists pending requests the user sent, newest first.
func (s *LinkService) Outgoing(ctx context.Context, userID string) ([]LinkWithProfiles, error) {
	return s.pending(ctx, userID, Outgoing)
}

func (s *LinkService) pending(ctx context.Context, userID string, dir Direction) ([]LinkWithProfiles, error) {
	links, err := s.store.ListPending(ctx, userID, dir)
	if err != nil {
		return nil, err
	}

	joined := make([]*LinkWithProfiles, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(profileJoinLimit)
	for i, link := range links {
		g.Go(func() error {
			initiator, err := s.profiles.Get(gctx, link.InitiatorID)
			if errors.Is(err, profile.ErrNotFound) {
				return nil
			} else if err != nil {
				return err
			}
			recipient, err := s.profiles.Get(gctx, link.RecipientID)
			if errors.Is(err, profile.ErrNotFound) {
				return nil
			} else if err != nil {
				return err
			}
			joined[i] = &LinkWithProfiles{Link: link, Initiator: *initiator, Recipient: *recipient}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]LinkWithProfiles, 0, len(joined))
	for _, j := range joined {
		if j != nil {
			out = append(out, *j)
		}
	}
	return out, nil
}

// Overview loads the active link and both pending lists concurrently. A live
// link whose partner profile is gone is reported as Unresolved instead of
// failing, so the user can still break it.
func (s *LinkService) Overview(ctx context.Context, userID string) (*Overview, error) {
	var ov Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		link, partner, err := s.loadActive(gctx, userID)
		switch {
		case err != nil:
			return err
		case link != nil && partner == nil:
			ov.Unresolved = link
		case link != nil:
			ov.Active = &ActiveLink{Link: *link, Partner: *partner}
		}
		return nil
	})
	g.Go(func() error {
		in, err := s.Incoming(gctx, userID)
		ov.Incoming = in
		return err
	})
	g.Go(func() error {
		out, err := s.Outgoing(gctx, userID)
		ov.Outgoing = out
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ov, nil
}

// SendRequest creates a pending link from initiatorID to the named user.
func (s *LinkService) SendRequest(ctx context.Context, initiatorID, username string) (*Link, error) {
	ev := applog.AuditEvent{Action: "send_request", UserID: initiatorID, ResourceType: applog.ResourcePartnerLink}

	target, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			err = notFound(MsgUserNotFound)
		}
		return nil, applog.AuditOutcome(ctx, ev, err, categorizeError)
	}
	if target.ID == initiatorID {
		return nil, applog.AuditOutcome(ctx, ev, invalidOp(MsgSelfRequest), categorizeError)
	}
	if _, err := s.profiles.Get(ctx, initiatorID); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			err = invalidOp(MsgProfileRequired)
		}
		return nil, applog.AuditOutcome(ctx, ev, err, categorizeError)
	}

	var created *Link
	err = s.store.RunInTx(ctx, func(_ context.Context, tx Tx) error {
		mine, err := tx.ForUser(initiatorID)
		if err != nil {
			return err
		}
		if err := checkPair(mine, initiatorID, target.ID); err != nil {
			return err
		}
		if activeIn(mine, "") != nil {
			return conflict(MsgYouHavePartner)
		}
		theirs, err := tx.ForUser(target.ID)
		if err != nil {
			return err
		}
		if activeIn(theirs, "") != nil {
			return conflict(MsgTheyHavePartner)
		}

		now := s.now()
		link := &Link{
			ID:          s.newID(),
			InitiatorID: initiatorID,
			RecipientID: target.ID,
			Status:      StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Create(link); err != nil {
			return err
		}
		created = link
		return nil
	})
	if created != nil && err == nil {
		ev.ResourceID = created.ID
	}
	ev.Details = map[string]any{"recipient_id": target.ID}
	if err := applog.AuditOutcome(ctx, ev, err, categorizeError); err != nil {
		return nil, err
	}
	return created, nil
}

// checkPair rejects a request when the pair is already linked, reporting a
// live partnership ahead of a pending request.
func checkPair(links []Link, a, b string) error {
	pending := false
	for _, l := range links {
		if !l.Pairs(a, b) {
			continue
		}
		if l.Status.Active() {
			return conflict(MsgAlreadyConnected)
		}
		if l.Status == StatusPending {
			pending = true
		}
	}
	if pending {
		return conflict(MsgAlreadyPending)
	}
	return nil
}

// Accept turns a pending request into a partnership. Only the recipient may
// accept, and neither side may have gained another partner meanwhile.
func (s *LinkService) Accept(ctx context.Context, actorID, linkID string) (*Link, error) {
	var updated *Link
	err := s.store.RunInTx(ctx, func(_ context.Context, tx Tx) error {
		link, err := getForActor(tx, actorID, linkID)
		if err != nil {
			return err
		}
		if link.RecipientID != actorID {
			return invalidOp(MsgOnlyRecipientAccepts)
		}
		if link.Status != StatusPending {
			return invalidOp(MsgNotPending)
		}
		mine, err := tx.ForUser(link.RecipientID)
		if err != nil {
			return err
		}
		if activeIn(mine, link.ID) != nil {
			return conflict(MsgAcceptorHasPartner)
		}
		theirs, err := tx.ForUser(link.InitiatorID)
		if err != nil {
			return err
		}
		if activeIn(theirs, link.ID) != nil {
			return conflict(MsgInitiatorHasPartner)
		}

		link.Status = StatusAccepted
		link.UpdatedAt = s.now()
		if err := tx.Update(link); err != nil {
			return err
		}
		updated = link
		return nil
	})
	if err := s.audit(ctx, "accept", actorID, linkID, err); err != nil {
		return nil, err
	}
	return updated, nil
}

// Reject deletes a pending request. Either participant may call it, so it
// serves as both decline and cancel.
func (s *LinkService) Reject(ctx context.Context, actorID, linkID string) error {
	err := s.store.RunInTx(ctx, func(_ context.Context, tx Tx) error {
		link, err := getForActor(tx, actorID, linkID)
		if err != nil {
			return err
		}
		if link.Status != StatusPending {
			return invalidOp(MsgNotPending)
		}
		return tx.Delete(link.ID)
	})
	return s.audit(ctx, "reject", actorID, linkID, err)
}

// RequestBreak asks to end an accepted partnership.
func (s *LinkService) RequestBreak(ctx context.Context, requesterID, linkID string) (*Link, error) {
	return s.transition(ctx, "request_break", requesterID, linkID, func(link *Link) error {
		if link.Status != StatusAccepted {
			return invalidOp(MsgNotAccepted)
		}
		link.Status = StatusBreakPending
		link.BreakRequesterID = requesterID
		return nil
	})
}

// CancelBreak withdraws or declines a pending disconnect.
func (s *LinkService) CancelBreak(ctx context.Context, actorID, linkID string) (*Link, error) {
	return s.transition(ctx, "cancel_break", actorID, linkID, func(link *Link) error {
		if link.Status != StatusBreakPending {
			return invalidOp(MsgNoBreakPending)
		}
		link.Status = StatusAccepted
		link.BreakRequesterID = ""
		return nil
	})
}

// ConfirmBreak ends the partnership. Only the participant who did not
// request the break may confirm it.
func (s *LinkService) ConfirmBreak(ctx context.Context, actorID, linkID string) error {
	err := s.store.RunInTx(ctx, func(_ context.Context, tx Tx) error {
		link, err := getForActor(tx, actorID, linkID)
		if err != nil {
			return err
		}
		if link.Status != StatusBreakPending {
			return invalidOp(MsgNoBreakPending)
		}
		if link.BreakRequesterID == actorID {
			return invalidOp(MsgRequesterCannotConfirm)
		}
		return tx.Delete(link.ID)
	})
	return s.audit(ctx, "confirm_break", actorID, linkID, err)
}

// transition loads the link, applies mutate and stores the result.
func (s *LinkService) transition(
	ctx context.Context,
	action, actorID, linkID string,
	mutate func(*Link) error,
) (*Link, error) {
	var updated *Link
	err := s.store.RunInTx(ctx, func(_ context.Context, tx Tx) error {
		link, err := getForActor(tx, actorID, linkID)
		if err != nil {
			return err
		}
		if err := mutate(link); err != nil {
			return err
		}
		link.UpdatedAt = s.now()
		if err := tx.Update(link); err != nil {
			return err
		}
		updated = link
		return nil
	})
	if err := s.audit(ctx, action, actorID, linkID, err); err != nil {
		return nil, err
	}
	return updated, nil
}

// CanView returns nil when viewerID may read ownerID's journal: the viewer
// is the owner or the owner's active partner. Otherwise ErrNotFound.
func (s *LinkService) CanView(ctx context.Context, viewerID, ownerID string) error {
	if viewerID == ownerID {
		return nil
	}
	links, err := s.store.ForUser(ctx, viewerID)
	if err != nil {
		return err
	}
	for _, l := range links {
		if l.Status.Active() && l.Pairs(viewerID, ownerID) {
			return nil
		}
	}
	return ErrNotFound
}

// Subscribe streams changes to the user's links until ctx ends.
func (s *LinkService) Subscribe(ctx context.Context, userID string) (<-chan Change, error) {
	return s.store.Watch(ctx, userID)
}

// getForActor loads a link the actor participates in. Links are invisible
// to everybody else.
func getForActor(tx Tx, actorID, linkID string) (*Link, error) {
	link, err := tx.Get(linkID)
	if err != nil {
		if errors.Is(err, errLinkMissing) {
			return nil, notFound(MsgRequestNotFound)
		}
		return nil, err
	}
	if !link.Involves(actorID) {
		return nil, notFound(MsgRequestNotFound)
	}
	return link, nil
}

func (s *LinkService) audit(ctx context.Context, action, actorID, linkID string, err error) error {
	return applog.AuditOutcome(ctx, applog.AuditEvent{
		Action:       action,
		UserID:       actorID,
		ResourceType: applog.ResourcePartnerLink,
		ResourceID:   linkID,
	}, err, categorizeError)
}

// Compile-time interface check
var _ Service = (*LinkService)(nil)
