// Package partner manages the single partner connection between two users:
// requests, acceptance, rejection and the two-step disconnect handshake.
package partner

import (
	"time"

	"github.com/janisto/duo-journal/internal/service/profile"
)

// Status is the lifecycle state of a Link. A deleted link has no status.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAccepted     Status = "accepted"
	StatusBreakPending Status = "break_pending"
)

// Active reports whether the status counts as a live partnership.
func (s Status) Active() bool {
	return s == StatusAccepted || s == StatusBreakPending
}

// Link is a partner request or an established partnership.
type Link struct {
	ID               string
	InitiatorID      string
	RecipientID      string
	Status           Status
	BreakRequesterID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Involves reports whether userID is one of the two participants.
func (l *Link) Involves(userID string) bool {
	return l.InitiatorID == userID || l.RecipientID == userID
}

// Other returns the participant that is not userID.
func (l *Link) Other(userID string) string {
	if l.InitiatorID == userID {
		return l.RecipientID
	}
	return l.InitiatorID
}

// Pairs reports whether the link connects a and b in either direction.
func (l *Link) Pairs(a, b string) bool {
	return l.Involves(a) && l.Involves(b)
}

// ActiveLink is a user's live partnership with the partner's profile.
type ActiveLink struct {
	Link    Link
	Partner profile.Profile
}

// LinkWithProfiles is a pending request joined with both participants.
type LinkWithProfiles struct {
	Link      Link
	Initiator profile.Profile
	Recipient profile.Profile
}

// Overview is everything a client needs to render partner state.
type Overview struct {
	Active *ActiveLink
	// Unresolved is a live link whose partner profile no longer exists.
	Unresolved *Link
	Incoming []LinkWithProfiles
	Outgoing []LinkWithProfiles
}

// Direction selects which side of pending requests to list.
type Direction int

const (
	// Incoming lists requests where the user is the recipient.
	Incoming Direction = iota
	// Outgoing lists requests the user initiated.
	Outgoing
)

// ChangeType describes what happened to a link.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Change notifies a subscriber that a link they take part in changed.
type Change struct {
	Type   ChangeType
	LinkID string
}
