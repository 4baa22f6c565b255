package partner

import (
	"github.com/janisto/duo-journal/internal/platform/timeutil"
)

// Person is the public part of a participant's profile.
type Person struct {
	ID          string `json:"id"          doc:"User id"      example:"user-456"`
	Username    string `json:"username"    doc:"Username"     example:"bob"`
	DisplayName string `json:"displayName" doc:"Display name" example:"Bob"`
	Avatar      string `json:"avatar"      doc:"Emoji avatar" example:"🌊"`
}

// Link is a partner request or partnership.
type Link struct {
	ID               string        `json:"id"                         doc:"Link id"                                           example:"1c9e6f0e-3f5b-4f38-9a53-7a1f4fb0a2c1"`
	InitiatorID      string        `json:"initiatorId"                doc:"User who sent the request"                         example:"user-123"`
	RecipientID      string        `json:"recipientId"                doc:"User who received the request"                     example:"user-456"`
	Status           string        `json:"status"                     doc:"Lifecycle state"                                   example:"accepted" enum:"pending,accepted,break_pending"`
	BreakRequesterID string        `json:"breakRequesterId,omitempty" doc:"User who asked to disconnect, while break_pending" example:"user-123"`
	CreatedAt        timeutil.Time `json:"createdAt"                  doc:"Creation timestamp"                                example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt        timeutil.Time `json:"updatedAt"                  doc:"Last update timestamp"                             example:"2024-01-15T10:30:00.000Z"`
}

// Partnership is the caller's live link with the partner's profile.
type Partnership struct {
	Link    Link   `json:"link"`
	Partner Person `json:"partner"`
}

// Request is a pending link with both participants.
type Request struct {
	Link      Link   `json:"link"`
	Initiator Person `json:"initiator"`
	Recipient Person `json:"recipient"`
}

// Overview is the caller's complete partner state.
type Overview struct {
	Active         *Partnership `json:"active,omitempty"         doc:"Live partnership, absent when there is none"`
	UnresolvedLink *Link        `json:"unresolvedLink,omitempty" doc:"Live link whose partner profile no longer exists; it can still be broken"`
	Incoming       []Request    `json:"incoming"                 doc:"Pending requests sent to the caller, newest first"`
	Outgoing       []Request    `json:"outgoing"                 doc:"Pending requests the caller sent, newest first"`
}
