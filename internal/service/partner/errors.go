package partner

import (
	"errors"
)

// Sentinel errors, one per Kind. Every *Error unwraps to one of them.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrConflict         = errors.New("conflict")
)

// Kind classifies partner failures.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInvalidOperation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// User-facing messages.
const (
	MsgUserNotFound           = "User not found. Please check the username."
	MsgProfileRequired        = "Create your profile before connecting with a partner."
	MsgSelfRequest            = "You cannot send a request to yourself."
	MsgAlreadyConnected       = "You already have an active connection with this user."
	MsgAlreadyPending         = "A request is already pending with this user."
	MsgYouHavePartner         = "You already have an active partner. Disconnect first."
	MsgTheyHavePartner        = "This user already has an active partner."
	MsgRequestNotFound        = "Request not found."
	MsgOnlyRecipientAccepts   = "Only the recipient can accept this request."
	MsgNotPending             = "This request is no longer pending."
	MsgAcceptorHasPartner     = "You already have an active partner."
	MsgInitiatorHasPartner    = "The other user already has an active partner."
	MsgNotAccepted            = "Only an active partnership can be disconnected."
	MsgNoBreakPending         = "No disconnect request is pending."
	MsgRequesterCannotConfirm = "Your partner has to confirm the disconnect."
	MsgPartnerProfileMissing  = "Partner profile not found."
)

// Error is a typed partner failure carrying a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel for the error's kind.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindNotFound:
		return ErrNotFound
	case KindInvalidOperation:
		return ErrInvalidOperation
	case KindConflict:
		return ErrConflict
	default:
		return nil
	}
}

func notFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }
func invalidOp(msg string) error { return &Error{Kind: KindInvalidOperation, Message: msg} }
func conflict(msg string) error { return &Error{Kind: KindConflict, Message: msg} }

// categorizeError converts errors to audit-safe categories.
func categorizeError(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind.String()
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound.String()
	}
	return "internal_error"
}
