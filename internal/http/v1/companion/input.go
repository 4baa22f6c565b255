package companion

import (
	"github.com/janisto/duo-journal/internal/http/v1/access"
)

// DateParam addresses the entry of one day.
type DateParam struct {
	Date string `path:"date" pattern:"^\\d{4}-\\d{2}-\\d{2}$" doc:"Day of the entry (YYYY-MM-DD)" example:"2024-01-15"`
}

// GenerateInput for POST /entries/{date}/companion
type GenerateInput struct {
	DateParam
	Body struct {
		WithScore bool `json:"withScore,omitempty" doc:"Also ask for a 0-100 mood score" example:"true"`
	} `required:"false"`
}

// CommentGetInput for GET /entries/{date}/companion
type CommentGetInput struct {
	DateParam
	access.OwnerParam
}

// VisibilityInput for PATCH /entries/{date}/companion
type VisibilityInput struct {
	DateParam
	Body struct {
		IsPublic bool `json:"isPublic" required:"true" doc:"Whether the partner may see the comment" example:"false"`
	}
}

// MessagesListInput for GET /entries/{date}/companion/messages
type MessagesListInput struct {
	DateParam
}

// MessageSendInput for POST /entries/{date}/companion/messages
type MessageSendInput struct {
	DateParam
	Body struct {
		Content string `json:"content" minLength:"1" maxLength:"2000" required:"true" doc:"Message to the companion" example:"Why do I feel tired?"`
	}
}
