package companion

import (
	"github.com/janisto/duo-journal/internal/platform/timeutil"
)

// Comment is the AI companion's reply to an entry.
type Comment struct {
	ID        string        `json:"id"              doc:"Comment id, equal to the entry id"          example:"user-123_2024-01-15"`
	EntryID   string        `json:"entryId"         doc:"Entry the comment belongs to"               example:"user-123_2024-01-15"`
	Comment   string        `json:"comment"         doc:"Supportive comment"                         example:"What a lovely day outside!"`
	Score     *int          `json:"score,omitempty" doc:"Mood score 0-100, when requested"           example:"88"`
	IsPublic  bool          `json:"isPublic"        doc:"Whether the owner's partner may see it"     example:"true"`
	CreatedAt timeutil.Time `json:"createdAt"       doc:"Creation timestamp"                         example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt timeutil.Time `json:"updatedAt"       doc:"Last update timestamp"                      example:"2024-01-15T10:30:00.000Z"`
}

// Message is one chat turn about a comment.
type Message struct {
	ID        string        `json:"id"        doc:"Message id"                     example:"5f0c2b1e-8d7a-4e37-9a57-2a8e7f1c9b10"`
	Role      string        `json:"role"      doc:"Author of the turn"             example:"user" enum:"user,assistant"`
	Content   string        `json:"content"   doc:"Message text"                   example:"Why do I feel tired?"`
	CreatedAt timeutil.Time `json:"createdAt" doc:"Creation timestamp"             example:"2024-01-15T10:31:00.000Z"`
}
