package entries

import (
	"github.com/janisto/duo-journal/internal/platform/timeutil"
)

// Entry is one day's journal entry.
type Entry struct {
	ID         string        `json:"id"         doc:"Entry id"                                  example:"user-123_2024-01-15"`
	UserID     string        `json:"userId"     doc:"Owner"                                     example:"user-123"`
	Date       string        `json:"date"       doc:"Day of the entry"                          example:"2024-01-15"`
	Content    string        `json:"content"    doc:"Rich text content, may embed data: images" example:"<p>Went hiking today.</p>"`
	HasContent bool          `json:"hasContent" doc:"Whether the trimmed content is non-empty"  example:"true"`
	CreatedAt  timeutil.Time `json:"createdAt"  doc:"Creation timestamp"                        example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt  timeutil.Time `json:"updatedAt"  doc:"Last update timestamp"                     example:"2024-01-15T10:30:00.000Z"`
}
