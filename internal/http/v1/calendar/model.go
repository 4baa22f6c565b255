package calendar

import (
	"github.com/janisto/duo-journal/internal/platform/timeutil"
)

// Mark is one day's comment and icons.
type Mark struct {
	Date      string         `json:"date"                doc:"Day (YYYY-MM-DD)"                       example:"2024-01-15"`
	Comment   string         `json:"comment"             doc:"Personal note for the day"              example:"First snow!"`
	Icons     []string       `json:"icons"               doc:"Emoji icons for the day"                example:"[\"❄️\",\"☕\"]"`
	UpdatedAt *timeutil.Time `json:"updatedAt,omitempty" doc:"Last update, absent once a mark clears" example:"2024-01-15T10:30:00.000Z"`
}

// Month is the calendar view of one month.
type Month struct {
	Year       int      `json:"year"       doc:"Year"                                  example:"2024"`
	Month      int      `json:"month"      doc:"Month (1-12)"                          example:"1"`
	EntryDates []string `json:"entryDates" doc:"Days with a non-empty journal entry"   example:"[\"2024-01-03\",\"2024-01-15\"]"`
	Marks      []Mark   `json:"marks"      doc:"Days with a comment or icons, by date"`
}
