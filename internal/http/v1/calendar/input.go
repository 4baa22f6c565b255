package calendar

import (
	"github.com/janisto/duo-journal/internal/http/v1/access"
)

// MonthInput for GET /calendar/{year}/{month}
type MonthInput struct {
	access.OwnerParam
	Year  int `path:"year"  minimum:"1970" maximum:"9999" doc:"Year"         example:"2024"`
	Month int `path:"month" minimum:"1"    maximum:"12"   doc:"Month (1-12)" example:"1"`
}

// MarkSetInput for PATCH /calendar/{date}
type MarkSetInput struct {
	Date string `path:"date" pattern:"^\\d{4}-\\d{2}-\\d{2}$" doc:"Day (YYYY-MM-DD)" example:"2024-01-15"`
	Body struct {
		Comment *string  `json:"comment,omitempty" maxLength:"200" doc:"Personal note; empty clears it"     example:"First snow!"`
		Icons   []string `json:"icons,omitempty"   maxItems:"5"    doc:"Emoji icons; an empty list clears" example:"[\"❄️\"]"`
	}
}
