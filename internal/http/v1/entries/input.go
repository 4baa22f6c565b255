package entries

import (
	"github.com/janisto/duo-journal/internal/http/v1/access"
	"github.com/janisto/duo-journal/internal/platform/pagination"
)

// EntriesListInput for GET /entries
type EntriesListInput struct {
	pagination.Params
	access.OwnerParam
}

// EntriesCountInput for GET /entries/count
type EntriesCountInput struct {
	access.OwnerParam
}

// EntryGetInput for GET /entries/{date}
type EntryGetInput struct {
	access.OwnerParam
	Date string `path:"date" pattern:"^\\d{4}-\\d{2}-\\d{2}$" doc:"Day (YYYY-MM-DD)" example:"2024-01-15"`
}

// EntrySaveInput for PUT /entries/{date}
type EntrySaveInput struct {
	Date string `path:"date" pattern:"^\\d{4}-\\d{2}-\\d{2}$" doc:"Day (YYYY-MM-DD)" example:"2024-01-15"`
	Body struct {
		Content string `json:"content" required:"true" doc:"Rich text content, at most 1 MiB" example:"<p>Went hiking today.</p>"`
	}
}

// EntryDeleteInput for DELETE /entries/{date}
type EntryDeleteInput struct {
	Date string `path:"date" pattern:"^\\d{4}-\\d{2}-\\d{2}$" doc:"Day (YYYY-MM-DD)" example:"2024-01-15"`
}
