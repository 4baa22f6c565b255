package entries

// ListData is the response body containing a page of entries.
type ListData struct {
	Items []Entry `json:"items" doc:"Entries, newest date first"`
	Total int     `json:"total" doc:"Total number of entries" example:"42"`
}

// EntriesListOutput is the response wrapper with pagination Link header.
type EntriesListOutput struct {
	Link string `header:"Link" doc:"RFC 8288 pagination links"`
	Body ListData
}

// EntriesCountOutput for GET /entries/count
type EntriesCountOutput struct {
	Body struct {
		Count int64 `json:"count" doc:"Number of entries with content" example:"42"`
	}
}

// EntryOutput returns a single entry.
type EntryOutput struct {
	Body Entry
}
