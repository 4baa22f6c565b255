package pagination

// Limits for listing pages. A default page holds roughly a month of entries.
const (
	DefaultPageSize = 31
	MaxPageSize     = 100
)

// Params embeds into huma input structs of paged listings.
type Params struct {
	Cursor string `query:"cursor" doc:"Opaque cursor from the previous page's Link header"`
	Limit  int    `query:"limit"  doc:"Maximum items per page"                              default:"31" minimum:"1" maximum:"100"`
}

// DefaultLimit returns the limit, or DefaultPageSize when unset.
func (p Params) DefaultLimit() int {
	if p.Limit <= 0 {
		return DefaultPageSize
	}
	return min(p.Limit, MaxPageSize)
}
