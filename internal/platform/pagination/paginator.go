package pagination

import (
	"net/url"
	"strconv"
)

// Page is one window of an ordered listing.
type Page[T any] struct {
	Items      []T
	Total      int
	NextCursor string
	LinkHeader string
}

// NewPage builds a page from a window the store read with limit+1 rows: the
// extra row only signals that another page follows and is not returned. The
// next cursor carries the key of the last returned item, and a rel="next"
// Link header is built against baseURL when there is one.
func NewPage[T any](
	window []T,
	limit int,
	total int,
	kind string,
	key func(T) string,
	baseURL string,
	query url.Values,
) Page[T] {
	items := window
	var next string
	if len(window) > limit {
		items = window[:limit]
		if limit > 0 {
			next = Cursor{Kind: kind, Key: key(items[len(items)-1])}.Encode()
		}
	}

	q := cloneValues(query)
	q.Set("limit", strconv.Itoa(limit))
	return Page[T]{
		Items:      items,
		Total:      total,
		NextCursor: next,
		LinkHeader: NextLink(baseURL, q, next),
	}
}
