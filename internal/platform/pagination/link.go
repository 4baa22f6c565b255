package pagination

import (
	"fmt"
	"net/url"
)

// NextLink returns an RFC 8288 Link header value pointing at the page after
// cursor. Other query parameters (owner, limit) are carried over; query is
// not modified. An empty cursor yields an empty header.
func NextLink(baseURL string, query url.Values, cursor string) string {
	if cursor == "" {
		return ""
	}
	q := cloneValues(query)
	q.Set("cursor", cursor)
	return fmt.Sprintf("<%s?%s>; rel=\"next\"", baseURL, q.Encode())
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
