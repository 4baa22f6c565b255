package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidCursor indicates the cursor could not be decoded.
var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor is an opaque position in a listing: the kind of listing it belongs
// to and the key of the last item already returned.
type Cursor struct {
	Kind string
	Key  string
}

// Encode returns a URL-safe Base64 representation.
func (c Cursor) Encode() string {
	return base64.RawURLEncoding.EncodeToString([]byte(c.Kind + ":" + c.Key))
}

// DecodeCursor parses a cursor produced by Encode. An empty string decodes to
// the zero Cursor (first page).
func DecodeCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	kind, key, ok := strings.Cut(string(b), ":")
	if !ok || kind == "" {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{Kind: kind, Key: key}, nil
}

// DecodeCursorOfKind decodes s and rejects cursors minted for another listing.
func DecodeCursorOfKind(s, kind string) (Cursor, error) {
	c, err := DecodeCursor(s)
	if err != nil {
		return Cursor{}, err
	}
	if c.Kind != "" && c.Kind != kind {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}
