// Package timeutil fixes the wire format of API timestamps and validates the
// calendar dates journal entries are keyed by.
package timeutil

import (
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Timestamp layouts, always UTC. API bodies use milliseconds, logs use
// microseconds.
const (
	RFC3339Millis = "2006-01-02T15:04:05.000Z"
	RFC3339Micros = "2006-01-02T15:04:05.000000Z"
)

// Time is a time.Time that encodes as an RFC 3339 UTC string with exactly
// three fractional digits, e.g. "2024-01-15T10:30:00.000Z", in both JSON
// and CBOR. Decoding a null leaves the value unchanged.
type Time struct {
	time.Time
}

// NewTime wraps t.
func NewTime(t time.Time) Time {
	return Time{Time: t}
}

// Now returns the current time.
func Now() Time {
	return Time{Time: time.Now()}
}

func (t Time) String() string {
	return t.UTC().Format(RFC3339Millis)
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler and accepts any RFC 3339 form.
func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		s = string(data)
	}
	return t.parse(s)
}

// MarshalCBOR implements cbor.Marshaler with the same text form as JSON, so
// CBOR clients do not receive time.Time's binary encoding.
func (t Time) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(t.String())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (t *Time) UnmarshalCBOR(data []byte) error {
	var s *string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	return t.parse(*s)
}

func (t *Time) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
