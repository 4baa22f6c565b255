package timeutil

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the YYYY-MM-DD form journal entries and calendar marks are
// keyed by. Dates are the writer's local calendar day and carry no zone.
const DateLayout = "2006-01-02"

// ErrInvalidDate reports a string that is not a real calendar day.
var ErrInvalidDate = errors.New("invalid date")

// ParseDate validates s, rejecting days such as 2024-02-30.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// MonthRange returns the first day of the month and of the next month, the
// bounds of a half-open [start, end) range query over date strings.
func MonthRange(year int, month time.Month) (start, end string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first.Format(DateLayout), first.AddDate(0, 1, 0).Format(DateLayout)
}
