package partner

import (
	"github.com/janisto/duo-journal/internal/platform/timeutil"
)

// OverviewOutput for GET /partner
type OverviewOutput struct {
	Body Overview
}

// LinkOutput returns a single link.
type LinkOutput struct {
	Body Link
}

// SendRequestOutput for POST /partner/requests (201 Created)
type SendRequestOutput struct {
	Location string `header:"Location" doc:"URL of the partner overview"`
	Body     Link
}

// StateEvent is the SSE payload: the caller's full partner state.
type StateEvent struct {
	Overview
}

// PingEvent keeps idle SSE connections open through proxies.
type PingEvent struct {
	Time timeutil.Time `json:"time" doc:"Server time" example:"2024-01-15T10:30:00.000Z"`
}
