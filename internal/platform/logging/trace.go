package logging

import (
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"
)

const traceparentHeader = "traceparent"

// W3C Trace Context: {version}-{trace-id}-{parent-id}-{trace-flags}
var traceHeaderRe = regexp.MustCompile(`^([0-9a-fA-F]{2})-([0-9a-fA-F]{32})-([0-9a-fA-F]{16})-([0-9a-fA-F]{2})$`)

var (
	projectMu sync.RWMutex
	projectID string
)

// SetProjectID sets the Google Cloud project used to build trace resource
// names. Without it, trace fields are omitted and the request id is used for
// correlation.
func SetProjectID(id string) {
	projectMu.Lock()
	defer projectMu.Unlock()
	projectID = id
}

func currentProjectID() string {
	projectMu.RLock()
	defer projectMu.RUnlock()
	return projectID
}

type traceContext struct {
	traceID string
	spanID  string
	sampled bool
}

func parseTraceparent(header string) (traceContext, bool) {
	m := traceHeaderRe.FindStringSubmatch(header)
	if len(m) != 5 {
		return traceContext{}, false
	}
	return traceContext{traceID: m[2], spanID: m[3], sampled: m[4] == "01"}, true
}

func loggerWithTrace(base *zap.Logger, header, project, requestID string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	var fields []zap.Field
	if tc, ok := parseTraceparent(header); ok && project != "" {
		fields = append(fields,
			zap.String("logging.googleapis.com/trace", traceResource(project, tc.traceID)),
			zap.String("logging.googleapis.com/spanId", tc.spanID),
			zap.Bool("logging.googleapis.com/trace_sampled", tc.sampled),
		)
	}
	if requestID != "" {
		fields = append(fields, zap.String("requestId", requestID))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

func traceResource(project, traceID string) string {
	return fmt.Sprintf("projects/%s/traces/%s", project, traceID)
}
