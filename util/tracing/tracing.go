package tracing

import (
	"context"
	"fmt"

	"github.com/bwise1/barrier_reports/util/values"
)

// Context identifies a single request across log lines.
type Context struct {
	RequestID     string
	RequestSource string
}

func (c Context) String() string {
	return fmt.Sprintf("request_id=%s request_source=%s", c.RequestID, c.RequestSource)
}

// FromContext returns the tracing context stored by the request middleware,
// or a zero Context when none is present.
func FromContext(ctx context.Context) Context {
	tc, _ := ctx.Value(values.ContextTracingKey).(Context)
	return tc
}
