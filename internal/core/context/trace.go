package context

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"spareflow/internal/core/id"
)

// Trace identifies one API call in logs and error bodies.
// RequestID is per call; TraceID may be shared by a client across retries.
type Trace struct {
	TraceID   string
	RequestID string
}

type traceKey struct{}

// NewTrace builds the ids of a call. Blank ids are generated; a blank trace
// id follows the active OpenTelemetry span when there is one.
func NewTrace(ctx context.Context, requestID, traceID string) Trace {
	if requestID == "" {
		requestID = id.New().String()
	}
	if traceID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		} else {
			traceID = requestID
		}
	}
	return Trace{TraceID: traceID, RequestID: requestID}
}

// WithTrace stores t in ctx.
func WithTrace(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// TraceFrom returns the trace stored in ctx.
func TraceFrom(ctx context.Context) (Trace, bool) {
	t, ok := ctx.Value(traceKey{}).(Trace)
	return t, ok
}

// RequestID returns the request id of ctx, or "" outside an API call.
func RequestID(ctx context.Context) string {
	t, _ := TraceFrom(ctx)
	return t.RequestID
}
