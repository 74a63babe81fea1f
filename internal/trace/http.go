package trace

import (
	"context"
	"net/http"
)

// Middleware continues the caller's trace, or starts one, for each request
// and echoes the trace ID in the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := Extract(r.Header)
		w.Header().Set(TraceIDHeader, tc.TraceID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}

// Extract reads an incoming trace from h. The caller's span becomes the
// parent of a new span.
func Extract(h http.Header) Context {
	return Context{
		TraceID: h.Get(TraceIDHeader),
		SpanID:  h.Get(SpanIDHeader),
	}.Child()
}

// Inject writes ctx's trace context onto outgoing request headers.
func Inject(ctx context.Context, h http.Header) {
	tc, ok := FromContext(ctx)
	if !ok {
		return
	}
	h.Set(TraceIDHeader, tc.TraceID)
	h.Set(SpanIDHeader, tc.SpanID)
	if tc.ParentSpanID != "" {
		h.Set(ParentSpanIDHeader, tc.ParentSpanID)
	}
}
