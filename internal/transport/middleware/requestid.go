package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/finance-dashboard/pkg/logger"
)

const (
	TraceHeader     = "X-Trace-ID"
	RequestIDHeader = "X-Request-ID"
)

// RequestID tags every request with a trace id. A caller supplied UUID in
// X-Trace-ID or X-Request-ID is kept; anything else is replaced.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := incomingTraceID(r)
		w.Header().Set(TraceHeader, traceID)
		ctx := logger.With(r.Context(), "trace_id", traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func incomingTraceID(r *http.Request) string {
	for _, h := range []string{TraceHeader, RequestIDHeader} {
		if id, err := uuid.Parse(r.Header.Get(h)); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}
