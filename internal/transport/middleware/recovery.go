package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/transport"
	"github.com/frahmantamala/finance-dashboard/pkg/logger"
)

// Recovery turns a handler panic into the opaque 500 envelope. Aborted
// handlers are re-panicked so net/http can drop the connection.
func Recovery(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				lg := logger.FromOr(r.Context(), base)
				lg.Error("Recovery: handler panicked",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()))

				cause := fmt.Errorf("panic: %v", rec)
				transport.NewBaseHandler(lg).HandleServiceError(w, errors.NewInternalError("handler panicked", cause))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
