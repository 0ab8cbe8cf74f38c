package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/bookshelf/backend/internal/response"
)

// Recoverer turns a panic into a logged 500 with the standard error body.
// The stack goes to the log, never to the client.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
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
				logger.Error("Panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				response.Error(w, http.StatusInternalServerError, response.MsgInternal, logger)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
