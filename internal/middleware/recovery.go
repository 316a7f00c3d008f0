// Package middleware wraps the bridge's HTTP handlers.
package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"flowbot/internal/httputil"
)

// Recovery turns a handler panic into a logged 500 problem response. The
// log names the matched route and the case or message it was serving.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				attrs := append(routeAttrs(r),
					slog.Any("panic", v),
					slog.String("stack", string(debug.Stack())),
				)
				logger.LogAttrs(r.Context(), slog.LevelError, "handler panicked", attrs...)
				httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// routeAttrs describes the request by its mux pattern and path values.
// The mux fills them in on r, so they are visible after the handler ran.
func routeAttrs(r *http.Request) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	if r.Pattern != "" {
		attrs = append(attrs, slog.String("route", r.Pattern))
	}
	if caseID := r.PathValue("caseID"); caseID != "" {
		attrs = append(attrs, slog.String("case_id", caseID))
	}
	if id := r.PathValue("id"); id != "" {
		attrs = append(attrs, slog.String("resource_id", id))
	}
	if kind := r.PathValue("kind"); kind != "" {
		attrs = append(attrs, slog.String("action", kind))
	}
	return attrs
}
