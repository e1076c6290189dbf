package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hansupo/shad-label/internal/platform/observability"
)

const unmatchedRoute = "unmatched"

// Middleware records request counts and latency keyed by the chi route pattern. Raw paths are
// never used as label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = observability.SanitizeRoute(rctx.RoutePattern())
		}
		m.ObserveHTTP(route, observability.SanitizeMethod(r.Method), status, time.Since(start))
	})
}
