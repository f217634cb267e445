// Package httpmiddleware provides the HTTP middleware stack of the service.
// Middlewares are mounted on a chi router, so the matched route pattern is
// available once the wrapped handler returns.
package httpmiddleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware wraps an http.Handler.
type Middleware = func(http.Handler) http.Handler

// routePattern returns the chi route pattern matched for r, or "unmatched".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
