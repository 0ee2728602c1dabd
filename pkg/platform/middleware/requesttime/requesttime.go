// Package requesttime pins one clock reading per request so every computation
// within a single operation (guard checks, SLA math, timeline stamps) observes
// the same now.
package requesttime

import (
	"net/http"
	"time"

	"passage/pkg/requestcontext"
)

// Middleware stamps the request context with the arrival time.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
