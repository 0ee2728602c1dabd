// Package auth provides the bearer-token middleware protecting mutating
// endpoints. Reads stay open; nothing in a candidate list is more sensitive
// than the session itself, but stage changes must be attributable.
package auth

import (
	"net/http"
	"strings"

	dErrors "passage/pkg/domain-errors"
	"passage/pkg/platform/httputil"
	"passage/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the actor it belongs to.
type TokenValidator interface {
	ValidateActor(tokenString string) (actor string, err error)
}

// RequireToken rejects requests without a valid bearer token and stores the
// authenticated actor in the request context for timeline attribution.
func RequireToken(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing authorization header"))
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "malformed authorization header"))
				return
			}

			actor, err := validator.ValidateActor(token)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}

			ctx := requestcontext.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
