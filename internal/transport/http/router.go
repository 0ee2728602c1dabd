// Package httptransport assembles the public router. Transport concerns only;
// domain logic lives behind the handlers.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	pipelinehandler "passage/internal/pipeline/handler"
	"passage/pkg/platform/httputil"
	"passage/pkg/platform/middleware/auth"
	"passage/pkg/platform/middleware/requesttime"
)

// NewRouter wires all public endpoints. Reads are open; mutations require a
// valid bearer token so every timeline entry has an attributable actor.
func NewRouter(h *pipelinehandler.Handler, validator auth.TokenValidator) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		h.RegisterReads(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireToken(validator))
		h.RegisterWrites(r)
	})
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
