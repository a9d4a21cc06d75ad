package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Unauthenticated routes: health, metrics, CSRF bootstrap and login.
// Every other route runs csrf -> role -> rate limit before its handler.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Method(http.MethodGet, "/metrics", s.metrics.handler())
		r.Get("/auth/csrf", s.handleCSRFToken)

		// Login is throttled by origin before credentials are checked.
		if s.signIn != nil {
			r.With(
				s.csrfMiddleware,
				s.rateLimitMiddleware(s.authPolicy, originKey, false),
			).Post("/auth/login", s.handleLogin)
		}

		r.Group(func(r chi.Router) {
			r.Use(s.csrfMiddleware)
			r.Use(s.requireRole(s.authorizer.RequireAuth))
			r.Get("/me", s.handleMe)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.csrfMiddleware)
			r.Use(s.requireRole(s.authorizer.RequireAdmin))
			r.Use(s.rateLimitMiddleware(s.mutationPolicy, identityKey, true))

			r.Get("/audit", s.handleListAudit)
			r.Post("/buildings", s.handleCreateBuilding)
			r.Get("/{kind}/{id}", s.handleGetResource)
			r.Patch("/{kind}/{id}", s.handleRenameResource)
			r.Delete("/{kind}/{id}", s.handleDeleteResource)
		})

		r.Route("/portal", func(r chi.Router) {
			r.Use(s.csrfMiddleware)
			r.Use(s.requireRole(s.authorizer.RequireClient))
			r.Use(s.rateLimitMiddleware(s.mutationPolicy, identityKey, true))

			r.Get("/{kind}/{id}", s.handleGetResource)
			r.Patch("/{kind}/{id}", s.handleRenameResource)
			r.Delete("/{kind}/{id}", s.handleDeleteResource)
		})
	})

	return r
}
