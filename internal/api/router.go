package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/errortracker/internal/api/middleware"
	"github.com/kiranshivaraju/errortracker/internal/api/response"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc
	ImageHandler  http.HandlerFunc
	MeHandler     http.HandlerFunc

	ListErrors   http.HandlerFunc
	ErrorStats   http.HandlerFunc
	ErrorFacets  http.HandlerFunc
	ExportErrors http.HandlerFunc
	GetError     http.HandlerFunc
	CreateError  http.HandlerFunc
	ReplaceError http.HandlerFunc
	PatchError   http.HandlerFunc
	DeleteError  http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Get("/api/v1/images/*", orNotImplemented(deps.ImageHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/me", orNotImplemented(deps.MeHandler))

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeRead))

			r.Get("/api/v1/errors", orNotImplemented(deps.ListErrors))
			r.Get("/api/v1/errors/stats", orNotImplemented(deps.ErrorStats))
			r.Get("/api/v1/errors/facets", orNotImplemented(deps.ErrorFacets))
			r.Get("/api/v1/errors/export", orNotImplemented(deps.ExportErrors))
			r.Get("/api/v1/errors/{id}", orNotImplemented(deps.GetError))
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeWrite))

			r.Post("/api/v1/errors", orNotImplemented(deps.CreateError))
			r.Put("/api/v1/errors/{id}", orNotImplemented(deps.ReplaceError))
			r.Patch("/api/v1/errors/{id}", orNotImplemented(deps.PatchError))
			r.Delete("/api/v1/errors/{id}", orNotImplemented(deps.DeleteError))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeAdmin))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
