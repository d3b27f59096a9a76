package handlers

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jredh-dev/easyhope/internal/guard"
	"github.com/jredh-dev/easyhope/internal/web/templates"
	"github.com/jredh-dev/easyhope/pkg/models"
)

const requestTimeout = 30 * time.Second

// Routes registers every page and form endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	static, err := fs.Sub(templates.FS, "static")
	if err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}

	r.Group(func(r chi.Router) {
		r.Use(h.Visitor)
		r.Use(h.Sessions)

		// The overview stream outlives the request timeout.
		r.With(guard.RequireRole(models.RoleAdmin)).Get("/admin/overview/stream", h.OverviewStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			// Public pages
			r.Get("/", h.Home)
			r.Get("/explore", h.Explore)
			r.Get("/project/{id}", h.ProjectDetail)
			r.Post("/project/{id}/comments", h.PostComment)
			r.Post("/project/{id}/donate", h.Donate)
			r.Post("/donations/verify", h.VerifyDonation)
			r.Post("/donations/dismiss", h.DismissDonation)
			r.Get("/api/actions", h.SearchActions)

			// Auth
			r.Get("/login", h.LoginPage)
			r.Post("/login", h.Login)
			r.Get("/register", h.RegisterPage)
			r.Post("/register", h.Register)
			r.Get("/logout", h.Logout)
			r.Post("/logout", h.Logout)

			// Any logged-in identity
			r.Group(func(r chi.Router) {
				r.Use(guard.RequireLogin)
				r.Get("/start-campaign", h.StartCampaignPage)
				r.Post("/start-campaign", h.StartCampaign)
			})

			// USER pages
			r.Group(func(r chi.Router) {
				r.Use(guard.RequireRole(models.RoleUser))
				r.Get("/dashboard", h.Dashboard)
				r.Post("/dashboard/profile", h.UpdateProfile)
			})

			// ADMIN pages
			r.Group(func(r chi.Router) {
				r.Use(guard.RequireRole(models.RoleAdmin))
				r.Get("/admin", h.Admin)
				r.Get("/admin/{action}/{id}", h.AdminConfirm)
				r.Post("/admin/{action}/{id}", h.AdminAction)
			})
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			h.renderError(w, r, http.StatusNotFound, "Page not found.")
		})
	})
}
