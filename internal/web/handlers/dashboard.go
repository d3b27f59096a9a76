package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jredh-dev/easyhope/internal/backend"
	"github.com/jredh-dev/easyhope/internal/flash"
	"github.com/jredh-dev/easyhope/internal/logging"
	"github.com/jredh-dev/easyhope/internal/session"
	"github.com/jredh-dev/easyhope/internal/validate"
)

var dashboardTabs = []string{"profile", "projects", "donations"}

func parseDashboardTab(s string) string {
	for _, t := range dashboardTabs {
		if t == s {
			return t
		}
	}
	return "profile"
}

// Dashboard renders the user's profile, campaigns or donations. Only the
// selected tab's collection is fetched.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, http.StatusOK, parseDashboardTab(r.URL.Query().Get("tab")), nil)
}

func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, status int, tab string, errs validate.Errors) {
	sess := session.FromContext(r.Context())
	if errs == nil {
		errs = validate.Errors{}
	}
	data := map[string]any{
		"Title":  "Dashboard",
		"Tab":    tab,
		"Tabs":   dashboardTabs,
		"Errors": errs,
	}

	switch tab {
	case "projects":
		projects, err := h.api.ListUserProjects(r.Context(), sess.Token, sess.Identity.ID)
		if err != nil {
			logging.From(r).Warn().Err(err).Msg("list user projects")
			data["Error"] = "Failed to load projects."
		}
		data["Projects"] = projects
	case "donations":
		donations, err := h.api.ListUserDonations(r.Context(), sess.Token, sess.Identity.ID)
		if err != nil {
			logging.From(r).Warn().Err(err).Msg("list user donations")
			data["Error"] = "Failed to load donations."
		}
		data["Donations"] = donations
	}
	h.render(w, r, status, "dashboard.html", data)
}

// UpdateProfile saves the profile form and refreshes the session identity.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	back := "/dashboard?tab=profile"
	if err := parseForm(r); err != nil {
		redirectWith(w, r, back, flash.Error("Invalid form data."))
		return
	}
	form := validate.ProfileForm{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Email:    validate.NormalizeEmail(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if errs := validate.Profile(form); !errs.OK() {
		h.renderDashboard(w, r, http.StatusUnprocessableEntity, "profile", errs)
		return
	}

	image, closeImage := formUpload(r, "image")
	defer closeImage()

	sess := session.FromContext(r.Context())
	updated, err := h.api.UpdateProfile(r.Context(), sess.Token, backend.ProfileUpdate{
		ID:       sess.Identity.ID,
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Image:    image,
	})
	if err != nil {
		logging.From(r).Warn().Err(err).Msg("update profile")
		redirectWith(w, r, back, flash.Error("Failed to update profile"))
		return
	}

	merged := *sess.Identity
	merged.Name = form.Name
	merged.Email = form.Email
	if updated != nil {
		if updated.Name != "" {
			merged.Name = updated.Name
		}
		if updated.Email != "" {
			merged.Email = updated.Email
		}
		if updated.Image != "" {
			merged.Image = updated.Image
		}
	}
	if err := h.sessions.Refresh(sess, &merged); err != nil && !errors.Is(err, session.ErrNoSession) {
		logging.From(r).Error().Err(err).Msg("refresh session identity")
	}
	redirectWith(w, r, back, flash.Success("Profile updated successfully!"))
}
