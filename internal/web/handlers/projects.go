package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jredh-dev/easyhope/internal/backend"
	"github.com/jredh-dev/easyhope/internal/catalog"
	"github.com/jredh-dev/easyhope/internal/comments"
	"github.com/jredh-dev/easyhope/internal/donation"
	"github.com/jredh-dev/easyhope/internal/flash"
	"github.com/jredh-dev/easyhope/internal/logging"
	"github.com/jredh-dev/easyhope/internal/session"
)

// Home lists approved campaigns with a category filter.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		category = catalog.AllCategories
	}
	data := map[string]any{
		"Title":    "Home",
		"Category": category,
	}

	projects, err := h.api.ListProjects(r.Context())
	if err != nil {
		logging.From(r).Error().Err(err).Msg("list projects")
		data["Error"] = "Failed to load projects."
		h.render(w, r, http.StatusOK, "home.html", data)
		return
	}

	data["Categories"] = catalog.Categories(catalog.Apply(projects, catalog.Filter{}))
	data["Projects"] = catalog.Apply(projects, catalog.Filter{Category: category})
	h.render(w, r, http.StatusOK, "home.html", data)
}

// Explore lists approved campaigns filtered by category and search text,
// sorted by the selected key.
func (h *Handler) Explore(w http.ResponseWriter, r *http.Request) {
	f := catalog.ParseFilter(r.URL.Query())
	data := map[string]any{
		"Title":       "Explore",
		"Filter":      f,
		"SortOptions": catalog.SortOptions,
	}

	projects, err := h.api.ListProjects(r.Context())
	if err != nil {
		logging.From(r).Error().Err(err).Msg("list projects")
		data["Error"] = "Failed to load projects."
		h.render(w, r, http.StatusOK, "explore.html", data)
		return
	}

	data["Categories"] = catalog.Categories(catalog.Apply(projects, catalog.Filter{}))
	data["Projects"] = catalog.Apply(projects, f)
	h.render(w, r, http.StatusOK, "explore.html", data)
}

// ProjectDetail shows one campaign, its donation sidebar and its comments.
func (h *Handler) ProjectDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.renderError(w, r, http.StatusNotFound, "Failed to load project details.")
		return
	}

	project, err := h.api.GetProject(r.Context(), id)
	if err != nil {
		status := http.StatusBadGateway
		if backend.IsNotFound(err) {
			status = http.StatusNotFound
		}
		logging.From(r).Warn().Err(err).Int64("project_id", id).Msg("load project")
		h.renderError(w, r, status, "Failed to load project details.")
		return
	}

	thread, err := h.comments.Load(r.Context(), id)
	if err != nil {
		logging.From(r).Warn().Err(err).Int64("project_id", id).Msg("load comments")
	}

	h.render(w, r, http.StatusOK, "project.html", map[string]any{
		"Title":         project.Title,
		"Project":       project,
		"Comments":      thread.Comments,
		"Presets":       donation.Presets,
		"DefaultAmount": float64(donation.DefaultAmount),
		"LoginURL":      "/login?redirect=" + projectPath(id),
	})
}

// PostComment adds a comment as the logged-in identity.
func (h *Handler) PostComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	back := projectPath(id) + "#comments"
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, back, flash.Error("Invalid form data."))
		return
	}

	_, err := h.comments.Post(r.Context(), session.FromContext(r.Context()), id, r.FormValue("text"))
	switch {
	case err == nil:
		http.Redirect(w, r, back, http.StatusSeeOther)
	case errors.Is(err, comments.ErrLoginRequired):
		redirectWith(w, r, back, flash.Error("You must be logged in to comment."))
	case errors.Is(err, comments.ErrEmptyComment):
		redirectWith(w, r, back, flash.Error("Comment cannot be empty."))
	default:
		logging.From(r).Warn().Err(err).Int64("project_id", id).Msg("post comment")
		redirectWith(w, r, back, flash.Error("Failed to post comment. Try again."))
	}
}
