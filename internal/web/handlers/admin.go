package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jredh-dev/easyhope/internal/flash"
	"github.com/jredh-dev/easyhope/internal/logging"
	"github.com/jredh-dev/easyhope/internal/moderation"
	"github.com/jredh-dev/easyhope/internal/poll"
	"github.com/jredh-dev/easyhope/internal/session"
	"github.com/jredh-dev/easyhope/pkg/models"
)

// Admin renders one tab of the admin dashboard. Each tab fetches only its
// own collection. A "removed" id left by a successful mutation is filtered
// out of the fresh listing.
func (h *Handler) Admin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tab := moderation.ParseTab(q.Get("tab"))
	removed, _ := strconv.ParseInt(q.Get("removed"), 10, 64)
	sess := session.FromContext(r.Context())
	ctx := r.Context()

	data := map[string]any{
		"Title":        "Admin Dashboard",
		"Tab":          tab,
		"Tabs":         moderation.Tabs,
		"PollInterval": h.cfg.Admin.PollInterval,
	}

	var err error
	switch tab {
	case moderation.TabOverview:
		var ov *moderation.Overview
		if ov, err = h.admin.Overview(ctx, sess); err == nil {
			ov.Pending = moderation.Without(ov.Pending, removed, moderation.ProjectID)
			data["Overview"] = ov
		}
	case moderation.TabProjects:
		var projects []models.Project
		if projects, err = h.admin.Projects(ctx, sess); err == nil {
			data["Projects"] = moderation.Without(projects, removed, moderation.ProjectID)
		}
	case moderation.TabUsers:
		var users []models.Identity
		if users, err = h.admin.Users(ctx, sess); err == nil {
			data["Users"] = moderation.Without(users, removed, moderation.UserID)
		}
	case moderation.TabTransactions:
		var donations []models.Donation
		if donations, err = h.admin.Transactions(ctx, sess); err == nil {
			data["Donations"] = donations
		}
	case moderation.TabComments:
		filter, _ := strconv.ParseInt(q.Get("project"), 10, 64)
		var list []models.Comment
		var ids []int64
		if list, ids, err = h.admin.Comments(ctx, sess, filter); err == nil {
			data["Comments"] = moderation.Without(list, removed, moderation.CommentID)
			data["CommentProjects"] = ids
			data["ProjectFilter"] = filter
		}
	}
	if err != nil {
		logging.From(r).Error().Err(err).Str("tab", string(tab)).Msg("load admin tab")
		data["Error"] = "Failed to load dashboard data."
	}
	h.render(w, r, http.StatusOK, "admin.html", data)
}

// AdminConfirm asks before a destructive action.
func (h *Handler) AdminConfirm(w http.ResponseWriter, r *http.Request) {
	action, ok := moderation.ParseAction(chi.URLParam(r, "action"))
	id, idOK := pathID(r, "id")
	if !ok || !idOK {
		h.renderError(w, r, http.StatusNotFound, "Page not found.")
		return
	}
	if !action.Destructive() {
		http.Redirect(w, r, adminTabURL(action.Tab(), 0, 0), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "confirm.html", map[string]any{
		"Title":   "Confirm",
		"Prompt":  action.Prompt(),
		"Action":  actionPath(action, id),
		"Cancel":  adminTabURL(action.Tab(), 0, 0),
		"Project": r.URL.Query().Get("project"),
	})
}

// AdminAction performs a moderation mutation. Destructive actions without
// confirm=yes are sent to the confirmation page instead.
func (h *Handler) AdminAction(w http.ResponseWriter, r *http.Request) {
	action, ok := moderation.ParseAction(chi.URLParam(r, "action"))
	id, idOK := pathID(r, "id")
	if !ok || !idOK {
		h.renderError(w, r, http.StatusNotFound, "Page not found.")
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, adminTabURL(action.Tab(), 0, 0), flash.Error(action.Failure()))
		return
	}
	if action.Destructive() && r.FormValue("confirm") != "yes" {
		http.Redirect(w, r, actionPath(action, id), http.StatusSeeOther)
		return
	}
	filter, _ := strconv.ParseInt(r.FormValue("project"), 10, 64)

	sess := session.FromContext(r.Context())
	if err := h.admin.Apply(r.Context(), sess, action, id); err != nil {
		logging.From(r).Warn().Err(err).Str("action", string(action)).Int64("id", id).Msg("admin action failed")
		redirectWith(w, r, adminTabURL(action.Tab(), 0, filter), flash.Error(action.Failure()))
		return
	}
	logging.From(r).Info().Str("action", string(action)).Int64("id", id).Msg("admin action")
	redirectWith(w, r, adminTabURL(action.Tab(), id, filter), flash.Success(action.Success()))
}

func actionPath(a moderation.Action, id int64) string {
	return fmt.Sprintf("/admin/%s/%d", a, id)
}

func adminTabURL(tab moderation.Tab, removed, project int64) string {
	u := "/admin?tab=" + string(tab)
	if removed > 0 {
		u += "&removed=" + strconv.FormatInt(removed, 10)
	}
	if project > 0 {
		u += "&project=" + strconv.FormatInt(project, 10)
	}
	return u
}

// overviewEvent is the JSON pushed by the overview stream.
type overviewEvent struct {
	Stats   models.Stats     `json:"stats"`
	Pending []pendingSummary `json:"pending"`
}

type pendingSummary struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	CreatorName string  `json:"creatorName"`
	GoalAmount  float64 `json:"goalAmount"`
}

// OverviewStream pushes the overview as Server-Sent Events every poll
// interval until the client goes away.
func (h *Handler) OverviewStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sess := session.FromContext(r.Context())
	log := logging.From(r)
	p := poll.New(h.cfg.Admin.PollInterval, func(ctx context.Context) (*moderation.Overview, error) {
		return h.admin.Overview(ctx, sess)
	})
	p.Run(r.Context(), func(res poll.Result[*moderation.Overview]) {
		if res.Err != nil {
			log.Warn().Err(res.Err).Uint64("seq", res.Seq).Msg("poll overview")
			writeEvent(w, "error", map[string]string{"message": "Failed to load dashboard data."})
		} else {
			writeEvent(w, "overview", summarize(res.Value))
		}
		flusher.Flush()
	})
}

func summarize(ov *moderation.Overview) overviewEvent {
	ev := overviewEvent{Stats: ov.Stats, Pending: make([]pendingSummary, 0, len(ov.Pending))}
	for _, p := range ov.Pending {
		ev.Pending = append(ev.Pending, pendingSummary{ID: p.ID, Title: p.Title, CreatorName: p.CreatorName, GoalAmount: p.GoalAmount})
	}
	return ev
}

func writeEvent(w http.ResponseWriter, name string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
}
