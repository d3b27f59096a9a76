package handlers

import (
	"net/http"

	"github.com/jredh-dev/easyhope/internal/backend"
	"github.com/jredh-dev/easyhope/internal/events"
	"github.com/jredh-dev/easyhope/internal/flash"
	"github.com/jredh-dev/easyhope/internal/logging"
	"github.com/jredh-dev/easyhope/internal/session"
	"github.com/jredh-dev/easyhope/internal/validate"
)

// StartCampaignPage renders the campaign form.
func (h *Handler) StartCampaignPage(w http.ResponseWriter, r *http.Request) {
	h.renderCampaign(w, r, http.StatusOK, validate.CampaignForm{}, validate.Errors{}, "")
}

// StartCampaign validates and submits a new campaign for review.
func (h *Handler) StartCampaign(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderCampaign(w, r, http.StatusBadRequest, validate.CampaignForm{}, validate.Errors{}, "Invalid form data.")
		return
	}
	form := validate.CampaignForm{
		Title:       r.FormValue("title"),
		ImageURL:    r.FormValue("imageUrl"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		GoalAmount:  r.FormValue("goalAmount"),
		EndDate:     r.FormValue("endDate"),
	}
	c, errs := validate.CampaignInput(form)
	if !errs.OK() {
		h.renderCampaign(w, r, http.StatusUnprocessableEntity, form, errs, "")
		return
	}

	sess := session.FromContext(r.Context())
	created, err := h.api.CreateProject(r.Context(), sess.Token, backend.NewProject{
		Title:        c.Title,
		Images:       c.ImageURL,
		Description:  c.Description,
		Category:     c.Category,
		GoalAmount:   c.GoalAmount,
		EndDate:      c.EndDate.Format("2006-01-02"),
		CreatorID:    sess.Identity.ID,
		CreatorName:  sess.Identity.Name,
		CreatorImage: sess.Identity.Image,
	})
	if err != nil {
		logging.From(r).Error().Err(err).Msg("create project")
		h.renderCampaign(w, r, http.StatusBadGateway, form, validate.Errors{}, "Something went wrong. Please try again.")
		return
	}

	h.events.Record(r.Context(), events.New(events.ProjectCreated, created.ID, sess.Identity.ID))
	redirectWith(w, r, "/dashboard?tab=projects&status=success", flash.Success("Project created successfully"))
}

func (h *Handler) renderCampaign(w http.ResponseWriter, r *http.Request, status int, form validate.CampaignForm, errs validate.Errors, msg string) {
	h.render(w, r, status, "campaign.html", map[string]any{
		"Title":      "Start a Campaign",
		"Form":       form,
		"Errors":     errs,
		"Error":      msg,
		"Categories": validate.Categories,
		"MinLength":  validate.MinDescriptionLength,
	})
}
