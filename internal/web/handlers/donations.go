package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jredh-dev/easyhope/internal/donation"
	"github.com/jredh-dev/easyhope/internal/flash"
	"github.com/jredh-dev/easyhope/internal/logging"
	"github.com/jredh-dev/easyhope/internal/session"
)

// Donate starts a donation and renders the checkout page that opens the
// payment widget.
func (h *Handler) Donate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	back := projectPath(id)
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, back, flash.Error("Invalid form data."))
		return
	}

	amount, err := donation.ParseAmount(r.FormValue("amount"), r.FormValue("customAmount"))
	if err != nil {
		redirectWith(w, r, back, flash.Error("Please enter a valid amount."))
		return
	}

	checkout, err := h.donations.Start(r.Context(), donation.StartRequest{
		Owner:     visitorID(r),
		Session:   session.FromContext(r.Context()),
		ProjectID: id,
		Amount:    amount,
		Anonymous: r.FormValue("anonymous") != "",
	})
	if err != nil {
		switch {
		case errors.Is(err, donation.ErrInFlight):
			redirectWith(w, r, back, flash.Info("A donation is already in progress."))
		case errors.Is(err, donation.ErrNotAccepting):
			redirectWith(w, r, back, flash.Error("This campaign is not accepting donations."))
		case errors.Is(err, donation.ErrInvalidAmount):
			redirectWith(w, r, back, flash.Error("Please enter a valid amount."))
		default:
			logging.From(r).Error().Err(err).Int64("project_id", id).Msg("start donation")
			redirectWith(w, r, back, flash.Error("Something went wrong during donation."))
		}
		return
	}

	h.render(w, r, http.StatusOK, "checkout.html", map[string]any{
		"Title":     "Complete your donation",
		"Checkout":  checkout,
		"ScriptURL": h.cfg.Checkout.ScriptURL,
		"ProjectID": id,
		"Amount":    amount,
	})
}

// VerifyDonation receives the widget's success callback.
func (h *Handler) VerifyDonation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/", flash.Error(donation.VerificationFailedMessage))
		return
	}

	res, err := h.donations.Complete(r.Context(), visitorID(r), donation.Callback{
		PaymentID: r.FormValue("razorpay_payment_id"),
		OrderID:   r.FormValue("razorpay_order_id"),
		Signature: r.FormValue("razorpay_signature"),
	})
	if err != nil {
		logging.From(r).Warn().Err(err).Str("order_id", r.FormValue("razorpay_order_id")).Msg("verify donation")
		target := "/"
		if res != nil {
			target = projectPath(res.ProjectID)
		} else if pid, perr := strconv.ParseInt(r.FormValue("project_id"), 10, 64); perr == nil && pid > 0 {
			target = projectPath(pid)
		}
		redirectWith(w, r, target, flash.Error(donation.VerificationFailedMessage))
		return
	}

	redirectWith(w, r, projectPath(res.ProjectID), flash.Success(res.Message))
}

// DismissDonation records that the donor closed the widget without paying.
func (h *Handler) DismissDonation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := h.donations.Dismiss(r.Context(), visitorID(r), r.FormValue("order_id")); err != nil {
		logging.From(r).Debug().Err(err).Msg("dismiss donation")
	}
	target := "/"
	if pid, err := strconv.ParseInt(r.FormValue("project_id"), 10, 64); err == nil && pid > 0 {
		target = projectPath(pid)
	}
	redirectWith(w, r, target, flash.Info("Payment cancelled."))
}
