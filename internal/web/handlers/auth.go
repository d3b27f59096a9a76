package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jredh-dev/easyhope/internal/backend"
	"github.com/jredh-dev/easyhope/internal/flash"
	"github.com/jredh-dev/easyhope/internal/guard"
	"github.com/jredh-dev/easyhope/internal/logging"
	"github.com/jredh-dev/easyhope/internal/session"
	"github.com/jredh-dev/easyhope/internal/validate"
)

const maxUploadBytes = 10 << 20

// LoginPage renders the login form. Logged-in visitors go to their landing page.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if s := session.FromContext(r.Context()); s.Authenticated() {
		http.Redirect(w, r, guard.AfterLogin(s.Identity, r.URL.Query().Get("redirect")), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login.html", map[string]any{
		"Title":    "Login",
		"Redirect": r.URL.Query().Get("redirect"),
	})
}

// Login handles login form submission.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.loginError(w, r, "Invalid form data.")
		return
	}

	email := r.FormValue("email")
	s, err := h.sessions.Login(r.Context(), email, r.FormValue("password"), session.Meta{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		ev := logging.From(r).Info()
		if !errors.Is(err, session.ErrInvalidCredentials) {
			ev = logging.From(r).Warn()
		}
		ev.Err(err).Msg("login failed")
		h.loginError(w, r, "Invalid email or password")
		return
	}

	h.setSessionCookie(w, s.ID)
	http.Redirect(w, r, guard.AfterLogin(s.Identity, r.FormValue("redirect")), http.StatusSeeOther)
}

func (h *Handler) loginError(w http.ResponseWriter, r *http.Request, msg string) {
	h.render(w, r, http.StatusUnauthorized, "login.html", map[string]any{
		"Title":    "Login",
		"Error":    msg,
		"Email":    r.FormValue("email"),
		"Redirect": r.FormValue("redirect"),
	})
}

// Logout ends the session and returns to the login page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if err := h.sessions.Logout(context.WithoutCancel(r.Context()), s); err != nil {
		logging.From(r).Error().Err(err).Msg("logout")
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

// RegisterPage renders the registration form.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", map[string]any{
		"Title":  "Register",
		"Errors": validate.Errors{},
	})
}

// Register validates the form and creates the account. It does not log in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.registerError(w, r, nil, "Invalid form data.")
		return
	}
	form := validate.RegisterForm{
		Name:            r.FormValue("name"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirmPassword"),
	}
	image, closeImage := formUpload(r, "image")
	defer closeImage()

	if _, err := h.sessions.Register(r.Context(), form, image); err != nil {
		var fieldErrs validate.Errors
		if errors.As(err, &fieldErrs) {
			h.registerError(w, r, fieldErrs, "")
			return
		}
		logging.From(r).Warn().Err(err).Msg("registration failed")
		h.registerError(w, r, nil, backend.UserMessage(err, "Registration failed. Please try again."))
		return
	}

	redirectWith(w, r, guard.LoginPath, flash.Success("Registration successful. Please log in."))
}

func (h *Handler) registerError(w http.ResponseWriter, r *http.Request, errs validate.Errors, msg string) {
	if errs == nil {
		errs = validate.Errors{}
	}
	h.render(w, r, http.StatusUnprocessableEntity, "register.html", map[string]any{
		"Title":  "Register",
		"Errors": errs,
		"Error":  msg,
		"Name":   r.FormValue("name"),
		"Email":  r.FormValue("email"),
	})
}

// parseForm accepts both multipart and urlencoded bodies.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxUploadBytes)
	}
	return r.ParseForm()
}

// formUpload returns the optional file part named field. The returned func
// closes it.
func formUpload(r *http.Request, field string) (*backend.Upload, func()) {
	if r.MultipartForm == nil {
		return nil, func() {}
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, func() {}
	}
	return &backend.Upload{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Body:        f,
	}, func() { f.Close() }
}
