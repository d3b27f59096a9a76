package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jredh-dev/easyhope/internal/session"
)

const (
	// SessionCookie carries the opaque session id.
	SessionCookie = "session"
	// VisitorCookie identifies a browser for donation flows, logged in or not.
	VisitorCookie = "visitor"

	visitorMaxAge = 30 * 24 * time.Hour
)

type contextKey string

const visitorKey contextKey = "visitor"

// Sessions resolves the session cookie and stores the result in the request
// context. Handlers behind it always see a resolved session.
func (h *Handler) Sessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			id = cookie.Value
		}
		s := h.sessions.Resolve(r.Context(), id)
		if id != "" && !s.Authenticated() {
			h.clearSessionCookie(w)
		}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), s)))
	})
}

// Visitor makes sure every browser carries a visitor id.
func (h *Handler) Visitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(VisitorCookie); err == nil {
			if _, perr := uuid.Parse(cookie.Value); perr == nil {
				id = cookie.Value
			}
		}
		if id == "" {
			id = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     VisitorCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(visitorMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   h.cfg.IsProduction(),
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), visitorKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func visitorID(r *http.Request) string {
	id, _ := r.Context().Value(visitorKey).(string)
	return id
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   h.cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
