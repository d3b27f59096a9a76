// Package guard decides whether a request may reach a role-protected page.
package guard

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jredh-dev/easyhope/internal/session"
	"github.com/jredh-dev/easyhope/pkg/models"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// Decision is the outcome of a guard check.
type Decision struct {
	Allow    bool
	Redirect string
}

// Decide applies the guard table: no identity goes to login, a role mismatch
// goes to the identity's own landing page, a match is allowed.
func Decide(identity *models.Identity, required models.Role) Decision {
	switch {
	case identity == nil:
		return Decision{Redirect: LoginPath}
	case identity.Role != required:
		return Decision{Redirect: identity.LandingPath()}
	default:
		return Decision{Allow: true}
	}
}

// RequireRole guards a route with Decide.
func RequireRole(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.FromContext(r.Context())
			if s.State != session.Resolved {
				http.Error(w, "Session not ready", http.StatusServiceUnavailable)
				return
			}
			var identity *models.Identity
			if s.Authenticated() {
				identity = s.Identity
			}
			d := Decide(identity, required)
			if !d.Allow {
				http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireLogin lets any authenticated identity through and sends everyone
// else to login with a redirect back to the requested page.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		if s.State != session.Resolved {
			http.Error(w, "Session not ready", http.StatusServiceUnavailable)
			return
		}
		if !s.Authenticated() {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginURL is the login page with a redirect back to target.
func LoginURL(target string) string {
	if !SafeRedirect(target) {
		return LoginPath
	}
	return LoginPath + "?redirect=" + url.QueryEscape(target)
}

// SafeRedirect reports whether target is a local absolute path.
func SafeRedirect(target string) bool {
	if target == "" || !strings.HasPrefix(target, "/") {
		return false
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return false
	}
	u, err := url.Parse(target)
	return err == nil && u.Scheme == "" && u.Host == ""
}

// AfterLogin picks where a freshly logged-in identity goes: the requested
// redirect when it is safe, otherwise the role's landing page.
func AfterLogin(identity *models.Identity, redirect string) string {
	if SafeRedirect(redirect) && redirect != LoginPath {
		return redirect
	}
	return identity.LandingPath()
}
