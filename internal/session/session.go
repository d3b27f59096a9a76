// Package session owns the browser session: the backend bearer token and the
// identity it resolves to.
//
// A request's session is Uninitialized until the session middleware resolves
// it. The identity check against the backend happens inside that middleware
// and blocks the request, so handlers never observe a session mid-check: they
// see either Uninitialized (no middleware ran) or Resolved.
package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/jredh-dev/easyhope/pkg/models"
)

// State is the lifecycle position of a request's session.
type State int

const (
	Uninitialized State = iota
	Resolved
)

func (s State) String() string {
	switch s {
	case Resolved:
		return "resolved"
	default:
		return "uninitialized"
	}
}

// Session is the per-request view of a browser session.
type Session struct {
	ID       string
	Token    string
	Identity *models.Identity
	State    State
}

// Authenticated reports whether the session resolved to an identity.
func (s *Session) Authenticated() bool {
	return s != nil && s.State == Resolved && s.Identity != nil && s.Token != ""
}

// IsAdmin reports whether the resolved identity is an administrator.
func (s *Session) IsAdmin() bool {
	return s.Authenticated() && s.Identity.IsAdmin()
}

// Anonymous is a resolved session without an identity.
func Anonymous() *Session {
	return &Session{State: Resolved}
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the request's session. A request that never passed the
// session middleware gets an Uninitialized session.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}

// tokenExpiry reads exp from a JWT bearer token without verifying it.
// Opaque tokens and tokens without exp report ok=false.
func tokenExpiry(token string) (exp time.Time, ok bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
