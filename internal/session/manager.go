package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jredh-dev/easyhope/internal/backend"
	"github.com/jredh-dev/easyhope/internal/validate"
	"github.com/jredh-dev/easyhope/pkg/models"
)

// Store persists sessions.
type Store interface {
	CreateSession(s *models.Session) error
	GetSession(id string) (*models.Session, error)
	UpdateSessionIdentity(id string, identity *models.Identity, checkedAt time.Time) error
	DeleteSession(id string) error
	DeleteExpiredSessions() (int64, error)
}

// Options tunes a Manager.
type Options struct {
	// MaxAge bounds the lifetime of a session row.
	MaxAge time.Duration
	// RevalidateAfter is how long a checked identity is trusted before
	// /api/auth/me is asked again.
	RevalidateAfter time.Duration
}

// Meta describes the browser that opened a session.
type Meta struct {
	IPAddress string
	UserAgent string
}

// Manager handles login, registration, logout and session resolution.
type Manager struct {
	store   Store
	api     backend.Client
	opts    Options
	log     zerolog.Logger
	group   singleflight.Group
	started time.Time
	now     func() time.Time
}

// NewManager creates a session manager.
func NewManager(store Store, api backend.Client, opts Options, log zerolog.Logger) *Manager {
	return &Manager{
		store:   store,
		api:     api,
		opts:    opts,
		log:     log.With().Str("component", "session").Logger(),
		started: time.Now(),
		now:     time.Now,
	}
}

// Login sends credentials to the backend and opens a session on success.
// On failure nothing is persisted.
func (m *Manager) Login(ctx context.Context, email, password string, meta Meta) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		if status := backend.StatusOf(err); status == 400 || status == 401 || status == 403 {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, err
	}

	now := m.now()
	expires := now.Add(m.opts.MaxAge)
	if exp, ok := tokenExpiry(res.Token); ok {
		if !exp.After(now) {
			return nil, ErrSessionExpired
		}
		if exp.Before(expires) {
			expires = exp
		}
	}

	row := &models.Session{
		ID:        uuid.New().String(),
		Token:     res.Token,
		Identity:  res.User,
		CheckedAt: now,
		ExpiresAt: expires,
		CreatedAt: now,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := m.store.CreateSession(row); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	m.log.Info().Int64("user_id", res.User.ID).Str("role", string(res.User.Role)).Msg("login")
	return &Session{ID: row.ID, Token: row.Token, Identity: row.Identity, State: Resolved}, nil
}

// Register validates the form and forwards it to the backend. It does not
// open a session. Validation failures are returned as validate.Errors.
func (m *Manager) Register(ctx context.Context, f validate.RegisterForm, image *backend.Upload) (*models.Identity, error) {
	if errs := validate.Registration(f); !errs.OK() {
		return nil, errs
	}
	created, err := m.api.Register(ctx, backend.Registration{
		Name:     strings.TrimSpace(f.Name),
		Email:    validate.NormalizeEmail(f.Email),
		Password: f.Password,
		Image:    image,
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Logout ends the backend session when a token is held and always removes
// the local row. Backend failures are logged only.
func (m *Manager) Logout(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return nil
	}
	if s.Token != "" {
		if err := m.api.Logout(ctx, s.Token); err != nil {
			m.log.Warn().Err(err).Msg("backend logout failed")
		}
	}
	if err := m.store.DeleteSession(s.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Resolve turns a session cookie value into a resolved session. Any failure
// resolves to an anonymous session; rows that fail the identity check are
// deleted.
func (m *Manager) Resolve(ctx context.Context, id string) *Session {
	if id == "" {
		return Anonymous()
	}

	row, err := m.store.GetSession(id)
	if err != nil {
		m.log.Error().Err(err).Msg("load session")
		return Anonymous()
	}
	if row == nil {
		return Anonymous()
	}
	if row.Token == "" {
		m.discard(id, "no token")
		return Anonymous()
	}

	now := m.now()
	if exp, ok := tokenExpiry(row.Token); ok && !exp.After(now) {
		m.discard(id, "token expired")
		return Anonymous()
	}

	identity := row.Identity
	if m.needsCheck(row, now) {
		checked, err := m.check(ctx, row)
		if err != nil {
			m.log.Info().Err(err).Str("session", shortID(id)).Msg("session check failed")
			m.discard(id, "check failed")
			return Anonymous()
		}
		identity = checked
	}

	return &Session{ID: row.ID, Token: row.Token, Identity: identity, State: Resolved}
}

func (m *Manager) needsCheck(row *models.Session, now time.Time) bool {
	return row.Identity == nil ||
		row.CheckedAt.Before(m.started) ||
		now.Sub(row.CheckedAt) > m.opts.RevalidateAfter
}

// check asks /api/auth/me who the token belongs to. Concurrent checks of one
// session share a single call, detached from any one request's cancellation.
func (m *Manager) check(ctx context.Context, row *models.Session) (*models.Identity, error) {
	v, err, _ := m.group.Do(row.ID, func() (interface{}, error) {
		identity, err := m.api.Me(context.WithoutCancel(ctx), row.Token)
		if err != nil {
			return nil, err
		}
		if err := m.store.UpdateSessionIdentity(row.ID, identity, m.now()); err != nil {
			m.log.Warn().Err(err).Msg("store checked identity")
		}
		return identity, nil
	})
	if err != nil {
		return nil, err
	}
	identity, ok := v.(*models.Identity)
	if !ok || identity == nil {
		return nil, errors.New("session check returned no identity")
	}
	return identity, nil
}

// Refresh stores an updated identity for s, e.g. after a profile edit.
func (m *Manager) Refresh(s *Session, identity *models.Identity) error {
	if s == nil || s.ID == "" {
		return ErrNoSession
	}
	if err := m.store.UpdateSessionIdentity(s.ID, identity, m.now()); err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	s.Identity = identity
	return nil
}

// Sweep deletes expired sessions every interval until ctx is done.
func (m *Manager) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.store.DeleteExpiredSessions()
			if err != nil {
				m.log.Error().Err(err).Msg("sweep sessions")
				continue
			}
			if n > 0 {
				m.log.Debug().Int64("deleted", n).Msg("swept expired sessions")
			}
		}
	}
}

func (m *Manager) discard(id, reason string) {
	if err := m.store.DeleteSession(id); err != nil {
		m.log.Error().Err(err).Str("reason", reason).Msg("delete session")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
