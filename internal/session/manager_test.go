package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"

	"github.com/jredh-dev/easyhope/internal/backend"
	"github.com/jredh-dev/easyhope/internal/backend/backendtest"
	"github.com/jredh-dev/easyhope/internal/database"
	"github.com/jredh-dev/easyhope/internal/validate"
	"github.com/jredh-dev/easyhope/pkg/models"
)

type fixture struct {
	fake *backendtest.Backend
	db   *database.DB
	mgr  *Manager
}

func setup(t *testing.T) *fixture {
	t.Helper()
	fake := backendtest.New(t)
	db, err := database.New(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	api := backend.New(fake.URL(), 2*time.Second)
	mgr := NewManager(db, api, Options{MaxAge: time.Hour, RevalidateAfter: time.Minute}, zerolog.New(io.Discard))
	return &fixture{fake: fake, db: db, mgr: mgr}
}

var asha = models.Identity{ID: 7, Name: "Asha", Email: "asha@example.com", Role: models.RoleUser}

func TestLogin_PersistsSession(t *testing.T) {
	f := setup(t)
	f.fake.AddAccount(asha, "secret1")

	s, err := f.mgr.Login(context.Background(), " asha@example.com ", "secret1", Meta{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !s.Authenticated() || s.Identity.Role != models.RoleUser {
		t.Fatalf("session = %+v", s)
	}
	if s.IsAdmin() {
		t.Error("USER reported as admin")
	}

	row, err := f.db.GetSession(s.ID)
	if err != nil || row == nil {
		t.Fatalf("GetSession = %v, %v", row, err)
	}
	if row.Token != s.Token || row.Identity.ID != asha.ID || row.IPAddress != "10.0.0.1" {
		t.Errorf("row = %+v", row)
	}
}

func TestLogin_BadCredentialsPersistNothing(t *testing.T) {
	f := setup(t)
	f.fake.AddAccount(asha, "secret1")

	_, err := f.mgr.Login(context.Background(), "asha@example.com", "wrong", Meta{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if msg := backend.UserMessage(err, "Login failed"); msg != "Invalid credentials" {
		t.Errorf("message = %q", msg)
	}
	if n, _ := f.db.DeleteExpiredSessions(); n != 0 {
		t.Errorf("unexpected rows")
	}
}

func TestLogin_EmptyFieldsSkipBackend(t *testing.T) {
	f := setup(t)
	if _, err := f.mgr.Login(context.Background(), "", "x", Meta{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v", err)
	}
	if len(f.fake.Requests()) != 0 {
		t.Errorf("requests = %v", f.fake.Requests())
	}
}

func TestRegister(t *testing.T) {
	f := setup(t)

	_, err := f.mgr.Register(context.Background(), validate.RegisterForm{Name: "B", Email: "bad", Password: "123", ConfirmPassword: "124"}, nil)
	var errs validate.Errors
	if !errors.As(err, &errs) {
		t.Fatalf("err = %v, want validate.Errors", err)
	}
	if len(errs) != 3 {
		t.Errorf("errs = %v", errs)
	}
	if n := f.fake.Count(http.MethodPost, "/api/users/register"); n != 0 {
		t.Errorf("invalid form reached backend %d times", n)
	}

	id, err := f.mgr.Register(context.Background(), validate.RegisterForm{
		Name: "Bo", Email: "Bo@Example.com", Password: "secret1", ConfirmPassword: "secret1",
	}, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id.Email != "bo@example.com" {
		t.Errorf("email = %q", id.Email)
	}
	if f.fake.Count(http.MethodPost, "/api/auth/login") != 0 {
		t.Error("register must not log in")
	}
}

func TestResolve_Anonymous(t *testing.T) {
	f := setup(t)
	for _, id := range []string{"", "missing"} {
		s := f.mgr.Resolve(context.Background(), id)
		if s.State != Resolved || s.Authenticated() {
			t.Errorf("Resolve(%q) = %+v", id, s)
		}
	}
}

func TestResolve_ChecksOncePerProcess(t *testing.T) {
	f := setup(t)
	token := f.fake.AddAccount(asha, "secret1")
	now := time.Now()
	stale := &models.Session{
		ID: "s1", Token: token, Identity: &asha,
		CheckedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour), CreatedAt: now.Add(-time.Hour),
	}
	if err := f.db.CreateSession(stale); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	s := f.mgr.Resolve(context.Background(), "s1")
	if !s.Authenticated() {
		t.Fatalf("session = %+v", s)
	}
	s = f.mgr.Resolve(context.Background(), "s1")
	if !s.Authenticated() {
		t.Fatalf("second resolve = %+v", s)
	}
	if n := f.fake.Count(http.MethodGet, "/api/auth/me"); n != 1 {
		t.Errorf("/api/auth/me called %d times, want 1", n)
	}
}

func TestResolve_CheckFailureDiscardsSession(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"server error", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			token := f.fake.AddAccount(asha, "secret1")
			f.fake.Fail(http.MethodGet, "/api/auth/me", tt.status)
			now := time.Now()
			if err := f.db.CreateSession(&models.Session{
				ID: "s1", Token: token, CheckedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour), CreatedAt: now,
			}); err != nil {
				t.Fatalf("CreateSession: %v", err)
			}

			if s := f.mgr.Resolve(context.Background(), "s1"); s.Authenticated() {
				t.Fatalf("failed check resolved to %+v", s)
			}
			if row, _ := f.db.GetSession("s1"); row != nil {
				t.Error("session row kept after failed check")
			}
		})
	}
}

func TestResolve_ExpiredJWTSkipsBackend(t *testing.T) {
	f := setup(t)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	now := time.Now()
	if err := f.db.CreateSession(&models.Session{
		ID: "s1", Token: expired, Identity: &asha, CheckedAt: now, ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if s := f.mgr.Resolve(context.Background(), "s1"); s.Authenticated() {
		t.Fatalf("expired token resolved to %+v", s)
	}
	if len(f.fake.Requests()) != 0 {
		t.Errorf("requests = %v", f.fake.Requests())
	}
}

func TestResolve_ConcurrentChecksShareOneCall(t *testing.T) {
	f := setup(t)
	token := f.fake.AddAccount(asha, "secret1")
	release := make(chan struct{})
	f.fake.OnRequest(func(r *http.Request) {
		if r.URL.Path == "/api/auth/me" {
			<-release
		}
	})
	now := time.Now()
	if err := f.db.CreateSession(&models.Session{
		ID: "s1", Token: token, Identity: &asha, CheckedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]*Session, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.mgr.Resolve(context.Background(), "s1")
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, s := range results {
		if !s.Authenticated() {
			t.Errorf("result %d = %+v", i, s)
		}
	}
	if got := f.fake.Count(http.MethodGet, "/api/auth/me"); got != 1 {
		t.Errorf("/api/auth/me called %d times, want 1", got)
	}
}

func TestLogout(t *testing.T) {
	f := setup(t)
	f.fake.AddAccount(asha, "secret1")
	s, err := f.mgr.Login(context.Background(), "asha@example.com", "secret1", Meta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	f.fake.Fail(http.MethodPost, "/api/auth/logout", http.StatusBadGateway)
	if err := f.mgr.Logout(context.Background(), s); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if row, _ := f.db.GetSession(s.ID); row != nil {
		t.Error("row survived logout despite backend failure")
	}
	if f.fake.Count(http.MethodPost, "/api/auth/logout") != 1 {
		t.Error("backend logout not attempted")
	}
}

func TestLogout_WithoutTokenIsLocalOnly(t *testing.T) {
	f := setup(t)
	if err := f.mgr.Logout(context.Background(), &Session{ID: "x", State: Resolved}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(f.fake.Requests()) != 0 {
		t.Errorf("requests = %v", f.fake.Requests())
	}
}

func TestRefresh(t *testing.T) {
	f := setup(t)
	f.fake.AddAccount(asha, "secret1")
	s, err := f.mgr.Login(context.Background(), "asha@example.com", "secret1", Meta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	renamed := asha
	renamed.Name = "Asha R"
	if err := f.mgr.Refresh(s, &renamed); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	row, _ := f.db.GetSession(s.ID)
	if row.Identity.Name != "Asha R" || s.Identity.Name != "Asha R" {
		t.Errorf("identity not refreshed: row=%+v session=%+v", row.Identity, s.Identity)
	}
	if err := f.mgr.Refresh(&Session{}, &renamed); !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v", err)
	}
}

func TestFromContext(t *testing.T) {
	if s := FromContext(context.Background()); s.State != Uninitialized {
		t.Errorf("state = %v", s.State)
	}
	ctx := WithSession(context.Background(), Anonymous())
	if s := FromContext(ctx); s.State != Resolved || s.Authenticated() {
		t.Errorf("session = %+v", s)
	}
}

func TestResolve_ReturnsOnlyAfterCheck(t *testing.T) {
	f := setup(t)
	token := f.fake.AddAccount(asha, "secret1")
	now := time.Now()
	if err := f.db.CreateSession(&models.Session{
		ID: "s1", Token: token, CheckedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	var checkDone atomic.Bool
	f.fake.OnRequest(func(r *http.Request) {
		if r.URL.Path == "/api/auth/me" {
			checkDone.Store(true)
		}
	})
	s := f.mgr.Resolve(context.Background(), "s1")
	if !checkDone.Load() {
		t.Fatal("Resolve returned without checking the identity")
	}
	if s.State != Resolved || !s.Authenticated() {
		t.Errorf("session = %+v", s)
	}
	if Uninitialized.String() != "uninitialized" || Resolved.String() != "resolved" {
		t.Errorf("state names = %q, %q", Uninitialized, Resolved)
	}

	// Without middleware a session never counts as logged in, even with a token.
	pending := &Session{ID: "s1", Token: token, Identity: &asha}
	if pending.Authenticated() {
		t.Error("uninitialized session reported as authenticated")
	}
}
