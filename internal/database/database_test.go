package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jredh-dev/easyhope/pkg/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "easyhope-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	db, err := New(tmpFile.Name())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestDB_SessionRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().Truncate(time.Second)

	s := &models.Session{
		ID:        "sess-1",
		Token:     "jwt-token",
		Identity:  &models.Identity{ID: 7, Name: "Asha", Email: "asha@example.com", Role: models.RoleAdmin},
		CheckedAt: now,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
		IPAddress: "127.0.0.1",
	}
	if err := db.CreateSession(s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := db.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil {
		t.Fatal("GetSession returned nil")
	}
	if got.Token != "jwt-token" {
		t.Errorf("Token = %q", got.Token)
	}
	if got.Identity == nil || got.Identity.ID != 7 || !got.Identity.IsAdmin() {
		t.Errorf("Identity = %+v", got.Identity)
	}

	updated := &models.Identity{ID: 7, Name: "Asha R", Email: "asha@example.com", Role: models.RoleUser}
	if err := db.UpdateSessionIdentity("sess-1", updated, now.Add(time.Minute)); err != nil {
		t.Fatalf("UpdateSessionIdentity: %v", err)
	}
	got, _ = db.GetSession("sess-1")
	if got.Identity.Name != "Asha R" || got.Identity.IsAdmin() {
		t.Errorf("Identity after update = %+v", got.Identity)
	}

	if err := db.DeleteSession("sess-1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	got, err = db.GetSession("sess-1")
	if err != nil || got != nil {
		t.Errorf("GetSession after delete = %v, %v", got, err)
	}
}

func TestDB_SessionWithoutIdentity(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	if err := db.CreateSession(&models.Session{ID: "anon", CheckedAt: now, ExpiresAt: now.Add(time.Hour), CreatedAt: now}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	got, err := db.GetSession("anon")
	if err != nil || got == nil {
		t.Fatalf("GetSession = %v, %v", got, err)
	}
	if got.Identity != nil || got.Authenticated() {
		t.Errorf("anonymous session reported as authenticated: %+v", got)
	}
}

func TestDB_ExpiredSessions(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()

	live := &models.Session{ID: "live", CheckedAt: now, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	dead := &models.Session{ID: "dead", CheckedAt: now, ExpiresAt: now.Add(-time.Minute), CreatedAt: now}
	for _, s := range []*models.Session{live, dead} {
		if err := db.CreateSession(s); err != nil {
			t.Fatalf("CreateSession(%s): %v", s.ID, err)
		}
	}

	if got, _ := db.GetSession("dead"); got != nil {
		t.Error("expired session returned")
	}

	n, err := db.DeleteExpiredSessions()
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d sessions, want 1", n)
	}
	if got, _ := db.GetSession("live"); got == nil {
		t.Error("live session was swept")
	}
}

func TestDB_PendingDonationTransitions(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().Truncate(time.Second)

	p := &models.PendingDonation{
		OrderID:      "order_1",
		SessionID:    "sess-1",
		ProjectID:    3,
		ProjectTitle: "Clean Water",
		Amount:       500,
		Anonymous:    true,
		State:        "order-created",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.CreatePendingDonation(p); err != nil {
		t.Fatalf("CreatePendingDonation: %v", err)
	}

	got, err := db.GetPendingDonation("order_1")
	if err != nil || got == nil {
		t.Fatalf("GetPendingDonation = %v, %v", got, err)
	}
	if got.Amount != 500 || !got.Anonymous || got.ProjectTitle != "Clean Water" {
		t.Errorf("got %+v", got)
	}

	ok, err := db.TransitionPendingDonation("order_1", "order-created", "widget-open")
	if err != nil || !ok {
		t.Fatalf("transition = %v, %v", ok, err)
	}
	ok, err = db.TransitionPendingDonation("order_1", "order-created", "verifying")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if ok {
		t.Error("transition from stale state succeeded")
	}

	active, err := db.ActivePendingDonation("sess-1", "order-created", "widget-open", "verifying")
	if err != nil || active == nil || active.OrderID != "order_1" {
		t.Errorf("ActivePendingDonation = %v, %v", active, err)
	}
	active, err = db.ActivePendingDonation("sess-1", "settled")
	if err != nil || active != nil {
		t.Errorf("ActivePendingDonation(settled) = %v, %v", active, err)
	}

	n, err := db.DeletePendingDonationsBefore(time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Errorf("DeletePendingDonationsBefore = %d, %v", n, err)
	}
}

func TestDB_GetPendingDonation_NotFound(t *testing.T) {
	db := setupTestDB(t)
	got, err := db.GetPendingDonation("missing")
	if err != nil {
		t.Fatalf("GetPendingDonation: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestNew_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	db, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	now := time.Now()
	if err := db.CreatePendingDonation(&models.PendingDonation{
		OrderID: "order_9", SessionID: "v", ProjectID: 1, Amount: 10, Anonymous: true,
		State: "widget-open", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("CreatePendingDonation: %v", err)
	}
	db.Close()

	db, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	got, err := db.GetPendingDonation("order_9")
	if err != nil || got == nil {
		t.Fatalf("GetPendingDonation = %v, %v", got, err)
	}
	if !got.Anonymous {
		t.Error("anonymous flag lost")
	}
}
