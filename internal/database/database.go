package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jredh-dev/easyhope/pkg/models"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database and runs migrations.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer, many readers.
	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// migrate creates tables if they do not exist.
func migrate(conn *sql.DB) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		token      TEXT NOT NULL DEFAULT '',
		identity   TEXT NOT NULL DEFAULT '',
		checked_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

	CREATE TABLE IF NOT EXISTS pending_donations (
		order_id      TEXT PRIMARY KEY,
		session_id    TEXT NOT NULL,
		project_id    INTEGER NOT NULL,
		project_title TEXT NOT NULL DEFAULT '',
		amount        REAL NOT NULL,
		anonymous     INTEGER NOT NULL DEFAULT 0,
		donor_id      INTEGER NOT NULL DEFAULT 0,
		donor_name    TEXT NOT NULL DEFAULT '',
		donor_email   TEXT NOT NULL DEFAULT '',
		state         TEXT NOT NULL,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pending_donations_session ON pending_donations(session_id);
	`
	_, err := conn.Exec(ddl)
	return err
}

// --- Session operations ---

const sessionColumns = `id, token, identity, checked_at, expires_at, created_at, ip_address, user_agent`

func encodeIdentity(id *models.Identity) (string, error) {
	if id == nil {
		return "", nil
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("encode identity: %w", err)
	}
	return string(raw), nil
}

// CreateSession inserts a new session.
func (db *DB) CreateSession(s *models.Session) error {
	identity, err := encodeIdentity(s.Identity)
	if err != nil {
		return err
	}
	q := `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.conn.Exec(q, s.ID, s.Token, identity, s.CheckedAt, s.ExpiresAt, s.CreatedAt, s.IPAddress, s.UserAgent)
	return err
}

// GetSession looks up a session by ID and ensures it has not expired.
// Returns (nil, nil) when there is no live session.
func (db *DB) GetSession(id string) (*models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND expires_at > ?`
	s := &models.Session{}
	var identity string
	err := db.conn.QueryRow(q, id, time.Now()).Scan(
		&s.ID, &s.Token, &identity, &s.CheckedAt, &s.ExpiresAt, &s.CreatedAt, &s.IPAddress, &s.UserAgent,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if identity != "" {
		s.Identity = &models.Identity{}
		if err := json.Unmarshal([]byte(identity), s.Identity); err != nil {
			return nil, fmt.Errorf("decode identity of session %s: %w", id, err)
		}
	}
	return s, nil
}

// UpdateSessionIdentity stores a freshly revalidated identity.
func (db *DB) UpdateSessionIdentity(id string, identity *models.Identity, checkedAt time.Time) error {
	raw, err := encodeIdentity(identity)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`UPDATE sessions SET identity = ?, checked_at = ? WHERE id = ?`, raw, checkedAt, id)
	return err
}

// DeleteSession removes a session by ID.
func (db *DB) DeleteSession(id string) error {
	_, err := db.conn.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// DeleteExpiredSessions cleans up sessions that have passed their expiry.
func (db *DB) DeleteExpiredSessions() (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Pending donation operations ---

const donationColumns = `order_id, session_id, project_id, project_title, amount, anonymous, donor_id, donor_name, donor_email, state, created_at, updated_at`

func scanPendingDonation(row interface{ Scan(...interface{}) error }) (*models.PendingDonation, error) {
	p := &models.PendingDonation{}
	err := row.Scan(
		&p.OrderID, &p.SessionID, &p.ProjectID, &p.ProjectTitle, &p.Amount, &p.Anonymous,
		&p.DonorID, &p.DonorName, &p.DonorEmail, &p.State, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// CreatePendingDonation inserts a donation that has an order but no payment yet.
func (db *DB) CreatePendingDonation(p *models.PendingDonation) error {
	q := `INSERT INTO pending_donations (` + donationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.conn.Exec(q,
		p.OrderID, p.SessionID, p.ProjectID, p.ProjectTitle, p.Amount, p.Anonymous,
		p.DonorID, p.DonorName, p.DonorEmail, p.State, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetPendingDonation looks up a donation by order ID.
func (db *DB) GetPendingDonation(orderID string) (*models.PendingDonation, error) {
	q := `SELECT ` + donationColumns + ` FROM pending_donations WHERE order_id = ?`
	return scanPendingDonation(db.conn.QueryRow(q, orderID))
}

// ActivePendingDonation returns the session's donation in one of the given
// states, newest first. Returns (nil, nil) when there is none.
func (db *DB) ActivePendingDonation(sessionID string, states ...string) (*models.PendingDonation, error) {
	if len(states) == 0 {
		return nil, nil
	}
	q := `SELECT ` + donationColumns + ` FROM pending_donations WHERE session_id = ? AND state IN (?` +
		repeatPlaceholders(len(states)-1) + `) ORDER BY created_at DESC LIMIT 1`
	args := make([]interface{}, 0, len(states)+1)
	args = append(args, sessionID)
	for _, s := range states {
		args = append(args, s)
	}
	return scanPendingDonation(db.conn.QueryRow(q, args...))
}

func repeatPlaceholders(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}

// TransitionPendingDonation moves a donation from one state to another.
// It reports false when the donation is not currently in state from.
func (db *DB) TransitionPendingDonation(orderID, from, to string) (bool, error) {
	const q = `UPDATE pending_donations SET state = ?, updated_at = ? WHERE order_id = ? AND state = ?`
	res, err := db.conn.Exec(q, to, time.Now(), orderID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeletePendingDonationsBefore removes donations last touched before cutoff.
func (db *DB) DeletePendingDonationsBefore(cutoff time.Time) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM pending_donations WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
