package models

import "time"

// Session is a browser session held by the frontend. The backend token never
// leaves the server; the browser only sees the session ID.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	Identity  *Identity `json:"identity"`
	CheckedAt time.Time `json:"checked_at"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
}

// Authenticated reports whether the session carries both a token and an identity.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != "" && s.Identity != nil
}

// PendingDonation is a donation whose payment has been started but not settled.
// Amount and donor are fixed when the order is created.
type PendingDonation struct {
	OrderID      string    `json:"order_id"`
	SessionID    string    `json:"session_id"`
	ProjectID    int64     `json:"project_id"`
	ProjectTitle string    `json:"project_title"`
	Amount       float64   `json:"amount"`
	Anonymous    bool      `json:"anonymous"`
	DonorID      int64     `json:"donor_id"`
	DonorName    string    `json:"donor_name"`
	DonorEmail   string    `json:"donor_email"`
	State        string    `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
