// Package models holds the records mirrored from the crowdfunding backend.
// Field names follow the backend's camelCase JSON.
package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Role is the access class of an identity.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Identity is the authenticated user's profile.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the identity holds the administrative role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// LandingPath returns the page a user of this role lands on after login.
func (i *Identity) LandingPath() string {
	if i.IsAdmin() {
		return "/admin"
	}
	return "/dashboard"
}

// ProjectStatus is the moderation state of a campaign.
type ProjectStatus string

const (
	StatusPending   ProjectStatus = "pending"
	StatusApproved  ProjectStatus = "approved"
	StatusCompleted ProjectStatus = "completed"
	StatusRejected  ProjectStatus = "rejected"
)

// Project is a fundraising campaign.
type Project struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Category     string        `json:"category"`
	GoalAmount   float64       `json:"goalAmount"`
	RaisedAmount float64       `json:"raisedAmount"`
	CreatorID    int64         `json:"creatorId"`
	CreatorName  string        `json:"creatorName"`
	CreatorImage string        `json:"creatorImage,omitempty"`
	Images       string        `json:"images,omitempty"`
	Status       ProjectStatus `json:"status"`
	CreatedAt    Timestamp     `json:"createdAt"`
	UpdatedAt    Timestamp     `json:"updatedAt"`
}

// PercentFunded returns round(raised/goal*100) clamped to [0, 100]. It is
// 100 exactly when raised >= goal, including a zero goal.
func (p Project) PercentFunded() int {
	if p.GoalReached() {
		return 100
	}
	if p.GoalAmount <= 0 {
		return 0
	}
	pct := math.Round(p.RaisedAmount / p.GoalAmount * 100)
	switch {
	case pct < 0:
		return 0
	case pct > 99:
		// Only a reached goal shows 100.
		return 99
	}
	return int(pct)
}

// GoalReached reports whether the raised amount met the goal. It agrees
// with AcceptsDonations on the goal comparison.
func (p Project) GoalReached() bool {
	return p.RaisedAmount >= p.GoalAmount
}

// AcceptsDonations is true only for approved campaigns still short of their goal.
func (p Project) AcceptsDonations() bool {
	return p.Status == StatusApproved && p.RaisedAmount < p.GoalAmount
}

// Phase is the badge shown on a campaign.
func (p Project) Phase() string {
	switch {
	case p.Status == StatusPending:
		return "Pending"
	case p.Status == StatusRejected, p.Status == StatusCompleted, p.GoalReached():
		return "Closed"
	default:
		return "Active"
	}
}

// DonationStatus is the payment state of a donation.
type DonationStatus string

const (
	DonationCompleted DonationStatus = "completed"
	DonationPending   DonationStatus = "pending"
	DonationFailed    DonationStatus = "failed"
)

// Donation is a read-only payment record.
type Donation struct {
	ID           int64          `json:"id"`
	ProjectID    int64          `json:"projectId"`
	ProjectTitle string         `json:"projectTitle"`
	UserID       int64          `json:"userId"`
	Amount       float64        `json:"amount"`
	Status       DonationStatus `json:"status"`
	CreatedAt    Timestamp      `json:"createdAt"`
}

// Comment is a message left on a campaign.
type Comment struct {
	ID           int64  `json:"id"`
	Text         string `json:"text"`
	UserID       int64  `json:"userId"`
	ProjectID    int64  `json:"projectId"`
	UserName     string `json:"userName"`
	ProfileImage string `json:"profileImage"`
}

// UnmarshalJSON accepts both the flat shape and the backend's nested
// {"user": {"id", "name", "image"}} author shape.
func (c *Comment) UnmarshalJSON(data []byte) error {
	type flat Comment
	var raw struct {
		flat
		User *struct {
			ID    int64  `json:"id"`
			Name  string `json:"name"`
			Image string `json:"image"`
		} `json:"user"`
		Project *struct {
			ID int64 `json:"id"`
		} `json:"project"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Comment(raw.flat)
	if raw.User != nil {
		if c.UserID == 0 {
			c.UserID = raw.User.ID
		}
		if c.UserName == "" {
			c.UserName = raw.User.Name
		}
		if c.ProfileImage == "" {
			c.ProfileImage = raw.User.Image
		}
	}
	if raw.Project != nil && c.ProjectID == 0 {
		c.ProjectID = raw.Project.ID
	}
	if c.UserName == "" {
		c.UserName = "Anonymous"
	}
	return nil
}

// Stats is the admin overview counters.
type Stats struct {
	TotalUsers       int     `json:"totalUsers"`
	TotalProjects    int     `json:"totalProjects"`
	TotalDonations   float64 `json:"totalDonations"`
	PendingApprovals int     `json:"pendingApprovals"`
}

// Order is a payment order created by the backend for the checkout widget.
type Order struct {
	OrderID  string  `json:"orderId"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Key      string  `json:"key"`
}

// AssetURL resolves a backend-relative asset path. Absolute URLs and empty
// paths are returned unchanged.
func AssetURL(base, path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// Timestamp decodes the backend's timestamps, which may or may not carry a
// zone offset.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON parses a JSON string timestamp; null and "" give the zero time.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// MarshalJSON writes RFC 3339, or null for the zero time.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}
