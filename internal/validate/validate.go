// Package validate checks the registration and campaign forms before anything
// is sent to the backend.
package validate

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Categories is the fixed list a campaign may be filed under.
var Categories = []string{
	"Technology",
	"Education",
	"Health",
	"Environment",
	"Community",
	"Arts & Culture",
	"Social Causes",
}

// MinDescriptionLength is the shortest accepted campaign description.
const MinDescriptionLength = 100

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Errors maps a form field to its message. The "form" key holds errors that
// belong to no single field.
type Errors map[string]string

// OK reports whether no errors were recorded.
func (e Errors) OK() bool { return len(e) == 0 }

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Set records msg for field unless the field already has an error.
func (e Errors) Set(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// NormalizeEmail trims whitespace and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Email reports whether s looks like an address.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// RegisterForm is the registration page's input.
type RegisterForm struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Registration validates a RegisterForm.
func Registration(f RegisterForm) Errors {
	errs := Errors{}
	if strings.TrimSpace(f.Name) == "" {
		errs.Set("name", "Name is required")
	}
	switch {
	case strings.TrimSpace(f.Email) == "":
		errs.Set("email", "Email is required")
	case !Email(f.Email):
		errs.Set("email", "Email is invalid")
	}
	switch {
	case f.Password == "":
		errs.Set("password", "Password is required")
	case len(f.Password) < MinPasswordLength:
		errs.Set("password", "Password must be at least 6 characters")
	}
	if f.Password != f.ConfirmPassword {
		errs.Set("confirmPassword", "Passwords do not match")
	}
	return errs
}

// ProfileForm is the dashboard profile editor's input. An empty password
// keeps the current one.
type ProfileForm struct {
	Name     string
	Email    string
	Password string
}

// Profile validates a ProfileForm.
func Profile(f ProfileForm) Errors {
	errs := Errors{}
	if strings.TrimSpace(f.Name) == "" {
		errs.Set("name", "Name is required")
	}
	if !Email(f.Email) {
		errs.Set("email", "Email is invalid")
	}
	if f.Password != "" && len(f.Password) < MinPasswordLength {
		errs.Set("password", "Password must be at least 6 characters")
	}
	return errs
}

// CampaignForm is the start-campaign page's input, as submitted.
type CampaignForm struct {
	Title       string
	ImageURL    string
	Description string
	Category    string
	GoalAmount  string
	EndDate     string
}

// Campaign is a validated CampaignForm.
type Campaign struct {
	Title       string
	ImageURL    string
	Description string
	Category    string
	GoalAmount  float64
	EndDate     time.Time
}

// CampaignInput validates f and returns the parsed campaign.
func CampaignInput(f CampaignForm) (Campaign, Errors) {
	errs := Errors{}
	c := Campaign{
		Title:       strings.TrimSpace(f.Title),
		ImageURL:    strings.TrimSpace(f.ImageURL),
		Description: strings.TrimSpace(f.Description),
		Category:    f.Category,
	}

	if c.Title == "" {
		errs.Set("title", "Title is required")
	}
	if c.ImageURL == "" {
		errs.Set("imageUrl", "Image URL is required")
	}
	switch {
	case c.Description == "":
		errs.Set("description", "Description is required")
	case len([]rune(c.Description)) < MinDescriptionLength:
		errs.Set("description", "Description should be at least 100 characters")
	}
	if !IsCategory(c.Category) {
		errs.Set("category", "Please select a category")
	}

	goal := strings.TrimSpace(f.GoalAmount)
	if goal == "" {
		errs.Set("goalAmount", "Goal amount is required")
	} else if v, err := strconv.ParseFloat(goal, 64); err != nil || v <= 0 {
		errs.Set("goalAmount", "Please enter a valid amount")
	} else {
		c.GoalAmount = v
	}

	if end, err := time.Parse("2006-01-02", strings.TrimSpace(f.EndDate)); err != nil {
		errs.Set("endDate", "Please select an end date")
	} else {
		c.EndDate = end
	}

	return c, errs
}

// IsCategory reports whether name is one of Categories.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}
