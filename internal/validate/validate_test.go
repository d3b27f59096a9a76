package validate

import (
	"strings"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "User@Example.COM", "user@example.com"},
		{"trim whitespace", "  user@example.com  ", "user@example.com"},
		{"plus preserved", "user+tag@gmail.com", "user+tag@gmail.com"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeEmail(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRegistration(t *testing.T) {
	valid := RegisterForm{Name: "Asha", Email: "asha@example.com", Password: "secret", ConfirmPassword: "secret"}

	tests := []struct {
		name  string
		edit  func(*RegisterForm)
		field string
		msg   string
	}{
		{"valid", func(*RegisterForm) {}, "", ""},
		{"missing name", func(f *RegisterForm) { f.Name = "  " }, "name", "Name is required"},
		{"missing email", func(f *RegisterForm) { f.Email = "" }, "email", "Email is required"},
		{"bad email", func(f *RegisterForm) { f.Email = "asha@example" }, "email", "Email is invalid"},
		{"missing password", func(f *RegisterForm) { f.Password = ""; f.ConfirmPassword = "" }, "password", "Password is required"},
		{"short password", func(f *RegisterForm) { f.Password = "12345"; f.ConfirmPassword = "12345" }, "password", "Password must be at least 6 characters"},
		{"mismatch", func(f *RegisterForm) { f.ConfirmPassword = "secreT" }, "confirmPassword", "Passwords do not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.edit(&f)
			errs := Registration(f)
			if tt.field == "" {
				if !errs.OK() {
					t.Fatalf("unexpected errors: %v", errs)
				}
				return
			}
			if got := errs[tt.field]; got != tt.msg {
				t.Errorf("errs[%q] = %q, want %q (all: %v)", tt.field, got, tt.msg, errs)
			}
		})
	}
}

func TestProfile(t *testing.T) {
	if errs := Profile(ProfileForm{Name: "A", Email: "a@b.co"}); !errs.OK() {
		t.Errorf("empty password must keep the current one: %v", errs)
	}
	if errs := Profile(ProfileForm{Name: "A", Email: "a@b.co", Password: "123"}); errs["password"] == "" {
		t.Error("short password accepted")
	}
}

func TestCampaignInput(t *testing.T) {
	valid := CampaignForm{
		Title:       "Solar lamps",
		ImageURL:    "https://img.example.com/lamp.jpg",
		Description: strings.Repeat("d", MinDescriptionLength),
		Category:    "Environment",
		GoalAmount:  "5000",
		EndDate:     "2026-12-31",
	}

	c, errs := CampaignInput(valid)
	if !errs.OK() {
		t.Fatalf("valid form rejected: %v", errs)
	}
	if c.GoalAmount != 5000 || c.EndDate.Year() != 2026 {
		t.Errorf("parsed = %+v", c)
	}

	tests := []struct {
		name  string
		edit  func(*CampaignForm)
		field string
	}{
		{"missing title", func(f *CampaignForm) { f.Title = "" }, "title"},
		{"missing image", func(f *CampaignForm) { f.ImageURL = " " }, "imageUrl"},
		{"short description", func(f *CampaignForm) { f.Description = strings.Repeat("d", MinDescriptionLength-1) }, "description"},
		{"unknown category", func(f *CampaignForm) { f.Category = "Sports" }, "category"},
		{"empty category", func(f *CampaignForm) { f.Category = "" }, "category"},
		{"zero goal", func(f *CampaignForm) { f.GoalAmount = "0" }, "goalAmount"},
		{"negative goal", func(f *CampaignForm) { f.GoalAmount = "-5" }, "goalAmount"},
		{"text goal", func(f *CampaignForm) { f.GoalAmount = "lots" }, "goalAmount"},
		{"missing end date", func(f *CampaignForm) { f.EndDate = "" }, "endDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.edit(&f)
			_, errs := CampaignInput(f)
			if errs[tt.field] == "" {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
			if len(errs) != 1 {
				t.Errorf("expected exactly one error, got %v", errs)
			}
		})
	}
}

func TestCategories(t *testing.T) {
	for _, c := range Categories {
		if !IsCategory(c) {
			t.Errorf("IsCategory(%q) = false", c)
		}
	}
	if IsCategory("All") {
		t.Error("All is a filter, not a category")
	}
}
