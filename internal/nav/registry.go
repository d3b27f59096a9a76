// Package nav holds the navigation entries shown in the navbar and served by
// the action search endpoint.
package nav

import "strings"

// ActionType categorizes what an action does when executed.
type ActionType string

const (
	TypeNavigation ActionType = "navigation"
	TypeFunction   ActionType = "function"
)

// Visibility controls when an action appears based on auth state.
type Visibility int

const (
	VisibleAlways    Visibility = iota // Everyone sees it
	VisibleLoggedOut                   // Only when not logged in
	VisibleUser                        // Logged in without the admin role
	VisibleAdmin                       // Only admins
	VisibleLoggedIn                    // Any logged-in identity
)

// Action is a single entry in the navbar or the action search.
type Action struct {
	ID          string     `json:"id"`
	Type        ActionType `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	// Navigation actions carry a URL. Function actions carry a form action
	// that must be submitted with POST.
	Target     string     `json:"target"`
	Keywords   []string   `json:"keywords"`
	Visibility Visibility `json:"-"`
}

// Viewer is the auth state actions are filtered by.
type Viewer struct {
	LoggedIn bool
	IsAdmin  bool
}

// Registry holds all available actions and supports filtered search.
type Registry struct {
	actions []Action
}

// New creates a Registry with the default site actions.
func New() *Registry {
	return &Registry{actions: defaultActions()}
}

// Search returns actions matching the query that are visible to v.
// An empty query returns all visible actions. Matching is case-insensitive substring.
func (r *Registry) Search(query string, v Viewer) []Action {
	q := strings.ToLower(strings.TrimSpace(query))
	results := []Action{}
	for _, a := range r.actions {
		if !isVisible(a, v) {
			continue
		}
		if q == "" || matchesQuery(a, q) {
			results = append(results, a)
		}
	}
	return results
}

// Links returns the visible navigation actions in registry order.
func (r *Registry) Links(v Viewer) []Action {
	var out []Action
	for _, a := range r.Search("", v) {
		if a.Type == TypeNavigation {
			out = append(out, a)
		}
	}
	return out
}

func isVisible(a Action, v Viewer) bool {
	switch a.Visibility {
	case VisibleAlways:
		return true
	case VisibleLoggedOut:
		return !v.LoggedIn
	case VisibleUser:
		return v.LoggedIn && !v.IsAdmin
	case VisibleAdmin:
		return v.LoggedIn && v.IsAdmin
	case VisibleLoggedIn:
		return v.LoggedIn
	default:
		return true
	}
}

func matchesQuery(a Action, q string) bool {
	if strings.Contains(strings.ToLower(a.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(a.Description), q) {
		return true
	}
	for _, kw := range a.Keywords {
		if strings.Contains(strings.ToLower(kw), q) {
			return true
		}
	}
	return false
}

func defaultActions() []Action {
	return []Action{
		{
			ID:          "nav-home",
			Type:        TypeNavigation,
			Title:       "Home",
			Description: "Browse approved campaigns",
			Target:      "/",
			Keywords:    []string{"home", "campaigns", "start"},
			Visibility:  VisibleAlways,
		},
		{
			ID:          "nav-explore",
			Type:        TypeNavigation,
			Title:       "Explore",
			Description: "Search and sort campaigns",
			Target:      "/explore",
			Keywords:    []string{"explore", "search", "browse", "discover", "projects"},
			Visibility:  VisibleAlways,
		},
		{
			ID:          "nav-start-campaign",
			Type:        TypeNavigation,
			Title:       "Start a Campaign",
			Description: "Create a new fundraising campaign",
			Target:      "/start-campaign",
			Keywords:    []string{"create", "new", "campaign", "fundraise", "project"},
			Visibility:  VisibleAlways,
		},
		{
			ID:          "nav-login",
			Type:        TypeNavigation,
			Title:       "Login",
			Description: "Sign in to your account",
			Target:      "/login",
			Keywords:    []string{"login", "sign in", "signin", "account"},
			Visibility:  VisibleLoggedOut,
		},
		{
			ID:          "nav-register",
			Type:        TypeNavigation,
			Title:       "Register",
			Description: "Create a new account",
			Target:      "/register",
			Keywords:    []string{"register", "sign up", "signup", "create account"},
			Visibility:  VisibleLoggedOut,
		},
		{
			ID:          "nav-dashboard",
			Type:        TypeNavigation,
			Title:       "Dashboard",
			Description: "Your profile, campaigns and donations",
			Target:      "/dashboard",
			Keywords:    []string{"dashboard", "profile", "my projects", "donations", "account"},
			Visibility:  VisibleUser,
		},
		{
			ID:          "nav-admin",
			Type:        TypeNavigation,
			Title:       "Admin Dashboard",
			Description: "Review campaigns and manage users",
			Target:      "/admin",
			Keywords:    []string{"admin", "moderate", "approve", "reject", "users", "stats"},
			Visibility:  VisibleAdmin,
		},
		{
			ID:          "fn-logout",
			Type:        TypeFunction,
			Title:       "Logout",
			Description: "Sign out of your account",
			Target:      "/logout",
			Keywords:    []string{"logout", "log out", "sign out", "signout"},
			Visibility:  VisibleLoggedIn,
		},
	}
}
