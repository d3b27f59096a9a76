// Package catalog derives the public campaign listings from a fetched
// collection: approved only, then category, then search, then sort.
package catalog

import (
	"net/url"
	"sort"
	"strings"

	"github.com/jredh-dev/easyhope/pkg/models"
)

// AllCategories is the category filter value that matches everything.
const AllCategories = "All"

// SortKey orders a listing.
type SortKey string

const (
	SortNewest        SortKey = "newest"
	SortOldest        SortKey = "oldest"
	SortMostFunded    SortKey = "mostFunded"
	SortLeastFunded   SortKey = "leastFunded"
	SortGoalHighToLow SortKey = "goalHighToLow"
	SortGoalLowToHigh SortKey = "goalLowToHigh"
)

// SortOption is one entry of the sort selector.
type SortOption struct {
	Key   SortKey
	Label string
}

// SortOptions lists the sort keys in selector order.
var SortOptions = []SortOption{
	{SortNewest, "Newest"},
	{SortOldest, "Oldest"},
	{SortMostFunded, "Most Funded"},
	{SortLeastFunded, "Least Funded"},
	{SortGoalHighToLow, "Goal: High to Low"},
	{SortGoalLowToHigh, "Goal: Low to High"},
}

// Filter is the explore page's filter state.
type Filter struct {
	Category string
	Query    string
	Sort     SortKey
}

// ParseFilter reads category, q and sort from a query string.
func ParseFilter(v url.Values) Filter {
	f := Filter{
		Category: strings.TrimSpace(v.Get("category")),
		Query:    strings.TrimSpace(v.Get("q")),
		Sort:     SortKey(v.Get("sort")),
	}
	if f.Category == "" {
		f.Category = AllCategories
	}
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	return f
}

// Apply returns the listing for f. The input slice is never modified; ties
// under the sort key keep their fetched order.
func Apply(projects []models.Project, f Filter) []models.Project {
	out := make([]models.Project, 0, len(projects))
	query := strings.ToLower(f.Query)
	for _, p := range projects {
		if p.Status != models.StatusApproved {
			continue
		}
		if f.Category != "" && f.Category != AllCategories && p.Category != f.Category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Title), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		out = append(out, p)
	}
	if less := lessFunc(f.Sort, out); less != nil {
		sort.SliceStable(out, less)
	}
	return out
}

func lessFunc(key SortKey, ps []models.Project) func(i, j int) bool {
	switch key {
	case SortNewest:
		return func(i, j int) bool { return ps[i].CreatedAt.After(ps[j].CreatedAt.Time) }
	case SortOldest:
		return func(i, j int) bool { return ps[i].CreatedAt.Before(ps[j].CreatedAt.Time) }
	case SortMostFunded:
		return func(i, j int) bool { return ps[i].RaisedAmount > ps[j].RaisedAmount }
	case SortLeastFunded:
		return func(i, j int) bool { return ps[i].RaisedAmount < ps[j].RaisedAmount }
	case SortGoalHighToLow:
		return func(i, j int) bool { return ps[i].GoalAmount > ps[j].GoalAmount }
	case SortGoalLowToHigh:
		return func(i, j int) bool { return ps[i].GoalAmount < ps[j].GoalAmount }
	}
	return nil
}

// Categories returns All followed by the distinct non-empty categories of
// projects, sorted.
func Categories(projects []models.Project) []string {
	seen := make(map[string]bool)
	var cats []string
	for _, p := range projects {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		cats = append(cats, p.Category)
	}
	sort.Strings(cats)
	return append([]string{AllCategories}, cats...)
}
