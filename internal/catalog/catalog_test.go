package catalog

import (
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/jredh-dev/easyhope/pkg/models"
)

func at(day int) models.Timestamp {
	return models.Timestamp{Time: time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC)}
}

func sample() []models.Project {
	return []models.Project{
		{ID: 1, Title: "Solar Lamps", Description: "Light for villages", Category: "Environment", GoalAmount: 1000, RaisedAmount: 200, Status: models.StatusApproved, CreatedAt: at(3)},
		{ID: 2, Title: "Code Camp", Description: "Teach kids to program", Category: "Education", GoalAmount: 5000, RaisedAmount: 4000, Status: models.StatusApproved, CreatedAt: at(1)},
		{ID: 3, Title: "Clinic Roof", Description: "Repair the SOLAR panels too", Category: "Health", GoalAmount: 3000, RaisedAmount: 900, Status: models.StatusApproved, CreatedAt: at(5)},
		{ID: 4, Title: "Hidden", Description: "awaiting review", Category: "Health", GoalAmount: 10, Status: models.StatusPending, CreatedAt: at(9)},
		{ID: 5, Title: "Rejected", Description: "nope", Category: "Arts & Culture", GoalAmount: 10, Status: models.StatusRejected, CreatedAt: at(8)},
		{ID: 6, Title: "Library", Description: "Books", Category: "Education", GoalAmount: 2000, RaisedAmount: 50, Status: models.StatusApproved, CreatedAt: at(2)},
	}
}

func ids(ps []models.Project) []int64 {
	out := make([]int64, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"all keeps approved in fetched order", Filter{Category: "All"}, []int64{1, 2, 3, 6}},
		{"empty category is all", Filter{}, []int64{1, 2, 3, 6}},
		{"category", Filter{Category: "Education"}, []int64{2, 6}},
		{"pending category hidden", Filter{Category: "Arts & Culture"}, []int64{}},
		{"search title case-insensitive", Filter{Query: "solar"}, []int64{1, 3}},
		{"search description", Filter{Query: "KIDS"}, []int64{2}},
		{"category and search", Filter{Category: "Health", Query: "solar"}, []int64{3}},
		{"newest", Filter{Sort: SortNewest}, []int64{3, 1, 6, 2}},
		{"oldest", Filter{Sort: SortOldest}, []int64{2, 6, 1, 3}},
		{"most funded", Filter{Sort: SortMostFunded}, []int64{2, 3, 1, 6}},
		{"least funded", Filter{Sort: SortLeastFunded}, []int64{6, 1, 3, 2}},
		{"goal high to low", Filter{Sort: SortGoalHighToLow}, []int64{2, 3, 6, 1}},
		{"goal low to high", Filter{Sort: SortGoalLowToHigh}, []int64{1, 6, 3, 2}},
		{"unknown sort keeps order", Filter{Sort: "random"}, []int64{1, 2, 3, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(sample(), tt.filter))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Apply = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply_CategoryIsExactSubset(t *testing.T) {
	in := sample()
	for _, cat := range Categories(in)[1:] {
		for _, p := range Apply(in, Filter{Category: cat}) {
			if p.Category != cat {
				t.Errorf("category %q returned project %d in %q", cat, p.ID, p.Category)
			}
		}
	}
}

func TestApply_MostAndLeastFundedAreReverse(t *testing.T) {
	in := sample()
	most := ids(Apply(in, Filter{Sort: SortMostFunded}))
	least := ids(Apply(in, Filter{Sort: SortLeastFunded}))
	for i := range most {
		if most[i] != least[len(least)-1-i] {
			t.Fatalf("most %v is not the reverse of least %v", most, least)
		}
	}
}

func TestApply_TiesKeepSourceOrder(t *testing.T) {
	in := []models.Project{
		{ID: 10, RaisedAmount: 5, GoalAmount: 9, Status: models.StatusApproved, CreatedAt: at(1)},
		{ID: 11, RaisedAmount: 5, GoalAmount: 9, Status: models.StatusApproved, CreatedAt: at(1)},
		{ID: 12, RaisedAmount: 7, GoalAmount: 9, Status: models.StatusApproved, CreatedAt: at(1)},
		{ID: 13, RaisedAmount: 5, GoalAmount: 9, Status: models.StatusApproved, CreatedAt: at(1)},
	}
	for _, key := range []SortKey{SortNewest, SortOldest, SortGoalHighToLow, SortGoalLowToHigh} {
		if got := ids(Apply(in, Filter{Sort: key})); !reflect.DeepEqual(got, []int64{10, 11, 12, 13}) {
			t.Errorf("%s: ties reordered: %v", key, got)
		}
	}
	if got := ids(Apply(in, Filter{Sort: SortMostFunded})); !reflect.DeepEqual(got, []int64{12, 10, 11, 13}) {
		t.Errorf("mostFunded = %v", got)
	}
	if got := ids(Apply(in, Filter{Sort: SortLeastFunded})); !reflect.DeepEqual(got, []int64{10, 11, 13, 12}) {
		t.Errorf("leastFunded = %v", got)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := sample()
	before := ids(in)
	Apply(in, Filter{Sort: SortMostFunded})
	if !reflect.DeepEqual(ids(in), before) {
		t.Errorf("input reordered: %v", ids(in))
	}
}

func TestCategories(t *testing.T) {
	got := Categories(sample())
	want := []string{"All", "Arts & Culture", "Education", "Environment", "Health"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Categories = %v, want %v", got, want)
	}
	if got := Categories(nil); !reflect.DeepEqual(got, []string{"All"}) {
		t.Errorf("Categories(nil) = %v", got)
	}
}

func TestParseFilter(t *testing.T) {
	f := ParseFilter(url.Values{"category": {"Health"}, "q": {"  roof "}, "sort": {"oldest"}})
	if f != (Filter{Category: "Health", Query: "roof", Sort: SortOldest}) {
		t.Errorf("ParseFilter = %+v", f)
	}
	if f := ParseFilter(url.Values{}); f.Category != AllCategories || f.Sort != SortNewest {
		t.Errorf("defaults = %+v", f)
	}
}
