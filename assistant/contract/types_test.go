package contract

import "testing"

func TestUrgencyForTiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		daysUntil int
		want      Urgency
	}{
		{0, UrgencyHigh},
		{3, UrgencyHigh},
		{4, UrgencyMedium},
		{7, UrgencyMedium},
		{8, UrgencyLow},
		{30, UrgencyLow},
	}
	for _, tc := range cases {
		if got := UrgencyFor(tc.daysUntil); got != tc.want {
			t.Fatalf("UrgencyFor(%d) = %s, want %s", tc.daysUntil, got, tc.want)
		}
	}
}

func TestItemComplete(t *testing.T) {
	t.Parallel()

	complete := Item{ID: "P1", Title: "Desk Lamp", Price: 24.99, Category: "home"}
	if !complete.Complete() {
		t.Fatal("expected item to be complete")
	}

	for name, item := range map[string]Item{
		"missing title":    {ID: "P1", Price: 10, Category: "home"},
		"missing price":    {ID: "P1", Title: "Desk Lamp", Category: "home"},
		"missing category": {ID: "P1", Title: "Desk Lamp", Price: 10},
	} {
		if item.Complete() {
			t.Fatalf("%s: expected item to be incomplete", name)
		}
	}
}

func TestTopPreferredCategories(t *testing.T) {
	t.Parallel()

	p := UserProfile{PreferredCategories: []string{"electronics", " ", "kitchen", "home"}}
	got := p.TopPreferredCategories(2)
	if len(got) != 2 || got[0] != "electronics" || got[1] != "kitchen" {
		t.Fatalf("TopPreferredCategories(2) = %v", got)
	}

	if got := (UserProfile{}).TopPreferredCategories(2); len(got) != 0 {
		t.Fatalf("expected no categories, got %v", got)
	}
}

func TestSearchFilterEmpty(t *testing.T) {
	t.Parallel()

	var nilFilter *SearchFilter
	if !nilFilter.Empty() {
		t.Fatal("nil filter must be empty")
	}
	if !(&SearchFilter{}).Empty() {
		t.Fatal("zero filter must be empty")
	}
	if (&SearchFilter{Category: "home"}).Empty() {
		t.Fatal("category filter must not be empty")
	}
	if (&SearchFilter{InStockOnly: true}).Empty() {
		t.Fatal("in-stock filter must not be empty")
	}
}
