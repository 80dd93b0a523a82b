package contextbuilder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/retailmate/core/assistant/contract"
	"github.com/retailmate/core/assistant/vectorindex"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return unit(1, 1, 1, 1), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 4 }

type fakeCalendar struct {
	events     []contract.Event
	listErr    error
	eventsByID map[string]contract.Event
}

func (f *fakeCalendar) EventsNeedingShopping(context.Context, int) ([]contract.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.events, nil
}

func (f *fakeCalendar) Event(_ context.Context, id string) (*contract.Event, error) {
	if ev, ok := f.eventsByID[id]; ok {
		return &ev, nil
	}
	return nil, fmt.Errorf("%w: %s", contract.ErrEventNotFound, id)
}

type fakeCatalog struct {
	items map[string]contract.Item
}

func (f *fakeCatalog) Item(_ context.Context, id string) (*contract.Item, error) {
	if item, ok := f.items[id]; ok {
		return &item, nil
	}
	return nil, fmt.Errorf("%w: %s", contract.ErrNotFound, id)
}

func unit(v ...float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / float32(norm)
	}
	return out
}

func seedIndex(t *testing.T) *vectorindex.Index {
	t.Helper()
	idx, err := vectorindex.New(vectorindex.Config{Dimension: 4})
	if err != nil {
		t.Fatalf("vectorindex.New() error = %v", err)
	}
	ctx := context.Background()

	products := []struct {
		item contract.Item
		vec  []float32
	}{
		{contract.Item{ID: "P1", Title: "Wireless Mouse", Category: "electronics", Price: 25, Rating: 4.4, InStock: true}, unit(1, 0, 0, 0)},
		{contract.Item{ID: "P2", Title: "Mechanical Keyboard", Category: "electronics", Price: 80, Rating: 4.7, InStock: true}, unit(1, 0.5, 0, 0)},
		{contract.Item{ID: "P3", Title: "Cast Iron Skillet", Category: "kitchen", Price: 35, Rating: 4.8, InStock: true}, unit(0, 1, 0, 0)},
		{contract.Item{ID: "P4", Title: "Desk Lamp", Category: "home", Price: 18, Rating: 3.9, InStock: true}, unit(0, 0, 1, 0)},
	}
	for _, p := range products {
		if err := idx.UpsertProduct(ctx, p.item, p.vec); err != nil {
			t.Fatalf("UpsertProduct(%s) error = %v", p.item.ID, err)
		}
	}

	users := []struct {
		profile contract.UserProfile
		vec     []float32
	}{
		{contract.UserProfile{ID: "U1", FirstName: "Ada", PreferredCategories: []string{"electronics", "kitchen"}}, unit(1, 0, 0, 0)},
		{contract.UserProfile{ID: "U2", FirstName: "Ben", PreferredCategories: []string{"electronics"}}, unit(1, 0.1, 0, 0)},
	}
	for _, u := range users {
		if err := idx.UpsertUser(ctx, u.profile, u.vec); err != nil {
			t.Fatalf("UpsertUser(%s) error = %v", u.profile.ID, err)
		}
	}
	return idx
}

func newTestBuilder(t *testing.T, emb contract.Embedder, cal contract.CalendarSource, opts ...Option) *Builder {
	t.Helper()
	b, err := New(emb, seedIndex(t), cal, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b
}

func TestBuildShoppingContextPersonalizedNoDuplicates(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, &fakeEmbedder{vectors: map[string][]float32{
		"gear for my desk": unit(1, 0.3, 0, 0),
	}}, &fakeCalendar{})

	bundle, err := b.BuildShoppingContext(context.Background(), "gear for my desk", "U1", 4)
	if err != nil {
		t.Fatalf("BuildShoppingContext() error = %v", err)
	}

	if bundle.User == nil || bundle.User.Profile.ID != "U1" {
		t.Fatalf("expected personalized bundle for U1, got %+v", bundle.User)
	}
	if !bundle.Meta.Personalized {
		t.Fatal("expected Meta.Personalized")
	}

	seen := make(map[string]struct{})
	for _, p := range bundle.Products {
		if _, dup := seen[p.ID]; dup {
			t.Fatalf("duplicate product id %s in bundle", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	if len(bundle.Products) > 4 {
		t.Fatalf("bundle exceeds max items: %d", len(bundle.Products))
	}
	if bundle.Meta.ProductsFound != len(bundle.Products) {
		t.Fatalf("ProductsFound = %d, want %d", bundle.Meta.ProductsFound, len(bundle.Products))
	}
	if len(bundle.SimilarUsers) != 1 || bundle.SimilarUsers[0].ID != "U2" {
		t.Fatalf("expected similar user U2, got %+v", bundle.SimilarUsers)
	}
	if bundle.RequestID == "" {
		t.Fatal("expected a request id")
	}
}

func TestBuildShoppingContextUnknownUserProceedsUnpersonalized(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, &fakeEmbedder{}, &fakeCalendar{})

	bundle, err := b.BuildShoppingContext(context.Background(), "anything", "nobody", 3)
	if err != nil {
		t.Fatalf("BuildShoppingContext() error = %v", err)
	}
	if bundle.User != nil {
		t.Fatalf("expected unpersonalized bundle, got user %+v", bundle.User)
	}
	if bundle.Meta.Personalized {
		t.Fatal("Meta.Personalized must be false")
	}
	if len(bundle.Products) == 0 {
		t.Fatal("expected base results despite unknown user")
	}
}

func TestBuildShoppingContextCalendarFailureDegrades(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, &fakeEmbedder{}, &fakeCalendar{listErr: errors.New("calendar down")})

	bundle, err := b.BuildShoppingContext(context.Background(), "anything", "", 3)
	if err != nil {
		t.Fatalf("calendar failure must not fail the bundle, got %v", err)
	}
	if len(bundle.Calendar) != 0 {
		t.Fatalf("expected no calendar signals, got %+v", bundle.Calendar)
	}
	if bundle.Meta.CalendarEventsFound != 0 {
		t.Fatalf("CalendarEventsFound = %d, want 0", bundle.Meta.CalendarEventsFound)
	}
}

func TestBuildShoppingContextCapsCalendarSignals(t *testing.T) {
	t.Parallel()

	events := []contract.Event{
		{ID: "E5", Title: "Vacation", DaysUntil: 12},
		{ID: "E1", Title: "Birthday Party", DaysUntil: 2, GiftNeeded: true},
		{ID: "E3", Title: "Team Offsite", DaysUntil: 6, Type: "work"},
		{ID: "E2", Title: "Dinner Party", DaysUntil: 4},
		{ID: "E4", Title: "Conference", DaysUntil: 9},
	}
	b := newTestBuilder(t, &fakeEmbedder{}, &fakeCalendar{events: events})

	bundle, err := b.BuildShoppingContext(context.Background(), "anything", "", 3)
	if err != nil {
		t.Fatalf("BuildShoppingContext() error = %v", err)
	}
	if len(bundle.Calendar) != 3 {
		t.Fatalf("expected 3 calendar signals, got %d", len(bundle.Calendar))
	}
	if bundle.Calendar[0].EventID != "E1" || bundle.Calendar[1].EventID != "E2" || bundle.Calendar[2].EventID != "E3" {
		t.Fatalf("expected soonest-first signals, got %+v", bundle.Calendar)
	}
	if bundle.Calendar[0].Urgency != contract.UrgencyHigh {
		t.Fatalf("E1 urgency = %s, want high", bundle.Calendar[0].Urgency)
	}
	if bundle.Calendar[2].Urgency != contract.UrgencyMedium {
		t.Fatalf("E3 urgency = %s, want medium", bundle.Calendar[2].Urgency)
	}
	if bundle.Calendar[0].Reason == "" {
		t.Fatal("expected a shopping reason on calendar signals")
	}
}

func TestBuildShoppingContextEmbedderFailureIsFatal(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, &fakeEmbedder{err: fmt.Errorf("%w: embedder down", contract.ErrUpstream)}, &fakeCalendar{})

	if _, err := b.BuildShoppingContext(context.Background(), "anything", "", 3); !errors.Is(err, contract.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestBuildShoppingContextValidation(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, &fakeEmbedder{}, &fakeCalendar{})

	if _, err := b.BuildShoppingContext(context.Background(), "  ", "", 3); !errors.Is(err, contract.ErrValidation) {
		t.Fatalf("empty query: expected ErrValidation, got %v", err)
	}
	if _, err := b.BuildShoppingContext(context.Background(), "q", "", 0); !errors.Is(err, contract.ErrValidation) {
		t.Fatalf("zero max items: expected ErrValidation, got %v", err)
	}
}

func TestBuildEventShoppingContext(t *testing.T) {
	t.Parallel()

	cal := &fakeCalendar{eventsByID: map[string]contract.Event{
		"E1": {
			ID:            "E1",
			Title:         "Birthday Party",
			DaysUntil:     2,
			GiftNeeded:    true,
			ShoppingNeeds: []string{"gifts", "party supplies"},
		},
	}}
	b := newTestBuilder(t, &fakeEmbedder{}, cal)

	ec, err := b.BuildEventShoppingContext(context.Background(), "E1")
	if err != nil {
		t.Fatalf("BuildEventShoppingContext() error = %v", err)
	}
	if ec.Event.EventID != "E1" {
		t.Fatalf("unexpected event %+v", ec.Event)
	}
	if ec.Urgency != contract.UrgencyHigh {
		t.Fatalf("urgency = %s, want high", ec.Urgency)
	}
	if len(ec.ShoppingList) != 2 {
		t.Fatalf("shopping list = %v", ec.ShoppingList)
	}
	if len(ec.Suggestions) == 0 || len(ec.Suggestions) > 8 {
		t.Fatalf("suggestions count = %d", len(ec.Suggestions))
	}
}

func TestBuildEventShoppingContextUnknownEvent(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, &fakeEmbedder{}, &fakeCalendar{})

	ec, err := b.BuildEventShoppingContext(context.Background(), "E404")
	if !errors.Is(err, contract.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	if ec != nil {
		t.Fatalf("expected no partial bundle, got %+v", ec)
	}
}

func TestProductDetails(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, &fakeEmbedder{}, &fakeCalendar{})
	ctx := context.Background()

	item, err := b.ProductDetails(ctx, "P1")
	if err != nil {
		t.Fatalf("ProductDetails(P1) error = %v", err)
	}
	if item == nil || item.Title != "Wireless Mouse" {
		t.Fatalf("unexpected item %+v", item)
	}

	item, err = b.ProductDetails(ctx, "missing")
	if err != nil {
		t.Fatalf("absent item must not error, got %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil item for absent id, got %+v", item)
	}
}

func TestProductDetailsCatalogFallback(t *testing.T) {
	t.Parallel()

	fallback := &fakeCatalog{items: map[string]contract.Item{
		"DB1": {ID: "DB1", Title: "Ceramic Mug", Category: "kitchen", Price: 9.5},
	}}
	b := newTestBuilder(t, &fakeEmbedder{}, &fakeCalendar{}, WithCatalogFallback(fallback))
	ctx := context.Background()

	item, err := b.ProductDetails(ctx, "DB1")
	if err != nil {
		t.Fatalf("ProductDetails(DB1) error = %v", err)
	}
	if item == nil || item.Title != "Ceramic Mug" {
		t.Fatalf("expected catalog fallback hit, got %+v", item)
	}

	item, err = b.ProductDetails(ctx, "nowhere")
	if err != nil {
		t.Fatalf("catalog miss must not error, got %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil for item absent everywhere, got %+v", item)
	}
}

func TestSearchProductsPrimitive(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, &fakeEmbedder{vectors: map[string][]float32{
		"skillet": unit(0, 1, 0, 0),
	}}, &fakeCalendar{})

	results, err := b.SearchProducts(context.Background(), "skillet", 2, &contract.SearchFilter{Category: "kitchen"})
	if err != nil {
		t.Fatalf("SearchProducts() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "P3" {
		t.Fatalf("expected [P3], got %+v", results)
	}
}
