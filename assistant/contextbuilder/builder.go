// Package contextbuilder assembles request-scoped shopping context: query
// embedding, vector search, personalization, calendar enrichment, and
// dedup/capping into a single bundle.
package contextbuilder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/retailmate/core/assistant/contract"
	"github.com/retailmate/core/assistant/rank"
	"github.com/retailmate/core/assistant/vectorindex"
)

const (
	topPreferredCategories = 2
	categorySearchK        = 3
	similarUsersK          = 3
	calendarDaysAhead      = 14
	maxCalendarSignals     = 3
	eventSuggestionsK      = 8
)

// Builder orchestrates the embedder, the vector index and the calendar
// source into context bundles. Every method is a plain sequence of
// collaborator calls; nothing outlives the request.
type Builder struct {
	embedder contract.Embedder
	index    *vectorindex.Index
	calendar contract.CalendarSource
	catalog  contract.CatalogSource

	now func() time.Time
}

// Option customizes a Builder.
type Option func(*Builder)

// WithCatalogFallback adds a catalog source consulted when an exact-id
// lookup misses the index.
func WithCatalogFallback(src contract.CatalogSource) Option {
	return func(b *Builder) {
		b.catalog = src
	}
}

func New(emb contract.Embedder, index *vectorindex.Index, calendar contract.CalendarSource, opts ...Option) (*Builder, error) {
	if emb == nil {
		return nil, errors.New("embedder is required")
	}
	if index == nil {
		return nil, errors.New("vector index is required")
	}
	if calendar == nil {
		return nil, errors.New("calendar source is required")
	}

	b := &Builder{
		embedder: emb,
		index:    index,
		calendar: calendar,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b, nil
}

// BuildShoppingContext assembles the bundle for one free-text query. Query
// embedding and the base vector search are fatal; personalization,
// similar-user lookup and calendar enrichment degrade to absent signals.
func (b *Builder) BuildShoppingContext(ctx context.Context, query string, userID string, maxItems int) (*contract.ContextBundle, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", contract.ErrValidation)
	}
	if maxItems < 1 {
		return nil, fmt.Errorf("%w: max items must be >= 1, got %d", contract.ErrValidation, maxItems)
	}

	vec, err := b.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	pool, err := b.index.SearchProducts(ctx, vec, maxItems, nil)
	if err != nil {
		return nil, fmt.Errorf("base product search: %w", err)
	}

	bundle := &contract.ContextBundle{
		RequestID:   uuid.NewString(),
		Query:       query,
		GeneratedAt: b.now().UTC(),
	}

	if userID != "" {
		pool = b.personalize(ctx, bundle, userID, vec, pool)
	}

	bundle.Products = rank.Cap(rank.DedupByID(pool), maxItems)
	bundle.Calendar = b.calendarSignals(ctx)

	bundle.Meta = contract.BundleMeta{
		ProductsFound:       len(bundle.Products),
		CalendarEventsFound: len(bundle.Calendar),
		SimilarUsersFound:   len(bundle.SimilarUsers),
		Personalized:        bundle.User != nil,
	}

	log.Info().
		Str("component", "contextbuilder").
		Str("request_id", bundle.RequestID).
		Int("products", bundle.Meta.ProductsFound).
		Int("calendar_events", bundle.Meta.CalendarEventsFound).
		Bool("personalized", bundle.Meta.Personalized).
		Msg("shopping context built")

	return bundle, nil
}

// personalize merges category-filtered results for the user's top preferred
// categories into the pool, base candidates first. A missing profile or any
// enrichment failure leaves the bundle unpersonalized.
func (b *Builder) personalize(ctx context.Context, bundle *contract.ContextBundle, userID string, vec []float32, pool []contract.CandidateItem) []contract.CandidateItem {
	profile, ok := b.index.User(userID)
	if !ok {
		log.Debug().Str("component", "contextbuilder").Str("user_id", userID).
			Msg("no profile indexed, proceeding unpersonalized")
		return pool
	}
	bundle.User = &contract.UserSignal{Profile: profile}

	for _, category := range profile.TopPreferredCategories(topPreferredCategories) {
		res, err := b.index.SearchProducts(ctx, vec, categorySearchK, &contract.SearchFilter{Category: category})
		if err != nil {
			log.Warn().Err(err).Str("component", "contextbuilder").Str("category", category).
				Msg("personalized category search failed, skipping")
			continue
		}
		pool = append(pool, res...)
	}

	similar, err := b.index.SimilarUsers(ctx, userID, similarUsersK)
	if err != nil {
		log.Warn().Err(err).Str("component", "contextbuilder").Str("user_id", userID).
			Msg("similar-user lookup failed, skipping")
	} else {
		bundle.SimilarUsers = similar
	}

	return pool
}

// calendarSignals fetches the most urgent upcoming events. Calendar failure
// degrades to no signal, never an error.
func (b *Builder) calendarSignals(ctx context.Context) []contract.CalendarSignal {
	events, err := b.calendar.EventsNeedingShopping(ctx, calendarDaysAhead)
	if err != nil {
		log.Warn().Err(err).Str("component", "contextbuilder").Msg("calendar fetch failed, skipping")
		return nil
	}
	if len(events) == 0 {
		return nil
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].DaysUntil < events[j].DaysUntil
	})
	if len(events) > maxCalendarSignals {
		events = events[:maxCalendarSignals]
	}

	signals := make([]contract.CalendarSignal, 0, len(events))
	for _, ev := range events {
		signals = append(signals, eventSignal(ev))
	}
	return signals
}

// BuildEventShoppingContext resolves one event's shopping needs into ranked
// product suggestions. An unknown event id fails with ErrEventNotFound and
// no partial bundle.
func (b *Builder) BuildEventShoppingContext(ctx context.Context, eventID string) (*contract.EventContext, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, fmt.Errorf("%w: event id is empty", contract.ErrValidation)
	}

	ev, err := b.calendar.Event(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("resolve event %s: %w", eventID, err)
	}

	shoppingList := ev.ShoppingNeeds
	if len(shoppingList) == 0 {
		shoppingList = ev.SuggestedCategories
	}

	vec, err := b.embedder.Embed(ctx, strings.Join(shoppingList, " "))
	if err != nil {
		return nil, fmt.Errorf("embed shopping needs: %w", err)
	}

	suggestions, err := b.index.SearchProducts(ctx, vec, eventSuggestionsK, nil)
	if err != nil {
		return nil, fmt.Errorf("event product search: %w", err)
	}

	ec := &contract.EventContext{
		RequestID:    uuid.NewString(),
		Event:        eventSignal(*ev),
		ShoppingList: shoppingList,
		Urgency:      ev.Urgency(),
		Suggestions:  suggestions,
	}

	log.Info().
		Str("component", "contextbuilder").
		Str("event_id", eventID).
		Int("suggestions", len(suggestions)).
		Str("urgency", string(ec.Urgency)).
		Msg("event shopping context built")

	return ec, nil
}

// ProductDetails looks up one item by exact id: the index snapshot first,
// then the catalog fallback when configured. An absent item yields
// (nil, nil); callers must treat emptiness as not found explicitly.
func (b *Builder) ProductDetails(ctx context.Context, itemID string) (*contract.Item, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, fmt.Errorf("%w: item id is empty", contract.ErrValidation)
	}

	if item, ok := b.index.Product(itemID); ok {
		return &item, nil
	}
	if b.catalog == nil {
		return nil, nil
	}

	item, err := b.catalog.Item(ctx, itemID)
	if err != nil {
		if errors.Is(err, contract.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog lookup %s: %w", itemID, err)
	}
	return item, nil
}

// SearchProducts is the free-text search primitive shared with the cart
// intelligence engine.
func (b *Builder) SearchProducts(ctx context.Context, query string, maxResults int, filter *contract.SearchFilter) ([]contract.CandidateItem, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", contract.ErrValidation)
	}

	vec, err := b.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return b.index.SearchProducts(ctx, vec, maxResults, filter)
}

func eventSignal(ev contract.Event) contract.CalendarSignal {
	categories := ev.SuggestedCategories
	if len(categories) == 0 {
		categories = ev.ShoppingNeeds
	}
	return contract.CalendarSignal{
		EventID:             ev.ID,
		Title:               ev.Title,
		DaysUntil:           ev.DaysUntil,
		Urgency:             ev.Urgency(),
		SuggestedCategories: categories,
		Reason:              shoppingReason(ev),
	}
}

func shoppingReason(ev contract.Event) string {
	switch {
	case ev.GiftNeeded:
		return fmt.Sprintf("Gift needed for %s", ev.Title)
	case ev.PreparationNeeded:
		return fmt.Sprintf("Preparation needed for %s", ev.Title)
	case ev.Type == "work":
		return fmt.Sprintf("Professional attire for %s", ev.Title)
	case ev.Type == "travel":
		return fmt.Sprintf("Travel essentials for %s", ev.Title)
	default:
		return fmt.Sprintf("Items needed for %s", ev.Title)
	}
}
