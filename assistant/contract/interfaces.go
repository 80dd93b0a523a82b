package contract

import "context"

// Embedder turns text into fixed-dimension vectors, deterministic for
// identical input and model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// CatalogSource resolves an item id to its full record.
type CatalogSource interface {
	// Item returns the record for id, or an error wrapping ErrNotFound.
	Item(ctx context.Context, id string) (*Item, error)
}

// CalendarSource supplies upcoming events pre-classified for shopping.
type CalendarSource interface {
	// EventsNeedingShopping returns events within daysAhead days that need
	// shopping preparation, ordered soonest first.
	EventsNeedingShopping(ctx context.Context, daysAhead int) ([]Event, error)
	// Event returns one event by id, or an error wrapping ErrEventNotFound.
	Event(ctx context.Context, id string) (*Event, error)
}

// SearchFilter is a conjunction over indexed metadata fields. Zero values
// mean "no constraint"; MaxPrice and MinRating are pointers so an explicit
// zero bound stays expressible.
type SearchFilter struct {
	Category    string
	Brand       string
	MaxPrice    *float64
	MinRating   *float64
	InStockOnly bool
}

// Empty reports whether the filter constrains anything.
func (f *SearchFilter) Empty() bool {
	if f == nil {
		return true
	}
	return f.Category == "" && f.Brand == "" && f.MaxPrice == nil &&
		f.MinRating == nil && !f.InStockOnly
}
