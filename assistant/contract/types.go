package contract

import (
	"strings"
	"time"
)

// Item is a catalog record as indexed. Immutable once indexed; re-indexing
// an id replaces the previous version wholesale.
type Item struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Category           string   `json:"category"`
	NormalizedCategory string   `json:"normalized_category,omitempty"`
	Price              float64  `json:"price"`
	Brand              string   `json:"brand,omitempty"`
	Rating             float64  `json:"rating,omitempty"`
	InStock            bool     `json:"in_stock"`
	Tags               []string `json:"tags,omitempty"`
	EmbeddingText      string   `json:"embedding_text,omitempty"`
}

// Complete reports whether the item carries the fields a cart line snapshot
// requires.
func (i Item) Complete() bool {
	return strings.TrimSpace(i.Title) != "" && i.Price > 0 && strings.TrimSpace(i.Category) != ""
}

// CandidateItem is one ranked search result. The json shape is consumed
// verbatim by the downstream advice generator and must stay stable.
type CandidateItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	Category   string  `json:"category"`
	Brand      string  `json:"brand,omitempty"`
	Rating     float64 `json:"rating,omitempty"`
	InStock    bool    `json:"in_stock"`
	Similarity float64 `json:"similarity"`
}

// UserProfile is a read-only per-request snapshot of one user.
type UserProfile struct {
	ID                  string   `json:"id"`
	FirstName           string   `json:"first_name,omitempty"`
	LastName            string   `json:"last_name,omitempty"`
	Age                 int      `json:"age,omitempty"`
	Gender              string   `json:"gender,omitempty"`
	BudgetRange         string   `json:"budget_range,omitempty"`
	PreferredCategories []string `json:"preferred_categories,omitempty"`
	Location            string   `json:"location,omitempty"`
	PreferenceText      string   `json:"preference_text,omitempty"`
}

// TopPreferredCategories returns up to n preferred categories, skipping
// blanks.
func (p UserProfile) TopPreferredCategories(n int) []string {
	var out []string
	for _, c := range p.PreferredCategories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, c)
		if len(out) == n {
			break
		}
	}
	return out
}

// SimilarUser is one neighbor from the user-preference index.
type SimilarUser struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name,omitempty"`
	BudgetRange         string   `json:"budget_range,omitempty"`
	Similarity          float64  `json:"similarity"`
	PreferredCategories []string `json:"preferred_categories,omitempty"`
}

// Urgency is the coarse tier of how soon an event requires shopping.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// UrgencyFor derives the tier from days-until: <=3 high, <=7 medium.
func UrgencyFor(daysUntil int) Urgency {
	switch {
	case daysUntil <= 3:
		return UrgencyHigh
	case daysUntil <= 7:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// Event is an upcoming calendar event pre-classified by the calendar source.
type Event struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Type                string   `json:"type,omitempty"`
	DaysUntil           int      `json:"days_until"`
	Importance          string   `json:"importance,omitempty"`
	SuggestedCategories []string `json:"suggested_categories,omitempty"`
	ShoppingNeeds       []string `json:"shopping_needs,omitempty"`
	GiftNeeded          bool     `json:"gift_needed,omitempty"`
	PreparationNeeded   bool     `json:"preparation_needed,omitempty"`
}

// Urgency of the event, always derived from DaysUntil.
func (e Event) Urgency() Urgency {
	return UrgencyFor(e.DaysUntil)
}

// CalendarSignal is the bundle-facing projection of an Event.
type CalendarSignal struct {
	EventID             string   `json:"event_id"`
	Title               string   `json:"title"`
	DaysUntil           int      `json:"days_until"`
	Urgency             Urgency  `json:"urgency"`
	SuggestedCategories []string `json:"suggested_categories,omitempty"`
	Reason              string   `json:"reason,omitempty"`
}

// BundleMeta carries the observability counts of one assembled bundle.
type BundleMeta struct {
	ProductsFound       int  `json:"products_found"`
	CalendarEventsFound int  `json:"calendar_events_found"`
	SimilarUsersFound   int  `json:"similar_users_found"`
	Personalized        bool `json:"personalized"`
}

// ContextBundle is the ephemeral, request-scoped aggregation returned by the
// context assembler. It is never cached or reused across requests.
type ContextBundle struct {
	RequestID    string           `json:"request_id"`
	Query        string           `json:"query"`
	GeneratedAt  time.Time        `json:"generated_at"`
	Products     []CandidateItem  `json:"products"`
	User         *UserSignal      `json:"user,omitempty"`
	SimilarUsers []SimilarUser    `json:"similar_users,omitempty"`
	Calendar     []CalendarSignal `json:"calendar,omitempty"`
	Meta         BundleMeta       `json:"meta"`
}

// UserSignal is the personalization slice of a bundle.
type UserSignal struct {
	Profile UserProfile `json:"profile"`
}

// EventContext is the bundle for event-driven shopping.
type EventContext struct {
	RequestID    string          `json:"request_id"`
	Event        CalendarSignal  `json:"event"`
	ShoppingList []string        `json:"shopping_list"`
	Urgency      Urgency         `json:"urgency"`
	Suggestions  []CandidateItem `json:"suggestions"`
}
