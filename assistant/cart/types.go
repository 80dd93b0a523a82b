// Package cart holds the per-user mutable cart aggregate and the pure
// suggestion engine computed over it.
package cart

import (
	"math"
	"time"
)

// Line is one product entry in a cart. Title, price and category are
// snapshots taken at add time; Subtotal is always Price * Quantity.
type Line struct {
	ItemID    string    `json:"item_id"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	Category  string    `json:"category"`
	Brand     string    `json:"brand,omitempty"`
	Rating    float64   `json:"rating,omitempty"`
	Quantity  int       `json:"quantity"`
	Reasoning string    `json:"reasoning,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Subtotal  float64   `json:"subtotal"`
}

// Contents is the full cart view. An absent cart is reported as
// Empty == true, never as an error.
type Contents struct {
	Items          []Line    `json:"items"`
	TotalItems     int       `json:"total_items"`
	EstimatedTotal float64   `json:"estimated_total"`
	CreatedAt      time.Time `json:"created_at,omitzero"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`
	Empty          bool      `json:"empty"`
}

// CategoryBreakdown buckets quantity and spend for one category.
type CategoryBreakdown struct {
	Count    int     `json:"count"`
	Subtotal float64 `json:"subtotal"`
}

// Summary is the condensed cart view handed to the advice generator.
type Summary struct {
	Empty           bool                         `json:"empty"`
	TotalItems      int                          `json:"total_items"`
	EstimatedTotal  float64                      `json:"estimated_total"`
	Categories      map[string]CategoryBreakdown `json:"categories,omitempty"`
	RecentAdditions []string                     `json:"recent_additions,omitempty"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
