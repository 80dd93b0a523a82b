package cart

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/retailmate/core/assistant/contract"
)

const (
	maxComplementary   = 5
	maxAlternatives    = 3
	complementSearchK  = 2
	alternativeSearchK = 3
	emptyCartMessage   = "Add items to cart to get smart suggestions"
)

// Searcher is the product search primitive the engine borrows from the
// context assembler.
type Searcher interface {
	SearchProducts(ctx context.Context, query string, maxResults int, filter *contract.SearchFilter) ([]contract.CandidateItem, error)
}

// Insight summarizes the cart the suggestions were computed from.
type Insight struct {
	Categories []string   `json:"categories"`
	PriceRange PriceRange `json:"price_range"`
	Brands     []string   `json:"brands,omitempty"`
	TotalValue float64    `json:"total_value"`
}

// PriceRange covers the unit prices of the cart lines.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// Complementary is one item suggested because it goes well with a cart
// category.
type Complementary struct {
	Item                contract.CandidateItem `json:"item"`
	ComplementsCategory string                 `json:"complements_category"`
	Reason              string                 `json:"reason"`
}

// Alternative is a same-category candidate that beats a cart line on price
// or rating.
type Alternative struct {
	Item              contract.CandidateItem `json:"item"`
	ReplacesItemID    string                 `json:"replaces_item_id"`
	ReplacesTitle     string                 `json:"replaces_title"`
	Savings           float64                `json:"savings,omitempty"`
	RatingImprovement float64                `json:"rating_improvement,omitempty"`
	Reason            string                 `json:"reason"`
}

// BundleOpportunity marks a category holding two or more distinct lines.
type BundleOpportunity struct {
	Category         string  `json:"category"`
	Lines            []Line  `json:"lines"`
	BundleValue      float64 `json:"bundle_value"`
	PotentialSavings float64 `json:"potential_savings"`
	Reason           string  `json:"reason"`
}

// OptimizationSuggestion is one shipping or quantity nudge.
type OptimizationSuggestion struct {
	Type    string  `json:"type"`
	Message string  `json:"message"`
	ItemID  string  `json:"item_id,omitempty"`
	Amount  float64 `json:"amount,omitempty"`
}

// SuggestionBundle is the combined output of one suggestions pass.
type SuggestionBundle struct {
	Complementary []Complementary          `json:"complementary,omitempty"`
	Alternatives  []Alternative            `json:"alternatives,omitempty"`
	Bundles       []BundleOpportunity      `json:"bundles,omitempty"`
	Optimization  []OptimizationSuggestion `json:"optimization,omitempty"`
	Insight       *Insight                 `json:"insight,omitempty"`
	Message       string                   `json:"message,omitempty"`
}

// Engine derives suggestions from the current cart contents and the search
// primitive. It never mutates the cart.
type Engine struct {
	store    *Store
	searcher Searcher
	heur     Heuristics
}

func NewEngine(store *Store, searcher Searcher, heur Heuristics) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if len(heur.Complements) == 0 {
		heur = DefaultHeuristics()
	}
	return &Engine{store: store, searcher: searcher, heur: heur}, nil
}

// Suggestions computes the full suggestions bundle for one user's cart. An
// empty cart short-circuits to an informational message.
func (e *Engine) Suggestions(ctx context.Context, userID string) (*SuggestionBundle, error) {
	contents, err := e.store.Contents(ctx, userID)
	if err != nil {
		return nil, err
	}
	if contents.Empty {
		return &SuggestionBundle{Message: emptyCartMessage}, nil
	}

	insight := buildInsight(contents)

	complementary, err := e.complementary(ctx, contents, insight)
	if err != nil {
		return nil, fmt.Errorf("complementary suggestions: %w", err)
	}
	alternatives, err := e.alternatives(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("alternative suggestions: %w", err)
	}

	bundle := &SuggestionBundle{
		Complementary: complementary,
		Alternatives:  alternatives,
		Bundles:       e.bundles(contents),
		Optimization:  e.optimization(contents),
		Insight:       &insight,
	}

	log.Info().
		Str("component", "cart").
		Str("user_id", userID).
		Int("complementary", len(bundle.Complementary)).
		Int("alternatives", len(bundle.Alternatives)).
		Int("bundles", len(bundle.Bundles)).
		Int("optimization", len(bundle.Optimization)).
		Msg("cart suggestions generated")

	return bundle, nil
}

// buildInsight derives the cart context: distinct categories and brands in
// first-seen order, unit-price range, running total.
func buildInsight(contents Contents) Insight {
	var categories, brands []string
	seenCat := make(map[string]struct{})
	seenBrand := make(map[string]struct{})
	pr := PriceRange{}

	for i, line := range contents.Items {
		if _, ok := seenCat[line.Category]; !ok {
			seenCat[line.Category] = struct{}{}
			categories = append(categories, line.Category)
		}
		if line.Brand != "" {
			if _, ok := seenBrand[line.Brand]; !ok {
				seenBrand[line.Brand] = struct{}{}
				brands = append(brands, line.Brand)
			}
		}
		if i == 0 || line.Price < pr.Min {
			pr.Min = line.Price
		}
		if line.Price > pr.Max {
			pr.Max = line.Price
		}
		pr.Avg += line.Price
	}
	if n := len(contents.Items); n > 0 {
		pr.Avg = round2(pr.Avg / float64(n))
	}

	return Insight{
		Categories: categories,
		PriceRange: pr,
		Brands:     brands,
		TotalValue: contents.EstimatedTotal,
	}
}

func (e *Engine) complementary(ctx context.Context, contents Contents, insight Insight) ([]Complementary, error) {
	inCart := make(map[string]struct{}, len(contents.Items))
	for _, line := range contents.Items {
		inCart[line.ItemID] = struct{}{}
	}

	var out []Complementary
	suggested := make(map[string]struct{})

	for _, category := range insight.Categories {
		keywords, ok := e.heur.Complements[category]
		if !ok {
			continue
		}
		for _, keyword := range keywords {
			results, err := e.searcher.SearchProducts(ctx, keyword, complementSearchK, nil)
			if err != nil {
				return nil, err
			}
			for _, item := range results {
				if _, ok := inCart[item.ID]; ok {
					continue
				}
				if _, ok := suggested[item.ID]; ok {
					continue
				}
				suggested[item.ID] = struct{}{}
				out = append(out, Complementary{
					Item:                item,
					ComplementsCategory: category,
					Reason:              fmt.Sprintf("Complements your %s items", category),
				})
				if len(out) == maxComplementary {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

// alternatives searches each line's title within its own category and keeps
// candidates that are strictly cheaper or strictly higher rated. The
// title-as-query proxy is a known precision limitation.
func (e *Engine) alternatives(ctx context.Context, contents Contents) ([]Alternative, error) {
	var out []Alternative

	for _, line := range contents.Items {
		results, err := e.searcher.SearchProducts(ctx, line.Title, alternativeSearchK, &contract.SearchFilter{
			Category: line.Category,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range results {
			if item.ID == line.ItemID {
				continue
			}
			switch {
			case item.Price < line.Price:
				savings := round2(line.Price - item.Price)
				out = append(out, Alternative{
					Item:           item,
					ReplacesItemID: line.ItemID,
					ReplacesTitle:  line.Title,
					Savings:        savings,
					Reason:         fmt.Sprintf("Save $%.2f", savings),
				})
			case item.Rating > line.Rating:
				out = append(out, Alternative{
					Item:              item,
					ReplacesItemID:    line.ItemID,
					ReplacesTitle:     line.Title,
					RatingImprovement: round2(item.Rating - line.Rating),
					Reason:            "Higher rated alternative",
				})
			default:
				continue
			}
			if len(out) == maxAlternatives {
				return out, nil
			}
		}
	}
	return out, nil
}

func (e *Engine) bundles(contents Contents) []BundleOpportunity {
	var order []string
	grouped := make(map[string][]Line)
	for _, line := range contents.Items {
		if _, ok := grouped[line.Category]; !ok {
			order = append(order, line.Category)
		}
		grouped[line.Category] = append(grouped[line.Category], line)
	}

	var out []BundleOpportunity
	for _, category := range order {
		lines := grouped[category]
		if len(lines) < 2 {
			continue
		}
		value := 0.0
		for _, line := range lines {
			value += line.Price * float64(line.Quantity)
		}
		value = round2(value)
		out = append(out, BundleOpportunity{
			Category:         category,
			Lines:            lines,
			BundleValue:      value,
			PotentialSavings: round2(value * e.heur.BundleDiscountRate),
			Reason: fmt.Sprintf("Bundle %d %s items and save %.0f%%",
				len(lines), category, e.heur.BundleDiscountRate*100),
		})
	}
	return out
}

func (e *Engine) optimization(contents Contents) []OptimizationSuggestion {
	var out []OptimizationSuggestion

	if contents.EstimatedTotal < e.heur.FreeShippingThreshold {
		shortfall := round2(e.heur.FreeShippingThreshold - contents.EstimatedTotal)
		out = append(out, OptimizationSuggestion{
			Type:    "shipping",
			Message: fmt.Sprintf("Add $%.2f more for free shipping", shortfall),
			Amount:  shortfall,
		})
	}

	for _, line := range contents.Items {
		if line.Quantity == 1 && line.Price > e.heur.QuantityDiscountFloor {
			out = append(out, OptimizationSuggestion{
				Type: "quantity_discount",
				Message: fmt.Sprintf("Buy 2 %s and save %.0f%%",
					line.Title, e.heur.SecondUnitDiscountRate*100),
				ItemID: line.ItemID,
			})
		}
	}
	return out
}
