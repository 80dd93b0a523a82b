package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/retailmate/core/assistant/contract"
)

// ProductResolver is the detail-lookup primitive used to snapshot items
// into cart lines. The context builder satisfies it.
type ProductResolver interface {
	// ProductDetails returns (nil, nil) when the item does not exist.
	ProductDetails(ctx context.Context, itemID string) (*contract.Item, error)
}

// Store owns one mutable cart aggregate per user id. Mutations on one
// user's cart serialize behind that user's entry lock; unrelated users
// proceed independently. There is deliberately no process-wide mutation
// lock.
type Store struct {
	resolver ProductResolver
	now      func() time.Time

	mu    sync.RWMutex
	carts map[string]*userCart
}

type userCart struct {
	mu sync.Mutex

	// cleared marks an entry removed from the map while a mutator was
	// waiting on its lock; the mutator must re-fetch a live entry.
	cleared bool

	createdAt      time.Time
	updatedAt      time.Time
	lines          []Line
	totalItems     int
	estimatedTotal float64
}

func NewStore(resolver ProductResolver) (*Store, error) {
	if resolver == nil {
		return nil, fmt.Errorf("product resolver is required")
	}
	return &Store{
		resolver: resolver,
		now:      time.Now,
		carts:    make(map[string]*userCart),
	}, nil
}

// entry returns the live cart entry for userID, creating one when create is
// set. The caller receives the entry locked and must unlock it.
func (s *Store) entry(userID string, create bool) (*userCart, bool) {
	for {
		s.mu.RLock()
		uc, ok := s.carts[userID]
		s.mu.RUnlock()

		if !ok {
			if !create {
				return nil, false
			}
			s.mu.Lock()
			uc, ok = s.carts[userID]
			if !ok {
				uc = &userCart{createdAt: s.now().UTC()}
				s.carts[userID] = uc
			}
			s.mu.Unlock()
		}

		uc.mu.Lock()
		if uc.cleared {
			uc.mu.Unlock()
			continue
		}
		return uc, true
	}
}

// AddItem resolves the item and appends it to the user's cart, or
// increments the existing line's quantity, replacing its reasoning and
// timestamp. Totals are recomputed atomically with the mutation.
func (s *Store) AddItem(ctx context.Context, userID, itemID string, quantity int, reasoning string) (Summary, error) {
	if strings.TrimSpace(userID) == "" {
		return Summary{}, fmt.Errorf("%w: user id is empty", contract.ErrValidation)
	}
	if strings.TrimSpace(itemID) == "" {
		return Summary{}, fmt.Errorf("%w: item id is empty", contract.ErrValidation)
	}
	if quantity < 1 {
		return Summary{}, fmt.Errorf("%w: quantity must be >= 1, got %d", contract.ErrValidation, quantity)
	}

	// Resolve before taking the user lock; the lookup is read-only I/O.
	item, err := s.resolver.ProductDetails(ctx, itemID)
	if err != nil {
		return Summary{}, fmt.Errorf("resolve item %s: %w", itemID, err)
	}
	if item == nil {
		return Summary{}, fmt.Errorf("%w: %s", contract.ErrItemNotFound, itemID)
	}
	if !item.Complete() {
		return Summary{}, fmt.Errorf("%w: %s has incomplete catalog data", contract.ErrItemNotFound, itemID)
	}

	uc, _ := s.entry(userID, true)
	defer uc.mu.Unlock()

	now := s.now().UTC()
	if line := uc.findLine(itemID); line != nil {
		line.Quantity += quantity
		line.Subtotal = round2(line.Price * float64(line.Quantity))
		line.Reasoning = reasoning
		line.UpdatedAt = now
	} else {
		uc.lines = append(uc.lines, Line{
			ItemID:    item.ID,
			Title:     item.Title,
			Price:     item.Price,
			Category:  item.Category,
			Brand:     item.Brand,
			Rating:    item.Rating,
			Quantity:  quantity,
			Reasoning: reasoning,
			AddedAt:   now,
			UpdatedAt: now,
			Subtotal:  round2(item.Price * float64(quantity)),
		})
	}
	uc.recomputeTotals(now)

	log.Info().
		Str("component", "cart").
		Str("user_id", userID).
		Str("item_id", itemID).
		Int("quantity", quantity).
		Float64("estimated_total", uc.estimatedTotal).
		Msg("item added to cart")

	return uc.summaryLocked(), nil
}

// RemoveItem decrements a line or deletes it: quantity 0 means remove the
// line entirely, as does any quantity at or above the current line
// quantity. Missing carts and lines are always surfaced.
func (s *Store) RemoveItem(ctx context.Context, userID, itemID string, quantity int) (Summary, error) {
	if strings.TrimSpace(userID) == "" {
		return Summary{}, fmt.Errorf("%w: user id is empty", contract.ErrValidation)
	}
	if quantity < 0 {
		return Summary{}, fmt.Errorf("%w: quantity must not be negative, got %d", contract.ErrValidation, quantity)
	}

	uc, ok := s.entry(userID, false)
	if !ok {
		return Summary{}, fmt.Errorf("%w: user %s", contract.ErrCartNotFound, userID)
	}
	defer uc.mu.Unlock()

	idx := -1
	for i := range uc.lines {
		if uc.lines[i].ItemID == itemID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Summary{}, fmt.Errorf("%w: %s", contract.ErrItemNotInCart, itemID)
	}

	now := s.now().UTC()
	line := &uc.lines[idx]
	if quantity == 0 || quantity >= line.Quantity {
		uc.lines = append(uc.lines[:idx], uc.lines[idx+1:]...)
	} else {
		line.Quantity -= quantity
		line.Subtotal = round2(line.Price * float64(line.Quantity))
		line.UpdatedAt = now
	}
	uc.recomputeTotals(now)

	log.Info().
		Str("component", "cart").
		Str("user_id", userID).
		Str("item_id", itemID).
		Int("quantity", quantity).
		Msg("item removed from cart")

	return uc.summaryLocked(), nil
}

// Contents returns the full cart view. A user without a cart gets an
// explicit empty state, not an error.
func (s *Store) Contents(ctx context.Context, userID string) (Contents, error) {
	if strings.TrimSpace(userID) == "" {
		return Contents{}, fmt.Errorf("%w: user id is empty", contract.ErrValidation)
	}

	uc, ok := s.entry(userID, false)
	if !ok {
		return Contents{Items: []Line{}, Empty: true}, nil
	}
	defer uc.mu.Unlock()

	items := make([]Line, len(uc.lines))
	copy(items, uc.lines)
	return Contents{
		Items:          items,
		TotalItems:     uc.totalItems,
		EstimatedTotal: uc.estimatedTotal,
		CreatedAt:      uc.createdAt,
		UpdatedAt:      uc.updatedAt,
		Empty:          len(items) == 0,
	}, nil
}

// Summary returns the condensed cart view with category buckets and the
// three most recently added titles.
func (s *Store) Summary(ctx context.Context, userID string) (Summary, error) {
	if strings.TrimSpace(userID) == "" {
		return Summary{}, fmt.Errorf("%w: user id is empty", contract.ErrValidation)
	}

	uc, ok := s.entry(userID, false)
	if !ok {
		return Summary{Empty: true}, nil
	}
	defer uc.mu.Unlock()

	return uc.summaryLocked(), nil
}

// Clear deletes the entire cart aggregate for the user.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is empty", contract.ErrValidation)
	}

	s.mu.Lock()
	uc, ok := s.carts[userID]
	if ok {
		uc.mu.Lock()
		uc.cleared = true
		uc.mu.Unlock()
		delete(s.carts, userID)
	}
	s.mu.Unlock()

	if ok {
		log.Info().Str("component", "cart").Str("user_id", userID).Msg("cart cleared")
	}
	return nil
}

func (uc *userCart) findLine(itemID string) *Line {
	for i := range uc.lines {
		if uc.lines[i].ItemID == itemID {
			return &uc.lines[i]
		}
	}
	return nil
}

// recomputeTotals re-derives the aggregate totals from the lines. Called
// after every mutation while the entry lock is held.
func (uc *userCart) recomputeTotals(now time.Time) {
	totalItems := 0
	total := 0.0
	for i := range uc.lines {
		totalItems += uc.lines[i].Quantity
		total += uc.lines[i].Subtotal
	}
	uc.totalItems = totalItems
	uc.estimatedTotal = round2(total)
	uc.updatedAt = now
}

func (uc *userCart) summaryLocked() Summary {
	if len(uc.lines) == 0 {
		return Summary{Empty: true}
	}

	categories := make(map[string]CategoryBreakdown, len(uc.lines))
	for i := range uc.lines {
		line := &uc.lines[i]
		bucket := categories[line.Category]
		bucket.Count += line.Quantity
		bucket.Subtotal = round2(bucket.Subtotal + line.Subtotal)
		categories[line.Category] = bucket
	}

	recent := make([]string, 0, 3)
	start := len(uc.lines) - 3
	if start < 0 {
		start = 0
	}
	for _, line := range uc.lines[start:] {
		recent = append(recent, line.Title)
	}

	return Summary{
		TotalItems:      uc.totalItems,
		EstimatedTotal:  uc.estimatedTotal,
		Categories:      categories,
		RecentAdditions: recent,
	}
}
