// Package vectorindex wraps chromem-go with the catalog-specific index
// operations: dimension-checked upserts, filtered nearest-neighbor product
// search with deterministic ordering, and similar-user lookup.
package vectorindex

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"github.com/retailmate/core/assistant/contract"
	"github.com/retailmate/core/assistant/rank"
)

const (
	productsCollection = "retailmate_products"
	usersCollection    = "retailmate_users"

	// Over-fetch factor when numeric predicates must be applied after the
	// vector query; chromem metadata filters only support string equality.
	numericFetchFactor = 4
)

type Config struct {
	Dimension int `envconfig:"DIMENSION" split_words:"true" default:"384"`
}

// Index owns the item and user vectors plus an authoritative id->record
// snapshot for exact lookups. Reads may run concurrently; upserts serialize
// against each other.
type Index struct {
	db       *chromem.DB
	products *chromem.Collection
	users    *chromem.Collection
	dim      int

	mu        sync.RWMutex
	items     map[string]contract.Item
	profiles  map[string]userRecord
}

type userRecord struct {
	profile contract.UserProfile
	vector  []float32
}

func New(cfg Config) (*Index, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: index dimension must be positive, got %d", contract.ErrValidation, cfg.Dimension)
	}

	db := chromem.NewDB()
	products, err := db.CreateCollection(productsCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create products collection: %w", err)
	}
	users, err := db.CreateCollection(usersCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create users collection: %w", err)
	}

	return &Index{
		db:       db,
		products: products,
		users:    users,
		dim:      cfg.Dimension,
		items:    make(map[string]contract.Item),
		profiles: make(map[string]userRecord),
	}, nil
}

// Dimension returns the fixed vector dimension of the index.
func (x *Index) Dimension() int {
	return x.dim
}

func (x *Index) checkDimension(vec []float32) error {
	if len(vec) != x.dim {
		return fmt.Errorf("%w: vector dimension %d does not match index dimension %d",
			contract.ErrValidation, len(vec), x.dim)
	}
	return nil
}

// UpsertProduct indexes an item with its embedding. An existing id is
// replaced wholesale.
func (x *Index) UpsertProduct(ctx context.Context, item contract.Item, vector []float32) error {
	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("%w: item id is empty", contract.ErrValidation)
	}
	if err := x.checkDimension(vector); err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        item.ID,
		Content:   item.EmbeddingText,
		Embedding: vector,
		Metadata:  productMetadata(item),
	}
	if err := x.products.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add product document: %w", err)
	}

	x.mu.Lock()
	x.items[item.ID] = item
	x.mu.Unlock()

	return nil
}

// UpsertUser indexes a user preference profile with its embedding.
func (x *Index) UpsertUser(ctx context.Context, profile contract.UserProfile, vector []float32) error {
	if strings.TrimSpace(profile.ID) == "" {
		return fmt.Errorf("%w: user id is empty", contract.ErrValidation)
	}
	if err := x.checkDimension(vector); err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        profile.ID,
		Content:   profile.PreferenceText,
		Embedding: vector,
		Metadata: map[string]string{
			"budget_range":         profile.BudgetRange,
			"preferred_categories": strings.Join(profile.PreferredCategories, ","),
		},
	}
	if err := x.users.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add user document: %w", err)
	}

	x.mu.Lock()
	x.profiles[profile.ID] = userRecord{profile: profile, vector: vector}
	x.mu.Unlock()

	return nil
}

// SearchProducts answers a nearest-neighbor query. The result holds at most
// k candidates, ordered by descending similarity with ascending-id
// tie-break. Category, brand and in-stock constraints are pushed into the
// store; price and rating bounds are applied after the vector query.
func (x *Index) SearchProducts(ctx context.Context, vector []float32, k int, filter *contract.SearchFilter) ([]contract.CandidateItem, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", contract.ErrValidation, k)
	}
	if err := x.checkDimension(vector); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	total := x.products.Count()
	if total == 0 {
		return nil, nil
	}

	fetch := k
	if hasNumericPredicates(filter) {
		fetch = k * numericFetchFactor
	}
	if fetch > total {
		fetch = total
	}

	results, err := x.products.QueryEmbedding(ctx, vector, fetch, equalityWhere(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: product query: %v", contract.ErrUpstream, err)
	}

	candidates := make([]contract.CandidateItem, 0, len(results))
	for _, res := range results {
		cand := candidateFromResult(res)
		if !matchesNumericPredicates(cand, filter) {
			continue
		}
		candidates = append(candidates, cand)
	}

	rank.BySimilarity(candidates)
	return rank.Cap(candidates, k), nil
}

// SimilarUsers finds up to k users closest to the given user's own
// preference vector, excluding the user themselves. An unknown user id
// reports ErrNotFound.
func (x *Index) SimilarUsers(ctx context.Context, userID string, k int) ([]contract.SimilarUser, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", contract.ErrValidation, k)
	}

	x.mu.RLock()
	rec, ok := x.profiles[userID]
	x.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: user %s not indexed", contract.ErrNotFound, userID)
	}

	total := x.users.Count()
	fetch := k + 1 // the target user ranks first against their own vector
	if fetch > total {
		fetch = total
	}
	if fetch == 0 {
		return nil, nil
	}

	results, err := x.users.QueryEmbedding(ctx, rec.vector, fetch, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: user query: %v", contract.ErrUpstream, err)
	}

	similar := make([]contract.SimilarUser, 0, k)
	for _, res := range results {
		if res.ID == userID {
			continue
		}
		su := contract.SimilarUser{
			ID:          res.ID,
			BudgetRange: res.Metadata["budget_range"],
			Similarity:  float64(res.Similarity),
		}
		if cats := res.Metadata["preferred_categories"]; cats != "" {
			su.PreferredCategories = strings.Split(cats, ",")
		}
		x.mu.RLock()
		if known, ok := x.profiles[res.ID]; ok {
			su.Name = strings.TrimSpace(known.profile.FirstName + " " + known.profile.LastName)
		}
		x.mu.RUnlock()
		similar = append(similar, su)
		if len(similar) == k {
			break
		}
	}
	return similar, nil
}

// Product returns the indexed snapshot for an exact id.
func (x *Index) Product(id string) (contract.Item, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	item, ok := x.items[id]
	return item, ok
}

// User returns the indexed profile snapshot for an exact id.
func (x *Index) User(id string) (contract.UserProfile, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	rec, ok := x.profiles[id]
	return rec.profile, ok
}

// Stats reports collection sizes. Administrative, never on the request path.
type Stats struct {
	Products int `json:"products"`
	Users    int `json:"users"`
}

func (x *Index) Stats() Stats {
	return Stats{
		Products: x.products.Count(),
		Users:    x.users.Count(),
	}
}

// Reset drops and recreates both collections. Administrative only.
func (x *Index) Reset(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.db.DeleteCollection(productsCollection); err != nil {
		return fmt.Errorf("delete products collection: %w", err)
	}
	if err := x.db.DeleteCollection(usersCollection); err != nil {
		return fmt.Errorf("delete users collection: %w", err)
	}

	products, err := x.db.CreateCollection(productsCollection, nil, nil)
	if err != nil {
		return fmt.Errorf("recreate products collection: %w", err)
	}
	users, err := x.db.CreateCollection(usersCollection, nil, nil)
	if err != nil {
		return fmt.Errorf("recreate users collection: %w", err)
	}

	x.products = products
	x.users = users
	x.items = make(map[string]contract.Item)
	x.profiles = make(map[string]userRecord)

	log.Info().Str("component", "vectorindex").Msg("index reset")
	return nil
}

func productMetadata(item contract.Item) map[string]string {
	normalized := item.NormalizedCategory
	if normalized == "" {
		normalized = item.Category
	}
	md := map[string]string{
		"title":               item.Title,
		"category":            item.Category,
		"normalized_category": normalized,
		"price":               strconv.FormatFloat(item.Price, 'f', -1, 64),
		"brand":               item.Brand,
		"rating":              strconv.FormatFloat(item.Rating, 'f', -1, 64),
		"in_stock":            strconv.FormatBool(item.InStock),
	}
	if len(item.Tags) > 0 {
		md["tags"] = strings.Join(item.Tags, ",")
	}
	return md
}

func candidateFromResult(res chromem.Result) contract.CandidateItem {
	price, _ := strconv.ParseFloat(res.Metadata["price"], 64)
	rating, _ := strconv.ParseFloat(res.Metadata["rating"], 64)
	inStock, _ := strconv.ParseBool(res.Metadata["in_stock"])
	return contract.CandidateItem{
		ID:         res.ID,
		Title:      res.Metadata["title"],
		Price:      price,
		Category:   res.Metadata["category"],
		Brand:      res.Metadata["brand"],
		Rating:     rating,
		InStock:    inStock,
		Similarity: float64(res.Similarity),
	}
}

func validateFilter(filter *contract.SearchFilter) error {
	if filter == nil {
		return nil
	}
	if filter.MaxPrice != nil && *filter.MaxPrice < 0 {
		return fmt.Errorf("%w: max price must not be negative", contract.ErrValidation)
	}
	if filter.MinRating != nil && (*filter.MinRating < 0 || *filter.MinRating > 5) {
		return fmt.Errorf("%w: min rating must be within [0, 5]", contract.ErrValidation)
	}
	return nil
}

func hasNumericPredicates(filter *contract.SearchFilter) bool {
	return filter != nil && (filter.MaxPrice != nil || filter.MinRating != nil)
}

func equalityWhere(filter *contract.SearchFilter) map[string]string {
	if filter.Empty() {
		return nil
	}
	where := make(map[string]string, 3)
	if filter.Category != "" {
		where["category"] = filter.Category
	}
	if filter.Brand != "" {
		where["brand"] = filter.Brand
	}
	if filter.InStockOnly {
		where["in_stock"] = "true"
	}
	if len(where) == 0 {
		return nil
	}
	return where
}

func matchesNumericPredicates(cand contract.CandidateItem, filter *contract.SearchFilter) bool {
	if filter == nil {
		return true
	}
	if filter.MaxPrice != nil && cand.Price > *filter.MaxPrice {
		return false
	}
	if filter.MinRating != nil && cand.Rating < *filter.MinRating {
		return false
	}
	return true
}
