// Package catalog implements the catalog source collaborator: exact item-id
// lookup against the product database.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/retailmate/core/assistant/contract"
)

type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

type productRow struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID                 string   `bun:"id,pk"`
	Title              string   `bun:"title"`
	Category           string   `bun:"category"`
	NormalizedCategory string   `bun:"normalized_category"`
	Price              float64  `bun:"price"`
	Brand              string   `bun:"brand"`
	Rating             float64  `bun:"rating"`
	InStock            bool     `bun:"in_stock"`
	Tags               []string `bun:"tags,array"`
	EmbeddingText      string   `bun:"embedding_text"`
}

// Postgres resolves item ids against the products table.
type Postgres struct {
	db      *bun.DB
	timeout time.Duration
}

func NewPostgres(cfg Config) (*Postgres, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("catalog dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return &Postgres{
		db:      bun.NewDB(sqldb, pgdialect.New()),
		timeout: timeout,
	}, nil
}

// Item returns the full record for id, or an error wrapping ErrNotFound.
func (p *Postgres) Item(ctx context.Context, id string) (*contract.Item, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: item id is empty", contract.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var row productRow
	err := p.db.NewSelect().Model(&row).Where("p.id = ?", id).Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: item %s", contract.ErrNotFound, id)
	case err != nil:
		return nil, fmt.Errorf("%w: catalog query: %v", contract.ErrUpstream, err)
	}

	return &contract.Item{
		ID:                 row.ID,
		Title:              row.Title,
		Category:           row.Category,
		NormalizedCategory: row.NormalizedCategory,
		Price:              row.Price,
		Brand:              row.Brand,
		Rating:             row.Rating,
		InStock:            row.InStock,
		Tags:               row.Tags,
		EmbeddingText:      row.EmbeddingText,
	}, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
