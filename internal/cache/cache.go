package cache

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/fjod/go_cart/shopcore/internal/domain"
)

// CatalogCache keeps fetched catalog data for the current session. Category
// keys are expected to be normalized by the caller; the empty key is the
// unfiltered product list.
type CatalogCache interface {
	GetProducts(ctx context.Context, category string) ([]domain.Product, error)
	SetProducts(ctx context.Context, category string, products []domain.Product) error
	DeleteProducts(ctx context.Context, category string) error
	GetCategories(ctx context.Context) ([]string, error)
	SetCategories(ctx context.Context, categories []string) error
}

var ErrCacheMiss = errors.New("cache miss")
