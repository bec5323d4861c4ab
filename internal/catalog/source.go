// Package catalog resolves products from an external source and drives the
// category view state.
package catalog

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/fjod/go_cart/shopcore/internal/cache"
	"github.com/fjod/go_cart/shopcore/internal/domain"
)

// ProductSource is the network collaborator the adapter reads from.
type ProductSource interface {
	GetByCategory(ctx context.Context, category string) ([]domain.Product, error)
	GetCategories(ctx context.Context) ([]string, error)
	GetAll(ctx context.Context) ([]domain.Product, error)
}

const allCategories = "all"

// NormalizeCategory trims and case-folds category. The unfiltered list is
// represented by the empty string, which "all" also maps to.
func NormalizeCategory(category string) string {
	c := cases.Fold().String(strings.TrimSpace(category))
	if c == allCategories {
		return ""
	}
	return c
}

// Adapter fetches catalog data without retrying. Identical concurrent
// fetches share one source call, and successful results are cached.
type Adapter struct {
	source ProductSource
	cache  cache.CatalogCache
	log    *slog.Logger
	sfg    singleflight.Group
}

func NewAdapter(source ProductSource, c cache.CatalogCache, log *slog.Logger) *Adapter {
	return &Adapter{
		source: source,
		cache:  c,
		log:    log,
	}
}

// FetchByCategory returns the products of category, or every product when
// category normalizes to empty. Source failures are *domain.FetchError.
func (a *Adapter) FetchByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	key := NormalizeCategory(category)
	v, err := a.do(ctx, "products:"+key, func(ctx context.Context) (any, error) {
		cached, err := a.cache.GetProducts(ctx, key)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			a.log.WarnContext(ctx, "catalog cache get failed", slog.String("category", key), slog.Any("error", err))
		}
		return a.loadProducts(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]domain.Product)), nil
}

// Refetch drops any cached products for category and loads them from the
// source again.
func (a *Adapter) Refetch(ctx context.Context, category string) ([]domain.Product, error) {
	key := NormalizeCategory(category)
	if err := a.cache.DeleteProducts(ctx, key); err != nil {
		a.log.WarnContext(ctx, "catalog cache delete failed", slog.String("category", key), slog.Any("error", err))
	}
	v, err := a.do(ctx, "refetch:"+key, func(ctx context.Context) (any, error) {
		return a.loadProducts(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]domain.Product)), nil
}

// FetchCategories returns every category name known to the source.
func (a *Adapter) FetchCategories(ctx context.Context) ([]string, error) {
	v, err := a.do(ctx, "categories", func(ctx context.Context) (any, error) {
		cached, err := a.cache.GetCategories(ctx)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			a.log.WarnContext(ctx, "catalog cache get failed", slog.Any("error", err))
		}

		categories, err := a.source.GetCategories(ctx)
		if err != nil {
			return nil, &domain.FetchError{Op: "fetch categories", Err: err}
		}
		if categories == nil {
			categories = []string{}
		}
		if err := a.cache.SetCategories(ctx, categories); err != nil {
			a.log.WarnContext(ctx, "catalog cache set failed", slog.Any("error", err))
		}
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]string)), nil
}

func (a *Adapter) loadProducts(ctx context.Context, key string) ([]domain.Product, error) {
	var (
		products []domain.Product
		err      error
	)
	if key == "" {
		products, err = a.source.GetAll(ctx)
	} else {
		products, err = a.source.GetByCategory(ctx, key)
	}
	if err != nil {
		return nil, &domain.FetchError{Op: "fetch products", Err: err}
	}
	if products == nil {
		products = []domain.Product{}
	}
	if err := a.cache.SetProducts(ctx, key, products); err != nil {
		a.log.WarnContext(ctx, "catalog cache set failed", slog.String("category", key), slog.Any("error", err))
	}
	return products, nil
}

// do runs fn once per key among concurrent callers. The shared call is
// detached from any single caller's cancellation; a caller whose ctx ends
// stops waiting and gets ctx.Err().
func (a *Adapter) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	shared := context.WithoutCancel(ctx)
	ch := a.sfg.DoChan(key, func() (any, error) {
		return fn(shared)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
