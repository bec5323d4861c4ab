package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/fjod/go_cart/shopcore/internal/domain"
	"github.com/fjod/go_cart/shopcore/internal/repository"
)

// CartService owns cart mutations and the aggregates derived from the cart.
// Read-modify-write sequences on one product are serialized; different
// products proceed in parallel.
type CartService struct {
	repo  repository.CartRepository
	log   *slog.Logger
	locks keyLock
	now   func() time.Time
}

func NewCartService(repo repository.CartRepository, log *slog.Logger) *CartService {
	return &CartService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// AddToCart adds one unit of product. A new line snapshots the product's
// title, image and price; an existing line only gains quantity.
func (s *CartService) AddToCart(ctx context.Context, product domain.Product) error {
	unlock := s.locks.lock(product.ID)
	defer unlock()

	existing, err := s.repo.Get(ctx, product.ID)
	switch {
	case errors.Is(err, repository.ErrItemNotFound):
		item := domain.NewLineItem(product, s.now())
		return s.upsert(ctx, "add to cart", item)
	case err != nil:
		s.logError(ctx, "add to cart", product.ID, err)
		return err
	}

	existing.Quantity++
	return s.upsert(ctx, "add to cart", *existing)
}

// RemoveFromCart deletes the line regardless of quantity.
func (s *CartService) RemoveFromCart(ctx context.Context, productID int64) error {
	unlock := s.locks.lock(productID)
	defer unlock()

	if err := s.repo.Delete(ctx, productID); err != nil {
		s.logError(ctx, "remove from cart", productID, err)
		return err
	}
	return nil
}

// IncrementQuantity adds one unit to an existing line. Unknown products are
// ignored.
func (s *CartService) IncrementQuantity(ctx context.Context, productID int64) error {
	return s.adjust(ctx, "increment quantity", productID, 1)
}

// DecrementQuantity removes one unit. The line is deleted when it reaches
// zero. Unknown products are ignored.
func (s *CartService) DecrementQuantity(ctx context.Context, productID int64) error {
	return s.adjust(ctx, "decrement quantity", productID, -1)
}

func (s *CartService) adjust(ctx context.Context, op string, productID int64, delta int) error {
	unlock := s.locks.lock(productID)
	defer unlock()

	existing, err := s.repo.Get(ctx, productID)
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil
	}
	if err != nil {
		s.logError(ctx, op, productID, err)
		return err
	}

	q := existing.Quantity + delta
	switch {
	case q < 0:
		err := errors.Wrapf(domain.ErrInvariantViolation, "product %d quantity would become %d", productID, q)
		s.logError(ctx, op, productID, err)
		return err
	case q == 0:
		if err := s.repo.Delete(ctx, productID); err != nil {
			s.logError(ctx, op, productID, err)
			return err
		}
		return nil
	}

	existing.Quantity = q
	return s.upsert(ctx, op, *existing)
}

// ClearCart deletes every line. It waits for in-flight per-product updates.
func (s *CartService) ClearCart(ctx context.Context) error {
	unlock := s.locks.lockAll()
	defer unlock()

	if err := s.repo.DeleteAll(ctx); err != nil {
		s.log.ErrorContext(ctx, "clear cart failed", slog.Any("error", err))
		return err
	}
	return nil
}

// Items returns the current lines in insertion order.
func (s *CartService) Items() []domain.LineItem {
	return s.repo.Snapshot()
}

// TotalPrice computes the total of the current lines.
func (s *CartService) TotalPrice() decimal.Decimal {
	return domain.TotalPrice(s.repo.Snapshot())
}

// ObserveCartItems yields the current lines and then every committed change.
func (s *CartService) ObserveCartItems(ctx context.Context) <-chan []domain.LineItem {
	return s.repo.Subscribe(ctx)
}

// ObserveTotalPrice yields the total recomputed from every emitted snapshot.
func (s *CartService) ObserveTotalPrice(ctx context.Context) <-chan decimal.Decimal {
	return derive(ctx, s.repo.Subscribe(ctx), domain.TotalPrice)
}

// ObserveLineCount yields the number of distinct lines in the cart.
func (s *CartService) ObserveLineCount(ctx context.Context) <-chan int {
	return derive(ctx, s.repo.Subscribe(ctx), func(items []domain.LineItem) int { return len(items) })
}

func (s *CartService) upsert(ctx context.Context, op string, item domain.LineItem) error {
	if err := s.repo.Upsert(ctx, item); err != nil {
		s.logError(ctx, op, item.ProductID, err)
		return err
	}
	return nil
}

func (s *CartService) logError(ctx context.Context, op string, productID int64, err error) {
	s.log.ErrorContext(ctx, op+" failed",
		slog.Int64("product_id", productID),
		slog.Any("error", err),
	)
}

func derive[T any](ctx context.Context, in <-chan []domain.LineItem, fn func([]domain.LineItem) T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for items := range in {
			select {
			case out <- fn(items):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
