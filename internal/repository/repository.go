package repository

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/fjod/go_cart/shopcore/internal/domain"
)

var ErrItemNotFound = errors.New("item not found in cart")

// Table is the durable backend behind the cart. Implementations key rows by
// product ID, keep insertion order in List, and leave the order of a row
// unchanged when it is overwritten.
type Table interface {
	Upsert(ctx context.Context, item domain.LineItem) error
	// Get returns ErrItemNotFound when no row exists.
	Get(ctx context.Context, productID int64) (*domain.LineItem, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, productID int64) (bool, error)
	// DeleteAll returns the number of removed rows.
	DeleteAll(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]domain.LineItem, error)
	Close(ctx context.Context) error
}

// CartRepository is what the cart service needs from storage.
// Consumers define this interface, not the backends.
type CartRepository interface {
	Get(ctx context.Context, productID int64) (*domain.LineItem, error)
	Upsert(ctx context.Context, item domain.LineItem) error
	Delete(ctx context.Context, productID int64) error
	DeleteAll(ctx context.Context) error
	Snapshot() []domain.LineItem
	Subscribe(ctx context.Context) <-chan []domain.LineItem
}
