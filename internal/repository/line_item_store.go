package repository

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/fjod/go_cart/shopcore/internal/domain"
	"github.com/fjod/go_cart/shopcore/internal/live"
)

// LineItemStore layers a live, ordered view on top of a Table. Writes are
// serialized; each write that changes the table is published exactly once,
// after it commits and in commit order. A failed write leaves the view as it
// was.
type LineItemStore struct {
	table Table
	log   *slog.Logger

	mu    sync.Mutex
	items []domain.LineItem
	view  *live.Subject[[]domain.LineItem]
}

// NewLineItemStore loads the current rows of table and starts publishing.
func NewLineItemStore(ctx context.Context, table Table, log *slog.Logger) (*LineItemStore, error) {
	items, err := table.List(ctx)
	if err != nil {
		return nil, &domain.StorageFault{Op: "list", Err: err}
	}
	if items == nil {
		items = []domain.LineItem{}
	}
	return &LineItemStore{
		table: table,
		log:   log,
		items: items,
		view:  live.New(items),
	}, nil
}

func (s *LineItemStore) Get(ctx context.Context, productID int64) (*domain.LineItem, error) {
	item, err := s.table.Get(ctx, productID)
	if errors.Is(err, ErrItemNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, &domain.StorageFault{Op: "get", Err: err}
	}
	return item, nil
}

// Upsert inserts item or overwrites the row with the same product ID.
func (s *LineItemStore) Upsert(ctx context.Context, item domain.LineItem) error {
	if item.Quantity < 1 {
		s.log.Error("refusing to store line item below quantity 1",
			slog.Int64("product_id", item.ProductID),
			slog.Int("quantity", item.Quantity),
		)
		return errors.Wrapf(domain.ErrInvariantViolation, "product %d quantity %d", item.ProductID, item.Quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.table.Upsert(ctx, item); err != nil {
		if errors.Is(err, domain.ErrInvariantViolation) {
			return err
		}
		return &domain.StorageFault{Op: "upsert", Err: err}
	}

	next := slices.Clone(s.items)
	if i := indexOf(next, item.ProductID); i >= 0 {
		// The backend keeps the original insertion time.
		item.AddedAt = next[i].AddedAt
		next[i] = item
	} else {
		next = append(next, item)
	}
	s.commit(next)
	return nil
}

// Delete removes the row for productID. Deleting an absent row is a no-op and
// publishes nothing.
func (s *LineItemStore) Delete(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.table.Delete(ctx, productID)
	if err != nil {
		return &domain.StorageFault{Op: "delete", Err: err}
	}
	if !removed {
		return nil
	}

	next := slices.Clone(s.items)
	if i := indexOf(next, productID); i >= 0 {
		next = slices.Delete(next, i, i+1)
	}
	s.commit(next)
	return nil
}

func (s *LineItemStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.table.DeleteAll(ctx)
	if err != nil {
		return &domain.StorageFault{Op: "delete all", Err: err}
	}
	if n == 0 && len(s.items) == 0 {
		return nil
	}
	s.commit([]domain.LineItem{})
	return nil
}

// Snapshot returns a copy of the current rows in insertion order.
func (s *LineItemStore) Snapshot() []domain.LineItem {
	return slices.Clone(s.view.Value())
}

// Subscribe yields the current rows and then every committed change. Received
// slices are shared and must not be modified.
func (s *LineItemStore) Subscribe(ctx context.Context) <-chan []domain.LineItem {
	return s.view.Subscribe(ctx)
}

// Close ends all subscriptions and closes the table.
func (s *LineItemStore) Close(ctx context.Context) error {
	s.view.Close()
	return s.table.Close(ctx)
}

func (s *LineItemStore) commit(next []domain.LineItem) {
	s.items = next
	s.view.Publish(next)
}

func indexOf(items []domain.LineItem, productID int64) int {
	return slices.IndexFunc(items, func(it domain.LineItem) bool { return it.ProductID == productID })
}
