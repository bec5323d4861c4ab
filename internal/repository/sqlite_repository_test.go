package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/shopcore/internal/domain"
)

func setupSQLite(t *testing.T) *SQLiteTable {
	t.Helper()
	table, err := NewSQLiteTable(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { table.Close(context.Background()) })
	return table
}

func lineItem(id int64, price string, qty int) domain.LineItem {
	return domain.LineItem{
		ProductID:   id,
		ProductName: "product",
		ImageURL:    "http://img",
		UnitPrice:   decimal.RequireFromString(price),
		Quantity:    qty,
		AddedAt:     time.Unix(1700000000, int64(id)),
	}
}

func TestSQLite_GetNotFound(t *testing.T) {
	table := setupSQLite(t)

	item, err := table.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Nil(t, item)
}

func TestSQLite_UpsertInsertsThenOverwrites(t *testing.T) {
	table := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, table.Upsert(ctx, lineItem(1, "9.99", 1)))

	updated := lineItem(1, "12.50", 4)
	updated.ProductName = "renamed"
	updated.AddedAt = time.Unix(1800000000, 0)
	require.NoError(t, table.Upsert(ctx, updated))

	got, err := table.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.ProductName)
	assert.Equal(t, 4, got.Quantity)
	assert.True(t, got.UnitPrice.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, time.Unix(1700000000, 1), got.AddedAt, "insert time is kept on overwrite")

	items, err := table.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSQLite_ListKeepsInsertionOrder(t *testing.T) {
	table := setupSQLite(t)
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		require.NoError(t, table.Upsert(ctx, lineItem(id, "1.00", 1)))
	}
	// Overwriting the first row must not move it.
	require.NoError(t, table.Upsert(ctx, lineItem(3, "1.00", 5)))

	items, err := table.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{items[0].ProductID, items[1].ProductID, items[2].ProductID})
	assert.Equal(t, 5, items[0].Quantity)
}

func TestSQLite_DeleteReportsRemoval(t *testing.T) {
	table := setupSQLite(t)
	ctx := context.Background()
	require.NoError(t, table.Upsert(ctx, lineItem(1, "1.00", 1)))

	removed, err := table.Delete(ctx, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = table.Delete(ctx, 1)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSQLite_DeleteAll(t *testing.T) {
	table := setupSQLite(t)
	ctx := context.Background()
	require.NoError(t, table.Upsert(ctx, lineItem(1, "1.00", 1)))
	require.NoError(t, table.Upsert(ctx, lineItem(2, "1.00", 1)))

	n, err := table.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	items, err := table.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSQLite_CheckConstraintIsInvariantViolation(t *testing.T) {
	table := setupSQLite(t)

	err := table.Upsert(context.Background(), lineItem(1, "1.00", 0))
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.db")
	ctx := context.Background()

	table, err := NewSQLiteTable(path)
	require.NoError(t, err)
	require.NoError(t, table.Upsert(ctx, lineItem(9, "3.30", 2)))
	require.NoError(t, table.Close(ctx))

	reopened, err := NewSQLiteTable(path)
	require.NoError(t, err)
	defer reopened.Close(ctx)

	items, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(9), items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "3.3", items[0].UnitPrice.String())
}

func TestSQLite_CancelledContext(t *testing.T) {
	table := setupSQLite(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := table.List(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}
