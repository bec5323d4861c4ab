package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one cart row: a product snapshot and how many of it are in the
// cart. Quantity is at least 1 while the row exists.
type LineItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	ImageURL    string          `json:"image_url"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	AddedAt     time.Time       `json:"added_at"`
}

// NewLineItem snapshots p into a fresh line with quantity 1.
func NewLineItem(p Product, now time.Time) LineItem {
	return LineItem{
		ProductID:   p.ID,
		ProductName: p.Title,
		ImageURL:    p.Image,
		UnitPrice:   p.Price,
		Quantity:    1,
		AddedAt:     now,
	}
}

// Subtotal is UnitPrice * Quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// TotalPrice sums the subtotals of items.
func TotalPrice(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}
