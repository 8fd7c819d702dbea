package store

import (
	"context"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
)

// Common errors returned by the ledger
var (
	ErrProductNotFound   = domain.ErrProductNotFound
	ErrInsufficientStock = fmt.Errorf("%w: requested quantity exceeds available stock", domain.ErrInsufficientStock)
	ErrNegativeStock     = fmt.Errorf("%w: stock quantity must not be negative", domain.ErrValidation)
)

// StockLevel is the counter for one product. Quantity may be negative after
// unguarded concurrent checkouts; callers treat <= 0 as out of stock.
type StockLevel struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"stock_quantity"`
}

func (s StockLevel) InStock() bool {
	return s.Quantity > 0
}

// Ledger is the single authoritative stock counter per product.
type Ledger interface {
	// Adjust applies quantity += delta atomically and returns the new value.
	// It never clamps and never rejects a result below zero.
	Adjust(ctx context.Context, productID string, delta int) (int, error)

	// TryConsume decrements by qty only if the result stays >= 0,
	// otherwise it fails with ErrInsufficientStock and changes nothing.
	TryConsume(ctx context.Context, productID string, qty int) (int, error)

	// Stock returns levels for the known ids among productIDs.
	Stock(ctx context.Context, productIDs []string) ([]StockLevel, error)

	// SetStock overwrites the counter (admin edit).
	SetStock(ctx context.Context, productID string, quantity int) error
}
