package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type CartSnapshotItem struct {
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	SelectedVariant *domain.Variant `json:"selected_variant,omitempty"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// CartSnapshot is the cart priced at checkout time.
type CartSnapshot struct {
	Items       []CartSnapshotItem `json:"items"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	CapturedAt  time.Time          `json:"captured_at"`
}

// OrderItems converts the snapshot into order lines carrying the captured
// unit prices.
func (s *CartSnapshot) OrderItems() []domain.OrderItem {
	items := make([]domain.OrderItem, len(s.Items))
	for i, line := range s.Items {
		items[i] = domain.OrderItem{
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			SelectedVariant: line.SelectedVariant,
			Price:           line.UnitPrice,
		}
	}
	return items
}

// buildCartSnapshot prices every line from the catalog in one batch lookup.
func (s *Service) buildCartSnapshot(ctx context.Context, cart domain.CartLike) (*CartSnapshot, error) {
	lines := cart.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	snapshot := &CartSnapshot{
		Items:       make([]CartSnapshotItem, 0, len(lines)),
		TotalAmount: decimal.Zero,
		CapturedAt:  s.now(),
	}
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, line.ProductID)
		}
		subtotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		snapshot.Items = append(snapshot.Items, CartSnapshotItem{
			ProductID:       line.ProductID,
			ProductName:     product.Name,
			Quantity:        line.Quantity,
			SelectedVariant: line.SelectedVariant,
			UnitPrice:       product.Price,
			Subtotal:        subtotal,
		})
		snapshot.TotalAmount = snapshot.TotalAmount.Add(subtotal)
	}
	return snapshot, nil
}
