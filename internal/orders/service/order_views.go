package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
)

// OrderLine is an order item with display fields from the catalog. The price
// is always the snapshot on the order, never the current catalog price.
type OrderLine struct {
	domain.OrderItem
	ProductName string `json:"product_name,omitempty"`
	Subtotal    string `json:"subtotal"`
}

// OrderView is the read projection used by listings.
type OrderView struct {
	*domain.Order
	Lines    []OrderLine `json:"items"`
	Customer string      `json:"customer"`
}

func (e *Engine) project(ctx context.Context, orders []*domain.Order) ([]*OrderView, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, o := range orders {
		for _, item := range o.Items {
			if _, ok := seen[item.ProductID]; !ok {
				seen[item.ProductID] = struct{}{}
				ids = append(ids, item.ProductID)
			}
		}
	}

	products, err := e.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errProjection, err)
	}

	views := make([]*OrderView, 0, len(orders))
	for _, o := range orders {
		view := &OrderView{Order: o, Lines: make([]OrderLine, 0, len(o.Items))}
		if o.GuestInfo != nil {
			view.Customer = o.GuestInfo.FullName()
		} else if o.UserID != nil {
			view.Customer = *o.UserID
		}
		for _, item := range o.Items {
			line := OrderLine{OrderItem: item, Subtotal: item.Subtotal().StringFixed(2)}
			if p, ok := products[item.ProductID]; ok {
				line.ProductName = p.Name
			}
			view.Lines = append(view.Lines, line)
		}
		views = append(views, view)
	}
	return views, nil
}
