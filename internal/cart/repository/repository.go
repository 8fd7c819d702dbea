package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository stores whole cart documents. Line-level merging happens in
// the domain model; the store only reads and replaces.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
}
