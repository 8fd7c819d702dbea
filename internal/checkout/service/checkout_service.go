package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	ordersvc "github.com/fjod/go_storefront/internal/orders/service"
	"go.uber.org/zap"
)

var ErrEmptyCart = fmt.Errorf("%w: cart is empty, nothing to checkout", domain.ErrValidation)

type CartStore interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) (*domain.Cart, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, in ordersvc.UserOrderInput) (*domain.Order, error)
	CreateGuestOrder(ctx context.Context, in ordersvc.GuestOrderInput) (*domain.Order, error)
}

type ProductResolver interface {
	GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error)
}

// Service converts a cart into an order. Only a successfully created order
// clears the persisted cart; the order engine itself never touches carts.
type Service struct {
	carts    CartStore
	orders   OrderCreator
	products ProductResolver
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(carts CartStore, orders OrderCreator, products ProductResolver, logger *zap.Logger) *Service {
	return &Service{carts: carts, orders: orders, products: products, logger: logger, now: time.Now}
}

type Result struct {
	Order    *domain.Order `json:"order"`
	Snapshot *CartSnapshot `json:"snapshot"`
}

func (s *Service) CheckoutUser(ctx context.Context, userID, addressID, paymentMethod string) (*Result, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	snapshot, err := s.buildCartSnapshot(ctx, cart)
	if err != nil {
		return nil, err
	}

	total := snapshot.TotalAmount
	order, err := s.orders.CreateOrder(ctx, ordersvc.UserOrderInput{
		UserID:        userID,
		AddressID:     addressID,
		Items:         snapshot.OrderItems(),
		TotalPrice:    &total,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.carts.Clear(ctx, userID); err != nil {
		s.logger.Error("failed to clear cart after checkout",
			zap.String("user_id", userID),
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("checkout completed",
		zap.String("user_id", userID),
		zap.String("order_id", order.ID.String()),
		zap.String("total", total.StringFixed(2)),
	)
	return &Result{Order: order, Snapshot: snapshot}, nil
}

// CheckoutGuest orders the contents of a session-held cart. The caller owns
// the cart and discards it once the order is returned.
func (s *Service) CheckoutGuest(ctx context.Context, guest domain.GuestInfo, rawAddress string, cart *domain.EphemeralCart, paymentMethod string) (*Result, error) {
	if cart == nil {
		return nil, ErrEmptyCart
	}
	snapshot, err := s.buildCartSnapshot(ctx, cart)
	if err != nil {
		return nil, err
	}

	total := snapshot.TotalAmount
	order, err := s.orders.CreateGuestOrder(ctx, ordersvc.GuestOrderInput{
		GuestInfo:     guest,
		RawAddress:    rawAddress,
		Items:         snapshot.OrderItems(),
		TotalPrice:    &total,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("guest checkout completed",
		zap.String("order_id", order.ID.String()),
		zap.String("total", total.StringFixed(2)),
	)
	return &Result{Order: order, Snapshot: snapshot}, nil
}
