package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/address"
	"github.com/fjod/go_storefront/internal/authz"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/inventory/store"
	"github.com/fjod/go_storefront/internal/orders/repository"
	"github.com/fjod/go_storefront/internal/publisher"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductResolver interface {
	GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error)
}

type Options struct {
	// StrictStock rejects orders that exceed current stock and consumes
	// stock with a conditional decrement instead of a plain adjustment.
	StrictStock bool
}

// Engine turns item lists into persisted orders and drives their status.
type Engine struct {
	orders    repository.OrderRepository
	faults    repository.FaultRepository
	ledger    store.Ledger
	addresses address.Resolver
	products  ProductResolver
	events    publisher.Publisher
	policy    authz.Policy
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

func NewEngine(
	orders repository.OrderRepository,
	faults repository.FaultRepository,
	ledger store.Ledger,
	addresses address.Resolver,
	products ProductResolver,
	events publisher.Publisher,
	policy authz.Policy,
	logger *zap.Logger,
	opts Options,
) *Engine {
	return &Engine{
		orders:    orders,
		faults:    faults,
		ledger:    ledger,
		addresses: addresses,
		products:  products,
		events:    events,
		policy:    policy,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// UserOrderInput places an order for an account, shipping to one of its
// saved addresses.
type UserOrderInput struct {
	UserID        string
	AddressID     string
	Items         []domain.OrderItem
	TotalPrice    *decimal.Decimal
	PaymentMethod string
}

// GuestOrderInput places an order without an account.
type GuestOrderInput struct {
	GuestInfo     domain.GuestInfo
	RawAddress    string
	Items         []domain.OrderItem
	TotalPrice    *decimal.Decimal
	PaymentMethod string
}

func (e *Engine) CreateOrder(ctx context.Context, in UserOrderInput) (*domain.Order, error) {
	if in.UserID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if err := precheck(in.Items, in.TotalPrice); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.AddressID) == "" {
		return nil, domain.ErrMissingAddress
	}

	addr, err := e.addresses.Resolve(ctx, in.UserID, in.AddressID)
	if err != nil {
		return nil, err
	}

	userID := in.UserID
	order := e.newOrder(in.Items, *in.TotalPrice, in.PaymentMethod)
	order.UserID = &userID
	order.ShippingAddress = addr.Snapshot()
	order.AddressLabel = addr.Label
	order.AddressID = addr.ID.String()

	return e.place(ctx, order)
}

func (e *Engine) CreateGuestOrder(ctx context.Context, in GuestOrderInput) (*domain.Order, error) {
	if err := precheck(in.Items, in.TotalPrice); err != nil {
		return nil, err
	}

	guest := in.GuestInfo
	order := e.newOrder(in.Items, *in.TotalPrice, in.PaymentMethod)
	order.GuestInfo = &guest
	order.ShippingAddress = strings.TrimSpace(in.RawAddress)

	return e.place(ctx, order)
}

func precheck(items []domain.OrderItem, total *decimal.Decimal) error {
	if len(items) == 0 {
		return domain.ErrEmptyOrder
	}
	if total == nil {
		return domain.ErrMissingTotal
	}
	return nil
}

func (e *Engine) newOrder(items []domain.OrderItem, total decimal.Decimal, paymentMethod string) *domain.Order {
	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentMethod == "" {
		paymentMethod = domain.DefaultPaymentMethod
	}
	lines := make([]domain.OrderItem, len(items))
	for i, item := range items {
		item.SelectedVariant = item.SelectedVariant.Normalized()
		lines[i] = item
	}
	return &domain.Order{
		ID:            uuid.New(),
		Items:         lines,
		TotalPrice:    total,
		Status:        domain.OrderStatusPending,
		PaymentMethod: paymentMethod,
	}
}

// place validates, persists and then consumes stock. Persisting the order is
// the commit point: a failed stock adjustment afterwards is recorded as a
// fault and never unwinds the order.
func (e *Engine) place(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	if e.opts.StrictStock {
		if err := e.checkAvailability(ctx, order.Items); err != nil {
			return nil, err
		}
	}

	if err := e.orders.CreateOrder(ctx, order); err != nil {
		e.logger.Error("failed to persist order", zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, err
	}

	for _, item := range order.Items {
		e.consumeStock(ctx, order.ID, item)
	}

	e.publish(ctx, publisher.NewOrderEvent(publisher.EventOrderCreated, order, ""))
	return order, nil
}

// checkAvailability compares summed demand per product with the ledger.
func (e *Engine) checkAvailability(ctx context.Context, items []domain.OrderItem) error {
	demand := make(map[string]int)
	var ids []string
	for _, item := range items {
		if _, seen := demand[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		demand[item.ProductID] += item.Quantity
	}

	levels, err := e.ledger.Stock(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to read stock: %w", err)
	}
	available := make(map[string]int, len(levels))
	for _, l := range levels {
		available[l.ProductID] = l.Quantity
	}

	for _, id := range ids {
		qty, ok := available[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
		}
		if qty < demand[id] {
			return fmt.Errorf("%w: product %s has %d, %d requested", store.ErrInsufficientStock, id, qty, demand[id])
		}
	}
	return nil
}

func (e *Engine) consumeStock(ctx context.Context, orderID uuid.UUID, item domain.OrderItem) {
	var err error
	if e.opts.StrictStock {
		_, err = e.ledger.TryConsume(ctx, item.ProductID, item.Quantity)
	} else {
		_, err = e.ledger.Adjust(ctx, item.ProductID, -item.Quantity)
	}
	if err == nil {
		return
	}

	e.logger.Error("stock adjustment failed after order commit",
		zap.String("order_id", orderID.String()),
		zap.String("product_id", item.ProductID),
		zap.Int("quantity", item.Quantity),
		zap.Error(err),
	)

	fault := &domain.StockFault{
		OrderID:     orderID,
		ProductID:   item.ProductID,
		Delta:       -item.Quantity,
		Conditional: e.opts.StrictStock,
		Error:       fmt.Errorf("%w: %w", domain.ErrStockAdjustment, err).Error(),
	}
	// the request context may already be gone; the fault must still be written
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.faults.RecordFault(recordCtx, fault); err != nil {
		e.logger.Error("failed to record stock fault",
			zap.String("order_id", orderID.String()),
			zap.String("product_id", item.ProductID),
			zap.Error(err),
		)
	}
}

// UpdateStatus applies a forward transition. Cancelling does not restock.
func (e *Engine) UpdateStatus(ctx context.Context, p authz.Principal, id uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	if err := authz.RequireAdmin(e.policy, p); err != nil {
		return nil, err
	}
	if _, err := domain.ParseOrderStatus(string(next)); err != nil {
		return nil, err
	}

	current, err := e.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, next)
	}

	updated, err := e.orders.UpdateStatus(ctx, id, current.Status, next)
	if err != nil {
		return nil, err
	}

	e.logger.Info("order status changed",
		zap.String("order_id", id.String()),
		zap.String("from", current.Status.String()),
		zap.String("to", next.String()),
		zap.String("by", p.UserID),
	)
	e.publish(ctx, publisher.NewOrderEvent(publisher.EventOrderStatusChanged, updated, current.Status))
	return updated, nil
}

// MarkPaid records payment. There is no gateway; a payment integration
// calls this once funds are captured.
func (e *Engine) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return e.orders.MarkPaid(ctx, id, e.now())
}

func (e *Engine) GetOrder(ctx context.Context, p authz.Principal, id uuid.UUID) (*OrderView, error) {
	order, err := e.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.policy.CanAccess(p, ownerOf(order)) {
		// do not reveal that the order exists
		if p.Anonymous() {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.ErrNotOrderOwner
	}

	views, err := e.project(ctx, []*domain.Order{order})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ListByUser returns the user's orders, newest first.
func (e *Engine) ListByUser(ctx context.Context, p authz.Principal, userID string) ([]*OrderView, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if !e.policy.CanAccess(p, userID) {
		return nil, domain.ErrNotOrderOwner
	}

	orders, err := e.orders.ListOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.project(ctx, orders)
}

func (e *Engine) ListAll(ctx context.Context, p authz.Principal) ([]*OrderView, error) {
	if err := authz.RequireAdmin(e.policy, p); err != nil {
		return nil, err
	}

	orders, err := e.orders.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return e.project(ctx, orders)
}

// DeleteOrder is an admin hard delete. Stock is not returned.
func (e *Engine) DeleteOrder(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := authz.RequireAdmin(e.policy, p); err != nil {
		return err
	}
	if err := e.orders.DeleteOrder(ctx, id); err != nil {
		return err
	}
	e.logger.Info("order deleted", zap.String("order_id", id.String()), zap.String("by", p.UserID))
	return nil
}

func (e *Engine) publish(ctx context.Context, ev publisher.Event) {
	if err := e.events.Publish(ctx, ev); err != nil {
		e.logger.Warn("failed to publish order event",
			zap.String("type", ev.Type),
			zap.String("order_id", ev.OrderID.String()),
			zap.Error(err),
		)
	}
}

func ownerOf(o *domain.Order) string {
	if o.UserID == nil {
		return ""
	}
	return *o.UserID
}

var errProjection = errors.New("failed to resolve order products")
