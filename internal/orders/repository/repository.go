package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound  = domain.ErrOrderNotFound
	ErrDuplicateOrder = errors.New("order with this id already exists")
	ErrStatusConflict = fmt.Errorf("%w: order status changed concurrently", domain.ErrInvalidTransition)
	ErrFaultNotFound  = fmt.Errorf("%w: stock fault not found", domain.ErrNotFound)
)

const MigrationsTable = "orders_schema_migrations"

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	// UpdateStatus moves the order from one status to another only if it is
	// still in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) (*domain.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	HasDeliveredProduct(ctx context.Context, userID, productID string) (bool, error)
}

type FaultRepository interface {
	RecordFault(ctx context.Context, fault *domain.StockFault) error
	// UnresolvedFaults returns open faults: neither resolved nor abandoned.
	UnresolvedFaults(ctx context.Context, limit int) ([]*domain.StockFault, error)
	ResolveFault(ctx context.Context, id int64) error
	FaultAttemptFailed(ctx context.Context, id int64, reason string) error
	// AbandonFault closes a fault that will not be retried again. It stays
	// in the table for manual correction.
	AbandonFault(ctx context.Context, id int64, reason string) error
}
