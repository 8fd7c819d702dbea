package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const orderColumns = `id, user_id, guest_info, items, shipping_address, address_label, address_id,
	total_price, status, payment_method, is_paid, paid_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (*domain.Order, error) {
	var order domain.Order
	var guestJSON, itemsJSON []byte
	err := s.Scan(
		&order.ID,
		&order.UserID,
		&guestJSON,
		&itemsJSON,
		&order.ShippingAddress,
		&order.AddressLabel,
		&order.AddressID,
		&order.TotalPrice,
		&order.Status,
		&order.PaymentMethod,
		&order.IsPaid,
		&order.PaidAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if guestJSON != nil {
		order.GuestInfo = &domain.GuestInfo{}
		if err := json.Unmarshal(guestJSON, order.GuestInfo); err != nil {
			return nil, fmt.Errorf("unmarshal guest info: %w", err)
		}
	}
	return &order, nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	// a nil []byte would reach the driver as an empty string, not NULL
	var guest any
	if order.GuestInfo != nil {
		guestJSON, err := json.Marshal(order.GuestInfo)
		if err != nil {
			return fmt.Errorf("failed to marshal guest info: %w", err)
		}
		guest = string(guestJSON)
	}

	query := `INSERT INTO orders (id, user_id, guest_info, items, shipping_address, address_label, address_id,
	                             total_price, status, payment_method, is_paid, paid_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	          RETURNING created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		order.ID,
		order.UserID,
		guest,
		itemsJSON,
		order.ShippingAddress,
		order.AddressLabel,
		order.AddressID,
		order.TotalPrice,
		order.Status,
		order.PaymentMethod,
		order.IsPaid,
		order.PaidAt,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

func (r *Repository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
}

// ListOrders returns every order, newest first.
func (r *Repository) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id`)
}

func (r *Repository) listOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx,
		`UPDATE orders SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+orderColumns,
		id, from, to))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetOrderByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return order, nil
}

// MarkPaid sets is_paid once; paying an already paid order keeps the first paid_at.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx,
		`UPDATE orders SET is_paid = TRUE, paid_at = COALESCE(paid_at, $2), updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+orderColumns,
		id, at))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	return order, nil
}

func (r *Repository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// HasDeliveredProduct reports whether userID owns a delivered order with a
// line item for productID.
func (r *Repository) HasDeliveredProduct(ctx context.Context, userID, productID string) (bool, error) {
	containment, err := json.Marshal([]map[string]string{{"product_id": productID}})
	if err != nil {
		return false, fmt.Errorf("marshal item filter: %w", err)
	}

	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM orders
		     WHERE user_id = $1 AND status = $2 AND items @> $3::jsonb
		 )`,
		userID, domain.OrderStatusDelivered, string(containment),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query delivered orders: %w", err)
	}
	return exists, nil
}

func (r *Repository) RecordFault(ctx context.Context, fault *domain.StockFault) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO stock_faults (order_id, product_id, delta, conditional, error)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		fault.OrderID, fault.ProductID, fault.Delta, fault.Conditional, fault.Error,
	).Scan(&fault.ID, &fault.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert stock fault: %w", err)
	}
	return nil
}

// UnresolvedFaults returns the oldest open faults first.
func (r *Repository) UnresolvedFaults(ctx context.Context, limit int) ([]*domain.StockFault, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, delta, conditional, error, attempts, created_at, resolved_at, abandoned_at
		 FROM stock_faults
		 WHERE resolved_at IS NULL AND abandoned_at IS NULL
		 ORDER BY created_at, id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query stock faults: %w", err)
	}
	defer rows.Close()

	var faults []*domain.StockFault
	for rows.Next() {
		f := &domain.StockFault{}
		if err := rows.Scan(&f.ID, &f.OrderID, &f.ProductID, &f.Delta, &f.Conditional,
			&f.Error, &f.Attempts, &f.CreatedAt, &f.ResolvedAt, &f.AbandonedAt); err != nil {
			return nil, fmt.Errorf("scan stock fault: %w", err)
		}
		faults = append(faults, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return faults, nil
}

func (r *Repository) ResolveFault(ctx context.Context, id int64) error {
	return r.execFault(ctx,
		`UPDATE stock_faults SET resolved_at = NOW(), attempts = attempts + 1
		 WHERE id = $1 AND resolved_at IS NULL AND abandoned_at IS NULL`, id)
}

func (r *Repository) FaultAttemptFailed(ctx context.Context, id int64, reason string) error {
	return r.execFault(ctx,
		`UPDATE stock_faults SET attempts = attempts + 1, error = $2
		 WHERE id = $1 AND resolved_at IS NULL AND abandoned_at IS NULL`, id, reason)
}

func (r *Repository) AbandonFault(ctx context.Context, id int64, reason string) error {
	return r.execFault(ctx,
		`UPDATE stock_faults SET abandoned_at = NOW(), attempts = attempts + 1, error = $2
		 WHERE id = $1 AND resolved_at IS NULL AND abandoned_at IS NULL`, id, reason)
}

func (r *Repository) execFault(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update stock fault: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stock fault: %w", err)
	}
	if n == 0 {
		return ErrFaultNotFound
	}
	return nil
}
