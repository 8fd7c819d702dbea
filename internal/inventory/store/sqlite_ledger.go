package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SQLiteLedger keeps counters in the stock_quantity column of the catalog's
// products table. Every mutation is a single UPDATE statement, so concurrent
// adjustments never lose an increment.
type SQLiteLedger struct {
	db *sql.DB
}

func NewSQLiteLedger(db *sql.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db}
}

func (l *SQLiteLedger) Adjust(ctx context.Context, productID string, delta int) (int, error) {
	var quantity int
	err := l.db.QueryRowContext(ctx,
		`UPDATE products SET stock_quantity = stock_quantity + ? WHERE id = ? RETURNING stock_quantity`,
		delta, productID,
	).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust stock of %s: %w", productID, err)
	}
	return quantity, nil
}

func (l *SQLiteLedger) TryConsume(ctx context.Context, productID string, qty int) (int, error) {
	var quantity int
	err := l.db.QueryRowContext(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - ?
		 WHERE id = ? AND stock_quantity >= ?
		 RETURNING stock_quantity`,
		qty, productID, qty,
	).Scan(&quantity)
	if err == nil {
		return quantity, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to consume stock of %s: %w", productID, err)
	}

	// nothing updated: either the product is unknown or stock is short
	levels, err := l.Stock(ctx, []string{productID})
	if err != nil {
		return 0, err
	}
	if len(levels) == 0 {
		return 0, ErrProductNotFound
	}
	return levels[0].Quantity, ErrInsufficientStock
}

func (l *SQLiteLedger) Stock(ctx context.Context, productIDs []string) ([]StockLevel, error) {
	if len(productIDs) == 0 {
		return []StockLevel{}, nil
	}

	placeholders := make([]string, len(productIDs))
	args := make([]any, len(productIDs))
	for i, id := range productIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := l.db.QueryContext(ctx,
		"SELECT id, stock_quantity FROM products WHERE id IN ("+strings.Join(placeholders, ",")+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]int, len(productIDs))
	for rows.Next() {
		var id string
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		byID[id] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	// keep the caller's order
	result := make([]StockLevel, 0, len(byID))
	for _, id := range productIDs {
		if qty, ok := byID[id]; ok {
			result = append(result, StockLevel{ProductID: id, Quantity: qty})
		}
	}
	return result, nil
}

// SetStock only updates products the catalog already knows.
func (l *SQLiteLedger) SetStock(ctx context.Context, productID string, quantity int) error {
	if quantity < 0 {
		return ErrNegativeStock
	}

	res, err := l.db.ExecContext(ctx,
		`UPDATE products SET stock_quantity = ? WHERE id = ?`, quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to set stock of %s: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set stock of %s: %w", productID, err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}
