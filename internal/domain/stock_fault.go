package domain

import (
	"time"

	"github.com/google/uuid"
)

// StockFault records a ledger adjustment that failed after its order was
// committed. The order stands; the fault is retried by reconciliation.
// A Conditional fault came from a strict-stock consume and must only be
// replayed as a decrement that keeps the counter non-negative.
type StockFault struct {
	ID          int64      `json:"id"`
	OrderID     uuid.UUID  `json:"order_id"`
	ProductID   string     `json:"product_id"`
	Delta       int        `json:"delta"`
	Conditional bool       `json:"conditional"`
	Error       string     `json:"error"`
	Attempts    int        `json:"attempts"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	AbandonedAt *time.Time `json:"abandoned_at,omitempty"`
}

// Open reports whether the fault still awaits reconciliation.
func (f *StockFault) Open() bool {
	return f.ResolvedAt == nil && f.AbandonedAt == nil
}
