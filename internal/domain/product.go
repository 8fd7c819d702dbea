package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Variant is a size/color refinement of a product. A nil field means the
// dimension is absent.
type Variant struct {
	Size  *string `json:"size,omitempty" bson:"size,omitempty"`
	Color *string `json:"color,omitempty" bson:"color,omitempty"`
}

// IsZero reports whether neither dimension is set.
func (v *Variant) IsZero() bool {
	return v == nil || (v.Size == nil && v.Color == nil)
}

// SameVariant compares two optional variants. Both size and color must match
// exactly, including both being absent; a nil variant equals an empty one.
func SameVariant(a, b *Variant) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() && b.IsZero()
	}
	return sameField(a.Size, b.Size) && sameField(a.Color, b.Color)
}

func sameField(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Normalized returns nil for a variant without dimensions.
func (v *Variant) Normalized() *Variant {
	if v.IsZero() {
		return nil
	}
	out := *v
	return &out
}

func (v *Variant) String() string {
	if v.IsZero() {
		return "-"
	}
	size, color := "", ""
	if v.Size != nil {
		size = *v.Size
	}
	if v.Color != nil {
		color = *v.Color
	}
	return size + "/" + color
}

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Variants      []Variant       `json:"variants"`
	CreatedAt     time.Time       `json:"created_at"`
}

// InStock treats zero and negative stock alike: the ledger tolerates
// negative counters after unguarded concurrent checkouts.
func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

// ValidID reports whether id is a well-formed product identifier.
func ValidID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
