package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultPaymentMethod = "cash"

type OrderItem struct {
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	SelectedVariant *Variant        `json:"selected_variant"`
	Price           decimal.Decimal `json:"price"` // unit price captured at order time
}

// Subtotal is price*quantity for the line.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type GuestInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (g GuestInfo) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

func (g GuestInfo) complete() bool {
	return strings.TrimSpace(g.FirstName) != "" &&
		strings.TrimSpace(g.LastName) != "" &&
		strings.TrimSpace(g.Email) != "" &&
		strings.TrimSpace(g.Phone) != ""
}

// Order is immutable after creation except for Status, IsPaid and PaidAt.
// ShippingAddress is a free-text snapshot, not a reference to the address book.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          *string         `json:"user_id,omitempty"`
	GuestInfo       *GuestInfo      `json:"guest_info,omitempty"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress string          `json:"shipping_address"`
	AddressLabel    string          `json:"address_label,omitempty"`
	AddressID       string          `json:"address_id,omitempty"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Status          OrderStatus     `json:"status"`
	PaymentMethod   string          `json:"payment_method"`
	IsPaid          bool            `json:"is_paid"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsGuest reports whether the order was placed without an account.
func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// OwnedBy reports whether userID is the owning account.
func (o *Order) OwnedBy(userID string) bool {
	return o.UserID != nil && *o.UserID == userID
}

// Contains reports whether any line item references productID.
func (o *Order) Contains(productID string) bool {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// SumItems is the total of price*quantity over items.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Validate checks the order shape before anything is persisted.
func (o *Order) Validate() error {
	hasUser := o.UserID != nil && *o.UserID != ""
	hasGuest := o.GuestInfo != nil
	if hasUser == hasGuest {
		return ErrOrderOwner
	}
	if hasGuest && !o.GuestInfo.complete() {
		return ErrIncompleteGuest
	}
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	for _, item := range o.Items {
		if !ValidID(item.ProductID) {
			return ErrInvalidProductID
		}
		if item.Quantity < 1 {
			return ErrInvalidQuantity
		}
		if item.Price.IsNegative() {
			return ErrInvalidPrice
		}
	}
	if strings.TrimSpace(o.ShippingAddress) == "" {
		return ErrMissingAddress
	}
	if !o.TotalPrice.Equal(SumItems(o.Items)) {
		return ErrTotalMismatch
	}
	return nil
}
