package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newValidOrder() *Order {
	user := "user-1"
	return &Order{
		ID:     uuid.New(),
		UserID: &user,
		Items: []OrderItem{
			{ProductID: uuid.NewString(), Quantity: 2, Price: decimal.RequireFromString("10.50")},
			{ProductID: uuid.NewString(), Quantity: 1, Price: decimal.RequireFromString("4.00")},
		},
		ShippingAddress: "1 Main St, Springfield",
		TotalPrice:      decimal.RequireFromString("25.00"),
		Status:          OrderStatusPending,
	}
}

func TestOrder_Validate_OK(t *testing.T) {
	assert.NoError(t, newValidOrder().Validate())
}

func TestOrder_Validate_Owner(t *testing.T) {
	both := newValidOrder()
	both.GuestInfo = &GuestInfo{FirstName: "A", LastName: "B", Email: "a@b.c", Phone: "1"}
	assert.ErrorIs(t, both.Validate(), ErrOrderOwner)

	neither := newValidOrder()
	neither.UserID = nil
	assert.ErrorIs(t, neither.Validate(), ErrOrderOwner)

	guest := newValidOrder()
	guest.UserID = nil
	guest.GuestInfo = &GuestInfo{FirstName: "A", LastName: "B", Email: "a@b.c", Phone: "1"}
	assert.NoError(t, guest.Validate())
	assert.True(t, guest.IsGuest())
}

func TestOrder_Validate_IncompleteGuest(t *testing.T) {
	o := newValidOrder()
	o.UserID = nil
	o.GuestInfo = &GuestInfo{FirstName: "A", Email: "a@b.c"}
	assert.ErrorIs(t, o.Validate(), ErrIncompleteGuest)
}

func TestOrder_Validate_Items(t *testing.T) {
	empty := newValidOrder()
	empty.Items = nil
	assert.ErrorIs(t, empty.Validate(), ErrEmptyOrder)

	zero := newValidOrder()
	zero.Items[0].Quantity = 0
	assert.ErrorIs(t, zero.Validate(), ErrInvalidQuantity)

	negative := newValidOrder()
	negative.Items[1].Price = decimal.NewFromInt(-1)
	assert.ErrorIs(t, negative.Validate(), ErrInvalidPrice)
}

func TestOrder_Validate_Total(t *testing.T) {
	o := newValidOrder()
	o.TotalPrice = decimal.RequireFromString("24.99")
	err := o.Validate()
	assert.ErrorIs(t, err, ErrTotalMismatch)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSumItems(t *testing.T) {
	o := newValidOrder()
	assert.True(t, decimal.RequireFromString("25").Equal(SumItems(o.Items)))
	assert.True(t, decimal.Zero.Equal(SumItems(nil)))
}

func TestOrderStatus_Transitions(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusConfirmed))
	assert.True(t, OrderStatusConfirmed.CanTransitionTo(OrderStatusShipped))
	assert.True(t, OrderStatusShipped.CanTransitionTo(OrderStatusDelivered))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusShipped.CanTransitionTo(OrderStatusCancelled))

	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusShipped))
	assert.False(t, OrderStatusConfirmed.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusPending))

	for _, next := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled} {
		assert.False(t, OrderStatusDelivered.CanTransitionTo(next), "delivered -> %s", next)
		assert.False(t, OrderStatusCancelled.CanTransitionTo(next), "cancelled -> %s", next)
	}
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("shipped")
	assert.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, s)

	_, err = ParseOrderStatus("lost")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
