package http

import (
	"context"
	"net/http"
	"time"

	checkoutsvc "github.com/fjod/go_storefront/internal/checkout/service"
	"github.com/fjod/go_storefront/internal/domain"
	"go.uber.org/zap"
)

type CheckoutService interface {
	CheckoutUser(ctx context.Context, userID, addressID, paymentMethod string) (*checkoutsvc.Result, error)
	CheckoutGuest(ctx context.Context, guest domain.GuestInfo, rawAddress string, cart *domain.EphemeralCart, paymentMethod string) (*checkoutsvc.Result, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	logger   *zap.Logger
	maxBytes int64
}

func NewCheckoutHandler(checkout CheckoutService, logger *zap.Logger, maxBytes int64) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, logger: logger, maxBytes: maxBytes}
}

type CheckoutRequestDTO struct {
	AddressID     string `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
}

type GuestCheckoutRequestDTO struct {
	GuestInfo       domain.GuestInfo    `json:"guest_info"`
	ShippingAddress string              `json:"shipping_address"`
	Items           []AddItemRequestDTO `json:"items"`
	PaymentMethod   string              `json:"payment_method"`
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CheckoutRequestDTO
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	res, err := h.checkout.CheckoutUser(r.Context(), p.UserID, req.AddressID, req.PaymentMethod)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// GuestCheckout accepts the session-held cart in the request body. Lines are
// merged by product and variant exactly as a persisted cart would be.
func (h *CheckoutHandler) GuestCheckout(w http.ResponseWriter, r *http.Request) {
	var req GuestCheckoutRequestDTO
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	cart := &domain.EphemeralCart{}
	now := time.Now()
	for _, item := range req.Items {
		if err := cart.AddItem(item.ProductID, item.Quantity, item.SelectedVariant, now); err != nil {
			handleError(w, h.logger, err)
			return
		}
	}

	res, err := h.checkout.CheckoutGuest(r.Context(), req.GuestInfo, req.ShippingAddress, cart, req.PaymentMethod)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}
