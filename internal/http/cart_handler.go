package http

import (
	"context"
	"net/http"

	cartsvc "github.com/fjod/go_storefront/internal/cart/service"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartService interface {
	View(ctx context.Context, userID string) (*cartsvc.CartView, error)
	AddItem(ctx context.Context, userID, productID string, quantity int, variant *domain.Variant) (*domain.Cart, error)
	UpdateItem(ctx context.Context, userID, productID string, patch domain.ItemPatch) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) (*domain.Cart, error)
}

type CartHandler struct {
	cart     CartService
	logger   *zap.Logger
	maxBytes int64
}

func NewCartHandler(cart CartService, logger *zap.Logger, maxBytes int64) *CartHandler {
	return &CartHandler{cart: cart, logger: logger, maxBytes: maxBytes}
}

type AddItemRequestDTO struct {
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	SelectedVariant *domain.Variant `json:"selected_variant,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	view, err := h.cart.View(r.Context(), p.UserID)
	if err != nil {
		handleFieldError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		handleFieldError(w, h.logger, err)
		return
	}

	cart, err := h.cart.AddItem(r.Context(), p.UserID, req.ProductID, req.Quantity, req.SelectedVariant)
	if err != nil {
		handleFieldError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var patch domain.ItemPatch
	if err := decodeJSON(w, r, h.maxBytes, &patch); err != nil {
		handleFieldError(w, h.logger, err)
		return
	}

	cart, err := h.cart.UpdateItem(r.Context(), p.UserID, chi.URLParam(r, "product_id"), patch)
	if err != nil {
		handleFieldError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	cart, err := h.cart.RemoveItem(r.Context(), p.UserID, chi.URLParam(r, "product_id"))
	if err != nil {
		handleFieldError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	cart, err := h.cart.Clear(r.Context(), p.UserID)
	if err != nil {
		handleFieldError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}
