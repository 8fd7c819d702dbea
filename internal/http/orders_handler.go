package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_storefront/internal/authz"
	"github.com/fjod/go_storefront/internal/domain"
	ordersvc "github.com/fjod/go_storefront/internal/orders/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderService interface {
	GetOrder(ctx context.Context, p authz.Principal, id uuid.UUID) (*ordersvc.OrderView, error)
	ListByUser(ctx context.Context, p authz.Principal, userID string) ([]*ordersvc.OrderView, error)
	ListAll(ctx context.Context, p authz.Principal) ([]*ordersvc.OrderView, error)
	UpdateStatus(ctx context.Context, p authz.Principal, id uuid.UUID, next domain.OrderStatus) (*domain.Order, error)
	DeleteOrder(ctx context.Context, p authz.Principal, id uuid.UUID) error
}

var errInvalidOrderID = fmt.Errorf("%w: invalid order id", domain.ErrValidation)

type OrdersHandler struct {
	orders   OrderService
	logger   *zap.Logger
	maxBytes int64
}

func NewOrdersHandler(orders OrderService, logger *zap.Logger, maxBytes int64) *OrdersHandler {
	return &OrdersHandler{orders: orders, logger: logger, maxBytes: maxBytes}
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		return uuid.Nil, errInvalidOrderID
	}
	return id, nil
}

// GetOrder is open to guests so that the error for a missing order and a
// foreign one look the same.
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderIDParam(r)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	view, err := h.orders.GetOrder(r.Context(), authz.FromContext(r.Context()), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *OrdersHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.list(w, r, p, p.UserID)
}

func (h *OrdersHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.list(w, r, p, chi.URLParam(r, "user_id"))
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request, p authz.Principal, userID string) {
	views, err := h.orders.ListByUser(r.Context(), p, userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *OrdersHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	views, err := h.orders.ListAll(r.Context(), p)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := orderIDParam(r)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	var req UpdateStatusRequestDTO
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), p, id, domain.OrderStatus(req.Status))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := orderIDParam(r)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	if err := h.orders.DeleteOrder(r.Context(), p, id); err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
