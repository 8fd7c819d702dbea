package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fjod/go_storefront/internal/authz"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/inventory/store"
	recommendsvc "github.com/fjod/go_storefront/internal/recommend/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultPopularLimit  = 10
	defaultTogetherLimit = 5
	defaultSalesDays     = 30
	maxLimit             = 100
)

type RecommendService interface {
	Popular(ctx context.Context, limit int) ([]*domain.Product, error)
	Recommend(ctx context.Context, productID string, limit int) (*recommendsvc.Recommendation, error)
	DashboardStats(ctx context.Context) (*recommendsvc.Stats, error)
	DailySales(ctx context.Context, days int) ([]recommendsvc.DailySale, error)
}

var errInvalidQuery = fmt.Errorf("%w: invalid query parameter", domain.ErrValidation)

type RecommendHandler struct {
	recommend RecommendService
	logger    *zap.Logger
}

func NewRecommendHandler(recommend RecommendService, logger *zap.Logger) *RecommendHandler {
	return &RecommendHandler{recommend: recommend, logger: logger}
}

// intQuery reads a positive integer query parameter, falling back to def
// when absent.
func intQuery(r *http.Request, name string, def, upper int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > upper {
		return 0, fmt.Errorf("%w: %s must be between 1 and %d", errInvalidQuery, name, upper)
	}
	return v, nil
}

func (h *RecommendHandler) Popular(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", defaultPopularLimit, maxLimit)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	products, err := h.recommend.Popular(r.Context(), limit)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, recommendsvc.Recommendation{Source: recommendsvc.SourcePopular, Products: products})
}

func (h *RecommendHandler) Together(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", defaultTogetherLimit, maxLimit)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	rec, err := h.recommend.Recommend(r.Context(), chi.URLParam(r, "product_id"), limit)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// AdminHandler serves dashboard figures and stock edits.
type AdminHandler struct {
	recommend RecommendService
	ledger    store.Ledger
	policy    authz.Policy
	logger    *zap.Logger
	maxBytes  int64
}

func NewAdminHandler(recommend RecommendService, ledger store.Ledger, policy authz.Policy, logger *zap.Logger, maxBytes int64) *AdminHandler {
	return &AdminHandler{recommend: recommend, ledger: ledger, policy: policy, logger: logger, maxBytes: maxBytes}
}

type SetStockRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (authz.Principal, bool) {
	p, ok := requireUser(w, r)
	if !ok {
		return p, false
	}
	if err := authz.RequireAdmin(h.policy, p); err != nil {
		handleError(w, h.logger, err)
		return p, false
	}
	return p, true
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	stats, err := h.recommend.DashboardStats(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) Sales(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	days, err := intQuery(r, "days", defaultSalesDays, recommendsvc.MaxDays)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	sales, err := h.recommend.DailySales(r.Context(), days)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *AdminHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	productID := chi.URLParam(r, "product_id")
	if !domain.ValidID(productID) {
		handleError(w, h.logger, domain.ErrInvalidProductID)
		return
	}

	var req SetStockRequestDTO
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	if err := h.ledger.SetStock(r.Context(), productID, req.Quantity); err != nil {
		handleError(w, h.logger, err)
		return
	}
	h.logger.Info("stock set",
		zap.String("product_id", productID),
		zap.Int("quantity", req.Quantity),
		zap.String("by", p.UserID),
	)
	respondJSON(w, http.StatusOK, store.StockLevel{ProductID: productID, Quantity: req.Quantity})
}
