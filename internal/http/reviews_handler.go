package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_storefront/internal/authz"
	"github.com/fjod/go_storefront/internal/domain"
	reviewsvc "github.com/fjod/go_storefront/internal/reviews/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewService interface {
	CanReview(ctx context.Context, userID, productID string) (bool, error)
	CreateReview(ctx context.Context, userID, productID string, rating int, comment *string) (*domain.Review, error)
	UpdateReview(ctx context.Context, p authz.Principal, id uuid.UUID, rating int, comment *string) (*domain.Review, error)
	DeleteReview(ctx context.Context, p authz.Principal, id uuid.UUID) error
	ListByProduct(ctx context.Context, productID string) (*reviewsvc.ProductReviews, error)
	ApproveReview(ctx context.Context, p authz.Principal, id uuid.UUID) (*domain.Review, error)
	ListAll(ctx context.Context, p authz.Principal) ([]*domain.Review, error)
}

var errInvalidReviewID = fmt.Errorf("%w: invalid review id", domain.ErrValidation)

type ReviewsHandler struct {
	reviews  ReviewService
	logger   *zap.Logger
	maxBytes int64
}

func NewReviewsHandler(reviews ReviewService, logger *zap.Logger, maxBytes int64) *ReviewsHandler {
	return &ReviewsHandler{reviews: reviews, logger: logger, maxBytes: maxBytes}
}

type CreateReviewRequestDTO struct {
	ProductID string  `json:"product_id"`
	Rating    int     `json:"rating"`
	Comment   *string `json:"comment,omitempty"`
}

type UpdateReviewRequestDTO struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty"`
}

func (h *ReviewsHandler) CanReview(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	can, err := h.reviews.CanReview(r.Context(), p.UserID, chi.URLParam(r, "product_id"))
	if err != nil {
		handleFieldError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"can_review": can})
}

func (h *ReviewsHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateReviewRequestDTO
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		handleFieldError(w, h.logger, err)
		return
	}

	review, err := h.reviews.CreateReview(r.Context(), p.UserID, req.ProductID, req.Rating, req.Comment)
	if err != nil {
		handleFieldError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, review)
}

func (h *ReviewsHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "review_id"))
	if err != nil {
		handleFieldError(w, h.logger, errInvalidReviewID)
		return
	}

	var req UpdateReviewRequestDTO
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		handleFieldError(w, h.logger, err)
		return
	}

	review, err := h.reviews.UpdateReview(r.Context(), p, id, req.Rating, req.Comment)
	if err != nil {
		handleFieldError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, review)
}

func (h *ReviewsHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "review_id"))
	if err != nil {
		handleFieldError(w, h.logger, errInvalidReviewID)
		return
	}

	if err := h.reviews.DeleteReview(r.Context(), p, id); err != nil {
		handleFieldError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewsHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	listing, err := h.reviews.ListByProduct(r.Context(), chi.URLParam(r, "product_id"))
	if err != nil {
		handleFieldError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

func (h *ReviewsHandler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "review_id"))
	if err != nil {
		handleFieldError(w, h.logger, errInvalidReviewID)
		return
	}

	review, err := h.reviews.ApproveReview(r.Context(), p, id)
	if err != nil {
		handleFieldError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, review)
}

// ListAll includes reviews still awaiting approval.
func (h *ReviewsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	reviews, err := h.reviews.ListAll(r.Context(), p)
	if err != nil {
		handleFieldError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, reviews)
}
