package service

import (
	"context"
	"strings"

	"github.com/fjod/go_storefront/internal/authz"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/reviews/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderHistory answers whether a user has received a product.
type OrderHistory interface {
	HasDeliveredProduct(ctx context.Context, userID, productID string) (bool, error)
}

// Gate decides who may review what. Eligibility requires a delivered order
// containing the product and no earlier review by the same user.
type Gate struct {
	history OrderHistory
	reviews repository.ReviewRepository
	policy  authz.Policy
	logger  *zap.Logger
}

func NewGate(history OrderHistory, reviews repository.ReviewRepository, policy authz.Policy, logger *zap.Logger) *Gate {
	return &Gate{history: history, reviews: reviews, policy: policy, logger: logger}
}

type ProductReviews struct {
	ProductID string             `json:"product_id"`
	Summary   repository.Summary `json:"summary"`
	Reviews   []*domain.Review   `json:"reviews"`
}

func (g *Gate) CanReview(ctx context.Context, userID, productID string) (bool, error) {
	if userID == "" {
		return false, domain.ErrInvalidUserID
	}
	if !domain.ValidID(productID) {
		return false, domain.ErrInvalidProductID
	}

	purchased, err := g.history.HasDeliveredProduct(ctx, userID, productID)
	if err != nil || !purchased {
		return false, err
	}
	reviewed, err := g.reviews.Exists(ctx, userID, productID)
	if err != nil {
		return false, err
	}
	return !reviewed, nil
}

// CreateReview checks both eligibility conditions itself. A delivered order
// is terminal, so the purchase check cannot be invalidated before the
// insert; the duplicate check is the insert itself.
func (g *Gate) CreateReview(ctx context.Context, userID, productID string, rating int, comment *string) (*domain.Review, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if !domain.ValidID(productID) {
		return nil, domain.ErrInvalidProductID
	}
	if err := domain.ValidateRating(rating); err != nil {
		return nil, err
	}

	purchased, err := g.history.HasDeliveredProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !purchased {
		return nil, domain.ErrUnpurchased
	}

	review := &domain.Review{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Rating:    rating,
		Comment:   normalizeComment(comment),
	}
	if err := g.reviews.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	g.logger.Info("review created",
		zap.String("review_id", review.ID.String()),
		zap.String("user_id", userID),
		zap.String("product_id", productID),
		zap.Int("rating", rating),
	)
	return review, nil
}

func (g *Gate) UpdateReview(ctx context.Context, p authz.Principal, id uuid.UUID, rating int, comment *string) (*domain.Review, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return nil, err
	}
	if _, err := g.authorize(ctx, p, id); err != nil {
		return nil, err
	}
	return g.reviews.UpdateReview(ctx, id, rating, normalizeComment(comment))
}

func (g *Gate) DeleteReview(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	review, err := g.authorize(ctx, p, id)
	if err != nil {
		return err
	}
	if err := g.reviews.DeleteReview(ctx, id); err != nil {
		return err
	}
	g.logger.Info("review deleted",
		zap.String("review_id", id.String()),
		zap.String("author", review.UserID),
		zap.String("by", p.UserID),
	)
	return nil
}

func (g *Gate) ListByProduct(ctx context.Context, productID string) (*ProductReviews, error) {
	if !domain.ValidID(productID) {
		return nil, domain.ErrInvalidProductID
	}
	reviews, err := g.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	summary, err := g.reviews.Summarize(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &ProductReviews{ProductID: productID, Summary: summary, Reviews: reviews}, nil
}

// ApproveReview publishes a review on its product listing. Admin only.
func (g *Gate) ApproveReview(ctx context.Context, p authz.Principal, id uuid.UUID) (*domain.Review, error) {
	if err := authz.RequireAdmin(g.policy, p); err != nil {
		return nil, err
	}
	review, err := g.reviews.ApproveReview(ctx, id)
	if err != nil {
		return nil, err
	}
	g.logger.Info("review approved",
		zap.String("review_id", id.String()),
		zap.String("product_id", review.ProductID),
		zap.String("by", p.UserID),
	)
	return review, nil
}

// ListAll is the moderation queue view: every review, approved or not.
func (g *Gate) ListAll(ctx context.Context, p authz.Principal) ([]*domain.Review, error) {
	if err := authz.RequireAdmin(g.policy, p); err != nil {
		return nil, err
	}
	return g.reviews.ListAll(ctx)
}

// authorize loads the review and checks ownership before any mutation.
func (g *Gate) authorize(ctx context.Context, p authz.Principal, id uuid.UUID) (*domain.Review, error) {
	review, err := g.reviews.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.policy.CanAccess(p, review.UserID) {
		return nil, domain.ErrNotReviewAuthor
	}
	return review, nil
}

func normalizeComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	c := strings.TrimSpace(*comment)
	if c == "" {
		return nil
	}
	return &c
}
