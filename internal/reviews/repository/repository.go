package repository

import (
	"context"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrReviewNotFound  = domain.ErrReviewNotFound
	ErrDuplicateReview = domain.ErrDuplicateReview
)

const MigrationsTable = "reviews_schema_migrations"

// Summary aggregates the ratings of one product.
type Summary struct {
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"average"`
}

type ReviewRepository interface {
	// CreateReview inserts the review unless the user already reviewed the
	// product, in which case it returns ErrDuplicateReview.
	CreateReview(ctx context.Context, review *domain.Review) error
	GetReview(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	Exists(ctx context.Context, userID, productID string) (bool, error)
	// UpdateReview also clears the approval flag.
	UpdateReview(ctx context.Context, id uuid.UUID, rating int, comment *string) (*domain.Review, error)
	ApproveReview(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	DeleteReview(ctx context.Context, id uuid.UUID) error
	// ListByProduct and Summarize see approved reviews only.
	ListByProduct(ctx context.Context, productID string) ([]*domain.Review, error)
	Summarize(ctx context.Context, productID string) (Summary, error)
	ListAll(ctx context.Context) ([]*domain.Review, error)
}
