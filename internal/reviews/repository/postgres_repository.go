package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const reviewColumns = `id, user_id, product_id, rating, comment, is_approved, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(s rowScanner) (*domain.Review, error) {
	var review domain.Review
	err := s.Scan(
		&review.ID,
		&review.UserID,
		&review.ProductID,
		&review.Rating,
		&review.Comment,
		&review.Approved,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// CreateReview relies on the (user_id, product_id) unique key: a conflicting
// insert writes nothing and returns no row.
func (r *Repository) CreateReview(ctx context.Context, review *domain.Review) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO reviews (id, user_id, product_id, rating, comment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 ON CONFLICT (user_id, product_id) DO NOTHING
		 RETURNING created_at, updated_at`,
		review.ID, review.UserID, review.ProductID, review.Rating, review.Comment,
	).Scan(&review.CreatedAt, &review.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuplicateReview
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *Repository) GetReview(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query review: %w", err)
	}
	return review, nil
}

func (r *Repository) Exists(ctx context.Context, userID, productID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND product_id = $2)`,
		userID, productID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query review existence: %w", err)
	}
	return exists, nil
}

// UpdateReview withdraws approval: edited content goes back to moderation.
func (r *Repository) UpdateReview(ctx context.Context, id uuid.UUID, rating int, comment *string) (*domain.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx,
		`UPDATE reviews SET rating = $2, comment = $3, is_approved = FALSE, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+reviewColumns,
		id, rating, comment))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	return review, nil
}

func (r *Repository) ApproveReview(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx,
		`UPDATE reviews SET is_approved = TRUE, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+reviewColumns,
		id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("approve review: %w", err)
	}
	return review, nil
}

func (r *Repository) DeleteReview(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if n == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// ListByProduct returns the product's approved reviews, newest first.
func (r *Repository) ListByProduct(ctx context.Context, productID string) ([]*domain.Review, error) {
	return r.list(ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE product_id = $1 AND is_approved
		 ORDER BY created_at DESC, id`,
		productID)
}

// ListAll returns every review regardless of moderation state, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]*domain.Review, error) {
	return r.list(ctx, `SELECT `+reviewColumns+` FROM reviews ORDER BY created_at DESC, id`)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*domain.Review{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return reviews, nil
}

// Summarize counts approved reviews only.
func (r *Repository) Summarize(ctx context.Context, productID string) (Summary, error) {
	var s Summary
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(ROUND(AVG(rating), 2), 0)
		 FROM reviews WHERE product_id = $1 AND is_approved`,
		productID,
	).Scan(&s.Count, &s.Average)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize reviews: %w", err)
	}
	return s, nil
}
