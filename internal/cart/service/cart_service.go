package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/cart/cache"
	"github.com/fjod/go_storefront/internal/cart/repository"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProductResolver resolves catalog records for display.
type ProductResolver interface {
	GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error)
}

const cartLoadTimeout = 5 * time.Second

type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	products ProductResolver
	logger   *zap.Logger
	sfg      singleflight.Group // Prevents cache stampede
	now      func() time.Time
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, products ProductResolver, logger *zap.Logger) *CartService {
	return &CartService{
		repo:     repo,
		cache:    cache,
		products: products,
		logger:   logger,
		now:      time.Now,
	}
}

// CartLine is a cart item with its product resolved. Product is nil when the
// catalog no longer knows the id.
type CartLine struct {
	domain.CartItem
	Product *domain.Product `json:"product,omitempty"`
}

type CartView struct {
	UserID    string          `json:"user_id"`
	Lines     []CartLine      `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// GetCart returns the user's cart, creating an empty one on first access.
// Lines with malformed product ids are dropped and the cleaned cart is saved.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key.
	// The load is detached from the caller that started it so joiners are not
	// failed by that caller's cancellation.
	ch := s.sfg.DoChan(userID, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cartLoadTimeout)
		defer cancel()

		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("user_id", userID), zap.Error(err))
		}

		cart, err = s.repo.GetCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			cart = &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
			if err := s.repo.UpsertCart(ctx, cart); err != nil {
				return nil, err
			}
			return cart, nil
		}
		if err != nil {
			return nil, err
		}

		if dropped := cart.DropInvalid(domain.ValidID); len(dropped) > 0 {
			s.logger.Warn("dropped cart lines with invalid product reference",
				zap.String("user_id", userID),
				zap.Int("dropped", len(dropped)),
			)
			if err := s.repo.UpsertCart(ctx, cart); err != nil {
				// the read still succeeds; the next read retries the cleanup
				s.logger.Warn("failed to persist cleaned cart", zap.String("user_id", userID), zap.Error(err))
				return cart, nil
			}
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(ctx, userID, cart); err != nil {
				s.logger.Warn("cache set failed", zap.String("user_id", userID), zap.Error(err))
			}
		}()

		return cart, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	// callers sharing a flight must not share the slice
	return cloneCart(res.Val.(*domain.Cart)), nil
}

func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int, variant *domain.Variant) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		return cart.AddItem(productID, quantity, variant, s.now())
	})
}

func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, patch domain.ItemPatch) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		return cart.UpdateItem(productID, patch)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		cart.RemoveItem(productID)
		return nil
	})
}

func (s *CartService) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		cart.Clear()
		return nil
	})
}

// View resolves every line's product for display.
func (s *CartService) View(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cart products: %w", err)
	}

	view := &CartView{
		UserID:    cart.UserID,
		Lines:     make([]CartLine, 0, len(cart.Items)),
		Total:     decimal.Zero,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		line := CartLine{CartItem: item, Product: products[item.ProductID]}
		view.ItemCount += item.Quantity
		if line.Product != nil {
			view.Total = view.Total.Add(line.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		view.Lines = append(view.Lines, line)
	}
	return view, nil
}

// mutate is a read-modify-write of the whole cart document. The cart is only
// persisted when apply succeeds, so a rejected change never creates a cart.
func (s *CartService) mutate(ctx context.Context, userID string, apply func(*domain.Cart) error) (*domain.Cart, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}

	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		cart = &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
	} else if err != nil {
		return nil, err
	}

	cart.DropInvalid(domain.ValidID)
	if err := apply(cart); err != nil {
		return nil, err
	}

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		s.logger.Error("failed to save cart", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.invalidateCache(userID)
	return cart, nil
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func cloneCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = append([]domain.CartItem(nil), c.Items...)
	if out.Items == nil {
		out.Items = []domain.CartItem{}
	}
	return &out
}
