package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidLimit = fmt.Errorf("%w: limit must be a positive integer", domain.ErrValidation)
	ErrInvalidDays  = fmt.Errorf("%w: days must be between 1 and %d", domain.ErrValidation, MaxDays)
)

const MaxDays = 366

// historyLoadTimeout bounds one shared scan of the order history.
const historyLoadTimeout = 30 * time.Second

type OrderSource interface {
	ListOrders(ctx context.Context) ([]*domain.Order, error)
}

type ProductResolver interface {
	GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error)
}

// Aggregator derives rankings and sales figures from the full order history.
// Nothing is maintained incrementally; every call rescans the orders, and
// concurrent callers share one scan.
type Aggregator struct {
	orders   OrderSource
	products ProductResolver
	logger   *zap.Logger
	sfg      singleflight.Group
	now      func() time.Time
}

func NewAggregator(orders OrderSource, products ProductResolver, logger *zap.Logger) *Aggregator {
	return &Aggregator{orders: orders, products: products, logger: logger, now: time.Now}
}

// Source of a recommendation list.
const (
	SourceTogether = "together"
	SourcePopular  = "popular"
)

type Recommendation struct {
	Source   string            `json:"source"`
	Products []*domain.Product `json:"products"`
}

type ranked struct {
	id    string
	score int
}

// loadOrders shares one scan between concurrent callers. The scan runs on a
// context detached from whichever caller started it, so one caller going away
// does not fail the others; each caller still stops waiting on its own ctx.
func (a *Aggregator) loadOrders(ctx context.Context) ([]*domain.Order, error) {
	ch := a.sfg.DoChan("orders", func() (interface{}, error) {
		scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyLoadTimeout)
		defer cancel()
		return a.orders.ListOrders(scanCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to load order history: %w", res.Err)
		}
		return res.Val.([]*domain.Order), nil
	}
}

// Popular ranks products by total quantity ordered across orders of every
// status.
func (a *Aggregator) Popular(ctx context.Context, limit int) ([]*domain.Product, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	orders, err := a.loadOrders(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, o := range orders {
		for _, item := range o.Items {
			counts[item.ProductID] += item.Quantity
		}
	}
	return a.resolve(ctx, rank(counts), limit)
}

// TogetherWith ranks products by the number of orders they share with
// productID. Each order counts a co-occurring product once, however many
// lines it has.
func (a *Aggregator) TogetherWith(ctx context.Context, productID string, limit int) ([]*domain.Product, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if !domain.ValidID(productID) {
		return nil, domain.ErrInvalidProductID
	}
	orders, err := a.loadOrders(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, o := range orders {
		if !o.Contains(productID) {
			continue
		}
		seen := make(map[string]struct{}, len(o.Items))
		for _, item := range o.Items {
			if item.ProductID == productID {
				continue
			}
			if _, ok := seen[item.ProductID]; ok {
				continue
			}
			seen[item.ProductID] = struct{}{}
			counts[item.ProductID]++
		}
	}
	return a.resolve(ctx, rank(counts), limit)
}

// Recommend returns products bought together with productID, or the popular
// list when there are none or they cannot be computed.
func (a *Aggregator) Recommend(ctx context.Context, productID string, limit int) (*Recommendation, error) {
	together, err := a.TogetherWith(ctx, productID, limit)
	if err != nil {
		a.logger.Warn("together-with unavailable, falling back to popular",
			zap.String("product_id", productID),
			zap.Error(err),
		)
	}
	if err == nil && len(together) > 0 {
		return &Recommendation{Source: SourceTogether, Products: together}, nil
	}

	// one extra so dropping the product itself still leaves limit entries
	popular, err := a.Popular(ctx, limit+1)
	if err != nil {
		return nil, err
	}
	popular = slices.DeleteFunc(popular, func(p *domain.Product) bool { return p.ID == productID })
	if len(popular) > limit {
		popular = popular[:limit]
	}
	return &Recommendation{Source: SourcePopular, Products: popular}, nil
}

// rank orders by score descending, then id ascending.
func rank(counts map[string]int) []ranked {
	out := make([]ranked, 0, len(counts))
	for id, score := range counts {
		out = append(out, ranked{id: id, score: score})
	}
	slices.SortFunc(out, func(x, y ranked) int {
		if c := cmp.Compare(y.score, x.score); c != 0 {
			return c
		}
		return strings.Compare(x.id, y.id)
	})
	return out
}

// resolve maps ranked ids to catalog records in rank order, skipping ids the
// catalog no longer knows, until limit products are collected.
func (a *Aggregator) resolve(ctx context.Context, ranking []ranked, limit int) ([]*domain.Product, error) {
	ids := make([]string, len(ranking))
	for i, r := range ranking {
		ids[i] = r.id
	}
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}

	products, err := a.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ranked products: %w", err)
	}

	out := make([]*domain.Product, 0, min(limit, len(ids)))
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		if p, ok := products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
