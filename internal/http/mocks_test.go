package http

import (
	"context"
	"sync"

	"github.com/fjod/go_storefront/internal/authz"
	cartsvc "github.com/fjod/go_storefront/internal/cart/service"
	checkoutsvc "github.com/fjod/go_storefront/internal/checkout/service"
	"github.com/fjod/go_storefront/internal/domain"
	ordersvc "github.com/fjod/go_storefront/internal/orders/service"
	recommendsvc "github.com/fjod/go_storefront/internal/recommend/service"
	reviewsvc "github.com/fjod/go_storefront/internal/reviews/service"
	"github.com/google/uuid"
)

type MockCartService struct {
	m        sync.RWMutex
	err      error
	lastUser string
}

func (c *MockCartService) record(userID string) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.lastUser = userID
	return c.err
}

func (c *MockCartService) user() string {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.lastUser
}

func (c *MockCartService) View(_ context.Context, userID string) (*cartsvc.CartView, error) {
	if err := c.record(userID); err != nil {
		return nil, err
	}
	return &cartsvc.CartView{UserID: userID, Lines: []cartsvc.CartLine{}}, nil
}

func (c *MockCartService) AddItem(_ context.Context, userID, productID string, quantity int, _ *domain.Variant) (*domain.Cart, error) {
	if err := c.record(userID); err != nil {
		return nil, err
	}
	return &domain.Cart{UserID: userID, Items: []domain.CartItem{{ProductID: productID, Quantity: quantity}}}, nil
}

func (c *MockCartService) UpdateItem(_ context.Context, userID, _ string, _ domain.ItemPatch) (*domain.Cart, error) {
	if err := c.record(userID); err != nil {
		return nil, err
	}
	return &domain.Cart{UserID: userID}, nil
}

func (c *MockCartService) RemoveItem(_ context.Context, userID, _ string) (*domain.Cart, error) {
	if err := c.record(userID); err != nil {
		return nil, err
	}
	return &domain.Cart{UserID: userID}, nil
}

func (c *MockCartService) Clear(_ context.Context, userID string) (*domain.Cart, error) {
	if err := c.record(userID); err != nil {
		return nil, err
	}
	return &domain.Cart{UserID: userID, Items: []domain.CartItem{}}, nil
}

type MockCheckoutService struct {
	m         sync.RWMutex
	err       error
	guestCart *domain.EphemeralCart
	addressID string
}

func (c *MockCheckoutService) CheckoutUser(_ context.Context, userID, addressID, _ string) (*checkoutsvc.Result, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.addressID = addressID
	if c.err != nil {
		return nil, c.err
	}
	return &checkoutsvc.Result{Order: &domain.Order{ID: uuid.New(), UserID: &userID, Status: domain.OrderStatusPending}}, nil
}

func (c *MockCheckoutService) CheckoutGuest(_ context.Context, guest domain.GuestInfo, _ string, cart *domain.EphemeralCart, _ string) (*checkoutsvc.Result, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.guestCart = cart
	if c.err != nil {
		return nil, c.err
	}
	return &checkoutsvc.Result{Order: &domain.Order{ID: uuid.New(), GuestInfo: &guest, Status: domain.OrderStatusPending}}, nil
}

type MockOrderService struct {
	m          sync.RWMutex
	err        error
	principal  authz.Principal
	listedUser string
	nextStatus domain.OrderStatus
}

func (o *MockOrderService) record(p authz.Principal) error {
	o.m.Lock()
	defer o.m.Unlock()
	o.principal = p
	return o.err
}

func (o *MockOrderService) GetOrder(_ context.Context, p authz.Principal, id uuid.UUID) (*ordersvc.OrderView, error) {
	if err := o.record(p); err != nil {
		return nil, err
	}
	return &ordersvc.OrderView{Order: &domain.Order{ID: id, UserID: &p.UserID}}, nil
}

func (o *MockOrderService) ListByUser(_ context.Context, p authz.Principal, userID string) ([]*ordersvc.OrderView, error) {
	if err := o.record(p); err != nil {
		return nil, err
	}
	o.m.Lock()
	o.listedUser = userID
	o.m.Unlock()
	return []*ordersvc.OrderView{}, nil
}

func (o *MockOrderService) ListAll(_ context.Context, p authz.Principal) ([]*ordersvc.OrderView, error) {
	if err := o.record(p); err != nil {
		return nil, err
	}
	return []*ordersvc.OrderView{}, nil
}

func (o *MockOrderService) UpdateStatus(_ context.Context, p authz.Principal, id uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	if err := o.record(p); err != nil {
		return nil, err
	}
	o.m.Lock()
	o.nextStatus = next
	o.m.Unlock()
	return &domain.Order{ID: id, Status: next}, nil
}

func (o *MockOrderService) DeleteOrder(_ context.Context, p authz.Principal, _ uuid.UUID) error {
	return o.record(p)
}

type MockReviewService struct {
	m         sync.RWMutex
	err       error
	can       bool
	principal authz.Principal
}

func (s *MockReviewService) fail() error {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.err
}

func (s *MockReviewService) CanReview(context.Context, string, string) (bool, error) {
	if err := s.fail(); err != nil {
		return false, err
	}
	return s.can, nil
}

func (s *MockReviewService) CreateReview(_ context.Context, userID, productID string, rating int, comment *string) (*domain.Review, error) {
	if err := s.fail(); err != nil {
		return nil, err
	}
	return &domain.Review{ID: uuid.New(), UserID: userID, ProductID: productID, Rating: rating, Comment: comment}, nil
}

func (s *MockReviewService) UpdateReview(_ context.Context, p authz.Principal, id uuid.UUID, rating int, comment *string) (*domain.Review, error) {
	if err := s.fail(); err != nil {
		return nil, err
	}
	return &domain.Review{ID: id, UserID: p.UserID, Rating: rating, Comment: comment}, nil
}

func (s *MockReviewService) DeleteReview(context.Context, authz.Principal, uuid.UUID) error {
	return s.fail()
}

func (s *MockReviewService) ListByProduct(_ context.Context, productID string) (*reviewsvc.ProductReviews, error) {
	if err := s.fail(); err != nil {
		return nil, err
	}
	return &reviewsvc.ProductReviews{ProductID: productID, Reviews: []*domain.Review{}}, nil
}

func (s *MockReviewService) ApproveReview(_ context.Context, p authz.Principal, id uuid.UUID) (*domain.Review, error) {
	s.m.Lock()
	s.principal = p
	s.m.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	return &domain.Review{ID: id, Rating: 5, Approved: true}, nil
}

func (s *MockReviewService) ListAll(_ context.Context, p authz.Principal) ([]*domain.Review, error) {
	s.m.Lock()
	s.principal = p
	s.m.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	return []*domain.Review{{ID: uuid.New(), Rating: 2}}, nil
}

func (s *MockReviewService) caller() authz.Principal {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.principal
}

type MockRecommendService struct {
	m         sync.RWMutex
	err       error
	lastLimit int
	lastDays  int
}

func (s *MockRecommendService) Popular(_ context.Context, limit int) ([]*domain.Product, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.lastLimit = limit
	return []*domain.Product{}, s.err
}

func (s *MockRecommendService) Recommend(_ context.Context, _ string, limit int) (*recommendsvc.Recommendation, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return &recommendsvc.Recommendation{Source: recommendsvc.SourcePopular, Products: []*domain.Product{}}, nil
}

func (s *MockRecommendService) DashboardStats(context.Context) (*recommendsvc.Stats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &recommendsvc.Stats{DeliveredOrders: 3}, nil
}

func (s *MockRecommendService) DailySales(_ context.Context, days int) ([]recommendsvc.DailySale, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.lastDays = days
	return make([]recommendsvc.DailySale, days), s.err
}

func (s *MockRecommendService) limit() int {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.lastLimit
}
