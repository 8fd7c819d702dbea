package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/authz"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/inventory/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	handler   http.Handler
	auth      *Authenticator
	cart      *MockCartService
	checkout  *MockCheckoutService
	orders    *MockOrderService
	reviews   *MockReviewService
	recommend *MockRecommendService
	ledger    *store.MemoryStore
}

var (
	alice = authz.Principal{UserID: "alice", Role: authz.RoleUser}
	admin = authz.Principal{UserID: "root", Role: authz.RoleAdmin}
)

func newTestServer() *testServer {
	ts := &testServer{
		auth:      NewAuthenticator("test-secret"),
		cart:      &MockCartService{},
		checkout:  &MockCheckoutService{},
		orders:    &MockOrderService{},
		reviews:   &MockReviewService{},
		recommend: &MockRecommendService{},
		ledger:    store.NewMemoryStore(),
	}
	logger := zap.NewNop()
	ts.handler = NewRouter(Handlers{
		Cart:      NewCartHandler(ts.cart, logger, 1<<20),
		Checkout:  NewCheckoutHandler(ts.checkout, logger, 1<<20),
		Orders:    NewOrdersHandler(ts.orders, logger, 1<<20),
		Reviews:   NewReviewsHandler(ts.reviews, logger, 1<<20),
		Recommend: NewRecommendHandler(ts.recommend, logger),
		Admin:     NewAdminHandler(ts.recommend, ts.ledger, authz.RolePolicy{}, logger, 1<<20),
	}, ts.auth, 5*time.Second)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, as *authz.Principal, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if as != nil {
		token, err := ts.auth.IssueToken(*as, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAuth(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/cart", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Code)

	expired, err := ts.auth.IssueToken(alice, -time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := NewAuthenticator("other-secret").IssueToken(admin, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticator_ParsesPrincipal(t *testing.T) {
	auth := NewAuthenticator("s3cret")
	token, err := auth.IssueToken(admin, time.Hour)
	require.NoError(t, err)

	p, err := auth.parse("Bearer " + token)

	require.NoError(t, err)
	assert.Equal(t, admin, p)

	_, err = auth.parse("Basic abc")
	assert.ErrorIs(t, err, errMalformedAuth)
}

func TestGetCart(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/cart", &alice, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", ts.cart.user())
}

func TestAddItem_FieldLevelValidation(t *testing.T) {
	ts := newTestServer()
	ts.cart.err = domain.ErrInvalidQuantity

	rec := ts.do(t, http.MethodPost, "/api/v1/cart/items", &alice,
		AddItemRequestDTO{ProductID: uuid.NewString(), Quantity: 0})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "validation_error", resp.Code)
	assert.Equal(t, "quantity", resp.Field)
}

func TestAddItem_InvalidJSON(t *testing.T) {
	ts := newTestServer()
	token, err := ts.auth.IssueToken(alice, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartMutations(t *testing.T) {
	ts := newTestServer()
	productID := uuid.NewString()
	qty := 2

	rec := ts.do(t, http.MethodPost, "/api/v1/cart/items", &alice, AddItemRequestDTO{ProductID: productID, Quantity: 1})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/v1/cart/items/"+productID, &alice, domain.ItemPatch{Quantity: &qty})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/cart/items/"+productID, &alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/cart", &alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckout_OrderErrorsAreTopLevel(t *testing.T) {
	ts := newTestServer()
	ts.checkout.err = domain.ErrInvalidQuantity

	rec := ts.do(t, http.MethodPost, "/api/v1/checkout", &alice, CheckoutRequestDTO{AddressID: "a1"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, decodeError(t, rec).Field)
}

func TestCheckout_Success(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/checkout", &alice, CheckoutRequestDTO{AddressID: "a1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "a1", ts.checkout.addressID)
}

func TestGuestCheckout_MergesLinesWithoutAuth(t *testing.T) {
	ts := newTestServer()
	productID := uuid.NewString()

	rec := ts.do(t, http.MethodPost, "/api/v1/checkout/guest", nil, GuestCheckoutRequestDTO{
		GuestInfo:       domain.GuestInfo{FirstName: "Ada", LastName: "L", Email: "a@b.c", Phone: "1"},
		ShippingAddress: "London",
		Items: []AddItemRequestDTO{
			{ProductID: productID, Quantity: 1},
			{ProductID: productID, Quantity: 2},
		},
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, ts.checkout.guestCart)
	require.Len(t, ts.checkout.guestCart.Items, 1)
	assert.Equal(t, 3, ts.checkout.guestCart.Items[0].Quantity)

	rec = ts.do(t, http.MethodPost, "/api/v1/checkout/guest", nil, GuestCheckoutRequestDTO{
		Items: []AddItemRequestDTO{{ProductID: productID, Quantity: -1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrders_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not owner", domain.ErrNotOrderOwner, http.StatusForbidden, "forbidden"},
		{"missing", domain.ErrOrderNotFound, http.StatusNotFound, "not_found"},
		{"transition", domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{"stock", store.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.orders.err = tt.err

			rec := ts.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), &alice, nil)

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotContains(t, resp.Error, "pq:")
		})
	}
}

func TestOrders_Routes(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid", &alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/orders", &alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", ts.orders.listedUser)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/bob/orders", &admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", ts.orders.listedUser)

	rec = ts.do(t, http.MethodPatch, "/api/v1/admin/orders/"+uuid.NewString()+"/status", &admin,
		UpdateStatusRequestDTO{Status: "shipped"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.OrderStatusShipped, ts.orders.nextStatus)
	assert.Equal(t, admin, ts.orders.principal)

	rec = ts.do(t, http.MethodDelete, "/api/v1/admin/orders/"+uuid.NewString(), &admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetOrder_AnonymousReachesService(t *testing.T) {
	ts := newTestServer()
	ts.orders.err = domain.ErrOrderNotFound

	rec := ts.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, ts.orders.principal.Anonymous())
}

func TestReviews_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"unpurchased", domain.ErrUnpurchased, http.StatusForbidden, "unpurchased", ""},
		{"duplicate", domain.ErrDuplicateReview, http.StatusConflict, "duplicate_review", ""},
		{"rating", domain.ErrInvalidRating, http.StatusBadRequest, "validation_error", "rating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.reviews.err = tt.err

			rec := ts.do(t, http.MethodPost, "/api/v1/reviews", &alice,
				CreateReviewRequestDTO{ProductID: uuid.NewString(), Rating: 5})

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.field, resp.Field)
		})
	}
}

func TestReviews_Routes(t *testing.T) {
	ts := newTestServer()
	ts.reviews.can = true
	productID := uuid.NewString()

	rec := ts.do(t, http.MethodGet, "/api/v1/reviews/can-review/"+productID, &alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var can map[string]bool
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&can))
	assert.True(t, can["can_review"])

	rec = ts.do(t, http.MethodPost, "/api/v1/reviews", &alice, CreateReviewRequestDTO{ProductID: productID, Rating: 4})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/reviews/product/"+productID, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/v1/reviews/"+uuid.NewString(), &alice, UpdateReviewRequestDTO{Rating: 3})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/reviews/bad-id", &alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/reviews/"+uuid.NewString(), &alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestReviews_Moderation(t *testing.T) {
	ts := newTestServer()
	reviewID := uuid.New()

	rec := ts.do(t, http.MethodPatch, "/api/v1/reviews/"+reviewID.String()+"/approve", &admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var approved domain.Review
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&approved))
	assert.Equal(t, reviewID, approved.ID)
	assert.True(t, approved.Approved)
	assert.Equal(t, admin, ts.reviews.caller())

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/reviews", &admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []domain.Review
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	assert.Len(t, all, 1)

	rec = ts.do(t, http.MethodPatch, "/api/v1/reviews/bad-id/approve", &admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/v1/reviews/"+reviewID.String()+"/approve", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ts.reviews.err = domain.ErrAdminOnly
	rec = ts.do(t, http.MethodPatch, "/api/v1/reviews/"+reviewID.String()+"/approve", &alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/v1/admin/reviews", &alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ts.reviews.err = domain.ErrReviewNotFound
	rec = ts.do(t, http.MethodPatch, "/api/v1/reviews/"+reviewID.String()+"/approve", &admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecommendations_Limits(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/recommendations/popular", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, ts.recommend.limit())

	rec = ts.do(t, http.MethodGet, "/api/v1/recommendations/together/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, ts.recommend.limit())

	rec = ts.do(t, http.MethodGet, "/api/v1/recommendations/popular?limit=3", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, ts.recommend.limit())

	for _, bad := range []string{"0", "-2", "abc", "1000"} {
		rec = ts.do(t, http.MethodGet, "/api/v1/recommendations/popular?limit="+bad, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestAdmin_RequiresAdminRole(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/admin/stats", &alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/stats", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/stats", &admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/sales?days=7", &admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var sales []json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sales))
	assert.Len(t, sales, 7)
}

func TestAdmin_SetStock(t *testing.T) {
	ts := newTestServer()
	productID := uuid.NewString()

	rec := ts.do(t, http.MethodPut, "/api/v1/admin/stock/"+productID, &admin, SetStockRequestDTO{Quantity: 12})
	require.Equal(t, http.StatusOK, rec.Code)
	levels, err := ts.ledger.Stock(context.Background(), []string{productID})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, 12, levels[0].Quantity)

	rec = ts.do(t, http.MethodPut, "/api/v1/admin/stock/"+productID, &admin, SetStockRequestDTO{Quantity: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/v1/admin/stock/"+productID, &alice, SetStockRequestDTO{Quantity: 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
