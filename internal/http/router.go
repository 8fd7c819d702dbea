package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Cart      *CartHandler
	Checkout  *CheckoutHandler
	Orders    *OrdersHandler
	Reviews   *ReviewsHandler
	Recommend *RecommendHandler
	Admin     *AdminHandler
}

func NewRouter(h Handlers, auth *Authenticator, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(auth.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Patch("/items/{product_id}", h.Cart.UpdateItem)
			r.Delete("/items/{product_id}", h.Cart.RemoveItem)
		})

		r.Post("/checkout", h.Checkout.Checkout)
		r.Post("/checkout/guest", h.Checkout.GuestCheckout)

		r.Get("/orders", h.Orders.ListMine)
		r.Get("/orders/{order_id}", h.Orders.GetOrder)
		r.Get("/users/{user_id}/orders", h.Orders.ListByUser)

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", h.Reviews.CreateReview)
			r.Get("/can-review/{product_id}", h.Reviews.CanReview)
			r.Get("/product/{product_id}", h.Reviews.ListByProduct)
			r.Patch("/{review_id}", h.Reviews.UpdateReview)
			r.Delete("/{review_id}", h.Reviews.DeleteReview)
			r.Patch("/{review_id}/approve", h.Reviews.ApproveReview)
		})

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/popular", h.Recommend.Popular)
			r.Get("/together/{product_id}", h.Recommend.Together)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/orders", h.Orders.ListAll)
			r.Patch("/orders/{order_id}/status", h.Orders.UpdateStatus)
			r.Delete("/orders/{order_id}", h.Orders.DeleteOrder)
			r.Get("/reviews", h.Reviews.ListAll)
			r.Get("/stats", h.Admin.Stats)
			r.Get("/sales", h.Admin.Sales)
			r.Put("/stock/{product_id}", h.Admin.SetStock)
		})
	})

	return r
}
