package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers the commerce HTTP routes and middleware stack.
// Callback and unregistered purchase endpoints stay outside the auth group:
// the gateway and anonymous buyers carry no bearer token.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/commerce/v1", func(r chi.Router) {
		r.Post("/users/register", handler.registerUser)
		r.Get("/products/{product_id}", handler.product)
		r.Get("/promocodes/{code}", handler.promoCode)

		r.Post("/orders/buy_unregistered", handler.buyUnregistered)
		r.Post("/payments/{transaction_id}/callback/{gateway}", handler.paymentCallback)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)

			r.Get("/users/me", handler.me)
			r.Get("/wishlist", handler.wishlist)
			r.Post("/wishlist", handler.addToWishlist)
			r.Delete("/wishlist", handler.removeFromWishlist)

			r.Get("/orders", handler.listOrders)
			r.Get("/orders/current", handler.currentOrder)
			r.Get("/orders/{order_ref}", handler.order)
			r.Post("/orders/{order_id}/add_order_product", handler.addOrderProduct)
			r.Post("/orders/{order_id}/remove_order_product", handler.removeOrderProduct)
			r.Post("/orders/{order_id}/remove_order_products", handler.removeOrderProducts)
			r.Post("/orders/{order_id}/remove_all", handler.removeAllOrderProducts)
			r.Post("/orders/{order_id}/buy", handler.buy)

			r.Post("/payments/deposit", handler.deposit)
			r.Get("/payments/transactions", handler.listTransactions)

			r.Group(func(r chi.Router) {
				r.Use(handler.staffMiddleware)
				r.Post("/orders/lines/{line_id}/return_balance", handler.returnBalanceBack)
				r.Post("/admin/catalog/resolve", handler.resolveCatalogRefs)
				r.Post("/admin/config/reload", handler.reloadConfig)
			})
		})
	})

	return r
}

func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
