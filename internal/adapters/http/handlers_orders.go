package http

import (
	"net/http"
	"time"

	"github.com/evibes/commerce/internal/application"
)

func (h *Handler) currentOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.CurrentOrder(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeMappedError(r.Context(), w, "current_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.Orders(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeMappedError(r.Context(), w, "list_orders", err)
		return
	}
	writeSuccess(w, http.StatusOK, orders)
}

// order resolves either an order uuid or a human-readable id.
func (h *Handler) order(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Order(r.Context(), actorFromContext(r.Context()), pathParam(r, "order_ref"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, order)
}

func (h *Handler) addOrderProduct(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "order_id")
	if err != nil {
		writeValidationError(r.Context(), w, "add_order_product", err)
		return
	}
	var req application.BasketItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "add_order_product", err)
		return
	}

	order, err := h.service.AddProduct(r.Context(), actorFromContext(r.Context()), orderID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "add_order_product", err)
		return
	}
	writeSuccess(w, http.StatusOK, order)
}

func (h *Handler) removeOrderProduct(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "order_id")
	if err != nil {
		writeValidationError(r.Context(), w, "remove_order_product", err)
		return
	}
	var req application.BasketItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "remove_order_product", err)
		return
	}

	order, err := h.service.RemoveProduct(r.Context(), actorFromContext(r.Context()), orderID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "remove_order_product", err)
		return
	}
	writeSuccess(w, http.StatusOK, order)
}

func (h *Handler) removeOrderProducts(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "order_id")
	if err != nil {
		writeValidationError(r.Context(), w, "remove_order_products", err)
		return
	}
	var req application.BasketItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "remove_order_products", err)
		return
	}

	order, err := h.service.RemoveProductsOfAKind(r.Context(), actorFromContext(r.Context()), orderID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "remove_order_products", err)
		return
	}
	writeSuccess(w, http.StatusOK, order)
}

func (h *Handler) removeAllOrderProducts(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "order_id")
	if err != nil {
		writeValidationError(r.Context(), w, "remove_all_order_products", err)
		return
	}

	order, err := h.service.RemoveAllProducts(r.Context(), actorFromContext(r.Context()), orderID)
	if err != nil {
		writeMappedError(r.Context(), w, "remove_all_order_products", err)
		return
	}
	writeSuccess(w, http.StatusOK, order)
}

func (h *Handler) buy(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "order_id")
	if err != nil {
		writeValidationError(r.Context(), w, "buy", err)
		return
	}
	var req application.BuyRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "buy", err)
		return
	}

	outcome, err := h.service.Buy(r.Context(), actorFromContext(r.Context()), orderID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "buy", err)
		return
	}
	// A balance purchase completes in-place; a gateway purchase hands back an
	// open transaction the caller must redirect to.
	if outcome.Pending != nil {
		writeSuccess(w, http.StatusAccepted, outcome)
		return
	}
	writeSuccess(w, http.StatusOK, outcome)
}

// Unregistered purchases are rate limited per caller address: each momental
// order opens a gateway session, so bursts hit the payment provider directly.
const (
	unregisteredBuyLimit  = 2
	unregisteredBuyWindow = time.Hour
)

func (h *Handler) buyUnregistered(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil {
		allowed, err := h.limiter.Allow(r.Context(), "buy_unregistered:"+readIP(r), unregisteredBuyLimit, unregisteredBuyWindow)
		if err == nil && !allowed {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many purchase attempts")
			return
		}
	}

	var req application.UnregisteredBuyRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "buy_unregistered", err)
		return
	}

	outcome, err := h.service.BuyWithoutRegistration(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "buy_unregistered", err)
		return
	}
	writeSuccess(w, http.StatusAccepted, outcome)
}

func (h *Handler) returnBalanceBack(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathUUID(r, "line_id")
	if err != nil {
		writeValidationError(r.Context(), w, "return_balance_back", err)
		return
	}

	credited, amount, err := h.service.ReturnBalanceBack(r.Context(), actorFromContext(r.Context()), lineID)
	if err != nil {
		writeMappedError(r.Context(), w, "return_balance_back", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"credited": credited,
		"amount":   amount,
	})
}
