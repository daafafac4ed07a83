package http

import (
	"io"
	"net/http"

	"github.com/evibes/commerce/internal/application"
)

// deposit opens a gateway session for a balance top-up and sends the caller
// to the hosted checkout page with a 303.
func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	var req application.DepositRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "deposit", err)
		return
	}

	txn, err := h.service.Deposit(r.Context(), actorFromContext(r.Context()), req)
	if err != nil {
		writeMappedError(r.Context(), w, "deposit", err)
		return
	}

	redirectURL, _ := txn.Process["redirect_url"].(string)
	if redirectURL == "" {
		writeSuccess(w, http.StatusOK, txn)
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusSeeOther)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 20)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

	transactions, err := h.service.Transactions(r.Context(), actorFromContext(r.Context()), limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "list_transactions", err)
		return
	}
	writeSuccess(w, http.StatusOK, transactions)
}

func (h *Handler) promoCode(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.PromoCode(r.Context(), pathParam(r, "code"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_promocode", err)
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

// paymentCallback is the server-to-server settlement notification. The body
// is passed to the gateway's decoder untouched; repeat deliveries settle once.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	transactionID, err := pathUUID(r, "transaction_id")
	if err != nil {
		writeValidationError(r.Context(), w, "payment_callback", err)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeValidationError(r.Context(), w, "payment_callback", err)
		return
	}

	if err := h.service.HandleCallback(r.Context(), pathParam(r, "gateway"), transactionID, payload); err != nil {
		writeMappedError(r.Context(), w, "payment_callback", err)
		return
	}
	writeMessage(w, http.StatusOK, "settled")
}
