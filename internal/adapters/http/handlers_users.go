package http

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/application"
)

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register_user", err)
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "register_user", err)
		return
	}
	writeSuccess(w, http.StatusCreated, user)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	user, err := h.service.GetUser(r.Context(), actor, actor.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_user", err)
		return
	}
	writeSuccess(w, http.StatusOK, user)
}

func (h *Handler) product(w http.ResponseWriter, r *http.Request) {
	productID, err := pathUUID(r, "product_id")
	if err != nil {
		writeValidationError(r.Context(), w, "get_product", err)
		return
	}

	product, err := h.service.Product(r.Context(), productID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_product", err)
		return
	}
	writeSuccess(w, http.StatusOK, product)
}

func (h *Handler) wishlist(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Wishlist(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeMappedError(r.Context(), w, "get_wishlist", err)
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

type wishlistRequest struct {
	ProductIDs []uuid.UUID `json:"product_uuids"`
}

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request) {
	var req wishlistRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "add_to_wishlist", err)
		return
	}

	view, err := h.service.AddToWishlist(r.Context(), actorFromContext(r.Context()), req.ProductIDs)
	if err != nil {
		writeMappedError(r.Context(), w, "add_to_wishlist", err)
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	var req wishlistRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "remove_from_wishlist", err)
		return
	}

	view, err := h.service.RemoveFromWishlist(r.Context(), actorFromContext(r.Context()), req.ProductIDs)
	if err != nil {
		writeMappedError(r.Context(), w, "remove_from_wishlist", err)
		return
	}
	writeSuccess(w, http.StatusOK, view)
}
