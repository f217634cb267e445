package handler

import (
	"net/http"

	"github.com/xenking/cart-offer/internal/domain/cart"
	"github.com/xenking/cart-offer/internal/wire"
)

// ApplyOffer applies the first matching offer to the cart value. Apart from
// malformed bodies it always answers 200.
func (h *Handler) ApplyOffer(w http.ResponseWriter, r *http.Request) {
	var req wire.ApplyOfferRequest
	if err := decodeBody(r, w, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result := h.carts.ApplyOffer(r.Context(), cart.ApplyOfferRequest{
		CartValue:    req.CartValue,
		UserID:       req.UserID,
		RestaurantID: req.RestaurantID,
	})

	writeJSON(w, http.StatusOK, wire.ApplyOfferResponse{CartValue: result.CartValue})
}
