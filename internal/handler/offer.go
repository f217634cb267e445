package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/cart-offer/internal/domain/offer"
	"github.com/xenking/cart-offer/internal/wire"
)

// AddOffer registers an offer. Unknown offer types are rejected with 400;
// everything else is stored as given.
func (h *Handler) AddOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req wire.OfferRequest
	if err := decodeBody(r, w, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	o, err := req.Offer()
	if err != nil {
		msg := "invalid offer"
		if errors.Is(err, offer.ErrInvalidType) {
			msg = "invalid offer_type: must be FLATX or FLATP"
		}
		writeError(ctx, w, http.StatusBadRequest, msg, err)
		return
	}

	stored := h.offers.Add(o)
	zctx.From(ctx).Info("Offer added",
		zap.String("offer_id", stored.ID),
		zap.Int64("restaurant_id", stored.RestaurantID),
		zap.String("offer_type", string(stored.Type)),
		zap.Int64("offer_value", stored.Value),
		zap.Strings("segments", stored.Segments),
	)

	writeJSON(w, http.StatusOK, wire.APIResponse{ResponseMsg: "success"})
}

// ListOffers returns all offers in registration order.
func (h *Handler) ListOffers(w http.ResponseWriter, _ *http.Request) {
	offers := h.offers.List()

	resp := wire.OfferList{Offers: make([]wire.Offer, len(offers))}
	for i, o := range offers {
		resp.Offers[i] = wire.FromOffer(o)
	}
	writeJSON(w, http.StatusOK, resp)
}
