package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/cart-offer/internal/domain/cart"
	"github.com/xenking/cart-offer/internal/domain/offer"
	"github.com/xenking/cart-offer/internal/wire"
	"github.com/xenking/cart-offer/pkg/httpmiddleware"
)

const maxBodyBytes = 1 << 20

// OfferStore stores offers in insertion order.
type OfferStore interface {
	Add(o offer.Offer) offer.Offer
	List() []offer.Offer
}

// CartService applies offers to carts.
type CartService interface {
	ApplyOffer(ctx context.Context, req cart.ApplyOfferRequest) cart.ApplyOfferResult
}

// Handler serves the cart offer API, delegating to the offer store and the
// cart service.
type Handler struct {
	offers OfferStore
	carts  CartService
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(offers OfferStore, carts CartService) *Handler {
	return &Handler{
		offers: offers,
		carts:  carts,
	}
}

// Routes mounts the API under /api/v1.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/offer", h.AddOffer)
		r.Get("/offer", h.ListOffers)
		r.Post("/cart/apply_offer", h.ApplyOffer)
	})
}

type decoder interface {
	Decode(d *jx.Decoder) error
}

type encoder interface {
	Encode(e *jx.Encoder)
}

// decodeBody reads the request body into v.
func decodeBody(r *http.Request, w http.ResponseWriter, v decoder) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	return v.Decode(jx.DecodeBytes(body))
}

func writeJSON(w http.ResponseWriter, status int, v encoder) {
	var e jx.Encoder
	v.Encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError logs err and answers with a wire.Error carrying msg.
func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	zctx.From(ctx).Info("Rejected request", zap.Int("status", status), zap.Error(err))
	writeJSON(w, status, wire.Error{
		Code:      status,
		Message:   msg,
		RequestID: httpmiddleware.RequestIDFromContext(ctx),
	})
}
