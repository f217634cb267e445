package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/cart-offer/internal/domain/offer"
)

// SegmentResolver maps a user to a customer segment. Implementations never
// fail: an unresolvable user gets a sentinel segment instead.
type SegmentResolver interface {
	Resolve(ctx context.Context, userID int64) string
}

// ApplyOfferRequest holds the input for applying an offer to a cart.
type ApplyOfferRequest struct {
	CartValue    int64
	UserID       int64
	RestaurantID int64
}

// ApplyOfferResult holds the adjusted cart and how it was derived.
type ApplyOfferResult struct {
	CartValue int64
	Discount  int64
	Segment   string
	Offer     *offer.Offer
}

// Service encapsulates the apply-offer flow: segment resolution followed by
// discount computation.
type Service struct {
	segments SegmentResolver
	engine   *offer.Engine
	applied  metric.Int64Counter
}

// NewService creates a cart Service.
func NewService(segments SegmentResolver, engine *offer.Engine, meter metric.Meter) (*Service, error) {
	applied, err := meter.Int64Counter("cart.offer.applied",
		metric.WithDescription("Apply-offer requests by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create applied counter")
	}
	return &Service{
		segments: segments,
		engine:   engine,
		applied:  applied,
	}, nil
}

// ApplyOffer resolves the user's segment and applies the first offer of the
// restaurant that lists it. It cannot fail.
func (s *Service) ApplyOffer(ctx context.Context, req ApplyOfferRequest) ApplyOfferResult {
	segment := s.segments.Resolve(ctx, req.UserID)
	q := s.engine.Quote(req.CartValue, req.RestaurantID, segment)

	offerType := "none"
	if q.Offer != nil {
		offerType = string(q.Offer.Type)
	}
	s.applied.Add(ctx, 1, metric.WithAttributes(
		attribute.String("offer_type", offerType),
		attribute.Bool("matched", q.Offer != nil),
	))

	lg := zctx.From(ctx)
	if q.Offer != nil {
		lg.Debug("Offer applied",
			zap.Int64("restaurant_id", req.RestaurantID),
			zap.String("segment", segment),
			zap.String("offer_id", q.Offer.ID),
			zap.Int64("cart_value", q.CartValue),
			zap.Int64("discount", q.Discount()),
		)
	} else {
		lg.Debug("No matching offer",
			zap.Int64("restaurant_id", req.RestaurantID),
			zap.String("segment", segment),
		)
	}

	return ApplyOfferResult{
		CartValue: q.CartValue,
		Discount:  q.Discount(),
		Segment:   segment,
		Offer:     q.Offer,
	}
}
