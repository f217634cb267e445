package wire

import (
	"github.com/go-faster/errors"

	"github.com/xenking/cart-offer/internal/domain/offer"
)

// Offer converts the request into a domain offer. It fails only when the
// offer type is not recognised.
func (s OfferRequest) Offer() (offer.Offer, error) {
	t, err := offer.ParseType(s.OfferType)
	if err != nil {
		return offer.Offer{}, errors.Wrap(err, "offer_type")
	}
	return offer.Offer{
		RestaurantID: s.RestaurantID,
		Type:         t,
		Value:        s.OfferValue,
		Segments:     s.Segments,
	}, nil
}

// FromOffer converts a domain offer into its wire form.
func FromOffer(o offer.Offer) Offer {
	return Offer{
		ID: o.ID,
		OfferRequest: OfferRequest{
			RestaurantID: o.RestaurantID,
			OfferType:    string(o.Type),
			OfferValue:   o.Value,
			Segments:     o.Segments,
		},
	}
}
