package offer

import (
	"slices"

	"github.com/go-faster/errors"
)

// Type enumerates the supported offer discount strategies.
type Type string

const (
	// FlatAmount subtracts a fixed value from the cart.
	FlatAmount Type = "FLATX"
	// FlatPercent subtracts a percentage of the cart value.
	FlatPercent Type = "FLATP"
)

// ErrInvalidType is returned when an offer type is neither FLATX nor FLATP.
var ErrInvalidType = errors.New("invalid offer type")

// ParseType converts a wire offer type into a Type. Matching is exact and
// case-sensitive.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case FlatAmount, FlatPercent:
		return t, nil
	default:
		return "", errors.Wrapf(ErrInvalidType, "%q", s)
	}
}

// Offer is a discount rule scoped to a restaurant and a set of customer
// segments. Offers are never modified after they are added to a Registry.
type Offer struct {
	ID           string
	RestaurantID int64
	Type         Type
	Value        int64
	Segments     []string
}

// AppliesTo reports whether the offer lists the given segment.
func (o Offer) AppliesTo(segment string) bool {
	return slices.Contains(o.Segments, segment)
}

func (o Offer) clone() Offer {
	o.Segments = slices.Clone(o.Segments)
	return o
}
