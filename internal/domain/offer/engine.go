package offer

import "math"

// Matcher finds the offer that applies to a restaurant and segment.
type Matcher interface {
	FindFirstMatch(restaurantID int64, segment string) (Offer, bool)
}

// Quote describes how a cart value was adjusted.
type Quote struct {
	// Original is the input cart value clamped at zero.
	Original int64
	// CartValue is the value after the discount, never negative.
	CartValue int64
	// Offer is the applied offer, nil when none matched.
	Offer *Offer
}

// Discount returns the amount taken off the cart.
func (q Quote) Discount() int64 {
	return q.Original - q.CartValue
}

// Engine computes discounted cart values against the offers of a Matcher.
type Engine struct {
	offers Matcher
}

// NewEngine creates an Engine backed by the given Matcher.
func NewEngine(offers Matcher) *Engine {
	return &Engine{offers: offers}
}

// Apply returns the cart value after applying the first matching offer.
func (e *Engine) Apply(cartValue, restaurantID int64, segment string) int64 {
	return e.Quote(cartValue, restaurantID, segment).CartValue
}

// Quote clamps the cart value at zero, looks up the first offer matching the
// restaurant and segment, and applies it.
func (e *Engine) Quote(cartValue, restaurantID int64, segment string) Quote {
	cartValue = max(0, cartValue)

	q := Quote{Original: cartValue, CartValue: cartValue}
	o, ok := e.offers.FindFirstMatch(restaurantID, segment)
	if !ok {
		return q
	}

	q.Offer = &o
	q.CartValue = Discounted(cartValue, o)
	return q
}

// Discounted applies a single offer to a non-negative cart value. The result
// is kept within [0, math.MaxInt64].
//
// Percentage offers evaluate cart - cart*value*0.01 in floating point and
// truncate the result, so 33% off 100 yields 67. Offers of an unknown type
// leave the cart unchanged.
func Discounted(cartValue int64, o Offer) int64 {
	switch o.Type {
	case FlatAmount:
		// Only a negative value can push the cart past MaxInt64.
		if o.Value < 0 && cartValue > math.MaxInt64+o.Value {
			return math.MaxInt64
		}
		return max(0, cartValue-o.Value)
	case FlatPercent:
		cart := float64(cartValue)
		// The conversion rounds the product, so it is never fused into the
		// subtraction.
		return truncate(cart - float64(cart*float64(o.Value)*0.01))
	default:
		return cartValue
	}
}

// truncate converts v to int64 toward zero, saturating at 0 and MaxInt64.
func truncate(v float64) int64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	default:
		return int64(v)
	}
}
