package offer

import (
	"strconv"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
)

const (
	filterCapacity = 100_000
	filterFPR      = 0.01
)

// Registry is an append-only, insertion-ordered collection of offers.
//
// Reads take a shared lock and Add takes an exclusive one, so lookups never
// observe a partially appended offer. Besides the ordered slice the registry
// keeps a per-restaurant index of insertion positions and a bloom filter over
// (restaurant, segment) pairs. The filter has no false negatives, so a miss
// means no offer can match and the scan is skipped.
type Registry struct {
	mu           sync.RWMutex
	offers       []Offer
	byRestaurant map[int64][]int
	filter       *bloom.BloomFilter
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byRestaurant: make(map[int64][]int),
		filter:       bloom.NewWithEstimates(filterCapacity, filterFPR),
	}
}

// Add appends the offer and returns the stored copy. An empty ID is replaced
// with a generated one. No other field is validated.
func (r *Registry) Add(o Offer) Offer {
	o = o.clone()
	if o.ID == "" {
		o.ID = uuid.New().String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byRestaurant[o.RestaurantID] = append(r.byRestaurant[o.RestaurantID], len(r.offers))
	r.offers = append(r.offers, o)
	for _, s := range o.Segments {
		r.filter.AddString(filterKey(o.RestaurantID, s))
	}

	return o.clone()
}

// FindFirstMatch returns the earliest added offer for the restaurant whose
// segments contain segment.
func (r *Registry) FindFirstMatch(restaurantID int64, segment string) (Offer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.filter.TestString(filterKey(restaurantID, segment)) {
		return Offer{}, false
	}
	for _, i := range r.byRestaurant[restaurantID] {
		if o := r.offers[i]; o.AppliesTo(segment) {
			return o.clone(), true
		}
	}
	return Offer{}, false
}

// List returns a snapshot of all offers in insertion order.
func (r *Registry) List() []Offer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Offer, len(r.offers))
	for i, o := range r.offers {
		out[i] = o.clone()
	}
	return out
}

// Len returns the number of registered offers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.offers)
}

func filterKey(restaurantID int64, segment string) string {
	return strconv.FormatInt(restaurantID, 10) + "\x00" + segment
}
