package pipeline

import (
	"sort"
	"strings"

	"vpr/internal"
)

var DefaultOriginalMarkers = []string{"оригинал", "original"}

type MatchOptions struct {
	Order           internal.OrderMode
	OriginalMarkers []string
}

// IsOriginal reports whether the brand names the manufacturer's own part
// rather than an analog.
func IsOriginal(brand *string, markers []string) bool {
	if brand == nil {
		return false
	}
	b := strings.ToLower(strings.TrimSpace(*brand))
	if b == "" {
		return false
	}
	for _, m := range markers {
		if b == strings.ToLower(strings.TrimSpace(m)) {
			return true
		}
	}
	return false
}

// Reconcile joins offers to the base list on the normalized key. Every base
// part yields exactly one group, in base order, even when nothing matched.
// Offers inside a group are ordered by price, then vendor, then extraction
// order.
func Reconcile(base []internal.BasePart, offers []internal.Offer, opts MatchOptions) []internal.OfferGroup {
	byKey := make(map[string][]internal.Offer)
	for _, o := range offers {
		if o.Key == "" {
			continue
		}
		byKey[o.Key] = append(byKey[o.Key], o)
	}

	markers := opts.OriginalMarkers
	if markers == nil {
		markers = DefaultOriginalMarkers
	}

	groups := make([]internal.OfferGroup, 0, len(base))
	for _, bp := range base {
		var matched []internal.Offer
		if bp.Key != "" {
			matched = append(matched, byKey[bp.Key]...)
		}
		sortOffers(matched, opts.Order, markers)
		groups = append(groups, internal.OfferGroup{Base: bp, Offers: matched})
	}
	return groups
}

func sortOffers(offers []internal.Offer, order internal.OrderMode, markers []string) {
	bucket := func(o internal.Offer) int {
		switch order {
		case internal.OrderAnalogsFirst:
			if IsOriginal(o.Brand, markers) {
				return 1
			}
		case internal.OrderOriginalsFirst:
			if !IsOriginal(o.Brand, markers) {
				return 1
			}
		}
		return 0
	}
	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]
		if ba, bb := bucket(a), bucket(b); ba != bb {
			return ba < bb
		}
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c < 0
		}
		return a.Vendor < b.Vendor
	})
}

// MatchedCount is the number of offers that found a base part.
func MatchedCount(groups []internal.OfferGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Offers)
	}
	return n
}
