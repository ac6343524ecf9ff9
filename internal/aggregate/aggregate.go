// Package aggregate folds per-marketplace listings into a single
// average price.
package aggregate

import (
	"math"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
)

// SourceListings pairs a marketplace name with the listings it
// returned. Combine processes groups in slice order so the flattened
// listing set is deterministic.
type SourceListings struct {
	Source   string
	Listings []catalog.Listing
}

// Combine computes the mean of all positive listing prices across the
// groups, rounded to two decimals. Zero and negative priced listings
// are kept in the flattened set but excluded from the average. When no
// listing has a positive price, ok is false and the flattened set is
// empty; the caller keeps its stored state.
func Combine(groups []SourceListings) (avg float64, ok bool, flat []catalog.Listing) {
	var sum float64
	var n int
	for _, g := range groups {
		for _, l := range g.Listings {
			if l.Platform == "" {
				l.Platform = g.Source
			}
			flat = append(flat, l)
			if l.Price > 0 {
				sum += l.Price
				n++
			}
		}
	}
	if n == 0 {
		return 0, false, nil
	}
	return round2(sum / float64(n)), true, flat
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
