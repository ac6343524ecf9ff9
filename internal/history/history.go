// Package history computes price trends from a series of daily
// aggregated price observations.
package history

import (
	"math"
	"time"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
)

// Trend windows in observations. An observation is one aggregation
// day, so the windows approximate week, month, and quarter views.
const (
	Window7d  = 7
	Window30d = 30
	Window90d = 90
)

// Trend is a percentage change over a window. Defined is false when
// the reference price is zero or no history exists.
type Trend struct {
	Pct     float64
	Defined bool
}

// Observation builds the day's aggregated price observation.
func Observation(avg float64, listingCount int, observedAt time.Time) catalog.PriceObservation {
	return catalog.PriceObservation{
		Date:         observedAt.UTC().Format("2006-01-02"),
		Price:        avg,
		Source:       "aggregated",
		ListingCount: listingCount,
	}
}

// Trends computes the 7, 30, and 90 observation trends of asOf against
// the existing history. The reference for a window of size W is the
// observation W back when at least W exist, otherwise the oldest one.
func Trends(hist []catalog.PriceObservation, asOf float64) (t7, t30, t90 Trend) {
	t7 = trend(hist, asOf, Window7d)
	t30 = trend(hist, asOf, Window30d)
	t90 = trend(hist, asOf, Window90d)
	return
}

func trend(hist []catalog.PriceObservation, asOf float64, window int) Trend {
	if len(hist) == 0 {
		return Trend{}
	}
	var ref float64
	if len(hist) >= window {
		ref = hist[len(hist)-window].Price
	} else {
		ref = hist[0].Price
	}
	if ref == 0 {
		return Trend{}
	}
	pct := ((asOf - ref) / ref) * 100
	return Trend{Pct: round1(pct), Defined: true}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
