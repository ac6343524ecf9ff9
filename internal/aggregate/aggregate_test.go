package aggregate

import (
	"testing"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
)

func listings(prices ...float64) []catalog.Listing {
	out := make([]catalog.Listing, len(prices))
	for i, p := range prices {
		out[i] = catalog.Listing{Title: "Charm", Price: p}
	}
	return out
}

func TestCombineExcludesNonPositivePrices(t *testing.T) {
	avg, ok, flat := Combine([]SourceListings{
		{Source: "eBay", Listings: listings(10, 0, 20)},
	})
	if !ok {
		t.Fatal("expected a defined average")
	}
	if avg != 15.0 {
		t.Errorf("avg = %v, want 15.0", avg)
	}
	// The zero-priced listing still appears in the flattened set.
	if len(flat) != 3 {
		t.Errorf("flat = %d listings, want 3", len(flat))
	}
}

func TestCombineAcrossSources(t *testing.T) {
	avg, ok, flat := Combine([]SourceListings{
		{Source: "eBay", Listings: listings(30, 40)},
		{Source: "Etsy", Listings: listings(50)},
	})
	if !ok || avg != 40.0 {
		t.Errorf("avg = %v ok = %v, want 40.0 true", avg, ok)
	}
	if len(flat) != 3 {
		t.Fatalf("flat = %d, want 3", len(flat))
	}
	// Source order is preserved in the flattened set.
	if flat[0].Platform != "eBay" || flat[2].Platform != "Etsy" {
		t.Errorf("platforms = %q, %q, %q", flat[0].Platform, flat[1].Platform, flat[2].Platform)
	}
}

func TestCombineRounding(t *testing.T) {
	avg, ok, _ := Combine([]SourceListings{
		{Source: "eBay", Listings: listings(10, 10, 11)},
	})
	// 31/3 = 10.333... rounds to 10.33
	if !ok || avg != 10.33 {
		t.Errorf("avg = %v, want 10.33", avg)
	}
}

func TestCombineNoPositivePrices(t *testing.T) {
	avg, ok, flat := Combine([]SourceListings{
		{Source: "eBay", Listings: listings(0, -5)},
	})
	if ok {
		t.Errorf("expected undefined average, got %v", avg)
	}
	// Without a single usable price there is nothing worth storing.
	if len(flat) != 0 {
		t.Errorf("flat = %d listings, want 0", len(flat))
	}
}

func TestCombineEmpty(t *testing.T) {
	_, ok, flat := Combine(nil)
	if ok {
		t.Error("expected undefined average for no groups")
	}
	if len(flat) != 0 {
		t.Errorf("flat = %d, want 0", len(flat))
	}
}

func TestCombineKeepsExplicitPlatform(t *testing.T) {
	_, _, flat := Combine([]SourceListings{
		{Source: "eBay", Listings: []catalog.Listing{{Title: "Charm", Price: 10, Platform: "eBay Motors"}}},
	})
	if flat[0].Platform != "eBay Motors" {
		t.Errorf("platform = %q, want the listing's own value kept", flat[0].Platform)
	}
}
