package marketplace

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
)

// MockAdapter generates deterministic synthetic listings. Useful for
// development and for exercising the pipeline without network access.
// The same item name always produces the same listings.
type MockAdapter struct {
	name string
}

// NewMockAdapter creates a synthetic-data adapter.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{name: name}
}

func (a *MockAdapter) Name() string { return a.name }

// Search returns limit synthetic listings seeded from the item name.
func (a *MockAdapter) Search(_ context.Context, itemName string, limit int) ([]catalog.Listing, error) {
	if limit <= 0 {
		return nil, nil
	}
	if limit > 5 {
		limit = 5
	}

	h := fnv.New32a()
	h.Write([]byte(itemName))
	seed := h.Sum32()

	// Base price between 20 and 120, varying per item.
	base := 20.0 + float64(seed%10000)/100.0
	conditions := []string{"New", "Like New", "Used", "Good", "Fair"}

	now := time.Now()
	listings := make([]catalog.Listing, 0, limit)
	for i := 0; i < limit; i++ {
		spread := float64(int(seed>>uint(i*3))%21-10) / 100.0
		price := math.Round(base*(1+spread)*100) / 100
		listings = append(listings, catalog.Listing{
			Platform:  a.name,
			Title:     fmt.Sprintf("%s Charm (%s)", itemName, conditions[i%len(conditions)]),
			Price:     price,
			URL:       fmt.Sprintf("https://example.com/mock/%d", seed+uint32(i)),
			Condition: conditions[i%len(conditions)],
			Seller:    fmt.Sprintf("seller_%d", seed%1000+uint32(i)),
			ScrapedAt: now,
		})
	}
	return listings, nil
}
