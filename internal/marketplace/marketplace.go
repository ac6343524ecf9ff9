// Package marketplace fetches resale listings for catalog items from
// configured external sources. Each source kind gets its own adapter
// behind a common interface so price aggregation never cares where a
// listing came from.
package marketplace

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
	"github.com/Soumadip-cmd/Charmstracker/internal/config"
)

const userAgent = "Mozilla/5.0 (compatible; CharmTracker/1.0)"

// Adapter searches one marketplace for listings matching an item name.
type Adapter interface {
	Name() string
	Search(ctx context.Context, itemName string, limit int) ([]catalog.Listing, error)
}

// FromConfig builds an adapter per configured marketplace.
func FromConfig(cfgs []config.Marketplace) ([]Adapter, error) {
	var adapters []Adapter
	for _, mc := range cfgs {
		switch mc.Kind {
		case "html":
			adapters = append(adapters, NewHTMLAdapter(mc.Name, mc.SearchURL))
		case "api":
			adapters = append(adapters, NewAPIAdapter(mc.Name, mc.SearchURL, mc.APIKeyEnv))
		case "feed":
			adapters = append(adapters, NewFeedAdapter(mc.Name, mc.SearchURL))
		case "mock":
			adapters = append(adapters, NewMockAdapter(mc.Name))
		default:
			return nil, fmt.Errorf("marketplace %s: unknown kind %q", mc.Name, mc.Kind)
		}
	}
	return adapters, nil
}

// searchURL substitutes the query placeholder in a configured URL.
func searchURL(template, query string) string {
	return strings.ReplaceAll(template, "{query}", urlEncode(query))
}

func urlEncode(s string) string {
	return strings.ReplaceAll(s, " ", "+")
}

var priceRe = regexp.MustCompile(`[\$£€]?\s*(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)`)

// parsePrice extracts the first dollar amount from arbitrary text.
// Returns 0 when no price is present.
func parsePrice(text string) float64 {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}
