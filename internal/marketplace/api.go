package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
)

// APIAdapter queries a JSON search API. The response may be a bare
// array of listings or an object wrapping one under "results",
// "listings" or "items".
type APIAdapter struct {
	name      string
	searchTpl string
	apiKey    string
	client    *resty.Client
}

type apiListing struct {
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	PriceText string  `json:"price_text"`
	URL       string  `json:"url"`
	Condition string  `json:"condition"`
	Seller    string  `json:"seller"`
	Shipping  string  `json:"shipping"`
	ImageURL  string  `json:"image_url"`
}

// NewAPIAdapter creates a JSON API adapter. The key is read from the
// named environment variable; an empty variable leaves requests
// unauthenticated.
func NewAPIAdapter(name, searchTpl, apiKeyEnv string) *APIAdapter {
	a := &APIAdapter{
		name:      name,
		searchTpl: searchTpl,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", userAgent).
			SetRetryCount(2).
			SetRetryWaitTime(2 * time.Second),
	}
	if apiKeyEnv != "" {
		a.apiKey = os.Getenv(apiKeyEnv)
	}
	return a
}

func (a *APIAdapter) Name() string { return a.name }

// IsConfigured returns whether the API key is available.
func (a *APIAdapter) IsConfigured() bool { return a.apiKey != "" }

// Search queries the API for listings matching itemName.
func (a *APIAdapter) Search(ctx context.Context, itemName string, limit int) ([]catalog.Listing, error) {
	req := a.client.R().SetContext(ctx)
	if a.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := req.Get(searchURL(a.searchTpl, itemName+" charm"))
	if err != nil {
		return nil, fmt.Errorf("%s: search failed: %w", a.name, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%s: search returned status %d", a.name, resp.StatusCode())
	}

	raw, err := decodeListings(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}

	now := time.Now()
	var listings []catalog.Listing
	for _, r := range raw {
		if len(listings) >= limit {
			break
		}
		price := r.Price
		if price == 0 && r.PriceText != "" {
			price = parsePrice(r.PriceText)
		}
		listings = append(listings, catalog.Listing{
			Platform:  a.name,
			Title:     r.Title,
			Price:     price,
			URL:       r.URL,
			Condition: r.Condition,
			Seller:    r.Seller,
			Shipping:  r.Shipping,
			ImageURL:  r.ImageURL,
			ScrapedAt: now,
		})
	}
	return listings, nil
}

func decodeListings(body []byte) ([]apiListing, error) {
	var bare []apiListing
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Results  []apiListing `json:"results"`
		Listings []apiListing `json:"listings"`
		Items    []apiListing `json:"items"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	switch {
	case wrapped.Results != nil:
		return wrapped.Results, nil
	case wrapped.Listings != nil:
		return wrapped.Listings, nil
	default:
		return wrapped.Items, nil
	}
}
