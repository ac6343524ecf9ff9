// Package catalog defines the domain model shared by the discovery,
// aggregation and scheduling packages: items, marketplace listings and
// the per-item price history.
package catalog

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Material is the charm material reported by the retailer catalog.
type Material string

const (
	MaterialSilver Material = "Silver"
	MaterialGold   Material = "Gold"
)

// Status is the retailer lifecycle status of a charm.
type Status string

const (
	StatusActive  Status = "Active"
	StatusRetired Status = "Retired"
)

// DefaultPrice seeds avg_price for newly discovered items that carry no
// official price.
const DefaultPrice = 50.0

// DefaultPopularity is the mid-range popularity assigned to new items
// until an external signal overrides it.
const DefaultPopularity = 70

// MaxImages caps the stored image list per item.
const MaxImages = 4

// Item is a trackable charm with identity, descriptive fields and
// derived market metrics.
type Item struct {
	ID             string
	Name           string
	Description    string
	Material       Material
	Status         Status
	Retired        bool
	SourceURL      string
	AvgPrice       float64
	PriceChange7d  float64
	PriceChange30d float64
	PriceChange90d float64
	Popularity     int
	Images         []string
	RelatedIDs     []string
	Listings       []Listing
	History        []PriceObservation
	CreatedAt      time.Time
	LastUpdated    time.Time

	// Maintenance flags used to target expensive refresh work.
	NeedsImageUpdate   bool
	NeedsScraperUpdate bool

	// MissedPasses counts consecutive discovery passes that did not see
	// this item; used by the retire-on-absence policy.
	MissedPasses int
}

// Listing is one marketplace's point-in-time offer for an item. The
// listing set is a snapshot, fully replaced on each price refresh.
type Listing struct {
	Platform  string
	Title     string
	Price     float64
	URL       string
	Condition string
	Seller    string
	Shipping  string
	ImageURL  string
	ScrapedAt time.Time
}

// PriceObservation is one historical aggregated-price data point.
// Date is a day in "2006-01-02" form; observations are append-only
// and ordered by date ascending.
type PriceObservation struct {
	Date         string
	Price        float64
	Source       string
	ListingCount int
}

// ImageRef is an image reference at the discovery boundary. Placeholder
// is resolved once at parse time so downstream merge logic checks a
// capability flag rather than re-matching URL substrings.
type ImageRef struct {
	URL         string
	Placeholder bool
}

// RawItemRecord is what the catalog discovery adapter produces for one
// product before reconciliation. OfficialPrice of 0 means "not listed".
type RawItemRecord struct {
	Name          string
	Description   string
	Material      Material
	Status        Status
	OfficialPrice float64
	Images        []ImageRef
	SourceURL     string
}

// NormalizeID derives the stable item identifier from a charm name:
// lowercased, spaces and slashes mapped to underscores. The same
// logical item always yields the same identifier across discovery runs.
func NormalizeID(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return "charm_" + s
}

// IsPlaceholderImage reports whether an image URL is a generated
// placeholder rather than a real product photo.
func IsPlaceholderImage(imageURL string) bool {
	return strings.Contains(strings.ToLower(imageURL), "placeholder")
}

// HasPlaceholderImage reports whether any stored image is a placeholder.
func HasPlaceholderImage(images []string) bool {
	for _, img := range images {
		if IsPlaceholderImage(img) {
			return true
		}
	}
	return false
}

// PlaceholderImages generates the standard placeholder set for an item
// that has no real photos yet. Scrapers replace these later.
func PlaceholderImages(name string) []string {
	shades := []string{"C0C0C0", "D3D3D3", "E8E8E8", "F5F5F5"}
	encoded := url.QueryEscape(name)
	images := make([]string, 0, len(shades))
	for _, shade := range shades {
		images = append(images, fmt.Sprintf("https://via.placeholder.com/400x400/%s/666666?text=%s", shade, encoded))
	}
	return images
}

// RealImages filters an image-reference list down to the non-placeholder
// URLs, capped at MaxImages.
func RealImages(refs []ImageRef) []string {
	var out []string
	for _, ref := range refs {
		if ref.Placeholder || ref.URL == "" {
			continue
		}
		out = append(out, ref.URL)
		if len(out) == MaxImages {
			break
		}
	}
	return out
}

// ImageRefs wraps plain URLs as image references, resolving the
// placeholder flag from the URL marker.
func ImageRefs(urls []string) []ImageRef {
	refs := make([]ImageRef, 0, len(urls))
	for _, u := range urls {
		refs = append(refs, ImageRef{URL: u, Placeholder: IsPlaceholderImage(u)})
	}
	return refs
}
