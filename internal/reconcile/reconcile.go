// Package reconcile merges freshly scraped catalog records into
// existing items without destroying accumulated market data.
package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
)

// ErrInvalidRecord marks a scraped record that cannot be reconciled.
var ErrInvalidRecord = errors.New("invalid item record")

// Validate checks a scraped record before merging. A record needs a
// non-empty name and a non-negative official price.
func Validate(rec catalog.RawItemRecord) error {
	if rec.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRecord)
	}
	if rec.OfficialPrice < 0 {
		return fmt.Errorf("%w: negative official price %.2f for %q", ErrInvalidRecord, rec.OfficialPrice, rec.Name)
	}
	return nil
}

// Merge folds a scraped record into an existing item, or builds a new
// one when existing is nil. Identity fields always follow the record.
// Market data survives: the average price moves only when the record
// carries an official price, and images are replaced only when the
// record has real photos.
func Merge(existing *catalog.Item, rec catalog.RawItemRecord, now time.Time) (*catalog.Item, error) {
	if err := Validate(rec); err != nil {
		return nil, err
	}

	id := catalog.NormalizeID(rec.Name)
	status := rec.Status
	if status == "" {
		status = catalog.StatusActive
	}
	material := rec.Material
	if material == "" {
		material = catalog.MaterialSilver
	}

	if existing == nil {
		avg := rec.OfficialPrice
		if avg == 0 {
			avg = catalog.DefaultPrice
		}
		images := catalog.RealImages(rec.Images)
		needsImages := false
		if len(images) == 0 {
			images = catalog.PlaceholderImages(rec.Name)
			needsImages = true
		}
		return &catalog.Item{
			ID:                 id,
			Name:               rec.Name,
			Description:        rec.Description,
			Material:           material,
			Status:             status,
			Retired:            status == catalog.StatusRetired,
			SourceURL:          rec.SourceURL,
			AvgPrice:           avg,
			Popularity:         catalog.DefaultPopularity,
			Images:             images,
			NeedsImageUpdate:   needsImages,
			NeedsScraperUpdate: true,
			CreatedAt:          now,
			LastUpdated:        now,
		}, nil
	}

	merged := *existing
	merged.Listings = existing.Listings
	merged.History = existing.History

	merged.Name = rec.Name
	merged.Description = rec.Description
	merged.Material = material
	merged.Status = status
	merged.Retired = status == catalog.StatusRetired
	if rec.SourceURL != "" {
		merged.SourceURL = rec.SourceURL
	}

	if real := catalog.RealImages(rec.Images); len(real) > 0 {
		merged.Images = real
		merged.NeedsImageUpdate = false
	}

	if rec.OfficialPrice > 0 {
		merged.AvgPrice = rec.OfficialPrice
	}

	merged.LastUpdated = now
	return &merged, nil
}
