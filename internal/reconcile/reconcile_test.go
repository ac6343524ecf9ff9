package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
)

var now = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     catalog.RawItemRecord
		wantErr bool
	}{
		{"valid", catalog.RawItemRecord{Name: "Dragon", OfficialPrice: 45}, false},
		{"no price", catalog.RawItemRecord{Name: "Dragon"}, false},
		{"empty name", catalog.RawItemRecord{OfficialPrice: 45}, true},
		{"negative price", catalog.RawItemRecord{Name: "Dragon", OfficialPrice: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.rec)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("error %v is not ErrInvalidRecord", err)
			}
		})
	}
}

func TestMergeNewItem(t *testing.T) {
	rec := catalog.RawItemRecord{
		Name:          "Dragon Charm",
		Description:   "A fierce dragon",
		OfficialPrice: 65,
		SourceURL:     "https://example.com/products/dragon-charm",
	}

	item, err := Merge(nil, rec, now)
	if err != nil {
		t.Fatalf("merging: %v", err)
	}
	if item.ID != "charm_dragon_charm" {
		t.Errorf("id = %q, want charm_dragon_charm", item.ID)
	}
	if item.AvgPrice != 65 {
		t.Errorf("avg price = %v, want official price 65", item.AvgPrice)
	}
	if item.Material != catalog.MaterialSilver {
		t.Errorf("material = %q, want Silver default", item.Material)
	}
	if item.Popularity != catalog.DefaultPopularity {
		t.Errorf("popularity = %d, want %d", item.Popularity, catalog.DefaultPopularity)
	}
	if !item.NeedsImageUpdate {
		t.Error("item without real photos must be flagged for image refresh")
	}
	if !catalog.HasPlaceholderImage(item.Images) {
		t.Error("expected placeholder images")
	}
	if !item.NeedsScraperUpdate {
		t.Error("new item must be flagged for price refresh")
	}
}

func TestMergeNewItemWithoutPrice(t *testing.T) {
	item, err := Merge(nil, catalog.RawItemRecord{Name: "Owl"}, now)
	if err != nil {
		t.Fatalf("merging: %v", err)
	}
	if item.AvgPrice != catalog.DefaultPrice {
		t.Errorf("avg price = %v, want default %v", item.AvgPrice, catalog.DefaultPrice)
	}
}

func TestMergeNewItemWithRealImages(t *testing.T) {
	rec := catalog.RawItemRecord{
		Name: "Owl",
		Images: []catalog.ImageRef{
			{URL: "https://cdn.example.com/owl.jpg"},
		},
	}
	item, err := Merge(nil, rec, now)
	if err != nil {
		t.Fatalf("merging: %v", err)
	}
	if item.NeedsImageUpdate {
		t.Error("item with real photos must not be flagged")
	}
	if len(item.Images) != 1 || item.Images[0] != "https://cdn.example.com/owl.jpg" {
		t.Errorf("images = %v", item.Images)
	}
}

func TestMergePreservesMarketData(t *testing.T) {
	existing := &catalog.Item{
		ID:       "charm_owl",
		Name:     "Owl",
		Material: catalog.MaterialSilver,
		Status:   catalog.StatusActive,
		AvgPrice: 72.40,
		Images:   []string{"https://cdn.example.com/owl-photo.jpg"},
		Listings: []catalog.Listing{{Platform: "eBay", Price: 70}},
		History:  []catalog.PriceObservation{{Date: "2026-08-01", Price: 70}},
	}
	rec := catalog.RawItemRecord{
		Name:        "Owl",
		Description: "Updated description",
		// no official price, no images
	}

	merged, err := Merge(existing, rec, now)
	if err != nil {
		t.Fatalf("merging: %v", err)
	}
	if merged.AvgPrice != 72.40 {
		t.Errorf("avg price = %v, aggregated price must survive", merged.AvgPrice)
	}
	if len(merged.Images) != 1 || merged.Images[0] != "https://cdn.example.com/owl-photo.jpg" {
		t.Errorf("images = %v, real photos must survive", merged.Images)
	}
	if merged.Description != "Updated description" {
		t.Errorf("description = %q, identity fields must follow the record", merged.Description)
	}
	if len(merged.Listings) != 1 || len(merged.History) != 1 {
		t.Error("listings and history must survive the merge")
	}
}

func TestMergeOfficialPriceWins(t *testing.T) {
	existing := &catalog.Item{ID: "charm_owl", Name: "Owl", AvgPrice: 72.40}
	merged, err := Merge(existing, catalog.RawItemRecord{Name: "Owl", OfficialPrice: 80}, now)
	if err != nil {
		t.Fatalf("merging: %v", err)
	}
	if merged.AvgPrice != 80 {
		t.Errorf("avg price = %v, want official price 80", merged.AvgPrice)
	}
}

func TestMergePlaceholderImagesDoNotOverwrite(t *testing.T) {
	existing := &catalog.Item{
		ID:     "charm_owl",
		Name:   "Owl",
		Images: []string{"https://cdn.example.com/owl-photo.jpg"},
	}
	rec := catalog.RawItemRecord{
		Name: "Owl",
		Images: []catalog.ImageRef{
			{URL: "https://via.placeholder.com/400", Placeholder: true},
		},
	}
	merged, err := Merge(existing, rec, now)
	if err != nil {
		t.Fatalf("merging: %v", err)
	}
	if merged.Images[0] != "https://cdn.example.com/owl-photo.jpg" {
		t.Errorf("images = %v, placeholder scrape must not replace real photos", merged.Images)
	}
}

func TestMergeRetirement(t *testing.T) {
	existing := &catalog.Item{ID: "charm_owl", Name: "Owl", Status: catalog.StatusActive}
	merged, err := Merge(existing, catalog.RawItemRecord{Name: "Owl", Status: catalog.StatusRetired}, now)
	if err != nil {
		t.Fatalf("merging: %v", err)
	}
	if merged.Status != catalog.StatusRetired || !merged.Retired {
		t.Errorf("status = %q retired = %v, want Retired/true", merged.Status, merged.Retired)
	}
}

func TestMergeIdempotent(t *testing.T) {
	rec := catalog.RawItemRecord{
		Name:          "Dragon",
		Description:   "A dragon",
		OfficialPrice: 65,
		SourceURL:     "https://example.com/products/dragon",
	}
	first, err := Merge(nil, rec, now)
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}
	later := now.Add(24 * time.Hour)
	second, err := Merge(first, rec, later)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}

	second.LastUpdated = first.LastUpdated
	if first.ID != second.ID || first.Name != second.Name ||
		first.AvgPrice != second.AvgPrice || first.Status != second.Status {
		t.Errorf("re-merging the same record changed the item:\nfirst  %+v\nsecond %+v", first, second)
	}
}
