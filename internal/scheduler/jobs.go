package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/Soumadip-cmd/Charmstracker/internal/aggregate"
	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
	"github.com/Soumadip-cmd/Charmstracker/internal/history"
	"github.com/Soumadip-cmd/Charmstracker/internal/reconcile"
	"github.com/Soumadip-cmd/Charmstracker/internal/store"
)

// DiscoveryResult summarizes one discovery pass.
type DiscoveryResult struct {
	Categories       int
	CategoriesFailed int
	Found            int
	New              int
	Updated          int
	Invalid          int
	Missing          int
	Retired          int
	Flagged          int
}

// PriceResult summarizes one price refresh run.
type PriceResult struct {
	Processed  int
	Updated    int
	NoListings int
	Failed     int
}

// ImageResult summarizes one image refresh run.
type ImageResult struct {
	Processed int
	Updated   int
	Failed    int
}

// RunDiscovery walks every configured category, reconciles the scraped
// records into the store, and applies the retirement policy to items
// missing from a fully successful pass. A failed category aborts
// retirement handling but not the remaining categories.
func (s *Scheduler) RunDiscovery(ctx context.Context) (*DiscoveryResult, error) {
	categories := s.source.Categories()
	r := &DiscoveryResult{Categories: len(categories)}
	seen := make(map[string]bool)
	now := time.Now()

	for i, category := range categories {
		if i > 0 {
			if err := sleep(ctx, s.cfg.CategoryDelay()); err != nil {
				return r, err
			}
		}

		records, err := s.source.Discover(ctx, category)
		if err != nil {
			log.Printf("Category %s failed: %v", category, err)
			r.CategoriesFailed++
			continue
		}
		log.Printf("Category %s: %d products", category, len(records))
		r.Found += len(records)

		for _, rec := range records {
			isNew, err := s.reconcileRecord(rec, now, seen)
			if err != nil {
				log.Printf("Skipping %q: %v", rec.Name, err)
				r.Invalid++
				continue
			}
			if isNew {
				r.New++
			} else {
				r.Updated++
			}
		}
	}

	if r.CategoriesFailed == 0 {
		if err := s.applyRetirement(seen, r); err != nil {
			return r, err
		}
	} else {
		log.Printf("Skipping retirement check: %d categories failed", r.CategoriesFailed)
	}

	log.Printf("Discovery complete: %d found, %d new, %d updated, %d invalid",
		r.Found, r.New, r.Updated, r.Invalid)
	return r, nil
}

func (s *Scheduler) reconcileRecord(rec catalog.RawItemRecord, now time.Time, seen map[string]bool) (bool, error) {
	if err := reconcile.Validate(rec); err != nil {
		return false, err
	}

	id := catalog.NormalizeID(rec.Name)
	existing, err := s.store.FindOne(id)
	if err != nil {
		return false, err
	}

	merged, err := reconcile.Merge(existing, rec, now)
	if err != nil {
		return false, err
	}
	if err := s.store.Upsert(merged); err != nil {
		return false, err
	}
	if err := s.store.MarkSeen(id); err != nil {
		return false, err
	}

	seen[id] = true
	return existing == nil, nil
}

// applyRetirement handles active items absent from the pass according
// to the configured policy.
func (s *Scheduler) applyRetirement(seen map[string]bool, r *DiscoveryResult) error {
	policy := s.cfg.Retirement.Policy
	if policy == "off" || policy == "" {
		return nil
	}

	active := catalog.StatusActive
	items, err := s.store.List(store.Filter{Status: &active})
	if err != nil {
		return err
	}

	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		r.Missing++

		switch policy {
		case "flag":
			if err := s.store.FlagForRescrape(item.ID); err != nil {
				return err
			}
			r.Flagged++
		case "retire":
			count, err := s.store.MarkMissed(item.ID)
			if err != nil {
				return err
			}
			if count >= s.cfg.Retirement.MissedPasses {
				if err := s.store.MarkRetired(item.ID); err != nil {
					return err
				}
				log.Printf("Retired %s after %d missed passes", item.ID, count)
				r.Retired++
			}
		}
	}
	return nil
}

// RunPriceRefresh aggregates marketplace listings into fresh average
// prices for the least recently updated items. Retired charms stay in
// the rotation since their resale prices keep moving. One failed item
// or adapter never aborts the batch.
func (s *Scheduler) RunPriceRefresh(ctx context.Context, limit int) (*PriceResult, error) {
	items, err := s.store.List(store.Filter{
		OldestFirst: true,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}

	r := &PriceResult{}
	for i, item := range items {
		if i > 0 {
			if err := sleep(ctx, s.cfg.ItemDelay()); err != nil {
				return r, err
			}
		}
		r.Processed++

		updated, err := s.refreshItemPrice(ctx, item.ID, item.Name)
		switch {
		case err != nil:
			log.Printf("Price refresh failed for %s: %v", item.ID, err)
			r.Failed++
		case updated:
			r.Updated++
		default:
			r.NoListings++
		}
	}

	log.Printf("Price refresh complete: %d processed, %d updated, %d without listings, %d failed",
		r.Processed, r.Updated, r.NoListings, r.Failed)
	return r, nil
}

func (s *Scheduler) refreshItemPrice(ctx context.Context, id, name string) (bool, error) {
	var groups []aggregate.SourceListings
	for _, adapter := range s.adapters {
		listings, err := adapter.Search(ctx, name, s.cfg.Limits.ListingsPerMarket)
		if err != nil {
			// A broken marketplace contributes nothing; the others
			// still feed the average.
			log.Printf("Adapter %s failed for %s: %v", adapter.Name(), id, err)
			listings = nil
		}
		groups = append(groups, aggregate.SourceListings{Source: adapter.Name(), Listings: listings})
	}

	avg, ok, flat := aggregate.Combine(groups)
	if !ok {
		// Nothing to aggregate. The stored price stands.
		return false, nil
	}

	item, err := s.store.FindOne(id)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}

	now := time.Now()
	t7, t30, t90 := history.Trends(item.History, avg)
	obs := history.Observation(avg, len(flat), now)

	err = s.store.UpdatePrices(id, avg,
		trendPtr(t7), trendPtr(t30), trendPtr(t90), flat, obs)
	if err != nil {
		return false, err
	}
	return true, nil
}

// RunImageRefresh re-scrapes product pages for items still showing
// placeholder images or flagged for an image update.
func (s *Scheduler) RunImageRefresh(ctx context.Context, limit int) (*ImageResult, error) {
	items, err := s.store.List(store.Filter{NeedsImages: true, Limit: limit})
	if err != nil {
		return nil, err
	}

	r := &ImageResult{}
	for i, item := range items {
		if i > 0 {
			if err := sleep(ctx, s.cfg.ItemDelay()); err != nil {
				return r, err
			}
		}
		r.Processed++

		if item.SourceURL == "" {
			r.Failed++
			continue
		}
		rec, err := s.source.Detail(ctx, item.SourceURL)
		if err != nil {
			log.Printf("Image refresh failed for %s: %v", item.ID, err)
			r.Failed++
			continue
		}

		images := catalog.RealImages(rec.Images)
		if len(images) == 0 {
			r.Failed++
			continue
		}
		if err := s.store.UpdateImages(item.ID, images); err != nil {
			log.Printf("Storing images failed for %s: %v", item.ID, err)
			r.Failed++
			continue
		}
		r.Updated++
	}

	log.Printf("Image refresh complete: %d processed, %d updated, %d failed",
		r.Processed, r.Updated, r.Failed)
	return r, nil
}

func trendPtr(t history.Trend) *float64 {
	if !t.Defined {
		return nil
	}
	v := t.Pct
	return &v
}
