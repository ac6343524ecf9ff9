// Package scheduler runs the recurring catalog jobs: discovery of new
// charms, marketplace price refreshes, and product image refreshes.
// Jobs can run once on demand or on cron schedules.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
	"github.com/Soumadip-cmd/Charmstracker/internal/config"
	"github.com/Soumadip-cmd/Charmstracker/internal/marketplace"
	"github.com/Soumadip-cmd/Charmstracker/internal/store"
)

// CatalogSource is the retailer catalog scraper the discovery and
// image jobs pull from.
type CatalogSource interface {
	Categories() []string
	Discover(ctx context.Context, category string) ([]catalog.RawItemRecord, error)
	Detail(ctx context.Context, productURL string) (catalog.RawItemRecord, error)
}

// Scheduler owns the job implementations and their cron registration.
type Scheduler struct {
	cfg      *config.Config
	store    *store.Store
	source   CatalogSource
	adapters []marketplace.Adapter
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a scheduler over the given store, catalog source and
// marketplace adapters.
func New(cfg *config.Config, st *store.Store, source CatalogSource, adapters []marketplace.Adapter) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		store:    st,
		source:   source,
		adapters: adapters,
	}
}

// Start registers the three recurring jobs and starts the cron loop.
// A job still running when its next tick arrives is skipped, not
// stacked.
func (s *Scheduler) Start() error {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	logger := cron.PrintfLogger(log.Default())
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(logger),
		cron.Recover(logger),
	))

	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"discovery", s.cfg.Schedule.Discovery, func(ctx context.Context) {
			if _, err := s.RunDiscovery(ctx); err != nil {
				log.Printf("Discovery job failed: %v", err)
			}
		}},
		{"price refresh", s.cfg.Schedule.PriceRefresh, func(ctx context.Context) {
			if _, err := s.RunPriceRefresh(ctx, s.cfg.Limits.PriceBatch); err != nil {
				log.Printf("Price refresh job failed: %v", err)
			}
		}},
		{"image refresh", s.cfg.Schedule.ImageRefresh, func(ctx context.Context) {
			if _, err := s.RunImageRefresh(ctx, s.cfg.Limits.ImageBatch); err != nil {
				log.Printf("Image refresh job failed: %v", err)
			}
		}},
	}

	for _, j := range jobs {
		job := j
		if _, err := s.cron.AddFunc(job.spec, func() {
			log.Printf("Starting scheduled %s", job.name)
			job.run(s.ctx)
		}); err != nil {
			return err
		}
		log.Printf("Scheduled %s: %s", job.name, job.spec)
	}

	s.cron.Start()
	return nil
}

// Stop cancels the job context so a running pass aborts at its next
// inter-item wait, halts the cron loop, and returns a context that
// completes when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return s.cron.Stop()
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
