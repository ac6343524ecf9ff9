package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Soumadip-cmd/Charmstracker/internal/config"
	"github.com/Soumadip-cmd/Charmstracker/internal/discovery"
	"github.com/Soumadip-cmd/Charmstracker/internal/marketplace"
	"github.com/Soumadip-cmd/Charmstracker/internal/report"
	"github.com/Soumadip-cmd/Charmstracker/internal/scheduler"
	"github.com/Soumadip-cmd/Charmstracker/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "charmtracker",
	Short:   "Collectible charm catalog and price tracker",
	Long:    "CharmTracker discovers charms from the retailer catalog, aggregates resale prices across marketplaces, and tracks price history and trends.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Marketplace API keys come from the environment; a local
		// .env file is a convenience, not a requirement.
		godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(refreshPricesCmd)
	rootCmd.AddCommand(refreshImagesCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(reportCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("charmtracker", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/charmtracker/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the catalog source, marketplaces, and schedules.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog and database status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", st.Path())
		fmt.Println("Catalog:")
		fmt.Printf("  Charms tracked: %d\n", stats.Total)
		fmt.Printf("  Active: %d\n", stats.Active)
		fmt.Printf("  Retired: %d\n", stats.Retired)
		fmt.Printf("  Average price: $%.2f\n", stats.AvgPrice)
		fmt.Println("\nPending work:")
		fmt.Printf("  Awaiting price refresh: %d\n", stats.NeedPricing)
		fmt.Printf("  Awaiting images: %d\n", stats.NeedImages)
		if stats.LastUpdated != "" {
			fmt.Printf("\nLast updated: %s\n", stats.LastUpdated)
		}
		return nil
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scrape the retailer catalog for new and changed charms",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, st, err := buildScheduler()
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Println("Discovering charms from the catalog...")
		r, err := s.RunDiscovery(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("\nDiscovery complete:")
		fmt.Printf("  Categories: %d (%d failed)\n", r.Categories, r.CategoriesFailed)
		fmt.Printf("  Products found: %d\n", r.Found)
		fmt.Printf("  New charms: %d\n", r.New)
		fmt.Printf("  Updated: %d\n", r.Updated)
		if r.Invalid > 0 {
			fmt.Printf("  Invalid records skipped: %d\n", r.Invalid)
		}
		if r.Missing > 0 {
			fmt.Printf("  Missing from pass: %d (%d retired, %d flagged)\n", r.Missing, r.Retired, r.Flagged)
		}
		return nil
	},
}

var priceLimit int

var refreshPricesCmd = &cobra.Command{
	Use:   "refresh-prices",
	Short: "Aggregate marketplace listings into fresh average prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, st, err := buildScheduler()
		if err != nil {
			return err
		}
		defer st.Close()

		limit := priceLimit
		if limit <= 0 {
			limit = cfg.Limits.PriceBatch
		}

		fmt.Printf("Refreshing prices for up to %d charms...\n", limit)
		r, err := s.RunPriceRefresh(cmd.Context(), limit)
		if err != nil {
			return err
		}

		fmt.Println("\nPrice refresh complete:")
		fmt.Printf("  Processed: %d\n", r.Processed)
		fmt.Printf("  Updated: %d\n", r.Updated)
		fmt.Printf("  No listings found: %d\n", r.NoListings)
		fmt.Printf("  Failed: %d\n", r.Failed)
		return nil
	},
}

var imageLimit int

var refreshImagesCmd = &cobra.Command{
	Use:   "refresh-images",
	Short: "Re-scrape product pages for missing charm photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, st, err := buildScheduler()
		if err != nil {
			return err
		}
		defer st.Close()

		limit := imageLimit
		if limit <= 0 {
			limit = cfg.Limits.ImageBatch
		}

		fmt.Printf("Refreshing images for up to %d charms...\n", limit)
		r, err := s.RunImageRefresh(cmd.Context(), limit)
		if err != nil {
			return err
		}

		fmt.Println("\nImage refresh complete:")
		fmt.Printf("  Processed: %d\n", r.Processed)
		fmt.Printf("  Updated: %d\n", r.Updated)
		fmt.Printf("  Failed: %d\n", r.Failed)
		return nil
	},
}

func init() {
	refreshPricesCmd.Flags().IntVar(&priceLimit, "limit", 0, "Override price batch size")
	refreshImagesCmd.Flags().IntVar(&imageLimit, "limit", 0, "Override image batch size")
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the recurring jobs on their cron schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, st, err := buildScheduler()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := s.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		fmt.Println("Scheduler running. Press Ctrl+C to stop.")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		fmt.Println("\nStopping, waiting for running jobs...")
		<-s.Stop().Done()
		return nil
	},
}

var reportHTML bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the market digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		digest, err := report.Build(st, time.Now())
		if err != nil {
			return err
		}
		if reportHTML {
			html, err := report.RenderHTML(digest)
			if err != nil {
				return err
			}
			fmt.Println(html)
			return nil
		}
		fmt.Println(digest)
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportHTML, "html", false, "Render the digest as HTML")
}

func buildScheduler() (*scheduler.Scheduler, *store.Store, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	adapters, err := marketplace.FromConfig(cfg.Marketplaces)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	source := discovery.NewClient(cfg.Source, cfg.ItemDelay(), cfg.SourceTimeout())
	return scheduler.New(cfg, st, source, adapters), st, nil
}

func openStore() (*store.Store, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return store.Open(filepath.Join(dataDir, "charmtracker.db"))
}
