package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Source       Source        `yaml:"source"`
	Marketplaces []Marketplace `yaml:"marketplaces"`
	Schedule     Schedule      `yaml:"schedule"`
	Limits       Limits        `yaml:"limits"`
	Retirement   Retirement    `yaml:"retirement"`
	Output       Output        `yaml:"output"`
	Logging      Logging       `yaml:"logging"`
}

// Source configures the retailer catalog that discovery scrapes.
type Source struct {
	BaseURL        string   `yaml:"base_url"`
	Categories     []string `yaml:"categories"`
	MaxPerCategory int      `yaml:"max_per_category"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Marketplace configures one resale-listing source. Kind selects the
// adapter: "html" (search page scrape), "api" (JSON search API),
// "feed" (RSS/Atom search feed) or "mock" (offline synthetic data).
type Marketplace struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"`
	SearchURL string `yaml:"search_url"` // contains {query}
	APIKeyEnv string `yaml:"api_key_env"`
}

// Schedule holds the cron specs for the three recurring jobs.
type Schedule struct {
	Discovery    string `yaml:"discovery"`
	PriceRefresh string `yaml:"price_refresh"`
	ImageRefresh string `yaml:"image_refresh"`
}

// Limits bounds external request volume per job run.
type Limits struct {
	PriceBatch           int `yaml:"price_batch"`
	ImageBatch           int `yaml:"image_batch"`
	ListingsPerMarket    int `yaml:"listings_per_market"`
	CategoryDelaySeconds int `yaml:"category_delay_seconds"`
	ItemDelaySeconds     int `yaml:"item_delay_seconds"`
}

// Retirement configures what happens to stored items missing from a
// full discovery pass: "off" leaves them alone, "flag" marks them for
// a manual re-scrape, "retire" flips status after MissedPasses
// consecutive absences.
type Retirement struct {
	Policy       string `yaml:"policy"`
	MissedPasses int    `yaml:"missed_passes"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for charmtracker.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "charmtracker")
}

// DataDir returns the XDG data directory for charmtracker.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "charmtracker")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/charmtracker/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'charmtracker init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Source: Source{
			BaseURL: "https://www.jamesavery.com",
			Categories: []string{
				"/charms/sterling-silver-charms",
				"/charms/gold-charms",
				"/charms/retired-charms",
			},
			MaxPerCategory: 50,
			TimeoutSeconds: 30,
		},
		Schedule: Schedule{
			Discovery:    "0 2 * * *",
			PriceRefresh: "0 */6 * * *",
			ImageRefresh: "0 */12 * * *",
		},
		Limits: Limits{
			PriceBatch:           20,
			ImageBatch:           50,
			ListingsPerMarket:    10,
			CategoryDelaySeconds: 2,
			ItemDelaySeconds:     1,
		},
		Retirement: Retirement{
			Policy:       "off",
			MissedPasses: 3,
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.Retirement.Policy {
	case "off", "flag", "retire":
	default:
		return nil, fmt.Errorf("invalid retirement policy %q (want off, flag or retire)", cfg.Retirement.Policy)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// CategoryDelay is the pause between category fetches.
func (c *Config) CategoryDelay() time.Duration {
	return time.Duration(c.Limits.CategoryDelaySeconds) * time.Second
}

// ItemDelay is the pause between per-item external calls.
func (c *Config) ItemDelay() time.Duration {
	return time.Duration(c.Limits.ItemDelaySeconds) * time.Second
}

// SourceTimeout is the HTTP timeout for retailer catalog fetches.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
