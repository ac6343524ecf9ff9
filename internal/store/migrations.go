package store

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    material TEXT NOT NULL DEFAULT 'Silver',
    status TEXT NOT NULL DEFAULT 'Active',
    retired INTEGER DEFAULT 0,
    source_url TEXT,
    avg_price REAL DEFAULT 0,
    price_change_7d REAL DEFAULT 0,
    price_change_30d REAL DEFAULT 0,
    price_change_90d REAL DEFAULT 0,
    popularity INTEGER DEFAULT 70,
    images TEXT,
    related_ids TEXT,
    missed_passes INTEGER DEFAULT 0,
    needs_image_update INTEGER DEFAULT 1,
    needs_scraper_update INTEGER DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now')),
    last_updated TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS listings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id TEXT NOT NULL REFERENCES items(id),
    platform TEXT NOT NULL,
    title TEXT,
    price REAL DEFAULT 0,
    url TEXT,
    condition TEXT,
    seller TEXT,
    shipping TEXT,
    image_url TEXT,
    scraped_at TEXT
);

CREATE TABLE IF NOT EXISTS price_history (
    item_id TEXT NOT NULL REFERENCES items(id),
    date TEXT NOT NULL,
    price REAL NOT NULL,
    source TEXT NOT NULL DEFAULT 'aggregated',
    listing_count INTEGER DEFAULT 0,
    PRIMARY KEY (item_id, date, source)
);

CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
CREATE INDEX IF NOT EXISTS idx_items_material ON items(material);
CREATE INDEX IF NOT EXISTS idx_items_last_updated ON items(last_updated);
CREATE INDEX IF NOT EXISTS idx_items_needs_image ON items(needs_image_update);
CREATE INDEX IF NOT EXISTS idx_listings_item ON listings(item_id);
CREATE INDEX IF NOT EXISTS idx_price_history_item ON price_history(item_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
