package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
)

const timeFormat = time.RFC3339
const dateFormat = "2006-01-02"

// Filter narrows List and Count queries. Nil pointer fields match everything.
type Filter struct {
	Status      *catalog.Status
	Material    *catalog.Material
	NeedsImages bool
	OldestFirst bool
	Limit       int
}

// Stats summarizes the catalog for the status command.
type Stats struct {
	Total       int
	Active      int
	Retired     int
	NeedPricing int
	NeedImages  int
	AvgPrice    float64
	LastUpdated string
}

// FindOne loads an item with its listings and price history.
// Returns nil with no error when the item does not exist.
func (s *Store) FindOne(id string) (*catalog.Item, error) {
	row := s.conn.QueryRow(`
		SELECT id, name, description, material, status, retired, source_url,
		       avg_price, price_change_7d, price_change_30d, price_change_90d,
		       popularity, images, related_ids, missed_passes,
		       needs_image_update, needs_scraper_update, created_at, last_updated
		FROM items WHERE id = ?`, id)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading item %s: %w", id, err)
	}

	if item.Listings, err = s.itemListings(id); err != nil {
		return nil, err
	}
	if item.History, err = s.itemHistory(id); err != nil {
		return nil, err
	}
	return item, nil
}

// Upsert writes a full item document. Listings are replaced wholesale;
// price history rows are inserted with INSERT OR IGNORE so re-observing
// the same (item, date, source) is a no-op.
func (s *Store) Upsert(item *catalog.Item) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	images, err := json.Marshal(item.Images)
	if err != nil {
		return fmt.Errorf("encoding images: %w", err)
	}
	related, err := json.Marshal(item.RelatedIDs)
	if err != nil {
		return fmt.Errorf("encoding related ids: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO items (
			id, name, description, material, status, retired, source_url,
			avg_price, price_change_7d, price_change_30d, price_change_90d,
			popularity, images, related_ids, missed_passes,
			needs_image_update, needs_scraper_update, created_at, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			material = excluded.material,
			status = excluded.status,
			retired = excluded.retired,
			source_url = excluded.source_url,
			avg_price = excluded.avg_price,
			price_change_7d = excluded.price_change_7d,
			price_change_30d = excluded.price_change_30d,
			price_change_90d = excluded.price_change_90d,
			popularity = excluded.popularity,
			images = excluded.images,
			related_ids = excluded.related_ids,
			missed_passes = excluded.missed_passes,
			needs_image_update = excluded.needs_image_update,
			needs_scraper_update = excluded.needs_scraper_update,
			last_updated = excluded.last_updated`,
		item.ID, item.Name, item.Description, string(item.Material),
		string(item.Status), boolInt(item.Retired), item.SourceURL,
		item.AvgPrice, item.PriceChange7d, item.PriceChange30d, item.PriceChange90d,
		item.Popularity, string(images), string(related), item.MissedPasses,
		boolInt(item.NeedsImageUpdate), boolInt(item.NeedsScraperUpdate),
		formatTime(item.CreatedAt), formatTime(item.LastUpdated))
	if err != nil {
		return fmt.Errorf("upserting item %s: %w", item.ID, err)
	}

	if err := replaceListings(tx, item.ID, item.Listings); err != nil {
		return err
	}
	for _, obs := range item.History {
		if err := insertObservation(tx, item.ID, obs); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// List returns items matching the filter. Listings and history are not
// loaded; use FindOne for the full document.
func (s *Store) List(f Filter) ([]*catalog.Item, error) {
	where, args := f.clauses()
	query := `
		SELECT id, name, description, material, status, retired, source_url,
		       avg_price, price_change_7d, price_change_30d, price_change_90d,
		       popularity, images, related_ids, missed_passes,
		       needs_image_update, needs_scraper_update, created_at, last_updated
		FROM items` + where
	if f.OldestFirst {
		query += " ORDER BY last_updated ASC"
	} else {
		query += " ORDER BY name ASC"
	}
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []*catalog.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Count returns the number of items matching the filter.
func (s *Store) Count(f Filter) (int, error) {
	where, args := f.clauses()
	var count int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM items"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return count, nil
}

// UpdatePrices writes the result of a price refresh in one transaction:
// the new average and trends, the replaced listing set, and the day's
// price observation.
func (s *Store) UpdatePrices(id string, avg float64, change7d, change30d, change90d *float64, listings []catalog.Listing, obs catalog.PriceObservation) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin price update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE items SET
			avg_price = ?,
			price_change_7d = COALESCE(?, price_change_7d),
			price_change_30d = COALESCE(?, price_change_30d),
			price_change_90d = COALESCE(?, price_change_90d),
			last_updated = ?
		WHERE id = ?`,
		avg, change7d, change30d, change90d, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating prices for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating prices: item %s not found", id)
	}

	if err := replaceListings(tx, id, listings); err != nil {
		return err
	}
	if err := insertObservation(tx, id, obs); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateImages replaces an item's image list and clears the refresh flag.
func (s *Store) UpdateImages(id string, images []string) error {
	encoded, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("encoding images: %w", err)
	}
	res, err := s.conn.Exec(`
		UPDATE items SET images = ?, needs_image_update = 0, last_updated = ?
		WHERE id = ?`,
		string(encoded), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating images for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating images: item %s not found", id)
	}
	return nil
}

// MarkSeen resets the missed-pass counter after an item was observed
// during a discovery pass.
func (s *Store) MarkSeen(id string) error {
	_, err := s.conn.Exec("UPDATE items SET missed_passes = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking %s seen: %w", id, err)
	}
	return nil
}

// MarkMissed increments the missed-pass counter and returns the new count.
func (s *Store) MarkMissed(id string) (int, error) {
	_, err := s.conn.Exec("UPDATE items SET missed_passes = missed_passes + 1 WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("marking %s missed: %w", id, err)
	}
	var count int
	err = s.conn.QueryRow("SELECT missed_passes FROM items WHERE id = ?", id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("reading missed count for %s: %w", id, err)
	}
	return count, nil
}

// FlagForRescrape marks an item so the next discovery pass re-verifies it.
func (s *Store) FlagForRescrape(id string) error {
	_, err := s.conn.Exec(`
		UPDATE items SET needs_scraper_update = 1, last_updated = ?
		WHERE id = ?`, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("flagging %s for rescrape: %w", id, err)
	}
	return nil
}

// MarkRetired moves an item to retired status.
func (s *Store) MarkRetired(id string) error {
	_, err := s.conn.Exec(`
		UPDATE items SET status = ?, retired = 1, last_updated = ?
		WHERE id = ?`, string(catalog.StatusRetired), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("retiring %s: %w", id, err)
	}
	return nil
}

// GetStats summarizes the catalog.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := s.conn.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'Active' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'Retired' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN needs_scraper_update = 1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN needs_image_update = 1 THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(avg_price), 0),
		       COALESCE(MAX(last_updated), '')
		FROM items`).Scan(
		&stats.Total, &stats.Active, &stats.Retired,
		&stats.NeedPricing, &stats.NeedImages,
		&stats.AvgPrice, &stats.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}
	return stats, nil
}

// ListedItem pairs an item with its current marketplace listing count.
type ListedItem struct {
	ID    string
	Name  string
	Count int
}

// MostListed returns the items with the most stored listings.
func (s *Store) MostListed(limit int) ([]ListedItem, error) {
	rows, err := s.conn.Query(`
		SELECT i.id, i.name, COUNT(l.id) AS n
		FROM items i
		JOIN listings l ON l.item_id = i.id
		GROUP BY i.id, i.name
		ORDER BY n DESC, i.name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ranking by listings: %w", err)
	}
	defer rows.Close()

	var items []ListedItem
	for rows.Next() {
		var li ListedItem
		if err := rows.Scan(&li.ID, &li.Name, &li.Count); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (f Filter) clauses() (string, []any) {
	var conds []string
	var args []any
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Material != nil {
		conds = append(conds, "material = ?")
		args = append(args, string(*f.Material))
	}
	if f.NeedsImages {
		conds = append(conds, "(needs_image_update = 1 OR images LIKE '%placeholder%')")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*catalog.Item, error) {
	var item catalog.Item
	var material, status string
	var retired, needsImage, needsScraper int
	var images, related, createdAt, lastUpdated string

	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &material, &status,
		&retired, &item.SourceURL,
		&item.AvgPrice, &item.PriceChange7d, &item.PriceChange30d, &item.PriceChange90d,
		&item.Popularity, &images, &related, &item.MissedPasses,
		&needsImage, &needsScraper, &createdAt, &lastUpdated)
	if err != nil {
		return nil, err
	}

	item.Material = catalog.Material(material)
	item.Status = catalog.Status(status)
	item.Retired = retired != 0
	item.NeedsImageUpdate = needsImage != 0
	item.NeedsScraperUpdate = needsScraper != 0
	item.CreatedAt = parseTime(createdAt)
	item.LastUpdated = parseTime(lastUpdated)

	if images != "" {
		if err := json.Unmarshal([]byte(images), &item.Images); err != nil {
			return nil, fmt.Errorf("decoding images for %s: %w", item.ID, err)
		}
	}
	if related != "" {
		if err := json.Unmarshal([]byte(related), &item.RelatedIDs); err != nil {
			return nil, fmt.Errorf("decoding related ids for %s: %w", item.ID, err)
		}
	}
	return &item, nil
}

func (s *Store) itemListings(id string) ([]catalog.Listing, error) {
	rows, err := s.conn.Query(`
		SELECT platform, title, price, url, condition, seller, shipping, image_url, scraped_at
		FROM listings WHERE item_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("loading listings for %s: %w", id, err)
	}
	defer rows.Close()

	var listings []catalog.Listing
	for rows.Next() {
		var l catalog.Listing
		var scrapedAt string
		err := rows.Scan(&l.Platform, &l.Title, &l.Price, &l.URL,
			&l.Condition, &l.Seller, &l.Shipping, &l.ImageURL, &scrapedAt)
		if err != nil {
			return nil, err
		}
		l.ScrapedAt = parseTime(scrapedAt)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *Store) itemHistory(id string) ([]catalog.PriceObservation, error) {
	rows, err := s.conn.Query(`
		SELECT date, price, source, listing_count
		FROM price_history WHERE item_id = ? ORDER BY date`, id)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", id, err)
	}
	defer rows.Close()

	var history []catalog.PriceObservation
	for rows.Next() {
		var obs catalog.PriceObservation
		err := rows.Scan(&obs.Date, &obs.Price, &obs.Source, &obs.ListingCount)
		if err != nil {
			return nil, err
		}
		history = append(history, obs)
	}
	return history, rows.Err()
}

func replaceListings(tx *sql.Tx, itemID string, listings []catalog.Listing) error {
	if _, err := tx.Exec("DELETE FROM listings WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("clearing listings for %s: %w", itemID, err)
	}
	for _, l := range listings {
		_, err := tx.Exec(`
			INSERT INTO listings (item_id, platform, title, price, url, condition, seller, shipping, image_url, scraped_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			itemID, l.Platform, l.Title, l.Price, l.URL,
			l.Condition, l.Seller, l.Shipping, l.ImageURL, formatTime(l.ScrapedAt))
		if err != nil {
			return fmt.Errorf("inserting listing for %s: %w", itemID, err)
		}
	}
	return nil
}

func insertObservation(tx *sql.Tx, itemID string, obs catalog.PriceObservation) error {
	source := obs.Source
	if source == "" {
		source = "aggregated"
	}
	_, err := tx.Exec(`
		INSERT OR IGNORE INTO price_history (item_id, date, price, source, listing_count)
		VALUES (?, ?, ?, ?, ?)`,
		itemID, obs.Date, obs.Price, source, obs.ListingCount)
	if err != nil {
		return fmt.Errorf("recording observation for %s: %w", itemID, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timeFormat, s); err == nil {
		return t
	}
	// SQLite datetime('now') default produces this format.
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
