package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
)

// FeedAdapter reads an RSS/Atom search feed. Marketplaces that expose
// saved searches as feeds put the price in the entry title, so the
// price is parsed out of the title text.
type FeedAdapter struct {
	name      string
	searchTpl string
	parser    *gofeed.Parser
}

// NewFeedAdapter creates a search-feed adapter.
func NewFeedAdapter(name, searchTpl string) *FeedAdapter {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &FeedAdapter{name: name, searchTpl: searchTpl, parser: parser}
}

func (a *FeedAdapter) Name() string { return a.name }

// Search fetches the search feed for itemName and extracts up to limit
// priced entries. Entries without a recognizable price are skipped.
func (a *FeedAdapter) Search(ctx context.Context, itemName string, limit int) ([]catalog.Listing, error) {
	feed, err := a.parser.ParseURLWithContext(searchURL(a.searchTpl, itemName+" charm"), ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: parsing feed: %w", a.name, err)
	}

	now := time.Now()
	var listings []catalog.Listing
	for _, item := range feed.Items {
		if len(listings) >= limit {
			break
		}
		price := parsePrice(item.Title)
		if price == 0 {
			price = parsePrice(item.Description)
		}
		if price == 0 {
			continue
		}

		l := catalog.Listing{
			Platform:  a.name,
			Title:     item.Title,
			Price:     price,
			URL:       item.Link,
			ScrapedAt: now,
		}
		if item.Author != nil {
			l.Seller = item.Author.Name
		}
		if item.Image != nil {
			l.ImageURL = item.Image.URL
		}
		listings = append(listings, l)
	}
	return listings, nil
}
