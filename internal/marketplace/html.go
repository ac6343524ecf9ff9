package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
)

// HTMLAdapter scrapes a marketplace search results page. It recognizes
// two layouts: schema.org Product/Offer microdata, and the common
// listing-card convention (elements classed *listing* or *s-item* with
// a price element inside). The selectors are intentionally generic;
// per-site tuning happens through the search URL, not code.
type HTMLAdapter struct {
	name      string
	searchTpl string
	client    *http.Client
}

// NewHTMLAdapter creates a search-page scraping adapter.
func NewHTMLAdapter(name, searchTpl string) *HTMLAdapter {
	return &HTMLAdapter{
		name:      name,
		searchTpl: searchTpl,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *HTMLAdapter) Name() string { return a.name }

// Search fetches the search page for itemName and extracts up to limit
// listings.
func (a *HTMLAdapter) Search(ctx context.Context, itemName string, limit int) ([]catalog.Listing, error) {
	query := itemName + " charm"
	req, err := http.NewRequestWithContext(ctx, "GET", searchURL(a.searchTpl, query), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", a.name, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: search failed: %w", a.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: search returned status %d", a.name, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: parsing results: %w", a.name, err)
	}

	listings := a.extractMicrodata(doc, limit)
	if len(listings) == 0 {
		listings = a.extractCards(doc, limit)
	}
	return listings, nil
}

func (a *HTMLAdapter) extractMicrodata(doc *goquery.Document, limit int) []catalog.Listing {
	var listings []catalog.Listing
	now := time.Now()

	doc.Find(`[itemtype$="schema.org/Product"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find(`[itemprop="name"]`).First().Text())
		priceText, ok := sel.Find(`[itemprop="price"]`).First().Attr("content")
		if !ok {
			priceText = sel.Find(`[itemprop="price"]`).First().Text()
		}
		price := parsePrice(priceText)
		if title == "" || price <= 0 {
			return true
		}

		l := catalog.Listing{
			Platform:  a.name,
			Title:     title,
			Price:     price,
			ScrapedAt: now,
		}
		if href, ok := sel.Find(`a[itemprop="url"], a`).First().Attr("href"); ok {
			l.URL = href
		}
		if src, ok := sel.Find(`img[itemprop="image"], img`).First().Attr("src"); ok {
			l.ImageURL = src
		}
		l.Condition = strings.TrimSpace(sel.Find(`[itemprop="itemCondition"]`).First().Text())
		l.Seller = strings.TrimSpace(sel.Find(`[itemprop="seller"]`).First().Text())

		listings = append(listings, l)
		return len(listings) < limit
	})

	return listings
}

func (a *HTMLAdapter) extractCards(doc *goquery.Document, limit int) []catalog.Listing {
	var listings []catalog.Listing
	now := time.Now()

	doc.Find(`[class*="listing"], [class*="s-item"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find(`h2, h3, [class*="title"]`).First().Text())
		price := parsePrice(sel.Find(`[class*="price"]`).First().Text())
		if title == "" || price <= 0 {
			return true
		}

		l := catalog.Listing{
			Platform:  a.name,
			Title:     title,
			Price:     price,
			ScrapedAt: now,
		}
		if href, ok := sel.Find("a").First().Attr("href"); ok {
			l.URL = href
		}
		if src, ok := sel.Find("img").First().Attr("src"); ok {
			l.ImageURL = src
		}
		l.Condition = strings.TrimSpace(sel.Find(`[class*="condition"]`).First().Text())
		l.Seller = strings.TrimSpace(sel.Find(`[class*="seller"]`).First().Text())
		l.Shipping = strings.TrimSpace(sel.Find(`[class*="shipping"]`).First().Text())

		listings = append(listings, l)
		return len(listings) < limit
	})

	return listings
}
