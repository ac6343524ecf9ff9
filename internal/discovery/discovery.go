// Package discovery scrapes the retailer catalog for charm products.
// It walks configured category pages for product links and fetches
// product detail pages into raw item records for reconciliation.
package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
	"github.com/Soumadip-cmd/Charmstracker/internal/config"
)

const userAgent = "CharmTracker/1.0 (catalog sync)"

// Client scrapes the retailer catalog site.
type Client struct {
	baseURL        string
	categories     []string
	maxPerCategory int
	itemDelay      time.Duration
	client         *http.Client
}

// NewClient creates a catalog scraper from source configuration.
func NewClient(src config.Source, itemDelay time.Duration, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(src.BaseURL, "/"),
		categories:     src.Categories,
		maxPerCategory: src.MaxPerCategory,
		itemDelay:      itemDelay,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Categories returns the configured category slugs.
func (c *Client) Categories() []string {
	return c.categories
}

// categoryURL accepts both full site paths ("/charms/gold-charms")
// and bare collection slugs ("gold-charms").
func (c *Client) categoryURL(category string) string {
	if strings.HasPrefix(category, "/") {
		return c.baseURL + category
	}
	return fmt.Sprintf("%s/collections/%s", c.baseURL, category)
}

// Discover scrapes one category page and fetches the detail page of
// every product it links to, up to the configured per-category cap.
// A failed detail fetch skips that product; the category error is
// reserved for the category page itself being unreachable.
func (c *Client) Discover(ctx context.Context, category string) ([]catalog.RawItemRecord, error) {
	doc, err := c.get(ctx, c.categoryURL(category))
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", category, err)
	}

	links := c.productLinks(doc)
	if c.maxPerCategory > 0 && len(links) > c.maxPerCategory {
		links = links[:c.maxPerCategory]
	}

	var records []catalog.RawItemRecord
	for i, link := range links {
		if i > 0 && c.itemDelay > 0 {
			if err := sleep(ctx, c.itemDelay); err != nil {
				return records, err
			}
		}
		rec, err := c.Detail(ctx, link)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Detail fetches one product page and extracts a raw item record.
func (c *Client) Detail(ctx context.Context, productURL string) (catalog.RawItemRecord, error) {
	doc, err := c.get(ctx, productURL)
	if err != nil {
		return catalog.RawItemRecord{}, fmt.Errorf("product %s: %w", productURL, err)
	}

	rec := catalog.RawItemRecord{SourceURL: productURL}

	rec.Name = strings.TrimSpace(doc.Find("h1").First().Text())
	if rec.Name == "" {
		rec.Name, _ = doc.Find(`meta[property="og:title"]`).First().Attr("content")
		rec.Name = strings.TrimSpace(rec.Name)
	}
	if rec.Name == "" {
		return catalog.RawItemRecord{}, fmt.Errorf("product %s: no name found", productURL)
	}

	rec.Description = c.description(doc, productURL)
	rec.OfficialPrice = officialPrice(doc)
	rec.Material = material(rec.Name, rec.Description)
	rec.Images = productImages(doc, productURL)

	rec.Status = catalog.StatusActive
	if isRetired(doc, productURL) {
		rec.Status = catalog.StatusRetired
	}

	return rec, nil
}

func (c *Client) get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// productLinks collects unique product page URLs from a category page,
// resolved against the catalog base URL.
func (c *Client) productLinks(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	var links []string

	doc.Find(`a[href*="/products/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		link := c.resolve(href)
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links
}

func (c *Client) resolve(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u.Fragment = ""
	if u.IsAbs() {
		return u.String()
	}
	return c.baseURL + u.String()
}

// description tries product description selectors first and falls back
// to readability extraction of the whole page.
func (c *Client) description(doc *goquery.Document, pageURL string) string {
	selectors := []string{
		`[class*="product-description"]`,
		`[class*="description"]`,
		`[itemprop="description"]`,
	}
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if text := strings.TrimSpace(content); text != "" {
			return text
		}
	}

	html, err := doc.Html()
	if err != nil {
		return ""
	}
	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) > 500 {
		text = text[:500]
	}
	return text
}

func officialPrice(doc *goquery.Document) float64 {
	if content, ok := doc.Find(`[itemprop="price"], meta[property="og:price:amount"]`).First().Attr("content"); ok {
		if p := parsePrice(content); p > 0 {
			return p
		}
	}
	return parsePrice(doc.Find(`[class*="price"]`).First().Text())
}

func material(name, description string) catalog.Material {
	text := strings.ToLower(name + " " + description)
	if strings.Contains(text, "gold") && !strings.Contains(text, "goldfish") {
		return catalog.MaterialGold
	}
	return catalog.MaterialSilver
}

// productImages extracts up to MaxImages product photos as image refs,
// tagging placeholders so reconciliation skips them.
func productImages(doc *goquery.Document, pageURL string) []catalog.ImageRef {
	base, _ := url.Parse(pageURL)
	seen := make(map[string]struct{})
	var refs []catalog.ImageRef

	doc.Find(`[class*="product"] img, [itemprop="image"], meta[property="og:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if len(refs) >= catalog.MaxImages {
			return
		}
		src, ok := sel.Attr("src")
		if !ok {
			src, ok = sel.Attr("content")
		}
		if !ok || src == "" {
			return
		}
		if base != nil {
			if u, err := base.Parse(src); err == nil {
				src = u.String()
			}
		}
		if _, dup := seen[src]; dup {
			return
		}
		seen[src] = struct{}{}
		refs = append(refs, catalog.ImageRef{URL: src, Placeholder: catalog.IsPlaceholderImage(src)})
	})
	return refs
}

func isRetired(doc *goquery.Document, pageURL string) bool {
	if strings.Contains(strings.ToLower(pageURL), "retired") {
		return true
	}
	badge := strings.ToLower(doc.Find(`[class*="badge"], [class*="label"], [class*="status"]`).Text())
	return strings.Contains(badge, "retired") || strings.Contains(badge, "discontinued")
}

var priceRe = regexp.MustCompile(`[\$£€]?\s*(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)`)

func parsePrice(text string) float64 {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
