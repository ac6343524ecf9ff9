// Package report builds the market digest: a markdown summary of
// catalog health and recent price movement, with an HTML rendering
// for sharing.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/Soumadip-cmd/Charmstracker/internal/catalog"
	"github.com/Soumadip-cmd/Charmstracker/internal/store"
)

const moversShown = 5

var md = goldmark.New()

// Build assembles the market digest as markdown.
func Build(st *store.Store, now time.Time) (string, error) {
	stats, err := st.GetStats()
	if err != nil {
		return "", fmt.Errorf("loading stats: %w", err)
	}
	items, err := st.List(store.Filter{})
	if err != nil {
		return "", fmt.Errorf("loading items: %w", err)
	}
	mostListed, err := st.MostListed(moversShown)
	if err != nil {
		return "", fmt.Errorf("loading listing ranks: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Charm Market Digest\n\n%s\n\n", now.Format("January 2, 2006"))

	fmt.Fprintf(&b, "## Catalog\n\n")
	fmt.Fprintf(&b, "- **%d** charms tracked (%d active, %d retired)\n", stats.Total, stats.Active, stats.Retired)
	fmt.Fprintf(&b, "- Average price: **$%.2f**\n", stats.AvgPrice)
	if stats.NeedImages > 0 {
		fmt.Fprintf(&b, "- %d charms awaiting product photos\n", stats.NeedImages)
	}

	risers, fallers := movers(items)
	if len(risers) > 0 {
		b.WriteString("\n## Top Risers (7d)\n\n")
		writeMovers(&b, risers)
	}
	if len(fallers) > 0 {
		b.WriteString("\n## Top Fallers (7d)\n\n")
		writeMovers(&b, fallers)
	}

	if len(mostListed) > 0 {
		b.WriteString("\n## Most Listed\n\n")
		for _, li := range mostListed {
			fmt.Fprintf(&b, "- %s: %d active listings\n", li.Name, li.Count)
		}
	}

	return b.String(), nil
}

// RenderHTML converts a markdown digest to HTML.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering digest: %w", err)
	}
	return buf.String(), nil
}

func movers(items []*catalog.Item) (risers, fallers []*catalog.Item) {
	for _, item := range items {
		switch {
		case item.PriceChange7d > 0:
			risers = append(risers, item)
		case item.PriceChange7d < 0:
			fallers = append(fallers, item)
		}
	}
	sort.Slice(risers, func(i, j int) bool {
		return risers[i].PriceChange7d > risers[j].PriceChange7d
	})
	sort.Slice(fallers, func(i, j int) bool {
		return fallers[i].PriceChange7d < fallers[j].PriceChange7d
	})
	if len(risers) > moversShown {
		risers = risers[:moversShown]
	}
	if len(fallers) > moversShown {
		fallers = fallers[:moversShown]
	}
	return risers, fallers
}

func writeMovers(b *strings.Builder, items []*catalog.Item) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s: $%.2f (%+.1f%%)\n", item.Name, item.AvgPrice, item.PriceChange7d)
	}
}
