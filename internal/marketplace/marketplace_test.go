package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Soumadip-cmd/Charmstracker/internal/config"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"$45.50", 45.50},
		{"$1,299.99", 1299.99},
		{"Dragon Charm - $32", 32},
		{"£15.00", 15},
		{"45.5", 45.5},
		{"no price here", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parsePrice(tt.text); got != tt.want {
			t.Errorf("parsePrice(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestFromConfig(t *testing.T) {
	adapters, err := FromConfig([]config.Marketplace{
		{Name: "eBay", Kind: "html", SearchURL: "https://example.com/search?q={query}"},
		{Name: "Etsy", Kind: "api", SearchURL: "https://example.com/api?q={query}"},
		{Name: "Poshmark", Kind: "feed", SearchURL: "https://example.com/feed?q={query}"},
		{Name: "Dev", Kind: "mock"},
	})
	if err != nil {
		t.Fatalf("building adapters: %v", err)
	}
	if len(adapters) != 4 {
		t.Fatalf("adapters = %d, want 4", len(adapters))
	}
	for i, want := range []string{"eBay", "Etsy", "Poshmark", "Dev"} {
		if adapters[i].Name() != want {
			t.Errorf("adapter %d name = %q, want %q", i, adapters[i].Name(), want)
		}
	}
}

func TestFromConfigUnknownKind(t *testing.T) {
	_, err := FromConfig([]config.Marketplace{{Name: "X", Kind: "grpc"}})
	if err == nil {
		t.Error("expected error for unknown adapter kind")
	}
}

const cardsPage = `<html><body>
<div class="s-item">
  <h3>Dragon Charm Sterling Silver</h3>
  <span class="s-item__price">$45.50</span>
  <a href="https://example.com/listing/1">link</a>
  <img src="https://example.com/img/1.jpg">
  <span class="condition">Used</span>
</div>
<div class="s-item">
  <h3>Dragon Charm Retired</h3>
  <span class="s-item__price">$62.00</span>
  <a href="https://example.com/listing/2">link</a>
</div>
<div class="s-item">
  <h3>Unpriced placeholder row</h3>
</div>
</body></html>`

func TestHTMLAdapterCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Dragon charm" {
			t.Errorf("query = %q, want %q", got, "Dragon charm")
		}
		w.Write([]byte(cardsPage))
	}))
	defer srv.Close()

	a := NewHTMLAdapter("eBay", srv.URL+"/search?q={query}")
	listings, err := a.Search(context.Background(), "Dragon", 10)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("listings = %d, want 2", len(listings))
	}
	if listings[0].Price != 45.50 {
		t.Errorf("price = %v, want 45.50", listings[0].Price)
	}
	if listings[0].Platform != "eBay" {
		t.Errorf("platform = %q, want eBay", listings[0].Platform)
	}
	if listings[0].URL != "https://example.com/listing/1" {
		t.Errorf("url = %q", listings[0].URL)
	}
	if listings[0].Condition != "Used" {
		t.Errorf("condition = %q, want Used", listings[0].Condition)
	}
}

const microdataPage = `<html><body>
<div itemscope itemtype="https://schema.org/Product">
  <span itemprop="name">Owl Charm</span>
  <span itemprop="price" content="38.00">$38</span>
  <a itemprop="url" href="https://example.com/p/owl">view</a>
</div>
</body></html>`

func TestHTMLAdapterMicrodata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(microdataPage))
	}))
	defer srv.Close()

	a := NewHTMLAdapter("Shop", srv.URL+"/search?q={query}")
	listings, err := a.Search(context.Background(), "Owl", 10)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("listings = %d, want 1", len(listings))
	}
	if listings[0].Title != "Owl Charm" || listings[0].Price != 38.00 {
		t.Errorf("listing = %+v", listings[0])
	}
}

func TestHTMLAdapterLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(cardsPage))
	}))
	defer srv.Close()

	a := NewHTMLAdapter("eBay", srv.URL+"/search?q={query}")
	listings, err := a.Search(context.Background(), "Dragon", 1)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(listings) != 1 {
		t.Errorf("listings = %d, want 1", len(listings))
	}
}

func TestHTMLAdapterErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewHTMLAdapter("eBay", srv.URL+"/search?q={query}")
	if _, err := a.Search(context.Background(), "Dragon", 10); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestAPIAdapterWrappedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"title": "Fox Charm", "price": 28.5, "url": "https://example.com/f1", "seller": "vintage_jane"},
			{"title": "Fox Charm Gold", "price_text": "$95.00", "url": "https://example.com/f2"}
		]}`))
	}))
	defer srv.Close()

	a := NewAPIAdapter("Etsy", srv.URL+"/search?q={query}", "")
	listings, err := a.Search(context.Background(), "Fox", 10)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("listings = %d, want 2", len(listings))
	}
	if listings[0].Price != 28.5 || listings[0].Seller != "vintage_jane" {
		t.Errorf("listing = %+v", listings[0])
	}
	if listings[1].Price != 95.00 {
		t.Errorf("price from price_text = %v, want 95.00", listings[1].Price)
	}
}

func TestAPIAdapterBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"title": "Cat Charm", "price": 18}]`))
	}))
	defer srv.Close()

	a := NewAPIAdapter("Etsy", srv.URL+"/search?q={query}", "")
	listings, err := a.Search(context.Background(), "Cat", 10)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(listings) != 1 || listings[0].Price != 18 {
		t.Errorf("listings = %+v", listings)
	}
}

func TestAPIAdapterAuthHeader(t *testing.T) {
	t.Setenv("TEST_MARKET_KEY", "secret-token")
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	a := NewAPIAdapter("Etsy", srv.URL+"/search?q={query}", "TEST_MARKET_KEY")
	if !a.IsConfigured() {
		t.Fatal("adapter should be configured")
	}
	if _, err := a.Search(context.Background(), "Cat", 10); err != nil {
		t.Fatalf("searching: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

const searchFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Search results</title>
<item>
  <title>Lion Charm Sterling - $52.00</title>
  <link>https://example.com/l1</link>
  <description>Great condition</description>
</item>
<item>
  <title>Lion Charm (no price in title)</title>
  <link>https://example.com/l2</link>
  <description>Asking $40</description>
</item>
<item>
  <title>Unrelated unpriced entry</title>
  <link>https://example.com/l3</link>
  <description>nothing</description>
</item>
</channel></rss>`

func TestFeedAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(searchFeed))
	}))
	defer srv.Close()

	a := NewFeedAdapter("Poshmark", srv.URL+"/feed?q={query}")
	listings, err := a.Search(context.Background(), "Lion", 10)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("listings = %d, want 2 (unpriced entry skipped)", len(listings))
	}
	if listings[0].Price != 52.00 {
		t.Errorf("price = %v, want 52.00 from title", listings[0].Price)
	}
	if listings[1].Price != 40 {
		t.Errorf("price = %v, want 40 from description", listings[1].Price)
	}
}

func TestMockAdapterDeterministic(t *testing.T) {
	a := NewMockAdapter("Dev")

	first, err := a.Search(context.Background(), "Dragon", 3)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	second, err := a.Search(context.Background(), "Dragon", 3)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}

	if len(first) != 3 {
		t.Fatalf("listings = %d, want 3", len(first))
	}
	for i := range first {
		if first[i].Price != second[i].Price || first[i].Title != second[i].Title {
			t.Errorf("listing %d differs across runs: %+v vs %+v", i, first[i], second[i])
		}
		if first[i].Price <= 0 {
			t.Errorf("listing %d has non-positive price %v", i, first[i].Price)
		}
	}

	other, err := a.Search(context.Background(), "Owl", 3)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if other[0].Price == first[0].Price && other[0].URL == first[0].URL {
		t.Error("different items should produce different listings")
	}
}
