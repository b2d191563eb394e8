package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gouchan/seatsniper-sub001/internal/listing"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestMarketplace(baseURL string) *Marketplace {
	return NewMarketplace(MarketplaceOptions{
		Name:      "stubhub",
		BaseURL:   baseURL,
		APIKey:    "key",
		Timeout:   time.Second,
		UserAgent: "test",
	}, noopLogger())
}

func TestFetchListingsMissingConfig(t *testing.T) {
	m := NewMarketplace(MarketplaceOptions{Name: "stubhub"}, noopLogger())
	if _, err := m.FetchListings(context.Background(), "evt-1"); err == nil {
		t.Fatal("missing base url should fail")
	}

	m = newTestMarketplace("http://localhost")
	if _, err := m.FetchListings(context.Background(), ""); err == nil {
		t.Fatal("missing event id should fail")
	}
}

func TestFetchListingsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"errorType": "rate_limited"})
	}))
	defer srv.Close()

	m := newTestMarketplace(srv.URL)
	_, err := m.FetchListings(context.Background(), "evt-1")
	if err == nil {
		t.Fatal("HTTP 429 should fail")
	}
	if !strings.Contains(err.Error(), "rate_limited") {
		t.Fatalf("error should carry the API errorType: %v", err)
	}
}

func TestFetchListingsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/events/evt-1/listings") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Fatalf("missing bearer auth, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"listings": []map[string]any{
				{"section": "101", "row": "A", "price": "125.50", "quantity": 2, "tier": "premium", "url": "https://stubhub.test/1"},
				{"section": "305", "row": "GA", "price": "40", "quantity": 4, "tier": "upper level", "url": "https://stubhub.test/2"},
			},
		})
	}))
	defer srv.Close()

	m := newTestMarketplace(srv.URL)
	listings, err := m.FetchListings(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}

	first := listings[0]
	if first.Platform != "stubhub" {
		t.Fatalf("platform should be stamped, got %q", first.Platform)
	}
	if !first.PricePerTicket.Equal(decimal.RequireFromString("125.50")) {
		t.Fatalf("price misparsed: %s", first.PricePerTicket)
	}
	if first.Tier != listing.TierPremium {
		t.Fatalf("tier misparsed: %v", first.Tier)
	}
	if listings[1].Tier != listing.TierUpperLevel {
		t.Fatalf("loose tier text should normalize, got %v", listings[1].Tier)
	}
}

func TestFetchListingsRejectsUnknownTier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"listings": []map[string]any{
				{"section": "101", "row": "A", "price": "100", "quantity": 1, "tier": "mystery"},
			},
		})
	}))
	defer srv.Close()

	m := newTestMarketplace(srv.URL)
	if _, err := m.FetchListings(context.Background(), "evt-1"); err == nil {
		t.Fatal("unknown tier must fail at the boundary")
	}
}

func TestFetchListingsRejectsNegativePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"listings": []map[string]any{
				{"section": "101", "row": "A", "price": "-5", "quantity": 1, "tier": "premium"},
			},
		})
	}))
	defer srv.Close()

	m := newTestMarketplace(srv.URL)
	if _, err := m.FetchListings(context.Background(), "evt-1"); err == nil {
		t.Fatal("negative price must fail at the boundary")
	}
}
