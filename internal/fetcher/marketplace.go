package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gouchan/seatsniper-sub001/internal/listing"
)

// MarketplaceOptions parameterise a marketplace listings client.
type MarketplaceOptions struct {
	Name      string
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// Marketplace fetches listings over the platform's HTTP API.
type Marketplace struct {
	opts    MarketplaceOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewMarketplace constructs a marketplace fetcher.
func NewMarketplace(opts MarketplaceOptions, logger zerolog.Logger) *Marketplace {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Marketplace{
		opts:    opts,
		logger:  logger.With().Str("component", "marketplace_fetcher").Str("platform", opts.Name).Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// Platform returns the marketplace name used in listings and alerts.
func (m *Marketplace) Platform() string {
	return m.opts.Name
}

// FetchListings retrieves and normalizes the event's active listings.
// A listing with an unknown section tier or unparseable price fails
// the whole fetch.
func (m *Marketplace) FetchListings(ctx context.Context, eventID string) ([]listing.Listing, error) {
	if m.baseURL == "" {
		return nil, fmt.Errorf("marketplace %s: base url not configured", m.opts.Name)
	}
	if eventID == "" {
		return nil, fmt.Errorf("marketplace %s: event id required", m.opts.Name)
	}

	endpoint := fmt.Sprintf("%s/events/%s/listings", m.baseURL, eventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if m.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.opts.APIKey)
	}
	if ua := strings.TrimSpace(m.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "seatsniper/1.0")
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(m.opts.Name, resp.StatusCode, payload)
	}

	var body listingsResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("marketplace %s: decode listings: %w", m.opts.Name, err)
	}

	normalized := make([]listing.Listing, 0, len(body.Listings))
	for i, raw := range body.Listings {
		l, err := m.normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("marketplace %s: listing %d: %w", m.opts.Name, i, err)
		}
		normalized = append(normalized, l)
	}

	m.logger.Debug().Str("event_id", eventID).Int("listings", len(normalized)).Msg("listings fetched")
	return normalized, nil
}

func (m *Marketplace) normalize(raw rawListing) (listing.Listing, error) {
	price, err := decimal.NewFromString(raw.Price)
	if err != nil {
		return listing.Listing{}, fmt.Errorf("parse price %q: %w", raw.Price, err)
	}
	if price.IsNegative() {
		return listing.Listing{}, fmt.Errorf("negative price %s", price)
	}

	tier, err := listing.ParseSectionTier(raw.Tier)
	if err != nil {
		return listing.Listing{}, err
	}

	quantity := raw.Quantity
	if quantity < 0 {
		quantity = 0
	}

	return listing.Listing{
		Platform:       m.opts.Name,
		Section:        raw.Section,
		Row:            raw.Row,
		PricePerTicket: price,
		Quantity:       quantity,
		Tier:           tier,
		URL:            raw.URL,
	}, nil
}

type listingsResponse struct {
	Listings []rawListing `json:"listings"`
}

type rawListing struct {
	Section  string `json:"section"`
	Row      string `json:"row"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
	Tier     string `json:"tier"`
	URL      string `json:"url"`
}

type errorResponse struct {
	ErrorType   string `json:"errorType"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

func parseHTTPError(platform string, status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Description != "" {
			return fmt.Errorf("%s api error (%d): %s", platform, status, apiErr.Description)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("%s api error (%d): %s", platform, status, apiErr.Message)
		}
		if apiErr.ErrorType != "" {
			return fmt.Errorf("%s api error (%d): %s", platform, status, apiErr.ErrorType)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("%s api error (%d): %s", platform, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%s api error (%d)", platform, status)
}

var _ ListingFetcher = (*Marketplace)(nil)
