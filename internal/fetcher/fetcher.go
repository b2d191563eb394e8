package fetcher

import (
	"context"

	"github.com/gouchan/seatsniper-sub001/internal/listing"
)

// ListingFetcher retrieves the current resale listings for one event
// from a single marketplace, already normalized into domain types.
type ListingFetcher interface {
	Platform() string
	FetchListings(ctx context.Context, eventID string) ([]listing.Listing, error)
}
