// Package deeplink builds purchase URLs for ranked listings.
package deeplink

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gouchan/seatsniper-sub001/internal/listing"
)

// Builder renders per-platform purchase links. Platforms without a
// template fall back to the listing's own URL.
type Builder struct {
	templates map[string]string
}

// NewBuilder maps lowercase platform names to URL templates. Templates
// may reference {event}, {section}, and {row}.
func NewBuilder(templates map[string]string) *Builder {
	normalized := make(map[string]string, len(templates))
	for platform, tmpl := range templates {
		normalized[strings.ToLower(platform)] = tmpl
	}
	return &Builder{templates: normalized}
}

// Build returns the purchase link for a ranked listing.
func (b *Builder) Build(eventID string, top listing.TopValueListing) string {
	tmpl, ok := b.templates[strings.ToLower(top.Platform)]
	if !ok {
		return top.DeepLink
	}

	replacer := strings.NewReplacer(
		"{event}", url.PathEscape(eventID),
		"{section}", url.QueryEscape(top.Section),
		"{row}", url.QueryEscape(top.Row),
	)
	return replacer.Replace(tmpl)
}

// DefaultTemplates cover the marketplaces shipped in the sample
// configuration.
func DefaultTemplates() map[string]string {
	return map[string]string{
		"stubhub":  "https://www.stubhub.com/event/{event}?section={section}&row={row}",
		"seatgeek": "https://seatgeek.com/e/{event}?sec={section}&row={row}",
	}
}

// Describe is a short human label for logs and simulated alerts.
func Describe(top listing.TopValueListing) string {
	return fmt.Sprintf("%s sec %s row %s", top.Platform, top.Section, top.Row)
}
