package deeplink

import (
	"strings"
	"testing"

	"github.com/gouchan/seatsniper-sub001/internal/listing"
)

func TestBuildFromTemplate(t *testing.T) {
	b := NewBuilder(DefaultTemplates())
	top := listing.TopValueListing{Platform: "StubHub", Section: "101", Row: "A"}

	link := b.Build("evt-42", top)
	if !strings.Contains(link, "stubhub.com/event/evt-42") {
		t.Fatalf("unexpected link %q", link)
	}
	if !strings.Contains(link, "section=101") || !strings.Contains(link, "row=A") {
		t.Fatalf("link should carry section and row: %q", link)
	}
}

func TestBuildEscapesValues(t *testing.T) {
	b := NewBuilder(map[string]string{"x": "https://x.test/{event}?s={section}"})
	top := listing.TopValueListing{Platform: "x", Section: "GA pit"}

	link := b.Build("ev 1", top)
	if strings.Contains(link, " ") {
		t.Fatalf("values must be escaped: %q", link)
	}
}

func TestDescribe(t *testing.T) {
	top := listing.TopValueListing{Platform: "stubhub", Section: "101", Row: "A"}
	if got := Describe(top); got != "stubhub sec 101 row A" {
		t.Fatalf("unexpected description %q", got)
	}
}

func TestBuildFallsBackToListingURL(t *testing.T) {
	b := NewBuilder(nil)
	top := listing.TopValueListing{Platform: "unknown", DeepLink: "https://listing.test/123"}

	if link := b.Build("evt", top); link != "https://listing.test/123" {
		t.Fatalf("expected listing URL fallback, got %q", link)
	}
}
