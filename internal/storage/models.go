package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SweepSnapshot summarises one scored batch for one event in one
// sweep, keeping the ranked payload for later export.
type SweepSnapshot struct {
	SweepTS       time.Time
	EventID       string
	ListingsSeen  int
	BestScore     int
	BestPrice     decimal.Decimal
	MeanPrice     decimal.Decimal
	RankedPayload json.RawMessage
	Status        string
	Error         *string
	CreatedAt     time.Time
}

// AlertRecord captures an emitted alert for cooldown checks and
// auditing, keyed by event and recipient.
type AlertRecord struct {
	ID            int64
	EventID       string
	Recipient     string
	SweepTS       time.Time
	BestScore     int
	RankedPayload json.RawMessage
	Channels      []string
	CreatedAt     time.Time
}
