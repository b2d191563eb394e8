package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gouchan/seatsniper-sub001/internal/listing"
	"github.com/gouchan/seatsniper-sub001/internal/scoring"
)

type scoreInput struct {
	Event struct {
		ID         string    `json:"id"`
		Name       string    `json:"name"`
		Venue      string    `json:"venue"`
		Date       time.Time `json:"date"`
		Popularity int       `json:"popularity"`
		TotalRows  int       `json:"total_rows"`
	} `json:"event"`
	Listings []struct {
		Platform string `json:"platform"`
		Section  string `json:"section"`
		Row      string `json:"row"`
		Price    string `json:"price"`
		Quantity int    `json:"quantity"`
		Tier     string `json:"tier"`
		URL      string `json:"url"`
	} `json:"listings"`
}

// Score ranks a local listings file without any network or database access.
func (a *App) Score(ctx context.Context, opts ScoreOptions) error {
	if opts.InputPath == "" {
		return errors.New("--input is required")
	}

	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return err
	}

	var input scoreInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parse %s: %w", opts.InputPath, err)
	}
	if input.Event.ID == "" {
		return errors.New("input file is missing event.id")
	}

	batch := make([]listing.Listing, 0, len(input.Listings))
	for i, raw := range input.Listings {
		tier, err := listing.ParseSectionTier(raw.Tier)
		if err != nil {
			a.Logger.Warn().Err(err).Int("index", i).Msg("skipping listing with unknown tier")
			continue
		}
		price, err := decimal.NewFromString(raw.Price)
		if err != nil || price.IsNegative() {
			a.Logger.Warn().Int("index", i).Str("price", raw.Price).Msg("skipping listing with invalid price")
			continue
		}
		batch = append(batch, listing.Listing{
			Platform:       raw.Platform,
			Section:        raw.Section,
			Row:            raw.Row,
			PricePerTicket: price,
			Quantity:       raw.Quantity,
			Tier:           tier,
			URL:            raw.URL,
		})
	}

	ev := listing.Event{
		ID:         input.Event.ID,
		Name:       input.Event.Name,
		Venue:      input.Event.Venue,
		Date:       input.Event.Date,
		Popularity: input.Event.Popularity,
		TotalRows:  input.Event.TotalRows,
	}

	engine := a.newEngine()
	if opts.TopN > 0 {
		cfg := a.Config.Scoring
		engine = scoring.NewEngine(scoring.Options{
			Weights: scoring.Weights{Row: cfg.Weights.Row, Resale: cfg.Weights.Resale, Price: cfg.Weights.Price},
			Bands:   scoring.Bands{Exceptional: cfg.Bands.Exceptional, Good: cfg.Bands.Good, Fair: cfg.Bands.Fair},
			TopN:    opts.TopN,
		}, a.Logger)
	}

	ranked := engine.ScoreBatch(ev, batch, time.Now().UTC())
	if len(ranked) == 0 {
		fmt.Fprintln(os.Stdout, "no scoreable listings")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Rank\tScore\tSection\tRow\tPrice\tQty\tROI\tConfidence\tRecommendation\tPlatform")
	for _, top := range ranked {
		roi := "-"
		if top.ROIConfidence != scoring.ConfidenceLow {
			roi = fmt.Sprintf("%+d%%", top.EstimatedROI)
		}
		fmt.Fprintf(
			writer,
			"%d\t%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			top.Rank,
			top.ValueScore,
			top.Section,
			top.Row,
			top.PricePerTicket.StringFixed(2),
			top.Quantity,
			roi,
			top.ROIConfidence,
			top.Recommendation,
			top.Platform,
		)
	}
	writer.Flush()
	return nil
}
