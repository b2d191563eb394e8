package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gouchan/seatsniper-sub001/internal/storage"
)

// Show prints recent sweep snapshots, or recent alerts with --alerts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Alerts {
		return showAlerts(ctx, store, opts.Limit)
	}
	return showSnapshots(ctx, store, opts.Limit)
}

func showSnapshots(ctx context.Context, store storage.SnapshotStore, limit int) error {
	snapshots, err := store.ListRecentSnapshots(ctx, limit)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(os.Stdout, "no snapshots found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Sweep (UTC)\tEvent\tListings\tBest\tBest price\tMean price\tStatus\tError")

	for _, snapshot := range snapshots {
		errMsg := ""
		if snapshot.Error != nil {
			errMsg = sanitizeInline(*snapshot.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
			snapshot.SweepTS.UTC().Format(time.RFC3339),
			snapshot.EventID,
			snapshot.ListingsSeen,
			snapshot.BestScore,
			snapshot.BestPrice.StringFixed(2),
			snapshot.MeanPrice.StringFixed(2),
			snapshot.Status,
			errMsg,
		)
	}

	writer.Flush()
	return nil
}

func showAlerts(ctx context.Context, store storage.AlertStore, limit int) error {
	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Sent (UTC)\tEvent\tRecipient\tBest\tChannels")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%d\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.EventID,
			alert.Recipient,
			alert.BestScore,
			strings.Join(alert.Channels, ","),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
