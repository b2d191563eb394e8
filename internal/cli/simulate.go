package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/gouchan/seatsniper-sub001/internal/app"
)

var (
	simulateEvent string
	simulateCount int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Score a synthetic batch and trigger the alert pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateEvent == "" {
			return errors.New("--event is required")
		}

		opts := app.SimulateOptions{
			EventID: simulateEvent,
			Count:   simulateCount,
		}
		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateEvent, "event", "", "Tracked event id to simulate against")
	simulateCmd.Flags().IntVar(&simulateCount, "count", 12, "Number of synthetic listings to generate")
}
