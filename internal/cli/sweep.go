package cli

import (
	"github.com/spf13/cobra"

	"github.com/gouchan/seatsniper-sub001/internal/app"
)

var sweepDryRun bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single sweep immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SweepOptions{
			DryRun: sweepDryRun,
		}
		return getApp().Sweep(cmd.Context(), opts)
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "Score without persisting snapshots or sending alerts")
}
