package cli

import (
	"github.com/spf13/cobra"

	"github.com/gouchan/seatsniper-sub001/internal/app"
)

var (
	scoreInput string
	scoreTopN  int
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Rank listings from a local JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ScoreOptions{
			InputPath: scoreInput,
			TopN:      scoreTopN,
		}
		return getApp().Score(cmd.Context(), opts)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreInput, "input", "", "Path to a JSON file with event and listings")
	scoreCmd.Flags().IntVar(&scoreTopN, "top", 0, "Override the number of ranked picks (defaults to config)")
}
