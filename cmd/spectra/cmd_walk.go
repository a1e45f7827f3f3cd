package main

import (
	"github.com/husnusametd/spectra/internal/app"

	"github.com/spf13/cobra"
)

func newWalkCmd(load configLoader) *cobra.Command {
	var (
		opts     app.WalkOptions
		minScore float64
	)
	cmd := &cobra.Command{
		Use:   "walk",
		Short: "Walk-forward validate the thresholds over recorded history",
		Long:  "Refits thresholds on each lookback window, scores them on the following step and gates on the median out-of-sample score. Exits non-zero when the gate fails.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("min-score") {
				opts.MinScore = &minScore
			}
			a, err := buildApp(cmd.Context(), load)
			if err != nil {
				return err
			}
			defer a.Close()
			out, err := a.Walk(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if !out.Report.Passed {
				return errGateFailed
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Symbol, "symbol", "", "symbol to walk (default walk_forward.symbol)")
	f.StringVar(&opts.Timeframe, "tf", "", "bar timeframe of the history (default walk_forward.timeframe)")
	f.IntVar(&opts.LookbackDays, "lookback", 0, "training window in days")
	f.IntVar(&opts.StepDays, "step", 0, "test window and slide in days")
	f.Float64Var(&minScore, "min-score", 0, "median OOS score required to pass (default walk_forward.min_score)")
	f.BoolVar(&opts.HTML, "html", false, "write an HTML chart into walk_forward.report_dir")
	f.BoolVar(&opts.CSV, "csv", false, "write the window records as CSV into walk_forward.report_dir")
	f.BoolVar(&opts.Persist, "persist", false, "save the last window's thresholds when the gate passes")
	return cmd
}
