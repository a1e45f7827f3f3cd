package main

import (
	"github.com/spf13/cobra"
)

func newScanCmd(load configLoader) *cobra.Command {
	var (
		once   bool
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run scan cycles on the configured UTC schedule",
		Long:  "Without --once the command runs the daily scheduler and the status server until interrupted. --dry-run prints the report instead of sending it.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd.Context(), load)
			if err != nil {
				return err
			}
			defer a.Close()
			if once || dryRun {
				_, err := a.ScanOnce(cmd.Context(), dryRun)
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the report rows instead of notifying (implies --once)")
	return cmd
}

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the status HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd.Context(), load)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
}
