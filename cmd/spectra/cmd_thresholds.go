package main

import (
	"fmt"
	"strings"

	"github.com/husnusametd/spectra/internal/app"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newThresholdsCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Generate or merge threshold defaults from the signal spec",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Print a thresholds section with a default for every cfg.<name> in the rule spec",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			values, err := app.GenerateThresholds(cfg.Signals.SpecPath)
			if err != nil {
				return err
			}
			raw, err := yaml.Marshal(map[string]any{"thresholds": values})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "merge",
		Short: "Add defaults for names the threshold file lacks, keeping existing values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			added, err := app.MergeThresholds(cfg.Signals.SpecPath, cfg.Thresholds.Path)
			if err != nil {
				return err
			}
			if len(added) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to add")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d to %s: %s\n", len(added), cfg.Thresholds.Path, strings.Join(added, ", "))
			return nil
		},
	})
	return cmd
}
