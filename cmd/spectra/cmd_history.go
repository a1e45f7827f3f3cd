package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/husnusametd/spectra/internal/history"

	"github.com/spf13/cobra"
)

func newHistoryCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the recorded return series walk-forward runs replay",
	}
	var symbol, timeframe string
	importCmd := &cobra.Command{
		Use:   "import <file.csv|->",
		Short: "Import a timestamp,signal_return[,features...] CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if strings.TrimSpace(symbol) == "" {
				symbol = cfg.WalkForward.Symbol
			}
			if strings.TrimSpace(timeframe) == "" {
				timeframe = cfg.WalkForward.Timeframe
			}
			store, err := history.NewStore(cfg.History.Dir)
			if err != nil {
				return err
			}
			defer store.Close()

			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			n, err := store.ImportCSV(cmd.Context(), symbol, timeframe, in)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			m, err := store.Manifest(cmd.Context(), symbol, timeframe)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows into %s (%d total)\n", n, m.Path, m.Rows)
			return nil
		},
	}
	importCmd.Flags().StringVar(&symbol, "symbol", "", "symbol (default walk_forward.symbol)")
	importCmd.Flags().StringVar(&timeframe, "tf", "", "timeframe (default walk_forward.timeframe)")
	cmd.AddCommand(importCmd)
	return cmd
}

func openInput(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}
