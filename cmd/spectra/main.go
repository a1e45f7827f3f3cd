package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/husnusametd/spectra/internal/app"
	"github.com/husnusametd/spectra/internal/config"
	"github.com/husnusametd/spectra/internal/logger"

	"github.com/spf13/cobra"
)

const version = "v0.4.0"

// errGateFailed makes a failing walk-forward run exit non-zero without
// printing usage.
var errGateFailed = errors.New("walk-forward gate failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errGateFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "spectra",
		Short:         "Crypto market signal scanner",
		Long:          "spectra scans the top crypto assets on a fixed UTC schedule, evaluates formula rules against feature snapshots and reports the matches. Thresholds are validated with walk-forward runs over recorded history.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default $"+config.EnvConfigPath+" or "+config.DefaultPath+")")

	load := func() (*config.Config, error) {
		path := config.ResolvePath(cfgPath)
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		logger.SetLevel(cfg.App.LogLevel)
		logger.Debugf("[cli] config loaded from %s (env=%s)", path, cfg.App.Env)
		return cfg, nil
	}

	root.AddCommand(
		newScanCmd(load),
		newServeCmd(load),
		newWalkCmd(load),
		newThresholdsCmd(load),
		newHistoryCmd(load),
	)
	return root
}

type configLoader func() (*config.Config, error)

func buildApp(ctx context.Context, load configLoader) (*app.App, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	return app.NewApp(ctx, cfg)
}
