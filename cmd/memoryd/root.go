package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/your-org/memoryd/internal/config"
	"github.com/your-org/memoryd/internal/obs"
	"github.com/your-org/memoryd/internal/reasoner"
	"github.com/your-org/memoryd/internal/store"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "memoryd",
		Short: "Household video memory pipeline: enroll, scan, fuse, summarize and ask",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "./memoryd.yaml", "path to config file")

	root.AddCommand(
		newEnrollCmd(),
		newScanCmd(),
		newFuseCmd(),
		newSummarizeDayCmd(),
		newSummarizeAllCmd(),
		newAskCmd(),
		newClearStoreCmd(),
		newServeCmd(),
		newWorkerCmd(),
	)
	return root
}

// appContext bundles the dependencies most subcommands need, built once
// from the resolved config.
type appContext struct {
	cfg *config.Config
	log *slog.Logger
	st  *store.Store
}

func setupApp(ctx context.Context) (*appContext, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := obs.NewLogger(cfg.Logging)

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	return &appContext{cfg: cfg, log: log, st: st}, nil
}

func (a *appContext) Close() {
	a.st.Close()
}

func newGateway(ctx context.Context, cfg config.ModelConfig) (*reasoner.Gateway, error) {
	return reasoner.NewGateway(ctx, cfg)
}
