package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/memoryd/internal/summarize"
)

func newSummarizeDayCmd() *cobra.Command {
	var dateStr string
	var force bool
	cmd := &cobra.Command{
		Use:   "summarize-day",
		Short: "Build (or rebuild) the daily narrative for one date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := setupApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			date, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return fmt.Errorf("parse --date: %w", err)
			}

			gw, err := newGateway(ctx, app.cfg.Model)
			if err != nil {
				return fmt.Errorf("init llm gateway: %w", err)
			}
			defer gw.Close()

			s := summarize.New(app.st, gw)
			text, err := s.SummarizeDay(ctx, date, force)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
	cmd.Flags().StringVar(&dateStr, "date", time.Now().Format("2006-01-02"), "date to summarize, YYYY-MM-DD")
	cmd.Flags().BoolVar(&force, "force", false, "regenerate even if a summary already exists")
	return cmd
}

func newSummarizeAllCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "summarize-all",
		Short: "Summarize every date with at least one event, skipping already-summarized dates unless --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := setupApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			gw, err := newGateway(ctx, app.cfg.Model)
			if err != nil {
				return fmt.Errorf("init llm gateway: %w", err)
			}
			defer gw.Close()

			s := summarize.New(app.st, gw)
			count, err := s.SummarizeAll(ctx, force)
			if err != nil {
				return err
			}
			app.log.Info("batch summarize complete", "summaries_written", count)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "regenerate every date, even already-summarized ones")
	return cmd
}
