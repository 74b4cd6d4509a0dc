package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/memoryd/internal/materialize"
	"github.com/your-org/memoryd/internal/retrieve"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a natural-language question grounded in persisted events",
		Args:  cobra.ExactArgs(1),
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

			aliases := retrieve.AliasMaps{
				PersonAliases: app.cfg.Retrieve.PersonAliases,
				ActionAliases: app.cfg.Retrieve.ActionAliases,
				SummaryCues:   app.cfg.Retrieve.SummaryCues,
			}

			question := args[0]
			parsed := retrieve.Parse(question, aliases, time.Now())

			evidence, err := retrieve.FetchEvidence(ctx, app.st, parsed)
			if err != nil {
				return fmt.Errorf("fetch evidence: %w", err)
			}

			answer, err := retrieve.Synthesize(ctx, gw, question, evidence)
			if err != nil {
				return err
			}

			mat := materialize.New(app.cfg.Video, app.cfg.Snapshot)
			imageURLs := retrieve.MaterializeSnapshots(ctx, mat, app.cfg.Snapshot.Dir, app.cfg.Snapshot.URLBase, evidence, app.log)

			fmt.Println(answer)
			fmt.Printf("evidence_count: %d\n", len(evidence))
			if len(imageURLs) > 0 {
				fmt.Println("images:")
				for _, u := range imageURLs {
					fmt.Println("  " + u)
				}
			}
			return nil
		},
	}
	return cmd
}
