package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newClearStoreCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "clear-store",
		Short: "Drop every row from every table — irreversible, requires --confirm",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("this deletes all enrolled people, events and summaries; re-run with --confirm")
			}

			ctx := cmd.Context()
			app, err := setupApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.st.ClearAll(ctx); err != nil {
				return err
			}
			app.log.Info("store cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "required to actually clear the store")
	return cmd
}
