package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/your-org/memoryd/internal/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the read-only HTTP query API over persisted events and summaries",
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

			router := api.NewRouter(api.RouterConfig{
				APIKey:   app.cfg.Server.APIKey,
				Store:    app.st,
				Gateway:  gw,
				Aliases:  app.cfg.Retrieve,
				Snapshot: app.cfg.Snapshot,
				Video:    app.cfg.Video,
				Log:      app.log,
			})

			addr := ":" + strconv.Itoa(app.cfg.Server.Port)
			app.log.Info("query api listening", "addr", addr)
			return http.ListenAndServe(addr, router)
		},
	}
	return cmd
}
