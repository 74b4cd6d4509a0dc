package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/your-org/memoryd/internal/enroll"
	"github.com/your-org/memoryd/internal/vision"
)

func newEnrollCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Scan a directory of labelled reference photos into the owner registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := setupApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			models, err := vision.Load(app.cfg.Scan.ModelsDir, float32(app.cfg.Scan.MinConfidence))
			if err != nil {
				return fmt.Errorf("load vision models: %w", err)
			}
			defer models.Close()

			registry := enroll.New(app.st, models, app.log)
			result, err := registry.ScanDir(ctx, dir)
			if err != nil {
				return err
			}

			app.log.Info("enrollment complete",
				"persons_created", result.PersonsCreated,
				"faces_added", result.FacesAdded,
				"skipped", len(result.Skipped))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of labelled reference photos (required)")
	cmd.MarkFlagRequired("dir")
	return cmd
}
