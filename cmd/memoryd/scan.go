package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/memoryd/internal/arbiter"
	"github.com/your-org/memoryd/internal/queue"
	"github.com/your-org/memoryd/internal/scan"
	"github.com/your-org/memoryd/internal/vision"
)

// newScanCmd scans every discovered clip and reports per-clip detection
// counts without fusing or persisting events (the arbiter still refreshes
// matched persons' body cache and last-seen time) — a diagnostic command for checking
// model/threshold behavior before running the full fuse pipeline. With
// --distributed, it enqueues clip-scan tasks onto the NATS work queue for
// `worker` processes to pick up instead of scanning locally.
func newScanCmd() *cobra.Command {
	var distributed bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan every discovered clip and report detection counts (no events persisted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := setupApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			refs, err := scan.DiscoverClips(app.cfg.Video.BaseDir)
			if err != nil {
				return err
			}
			app.log.Info("discovered clips", "count", len(refs))

			if distributed {
				return enqueueClipTasks(ctx, app.cfg.Queue.NATSURL, refs, app.log)
			}

			models, err := vision.Load(app.cfg.Scan.ModelsDir, float32(app.cfg.Scan.MinConfidence))
			if err != nil {
				return fmt.Errorf("load vision models: %w", err)
			}
			defer models.Close()

			arb := arbiter.New(app.st, app.cfg.Identity)
			scanner := scan.New(models, arb, app.cfg.Scan, app.log)

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(app.cfg.Scan.WorkerCount)

			for _, ref := range refs {
				ref := ref
				g.Go(func() error {
					result, err := scanner.ScanClip(gctx, ref.Path, ref.Camera, ref.StartTime)
					if err != nil {
						return fmt.Errorf("scan %s: %w", ref.Path, err)
					}
					total := 0
					for _, frame := range result.FramePeople {
						total += len(frame)
					}
					app.log.Info("clip scanned", "path", ref.Path, "camera", ref.Camera, "detections", total)
					return nil
				})
			}

			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&distributed, "distributed", false, "enqueue clip-scan tasks onto the NATS work queue instead of scanning locally")
	return cmd
}

func enqueueClipTasks(ctx context.Context, natsURL string, refs []scan.ClipRef, log *slog.Logger) error {
	if natsURL == "" {
		return fmt.Errorf("--distributed requires queue.nats_url (or MEM_NATS_URL) to be set")
	}

	producer, err := queue.NewProducer(natsURL)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(ctx); err != nil {
		return fmt.Errorf("ensure nats streams: %w", err)
	}

	for _, ref := range refs {
		task := queue.ClipTask{VideoPath: ref.Path, Camera: ref.Camera, StartTime: ref.StartTime}
		if err := producer.PublishClipTask(ctx, task); err != nil {
			return fmt.Errorf("publish clip task %s: %w", ref.Path, err)
		}
	}
	log.Info("enqueued clip-scan tasks", "count", len(refs))
	return nil
}
