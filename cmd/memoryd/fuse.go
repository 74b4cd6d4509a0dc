package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/memoryd/internal/arbiter"
	"github.com/your-org/memoryd/internal/domain"
	"github.com/your-org/memoryd/internal/fusion"
	"github.com/your-org/memoryd/internal/persist"
	"github.com/your-org/memoryd/internal/queue"
	"github.com/your-org/memoryd/internal/reasoner"
	"github.com/your-org/memoryd/internal/refiner"
	"github.com/your-org/memoryd/internal/scan"
	"github.com/your-org/memoryd/internal/vision"
)

// fusionTimeThreshold is the §4.D general time-cut between clips; the
// stricter 10s/5s identity-rule thresholds live in fusion.Policy itself.
const fusionTimeThreshold = 60 * time.Second

func newFuseCmd() *cobra.Command {
	var distributed bool
	var drainTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "fuse",
		Short: "Scan every discovered clip, fuse into events, reason, and persist",
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

			reason := reasoner.New(gw, app.cfg.Behavior, app.log)
			persister := persist.New(app.st, app.log)

			var clips []*domain.ClipResult
			if distributed {
				clips, err = drainScannedClips(ctx, app.cfg.Queue.NATSURL, drainTimeout, app.log)
				if err != nil {
					return err
				}
			} else {
				models, err := vision.Load(app.cfg.Scan.ModelsDir, float32(app.cfg.Scan.MinConfidence))
				if err != nil {
					return fmt.Errorf("load vision models: %w", err)
				}
				defer models.Close()

				arb := arbiter.New(app.st, app.cfg.Identity)
				scanner := scan.New(models, arb, app.cfg.Scan, app.log)

				refs, err := scan.DiscoverClips(app.cfg.Video.BaseDir)
				if err != nil {
					return err
				}
				app.log.Info("discovered clips", "count", len(refs))

				clips, err = scanAll(ctx, scanner, refs, app.cfg.Scan.WorkerCount, app.log)
				if err != nil {
					return err
				}
			}

			policy := fusion.NewPolicy(fusionTimeThreshold)
			events := fusion.Fuse(policy, clips)
			app.log.Info("fused events", "clip_count", len(clips), "event_count", len(events))

			for _, ev := range events {
				refiner.Refine(ev)

				if err := reason.Describe(ctx, ev); err != nil {
					app.log.Error("narrative generation failed", "start", ev.StartTime, "error", err)
					continue
				}

				id, err := persister.Persist(ctx, ev)
				if err != nil {
					app.log.Error("persist failed", "start", ev.StartTime, "error", err)
					continue
				}
				app.log.Info("event persisted", "event_id", id, "start", ev.StartTime, "cameras", ev.Cameras())
			}

			return nil
		},
	}
	cmd.Flags().BoolVar(&distributed, "distributed", false, "drain already-scanned clips from the NATS work queue instead of scanning locally")
	cmd.Flags().DurationVar(&drainTimeout, "drain-timeout", 30*time.Second, "how long to wait for scanned clips to arrive on the queue before fusing what's been collected")
	return cmd
}

// drainScannedClips collects ClipResults a `scan --distributed` + `worker`
// pipeline published onto the EVENTS stream, waiting up to timeout for
// them to arrive before returning whatever was collected.
func drainScannedClips(ctx context.Context, natsURL string, timeout time.Duration, log *slog.Logger) ([]*domain.ClipResult, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("--distributed requires queue.nats_url (or MEM_NATS_URL) to be set")
	}

	consumer, err := queue.NewConsumer(natsURL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	defer consumer.Close()

	drainCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var mu sync.Mutex
	var clips []*domain.ClipResult
	handler := func(_ context.Context, msg jetstream.Msg) error {
		var result domain.ClipResult
		if err := json.Unmarshal(msg.Data(), &result); err != nil {
			return fmt.Errorf("unmarshal scanned clip: %w", err)
		}
		mu.Lock()
		clips = append(clips, &result)
		mu.Unlock()
		return nil
	}

	if err := consumer.ConsumeEvents(drainCtx, "fuse-drain", handler); err != nil {
		return nil, fmt.Errorf("consume scanned clips: %w", err)
	}
	<-drainCtx.Done()

	mu.Lock()
	defer mu.Unlock()
	log.Info("drained scanned clips from queue", "count", len(clips))
	return clips, nil
}

// scanAll runs the scanner over every discovered clip with a bounded
// worker pool, collecting results as they complete. A clip that fails to
// scan is logged and skipped rather than aborting the whole run.
func scanAll(ctx context.Context, scanner *scan.Scanner, refs []scan.ClipRef, workers int, log *slog.Logger) ([]*domain.ClipResult, error) {
	var mu sync.Mutex
	clips := make([]*domain.ClipResult, 0, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			result, err := scanner.ScanClip(gctx, ref.Path, ref.Camera, ref.StartTime)
			if err != nil {
				log.Error("scan failed, skipping clip", "path", ref.Path, "error", err)
				return nil
			}
			mu.Lock()
			clips = append(clips, result)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clips, nil
}
