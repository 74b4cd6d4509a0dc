package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/your-org/memoryd/internal/arbiter"
	"github.com/your-org/memoryd/internal/objectstore"
	"github.com/your-org/memoryd/internal/queue"
	"github.com/your-org/memoryd/internal/scan"
	"github.com/your-org/memoryd/internal/vision"
)

// newWorkerCmd runs a distributed Phase B worker: it drains clip-scan tasks
// a `scan --distributed` producer enqueued onto the NATS CLIPS stream,
// scans each clip locally, optionally archives the source bytes to MinIO,
// and republishes the resulting ClipResult onto the EVENTS stream for a
// `fuse --distributed` run to pick up.
func newWorkerCmd() *cobra.Command {
	var consumerName string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume clip-scan tasks from the NATS work queue and publish scanned events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := setupApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			natsURL := app.cfg.Queue.NATSURL
			if natsURL == "" {
				return fmt.Errorf("worker requires queue.nats_url (or MEM_NATS_URL) to be set")
			}

			models, err := vision.Load(app.cfg.Scan.ModelsDir, float32(app.cfg.Scan.MinConfidence))
			if err != nil {
				return fmt.Errorf("load vision models: %w", err)
			}
			defer models.Close()

			arb := arbiter.New(app.st, app.cfg.Identity)
			scanner := scan.New(models, arb, app.cfg.Scan, app.log)

			var objStore *objectstore.Store
			if app.cfg.ObjectStore.Bucket != "" {
				objStore, err = objectstore.New(objectstore.Config{
					Endpoint:  app.cfg.ObjectStore.Endpoint,
					AccessKey: app.cfg.ObjectStore.AccessKey,
					SecretKey: app.cfg.ObjectStore.SecretKey,
					Bucket:    app.cfg.ObjectStore.Bucket,
					UseSSL:    app.cfg.ObjectStore.UseSSL,
				})
				if err != nil {
					return fmt.Errorf("connect to object store: %w", err)
				}
				if err := objStore.EnsureBucket(ctx); err != nil {
					return fmt.Errorf("ensure object store bucket: %w", err)
				}
			}

			producer, err := queue.NewProducer(natsURL)
			if err != nil {
				return fmt.Errorf("connect producer to nats: %w", err)
			}
			defer producer.Close()
			if err := producer.EnsureStreams(ctx); err != nil {
				return fmt.Errorf("ensure nats streams: %w", err)
			}

			consumer, err := queue.NewConsumer(natsURL)
			if err != nil {
				return fmt.Errorf("connect consumer to nats: %w", err)
			}
			defer consumer.Close()

			handler := clipTaskHandler(scanner, producer, objStore, app.log)
			if err := consumer.ConsumeClips(ctx, consumerName, handler, app.cfg.Scan.WorkerCount); err != nil {
				return fmt.Errorf("consume clip tasks: %w", err)
			}

			app.log.Info("worker running, draining clip-scan tasks", "consumer", consumerName)
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&consumerName, "consumer-name", "scan-workers", "durable NATS consumer name for this worker pool")
	return cmd
}

func clipTaskHandler(scanner *scan.Scanner, producer *queue.Producer, objStore *objectstore.Store, log *slog.Logger) queue.MessageHandler {
	return func(ctx context.Context, msg jetstream.Msg) error {
		var task queue.ClipTask
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			return fmt.Errorf("unmarshal clip task: %w", err)
		}

		result, err := scanner.ScanClip(ctx, task.VideoPath, task.Camera, task.StartTime)
		if err != nil {
			return fmt.Errorf("scan %s: %w", task.VideoPath, err)
		}

		if objStore != nil {
			if data, readErr := os.ReadFile(task.VideoPath); readErr != nil {
				log.Warn("clip archive read failed, skipping archive", "path", task.VideoPath, "error", readErr)
			} else if putErr := objStore.PutObject(ctx, task.VideoPath, data, "video/mp4"); putErr != nil {
				log.Warn("clip archive upload failed, skipping archive", "path", task.VideoPath, "error", putErr)
			}
		}

		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal clip result: %w", err)
		}
		if err := producer.PublishEvent(ctx, task.Camera, payload); err != nil {
			return fmt.Errorf("publish scanned clip: %w", err)
		}
		return nil
	}
}
