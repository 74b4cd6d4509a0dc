package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/your-org/memoryd/internal/materialize"
	"github.com/your-org/memoryd/internal/store"
)

// MaterializeSnapshots decodes one JPEG per evidence row at its event's
// video, writes it under snapshotDir, and returns the URLs a client can
// fetch them from. A row whose snapshot can't be extracted or written is
// logged and skipped rather than failing the whole answer.
func MaterializeSnapshots(ctx context.Context, mat *materialize.Materializer, snapshotDir, urlBase string, evidence []store.AppearanceRow, log *slog.Logger) []string {
	var urls []string
	for _, row := range evidence {
		data, err := mat.Snapshot(ctx, row.Event.VideoFilename, 0)
		if err != nil {
			log.Warn("snapshot extraction failed, skipping", "video", row.Event.VideoFilename, "error", err)
			continue
		}

		filename := fmt.Sprintf("%s_%s.jpg", row.Event.ID, row.PersonID)
		if err := os.WriteFile(filepath.Join(snapshotDir, filename), data, 0o644); err != nil {
			log.Warn("snapshot write failed, skipping", "filename", filename, "error", err)
			continue
		}
		urls = append(urls, urlBase+filename)
	}
	return urls
}
