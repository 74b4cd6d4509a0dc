// Package materialize extracts a single JPEG snapshot from a stored video
// clip at a given timestamp offset, adapted from the clip-scanner's
// continuous FFmpeg frame extractor into a single-seek-and-grab used by
// Phase I to produce the still the retriever can hand back alongside an
// answer.
package materialize

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/your-org/memoryd/internal/config"
)

type Materializer struct {
	videoBaseDir string
	snapshotDir  string
}

func New(cfg config.VideoConfig, snap config.SnapshotConfig) *Materializer {
	return &Materializer{videoBaseDir: cfg.BaseDir, snapshotDir: snap.Dir}
}

// Snapshot seeks videoFilename to offset and decodes exactly one JPEG
// frame, returning the raw bytes. It does not write to snapshotDir itself —
// callers that want the result cached on disk do that with the returned
// bytes, keeping this function side-effect-free and easy to test.
func (m *Materializer) Snapshot(ctx context.Context, videoFilename string, offset time.Duration) ([]byte, error) {
	path := filepath.Join(m.videoBaseDir, videoFilename)

	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-ss", fmt.Sprintf("%.3f", offset.Seconds()),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "3",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	frame, readErr := readOneJPEG(stdout)
	waitErr := cmd.Wait()

	if readErr != nil {
		if waitErr != nil {
			return nil, fmt.Errorf("extract snapshot: %w (ffmpeg: %s)", readErr, stderr.String())
		}
		return nil, fmt.Errorf("extract snapshot: %w", readErr)
	}

	return frame, nil
}

func readOneJPEG(r io.Reader) ([]byte, error) {
	reader := bufio.NewReaderSize(r, 256*1024)

	if err := findJPEGStart(reader); err != nil {
		return nil, fmt.Errorf("no jpeg start marker found: %w", err)
	}

	data := []byte{0xFF, 0xD8}
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read jpeg body: %w", err)
		}
		data = append(data, b)

		if b == 0xFF {
			next, err := reader.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("read jpeg body: %w", err)
			}
			data = append(data, next)
			if next == 0xD9 {
				return data, nil
			}
		}

		if len(data) > 10*1024*1024 {
			return nil, fmt.Errorf("jpeg frame exceeds 10MB")
		}
	}
}

func findJPEGStart(r *bufio.Reader) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b != 0xFF {
			continue
		}
		b, err = r.ReadByte()
		if err != nil {
			return err
		}
		if b == 0xD8 {
			return nil
		}
	}
}
