// Package scan implements Phase B: sampling frames from a clip at the
// configured target FPS, detecting person regions, tracking them across
// the clip to avoid redundant embedding extraction, and consulting the
// arbiter once per track revalidation window.
package scan

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"log/slog"
	"time"

	"github.com/your-org/memoryd/internal/arbiter"
	"github.com/your-org/memoryd/internal/config"
	"github.com/your-org/memoryd/internal/domain"
	"github.com/your-org/memoryd/internal/ingest"
	"github.com/your-org/memoryd/internal/tracker"
	"github.com/your-org/memoryd/internal/vision"
)

// decodeWidth is the frame width ffmpeg scales sampled frames to before
// detection; separate from any model's own input size, which the vision
// package resizes crops to independently.
const decodeWidth = 960

type Scanner struct {
	models  *vision.Models
	arbiter *arbiter.Arbiter
	cfg     config.ScanConfig
	log     *slog.Logger
}

func New(models *vision.Models, arb *arbiter.Arbiter, cfg config.ScanConfig, log *slog.Logger) *Scanner {
	return &Scanner{models: models, arbiter: arb, cfg: cfg, log: log}
}

// ScanClip samples videoPath at cfg.TargetFPS, runs detection + tracking +
// identity resolution over every sampled frame, and returns the resulting
// ClipResult. camera and startTime are carried through unchanged for
// downstream fusion.
func (s *Scanner) ScanClip(ctx context.Context, videoPath, camera string, startTime time.Time) (*domain.ClipResult, error) {
	result := &domain.ClipResult{
		VideoPath: videoPath,
		Camera:    camera,
		StartTime: startTime,
	}

	trk := tracker.New(tracker.Config{
		IoUThreshold:       s.cfg.TrackIoUThreshold,
		RevalidateInterval: s.cfg.RevalidateInterval,
		MaxAge:             s.cfg.TrackMaxAge,
	})

	frameIdx := -1
	frameInterval := time.Second / time.Duration(s.cfg.TargetFPS)

	extractor := &ingest.FFmpegExtractor{}
	err := extractor.StartExtraction(ctx, videoPath, s.cfg.TargetFPS, decodeWidth, func(jpegData []byte) error {
		frameIdx++
		img, _, err := image.Decode(bytes.NewReader(jpegData))
		if err != nil {
			s.log.Warn("skipping undecodable frame", "video", videoPath, "frame", frameIdx, "error", err)
			return nil
		}

		if result.FrameW == 0 {
			b := img.Bounds()
			result.FrameW, result.FrameH = float64(b.Dx()), float64(b.Dy())
		}

		frameTime := startTime.Add(time.Duration(frameIdx) * frameInterval)
		dets, err := s.processFrame(ctx, img, frameIdx, frameTime, trk)
		if err != nil {
			return fmt.Errorf("process frame %d: %w", frameIdx, err)
		}

		result.FramePeople = append(result.FramePeople, dets)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("extract frames from %s: %w", videoPath, err)
	}

	return result, nil
}

func (s *Scanner) processFrame(ctx context.Context, img image.Image, frameIdx int, frameTime time.Time, trk *tracker.Tracker) ([]domain.Detection, error) {
	boxes, err := s.models.DetectPersons(img)
	if err != nil {
		return nil, fmt.Errorf("detect persons: %w", err)
	}

	var kept []vision.PersonBox
	for _, b := range boxes {
		w, h := b.BBox[2]-b.BBox[0], b.BBox[3]-b.BBox[1]
		if float64(b.Confidence) < s.cfg.MinConfidence {
			continue
		}
		if float64(w) < float64(s.cfg.MinBBoxPx) || float64(h) < float64(s.cfg.MinBBoxPx) {
			continue
		}
		kept = append(kept, b)
	}

	domainBoxes := make([]domain.BBox, len(kept))
	confidences := make([]float64, len(kept))
	for i, b := range kept {
		domainBoxes[i] = domain.BBox{
			X: float64(b.BBox[0]), Y: float64(b.BBox[1]),
			W: float64(b.BBox[2] - b.BBox[0]), H: float64(b.BBox[3] - b.BBox[1]),
		}
		confidences[i] = float64(b.Confidence)
	}

	updates := trk.Update(frameIdx, domainBoxes, confidences)

	dets := make([]domain.Detection, 0, len(updates))
	for _, u := range updates {
		var identity domain.IdentityResult
		if trk.NeedsRevalidation(u.Track, frameIdx) {
			bbox := kept[u.DetectionIdx].BBox
			faceVec, err := s.models.ExtractFace(img, bbox)
			if err != nil {
				s.log.Debug("face extraction skipped", "error", err)
			}
			bodyVec, err := s.models.ExtractBody(img, bbox)
			if err != nil {
				s.log.Warn("body extraction failed", "error", err)
			}

			identity, err = s.arbiter.Identify(ctx, faceVec, bodyVec, frameTime)
			if err != nil {
				return nil, fmt.Errorf("identify track %s: %w", u.Track.ID, err)
			}
			trk.MarkValidated(u.Track, frameIdx, identity)
		} else {
			identity = *u.Track.Identity
		}

		dets = append(dets, domain.Detection{
			FrameIndex: frameIdx,
			FrameTime:  frameTime,
			BBox:       u.Track.BBox,
			Identity:   identity,
		})
	}

	return dets, nil
}
