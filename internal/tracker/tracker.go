// Package tracker implements the intra-clip SORT-like tracker that elides
// redundant embedding extraction and arbiter calls across frames of a
// single clip. A Tracker must never be shared across clips — construct a
// fresh one per clip scan.
package tracker

import (
	"fmt"
	"math"
	"sync"

	"github.com/your-org/memoryd/internal/domain"
)

// Track is one person followed across consecutive frames of a clip.
type Track struct {
	ID              string
	BBox            domain.BBox
	Confidence      float64
	Hits            int // frames matched, counting the frame that created it
	TimeSinceUpdate int // frames since last match
	LastValidated   int // frame index of the last arbiter call for this track

	// Identity carries the most recent arbiter decision, reused across
	// frames within the revalidate window instead of re-running the
	// arbiter every frame.
	Identity *domain.IdentityResult
}

// Config holds the tracker's thresholds, matching spec §4.B's
// IoU≥0.7 match rule, 5-frame revalidate window and 3-frame expiry.
type Config struct {
	IoUThreshold       float64
	RevalidateInterval int
	MaxAge             int
}

type Tracker struct {
	mu     sync.Mutex
	tracks map[string]*Track
	nextID int
	cfg    Config
}

func New(cfg Config) *Tracker {
	return &Tracker{tracks: make(map[string]*Track), cfg: cfg}
}

// Update matches the current frame's detections to existing tracks by IoU,
// ages and expires tracks, and returns one Update per detection: matched
// detections first, then new tracks, each group in detection order.
func (t *Tracker) Update(frameIdx int, boxes []domain.BBox, confidences []float64) []Update {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tr := range t.tracks {
		tr.TimeSinceUpdate++
	}

	updates := make([]Update, 0, len(boxes))
	matchedTrack := make(map[string]bool)
	matchedDet := make(map[int]bool)

	for di, box := range boxes {
		bestIoU := t.cfg.IoUThreshold
		bestID := ""
		for id, tr := range t.tracks {
			if matchedTrack[id] {
				continue
			}
			if v := iou(box, tr.BBox); v >= bestIoU {
				bestIoU = v
				bestID = id
			}
		}

		if bestID != "" {
			tr := t.tracks[bestID]
			tr.BBox = box
			tr.Confidence = confidences[di]
			tr.Hits++
			tr.TimeSinceUpdate = 0
			matchedTrack[bestID] = true
			matchedDet[di] = true
			updates = append(updates, Update{Track: tr, DetectionIdx: di, IsNew: false})
		}
	}

	for di, box := range boxes {
		if matchedDet[di] {
			continue
		}
		t.nextID++
		id := fmt.Sprintf("track_%d", t.nextID)
		tr := &Track{ID: id, BBox: box, Confidence: confidences[di], Hits: 1, LastValidated: -1}
		t.tracks[id] = tr
		updates = append(updates, Update{Track: tr, DetectionIdx: di, IsNew: true})
	}

	for id, tr := range t.tracks {
		if tr.TimeSinceUpdate > t.cfg.MaxAge {
			delete(t.tracks, id)
		}
	}

	return updates
}

// NeedsRevalidation reports whether a track's cached identity is stale and
// the arbiter must be re-consulted for the given frame: either the track
// has never been validated, or REVALIDATE_INTERVAL frames have elapsed
// since its last validation.
func (t *Tracker) NeedsRevalidation(tr *Track, frameIdx int) bool {
	if tr.Identity == nil || tr.LastValidated < 0 {
		return true
	}
	return frameIdx-tr.LastValidated >= t.cfg.RevalidateInterval
}

func (t *Tracker) MarkValidated(tr *Track, frameIdx int, id domain.IdentityResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr.Identity = &id
	tr.LastValidated = frameIdx
}

type Update struct {
	Track        *Track
	DetectionIdx int
	IsNew        bool
}

func iou(a, b domain.BBox) float64 {
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.X+a.W, b.X+b.W)
	y2 := math.Min(a.Y+a.H, b.Y+b.H)

	inter := math.Max(0, x2-x1) * math.Max(0, y2-y1)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
