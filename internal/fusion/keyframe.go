package fusion

import (
	"math"
	"strconv"

	"github.com/your-org/memoryd/internal/domain"
)

// KeyframeScore ranks candidate detections for one person within an event:
// a method bonus (face 10000, body and soft-body 5000, anything else 0),
// plus 100 times the match confidence, plus the bbox area in pixels, minus
// half the bbox center's distance from the frame center. The area term is
// unbounded, so a large enough bbox can outrank a detection with a higher
// method bonus.
func KeyframeScore(d domain.Detection, frameW, frameH float64) float64 {
	var methodScore float64
	switch d.Identity.Method {
	case domain.MethodFace:
		methodScore = 10000
	case domain.MethodBody, domain.MethodSoftBody:
		methodScore = 5000
	}

	score := methodScore + 100*d.Identity.Confidence + d.BBox.Area()
	score -= 0.5 * d.BBox.CenterDistance(frameW, frameH)
	return score
}

// SelectKeyframe returns the best-scoring detection from a list belonging
// to the same person, with ties broken by earliest frame index.
func SelectKeyframe(dets []domain.Detection, frameW, frameH float64) domain.Detection {
	best := dets[0]
	bestScore := KeyframeScore(best, frameW, frameH)

	for _, d := range dets[1:] {
		s := KeyframeScore(d, frameW, frameH)
		if s > bestScore || (s == bestScore && d.FrameIndex < best.FrameIndex) {
			best = d
			bestScore = s
		}
	}
	return best
}

// GroupByPerson groups an event's detections by resolved person id, with
// unresolved strangers bucketed by the first-20-floats hash of their body
// embedding (or an incrementing index if no body vector was captured).
// Dimensionality-dependent: if the body embedding model's output size ever
// changes, bucket keys computed under the old dimensionality will no longer
// collide correctly with ones computed under the new size — this mirrors a
// known limitation of the original bucketing scheme.
func GroupByPerson(ev *domain.Event) map[string][]domain.Detection {
	groups := map[string][]domain.Detection{}
	strangerIdx := 0

	for _, clip := range ev.Clips {
		for _, frame := range clip.FramePeople {
			for _, det := range frame {
				var key string
				if det.Identity.PersonID != nil {
					key = det.Identity.PersonID.String()
				} else {
					key = StrangerBucketKey(det.Identity.BodyVec, &strangerIdx)
				}
				groups[key] = append(groups[key], det)
			}
		}
	}

	return groups
}

// StrangerBucketKey hashes the first 20 floats of a body embedding into a
// stable bucket key, falling back to an incrementing index when no body
// vector was captured for the detection.
func StrangerBucketKey(bodyVec []float32, nextIdx *int) string {
	if len(bodyVec) == 0 {
		*nextIdx++
		return "stranger_idx_" + strconv.Itoa(*nextIdx)
	}

	n := 20
	if len(bodyVec) < n {
		n = len(bodyVec)
	}

	var h uint64 = 14695981039346656037 // FNV-1a offset basis
	for _, f := range bodyVec[:n] {
		h ^= uint64(math.Float32bits(f))
		h *= 1099511628211 // FNV-1a prime
	}
	return "stranger_" + strconv.FormatUint(h, 16)
}
