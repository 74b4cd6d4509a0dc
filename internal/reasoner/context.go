package reasoner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/your-org/memoryd/internal/domain"
)

const systemPrompt = `You are a home security assistant writing a short, factual description of one event captured across one or more fixed cameras. Use only the timeline given below. Do not invent people, actions, or objects that are not supported by it. If strangers appear, describe them as unidentified individuals, never by name. Write 2-4 sentences in plain English.`

// noPeoplePrompt is returned verbatim, without an LLM call, when an event
// carries no resolved people and no unresolved strangers at all — mirroring
// the original's short-circuit for an empty people_info map.
const noPeoplePrompt = "该视频中无人出现"

// roleLabel renders a domain.Role the way the narrative prompt should refer
// to it, never leaking internal enum spelling into the LLM input.
func roleLabel(r domain.Role) string {
	switch r {
	case domain.RoleOwner, domain.RoleFamily:
		return "a resident"
	case domain.RoleSuspectedFamily:
		return "a likely resident"
	case domain.RoleVisitor:
		return "a visitor"
	case domain.RoleDelivery:
		return "a delivery person"
	case domain.RoleService:
		return "a service worker"
	default:
		return "an unidentified person"
	}
}

// BuildTimeline renders one line per clip: "HH:MM:SS [camera]: <people>",
// with an activity-level qualifier and a duration note when the clip spans
// more than 5 sampled frames, the heuristics original's context builder
// derives from detection density and per-frame bbox movement.
func BuildTimeline(ev *domain.Event) string {
	var lines []string
	for _, clip := range ev.Clips {
		desc := describeClip(clip)
		line := fmt.Sprintf("%s [%s]: %s", clip.StartTime.Format("15:04:05"), clip.Camera, desc)
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func describeClip(clip *domain.ClipResult) string {
	people := distinctPeopleInClip(clip)
	if len(people) == 0 {
		return "no one visible"
	}

	parts := make([]string, 0, len(people))
	for _, p := range people {
		parts = append(parts, roleLabel(p))
	}

	activity := activityLevel(clip)
	desc := strings.Join(parts, ", ") + " — " + activity + " activity"

	if dur := durationNote(clip); dur != "" {
		desc += ", " + dur
	}
	return desc
}

// distinctPeopleInClip returns one role per distinct person (or per
// unresolved stranger) seen anywhere in the clip, first-seen order.
func distinctPeopleInClip(clip *domain.ClipResult) []domain.Role {
	seen := map[string]bool{}
	var roles []domain.Role
	strangerIdx := 0

	for _, frame := range clip.FramePeople {
		for _, det := range frame {
			var key string
			if det.Identity.PersonID != nil {
				key = det.Identity.PersonID.String()
			} else {
				strangerIdx++
				key = fmt.Sprintf("stranger_%d", strangerIdx)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			roles = append(roles, det.Identity.Role)
		}
	}
	return roles
}

// activityLevel derives low/medium/high from detection density (detections
// per sampled frame) and the mean squared frame-to-frame displacement of
// bbox centers (detections are paired by their index within the frame),
// mirroring the original context builder's movement heuristic.
func activityLevel(clip *domain.ClipResult) string {
	frames := clip.FramePeople
	if len(frames) == 0 {
		return "low"
	}

	total := 0
	for _, f := range frames {
		total += len(f)
	}
	density := float64(total) / float64(len(frames))

	movement := averageMovement(frames)

	switch {
	case density >= 2 || movement > 80:
		return "high"
	case density > 1 || movement > 20:
		return "medium"
	default:
		return "low"
	}
}

func averageMovement(frames [][]domain.Detection) float64 {
	type point struct{ x, y float64 }
	last := map[int]point{}
	var totalDist float64
	var moves int

	for _, frame := range frames {
		for i, det := range frame {
			cx := det.BBox.X + det.BBox.W/2
			cy := det.BBox.Y + det.BBox.H/2
			if p, ok := last[i]; ok {
				dx, dy := cx-p.x, cy-p.y
				totalDist += dx*dx + dy*dy
				moves++
			}
			last[i] = point{cx, cy}
		}
	}

	if moves == 0 {
		return 0
	}
	return totalDist / float64(moves)
}

// durationNote reports a clip's approximate sampled-frame span once it
// exceeds 5 frames, matching the original's "only note duration for
// clips that last a while" behavior.
func durationNote(clip *domain.ClipResult) string {
	if len(clip.FramePeople) <= 5 {
		return ""
	}

	first, last := frameTimeRange(clip)
	if last.IsZero() || first.IsZero() || !last.After(first) {
		return ""
	}
	d := last.Sub(first)
	return fmt.Sprintf("lasting about %s", roundSeconds(d))
}

func frameTimeRange(clip *domain.ClipResult) (time.Time, time.Time) {
	var first, last time.Time
	for _, frame := range clip.FramePeople {
		for _, det := range frame {
			if first.IsZero() || det.FrameTime.Before(first) {
				first = det.FrameTime
			}
			if last.IsZero() || det.FrameTime.After(last) {
				last = det.FrameTime
			}
		}
	}
	return first, last
}

func roundSeconds(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%ds", secs)
}

// BuildNarrativePrompt returns the system prompt and the user-facing
// timeline prompt for an event, or ("", "") with ok=false when the event
// has no people at all and the caller should short-circuit to
// noPeoplePrompt instead of calling the LLM.
func BuildNarrativePrompt(ev *domain.Event) (sys, user string, ok bool) {
	if len(ev.PeopleIDs) == 0 && !ev.HasUnresolvedStrangers {
		return "", "", false
	}

	timeline := BuildTimeline(ev)
	user = fmt.Sprintf("Event time range: %s to %s\nCameras: %s\n\nTimeline:\n%s",
		ev.StartTime.Format("15:04:05"), ev.EndTime.Format("15:04:05"),
		strings.Join(ev.Cameras(), ", "), timeline)

	return systemPrompt, user, true
}

// sortedPersonIDs returns the ids in ev.PeopleInfo as sorted strings, a
// deterministic iteration order over an event's people.
func sortedPersonIDs(ev *domain.Event) []string {
	keys := make([]string, 0, len(ev.PeopleInfo))
	for id := range ev.PeopleInfo {
		keys = append(keys, id.String())
	}
	sort.Strings(keys)
	return keys
}
