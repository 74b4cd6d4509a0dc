package fusion

import (
	"sort"

	"github.com/google/uuid"

	"github.com/your-org/memoryd/internal/domain"
)

// Fuse sorts clips stable-ascending by start time and groups them into
// events with a single-pass sliding buffer: a clip either extends the
// current event (policy.IsConnected against the event's last clip) or
// starts a new one.
func Fuse(policy Policy, clips []*domain.ClipResult) []*domain.Event {
	sorted := make([]*domain.ClipResult, len(clips))
	copy(sorted, clips)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	var events []*domain.Event
	var current *domain.Event

	for _, clip := range sorted {
		if current != nil && policy.IsConnected(current.Clips[len(current.Clips)-1], clip) {
			current.Clips = append(current.Clips, clip)
			current.EndTime = clip.StartTime
			continue
		}

		current = &domain.Event{
			StartTime: clip.StartTime,
			EndTime:   clip.StartTime,
			Clips:     []*domain.ClipResult{clip},
		}
		events = append(events, current)
	}

	for _, ev := range events {
		Aggregate(ev)
	}

	return events
}

// Aggregate (re)computes an event's PeopleIDs/PeopleInfo/stranger sentinel
// from its clips. Called after Fuse and again after the Phase E refiner
// mutates detections in place. HasUnresolvedStrangers/StrangerCount replace
// the original implementation's "-1" sentinel key in people_info with a
// dedicated field, so Phase F can tell "no people" apart from "only
// unresolved strangers" without a magic key.
func Aggregate(ev *domain.Event) {
	info := map[string]*domain.PersonInfo{}
	hasStrangers := false
	strangerCount := 0

	for _, clip := range ev.Clips {
		for _, frame := range clip.FramePeople {
			for _, det := range frame {
				role := det.Identity.Role

				if det.Identity.PersonID == nil {
					if role == domain.RoleStranger {
						hasStrangers = true
						strangerCount++
					}
					continue
				}

				key := det.Identity.PersonID.String()

				pi, ok := info[key]
				if !ok {
					info[key] = &domain.PersonInfo{
						PersonID:  det.Identity.PersonID,
						Role:      role,
						Method:    det.Identity.Method,
						FirstSeen: clip.StartTime,
						LastSeen:  clip.StartTime,
						Cameras:   map[string]bool{clip.Camera: true},
					}
					continue
				}
				pi.LastSeen = clip.StartTime
				pi.Cameras[clip.Camera] = true
			}
		}
	}

	strangerPersonCount := 0
	for _, pi := range info {
		if pi.Role == domain.RoleStranger || pi.Role == domain.RoleUnknown {
			strangerPersonCount++
		}
	}

	ev.PeopleIDs = make(map[uuid.UUID]bool, len(info))
	ev.PeopleInfo = make(map[uuid.UUID]*domain.PersonInfo, len(info))
	for _, pi := range info {
		ev.PeopleIDs[*pi.PersonID] = true
		ev.PeopleInfo[*pi.PersonID] = pi
	}

	ev.HasUnresolvedStrangers = hasStrangers || strangerPersonCount > 0
	ev.StrangerCount = strangerCount + strangerPersonCount
}
