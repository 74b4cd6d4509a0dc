// Package fusion implements Phase D: grouping clips into events with a
// single-pass sliding buffer, and per-person keyframe selection. Ported
// rule-for-rule from the original FusionPolicy (time_rule AND identity_rule,
// CONNECTED = both).
package fusion

import (
	"time"

	"github.com/your-org/memoryd/internal/domain"
)

// Policy holds the connectivity thresholds. TimeThreshold is the §4.D
// general time-cut (default 60s); the 10s and 5s thresholds below are fixed
// per spec, not configurable, matching the original's hardcoded constants.
type Policy struct {
	TimeThreshold time.Duration
}

func NewPolicy(timeThreshold time.Duration) Policy {
	return Policy{TimeThreshold: timeThreshold}
}

// isResident reports whether a role counts as a recognized household
// member for fusion purposes — both the directly-matched "owner" role and
// the refiner-promoted "family" role count, mirroring the original's single
// 'family' bucket.
func isResident(r domain.Role) bool {
	return r == domain.RoleOwner || r == domain.RoleFamily
}

type peopleSet struct {
	personIDs   map[string]bool
	allStrangers bool
	hasFamily   bool
	hasStranger bool
}

func extractPeopleSet(clip *domain.ClipResult) peopleSet {
	ids := map[string]bool{}
	hasFamily, hasStranger := false, false

	for _, frame := range clip.FramePeople {
		for _, det := range frame {
			if det.Identity.PersonID != nil {
				ids[det.Identity.PersonID.String()] = true
			}
			switch {
			case isResident(det.Identity.Role):
				hasFamily = true
			case det.Identity.Role == domain.RoleStranger:
				hasStranger = true
			}
		}
	}

	return peopleSet{
		personIDs:    ids,
		allStrangers: hasStranger && !hasFamily,
		hasFamily:    hasFamily,
		hasStranger:  hasStranger,
	}
}

// IsConnected reports whether current should fuse into the same event as
// last: CONNECTED = time_rule AND identity_rule.
func (p Policy) IsConnected(last, current *domain.ClipResult) bool {
	return p.timeRule(last, current) && p.identityRule(last, current)
}

func (p Policy) timeRule(last, current *domain.ClipResult) bool {
	diff := current.StartTime.Sub(last.StartTime)
	if diff < 0 {
		return false
	}
	return diff < p.TimeThreshold
}

func (p Policy) identityRule(last, current *domain.ClipResult) bool {
	lastPeople := extractPeopleSet(last)
	curPeople := extractPeopleSet(current)

	for id := range lastPeople.personIDs {
		if curPeople.personIDs[id] {
			return true
		}
	}

	diff := current.StartTime.Sub(last.StartTime)

	if lastPeople.allStrangers && curPeople.allStrangers && diff < 10*time.Second {
		return true
	}

	if diff < 5*time.Second &&
		((lastPeople.hasFamily && curPeople.hasStranger) || (lastPeople.hasStranger && curPeople.hasFamily)) {
		return true
	}

	return false
}
