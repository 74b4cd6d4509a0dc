// Package refiner implements Phase E: three ordered identity-consistency
// passes over an event's detections, ported rule-for-rule from the original
// IdentityRefiner, followed by re-aggregation.
package refiner

import (
	"github.com/your-org/memoryd/internal/domain"
	"github.com/your-org/memoryd/internal/fusion"
)

// PersonStats accumulates per-person appearance counts across an event's
// clips, the input every rule below reads.
type PersonStats struct {
	Appearances int
	Roles       map[domain.Role]bool
}

const strangerUnknownKey = ""

// analyzeAppearances mirrors _analyze_person_appearances: a nil PersonID
// rolls up into one shared "stranger_unknown" bucket keyed by the empty
// string, exactly as the original routes unresolved strangers into the
// 'stranger_unknown' key.
func analyzeAppearances(ev *domain.Event) map[string]*PersonStats {
	stats := map[string]*PersonStats{}

	touch := func(key string, role domain.Role) {
		s, ok := stats[key]
		if !ok {
			s = &PersonStats{Roles: map[domain.Role]bool{}}
			stats[key] = s
		}
		s.Appearances++
		s.Roles[role] = true
	}

	for _, clip := range ev.Clips {
		for _, frame := range clip.FramePeople {
			for _, det := range frame {
				key := strangerUnknownKey
				if det.Identity.PersonID != nil {
					key = det.Identity.PersonID.String()
				}
				touch(key, det.Identity.Role)
			}
		}
	}

	return stats
}

// Refine mutates ev.Clips' detections in place, applying the three ordered
// rules per frame-people list, then re-aggregates the event.
func Refine(ev *domain.Event) {
	if len(ev.Clips) == 0 {
		return
	}

	stats := analyzeAppearances(ev)

	for _, clip := range ev.Clips {
		for fi, frame := range clip.FramePeople {
			refineFrame(frame, stats)
			clip.FramePeople[fi] = frame
		}
	}

	fusion.Aggregate(ev)
}

func refineFrame(frame []domain.Detection, stats map[string]*PersonStats) {
	for i := range frame {
		det := &frame[i]
		role := det.Identity.Role

		// Rule 1: suspected_family with a resolved identity, seen >=3
		// times in the event, is promoted to family.
		if role == domain.RoleSuspectedFamily && det.Identity.PersonID != nil {
			key := det.Identity.PersonID.String()
			if s, ok := stats[key]; ok && s.Appearances >= 3 {
				det.Identity.Role = domain.RoleFamily
				det.Identity.Method = domain.MethodRefinedFromSuspected
				role = domain.RoleFamily
			}
		}

		// Rule 2: an anonymous stranger is marked suspected_family when
		// the event has a resident elsewhere AND strangers as a whole
		// have appeared >=3 times in the event.
		if role == domain.RoleStranger && det.Identity.PersonID == nil {
			hasFamily := false
			for key, s := range stats {
				if key == strangerUnknownKey {
					continue
				}
				if s.Roles[domain.RoleOwner] || s.Roles[domain.RoleFamily] || s.Roles[domain.RoleSuspectedFamily] {
					hasFamily = true
					break
				}
			}

			strangerTotal := 0
			if s, ok := stats[strangerUnknownKey]; ok {
				strangerTotal = s.Appearances
			}

			if hasFamily && strangerTotal >= 3 {
				det.Identity.Role = domain.RoleSuspectedFamily
				det.Identity.Method = domain.MethodRefinedFromStranger
				role = domain.RoleSuspectedFamily
			}
		}

		// Rule 3: a suspected_family or stranger WITH a resolved identity
		// co-occurring in the same frame as a confirmed family member is
		// promoted to family. Anonymous strangers are not eligible here —
		// only rule 2 catches those, matching the original's person_id
		// guard.
		if role == domain.RoleSuspectedFamily || role == domain.RoleStranger {
			hasFamilyInFrame := false
			for _, other := range frame {
				if other.Identity.Role == domain.RoleOwner || other.Identity.Role == domain.RoleFamily {
					hasFamilyInFrame = true
					break
				}
			}
			if hasFamilyInFrame && det.Identity.PersonID != nil {
				det.Identity.Role = domain.RoleFamily
				det.Identity.Method = domain.MethodRefinedFromContext
			}
		}
	}
}
