package reasoner

import (
	"strings"

	"github.com/your-org/memoryd/internal/config"
	"github.com/your-org/memoryd/internal/domain"
)

// InferRoleOverride scans a generated narrative for configured cue phrases
// and returns the behavioral role it implies, if any. Cue sets are
// deployment-specific (spec's Open Question on "strong delivery cues"),
// so they come from config rather than a hardcoded keyword dictionary the
// way the original's query parser hardcoded its Chinese keyword map.
func InferRoleOverride(narrative string, cfg config.BehaviorConfig) (domain.Role, bool) {
	lower := strings.ToLower(narrative)

	if containsAny(lower, cfg.DeliveryCues) {
		return domain.RoleDelivery, true
	}
	if containsAny(lower, cfg.ToolCues) || containsAny(lower, cfg.CleaningCues) {
		return domain.RoleService, true
	}
	return "", false
}

func containsAny(text string, cues []string) bool {
	for _, c := range cues {
		if c == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

// ApplyBehaviorOverride overwrites the role of every non-resident person in
// the event with the inferred behavioral role. Owner is never reclassified.
// Family and suspected_family are only reclassified when narrative contains
// a strong cue (explicit parcel-holding or similar) from cfg.StrongDeliveryCues
// — a narrative merely mentioning a loose delivery cue keeps a resident as
// family, since the arbiter already matched them to a household member.
func ApplyBehaviorOverride(ev *domain.Event, role domain.Role, narrative string, cfg config.BehaviorConfig) {
	lower := strings.ToLower(narrative)
	strongMatch := containsAny(lower, cfg.StrongDeliveryCues)

	for _, pi := range ev.PeopleInfo {
		switch pi.Role {
		case domain.RoleOwner:
			continue
		case domain.RoleFamily, domain.RoleSuspectedFamily:
			if !strongMatch {
				continue
			}
			pi.Role = role
		default:
			pi.Role = role
		}
	}
}
