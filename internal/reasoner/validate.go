package reasoner

import (
	"regexp"
	"strings"

	"github.com/your-org/memoryd/internal/domain"
)

// familyTerms and strangerTerms are the vocabulary the hallucination guard
// checks the model's narrative against — if the narrative claims a class of
// person the timeline never actually contains, the claim is suspect.
var (
	familyTerms   = []string{"family member", "resident", "owner", "homeowner"}
	strangerTerms = []string{"stranger", "unidentified", "unknown person", "intruder"}
)

var negationRe = regexp.MustCompile(`(?i)\b(no|not|never|without)\b`)

// ValidationResult reports whether a generated narrative is grounded in its
// source timeline.
type ValidationResult struct {
	OK       bool
	Warnings []string
}

// Validate checks a generated narrative against the event it was built
// from: any mention of a family member or a stranger must be backed by the
// timeline actually containing one, unless the mention sits within a
// negation ("no stranger was seen"), in which case it's describing an
// absence and is not a hallucination.
func Validate(ev *domain.Event, narrative string) ValidationResult {
	lower := strings.ToLower(narrative)

	hasFamily, hasStranger := eventHasClasses(ev)

	var warnings []string

	if mentionsUnnegated(lower, familyTerms) && !hasFamily {
		warnings = append(warnings, "narrative mentions a family member/resident not present in the timeline")
	}
	if mentionsUnnegated(lower, strangerTerms) && !hasStranger {
		warnings = append(warnings, "narrative mentions a stranger not present in the timeline")
	}

	return ValidationResult{OK: len(warnings) == 0, Warnings: warnings}
}

func eventHasClasses(ev *domain.Event) (hasFamily, hasStranger bool) {
	for _, pi := range ev.PeopleInfo {
		switch pi.Role {
		case domain.RoleOwner, domain.RoleFamily, domain.RoleSuspectedFamily:
			hasFamily = true
		case domain.RoleStranger, domain.RoleUnknown:
			hasStranger = true
		}
	}
	if ev.HasUnresolvedStrangers {
		hasStranger = true
	}
	return hasFamily, hasStranger
}

// mentionsUnnegated reports whether any term occurs in text with no
// negation word within 5 characters before it — "no stranger was seen"
// does not count as a claim that a stranger appeared.
func mentionsUnnegated(text string, terms []string) bool {
	for _, term := range terms {
		idx := strings.Index(text, term)
		if idx == -1 {
			continue
		}
		start := idx - 5
		if start < 0 {
			start = 0
		}
		window := text[start:idx]
		if !negationRe.MatchString(window) {
			return true
		}
	}
	return false
}
