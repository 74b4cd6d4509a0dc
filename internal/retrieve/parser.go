// Package retrieve implements Phase I: parsing a natural-language question
// into a structured query, fetching grounding evidence from the store, and
// synthesizing an answer via the LLM gateway.
package retrieve

import (
	"regexp"
	"strings"
	"time"
)

// QueryType distinguishes a request for a specific event/person from a
// request for the day's overall narrative.
type QueryType string

const (
	QueryEvent   QueryType = "event"
	QuerySummary QueryType = "summary"
)

// ParsedQuery is the structured form of a free-text question, generalizing
// the original query parser's hardcoded Chinese keyword dictionaries into
// configurable alias maps so new vocabularies don't require code changes.
type ParsedQuery struct {
	Type       QueryType
	PersonName string // empty if unspecified
	From, To   *time.Time
	ActionLike string // empty if unspecified
}

// AliasMaps holds the deployment-specific vocabulary the parser matches
// against: person name aliases and action/keyword aliases, each mapping a
// canonical value to the phrases that should resolve to it.
type AliasMaps struct {
	PersonAliases map[string][]string
	ActionAliases map[string][]string
	SummaryCues   []string
}

var dateWordRe = regexp.MustCompile(`(?i)\b(today|yesterday|this week|last week)\b`)

// Parse turns a free-text question into a ParsedQuery relative to now.
func Parse(question string, aliases AliasMaps, now time.Time) ParsedQuery {
	lower := strings.ToLower(question)

	q := ParsedQuery{Type: QueryEvent}

	if containsAny(lower, aliases.SummaryCues) {
		q.Type = QuerySummary
	}

	if name, ok := matchAlias(lower, aliases.PersonAliases); ok {
		q.PersonName = name
	}

	if action, ok := matchAlias(lower, aliases.ActionAliases); ok {
		q.ActionLike = action
	}

	from, to := parseDateRange(lower, now)
	q.From, q.To = from, to

	return q
}

func matchAlias(text string, aliases map[string][]string) (string, bool) {
	for canonical, phrases := range aliases {
		if containsAny(text, phrases) {
			return canonical, true
		}
	}
	return "", false
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func parseDateRange(text string, now time.Time) (*time.Time, *time.Time) {
	m := dateWordRe.FindString(text)
	dayStart := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}

	switch strings.ToLower(m) {
	case "today":
		from := dayStart(now)
		to := from.Add(24 * time.Hour)
		return &from, &to
	case "yesterday":
		from := dayStart(now).Add(-24 * time.Hour)
		to := dayStart(now)
		return &from, &to
	case "this week":
		from := dayStart(now).AddDate(0, 0, -int(now.Weekday()))
		to := from.AddDate(0, 0, 7)
		return &from, &to
	case "last week":
		from := dayStart(now).AddDate(0, 0, -int(now.Weekday())-7)
		to := from.AddDate(0, 0, 7)
		return &from, &to
	default:
		return nil, nil
	}
}
