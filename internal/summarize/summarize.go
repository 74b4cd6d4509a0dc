// Package summarize implements Phase H: rolling a day's persisted events
// into one daily narrative via the same LLM gateway Phase F uses, with a
// fixed 3-section system prompt and an idempotent upsert keyed by date.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/memoryd/internal/reasoner"
	"github.com/your-org/memoryd/internal/store"
)

const dailySystemPrompt = `You are summarizing one full day of home security events into a short daily report with exactly three sections:
1. Household activity — residents' comings and goings.
2. Visitors — any known or likely visitors, deliveries, or service workers.
3. Notable or unusual activity — anything involving an unidentified person, or that stands out.
If a section has nothing to report, write "Nothing to report." for that section. Do not invent events not listed below.`

const (
	dailyTemperature = 0.3
	dailyMaxTokens   = 512
)

type Summarizer struct {
	store *store.Store
	gw    *reasoner.Gateway
}

func New(st *store.Store, gw *reasoner.Gateway) *Summarizer {
	return &Summarizer{store: st, gw: gw}
}

// SummarizeDay builds (or rebuilds, if force) the daily_summaries row for
// date. With force=false and an existing summary, it returns the existing
// text without calling the LLM again.
func (s *Summarizer) SummarizeDay(ctx context.Context, date time.Time, force bool) (string, error) {
	if !force {
		if existing, err := s.store.GetDailySummary(ctx, date); err != nil {
			return "", err
		} else if existing != nil {
			return existing.SummaryText, nil
		}
	}

	events, err := s.store.ListEventsForDate(ctx, date)
	if err != nil {
		return "", err
	}

	if len(events) == 0 {
		return "No events were recorded today.", nil
	}

	var lines []string
	for _, ev := range events {
		lines = append(lines, fmt.Sprintf("%s [%s]: %s",
			ev.StartTime.Format("15:04:05"), ev.CameraLocation, ev.LLMDescription))
	}
	user := fmt.Sprintf("Date: %s\n\nEvents:\n%s", date.Format("2006-01-02"), strings.Join(lines, "\n"))

	text, err := s.gw.Generate(ctx, dailySystemPrompt, user, dailyTemperature, dailyMaxTokens)
	if err != nil {
		return "", fmt.Errorf("generate daily summary: %w", err)
	}

	if _, err := s.store.UpsertDailySummary(ctx, date, text); err != nil {
		return "", err
	}
	return text, nil
}

// SummarizeAll iterates every distinct date with at least one event,
// skipping dates that already have a summary unless force is set.
func (s *Summarizer) SummarizeAll(ctx context.Context, force bool) (int, error) {
	dates, err := s.store.DistinctEventDates(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, d := range dates {
		if !force {
			existing, err := s.store.GetDailySummary(ctx, d)
			if err != nil {
				return count, err
			}
			if existing != nil {
				continue
			}
		}
		if _, err := s.SummarizeDay(ctx, d, force); err != nil {
			return count, fmt.Errorf("summarize %s: %w", d.Format("2006-01-02"), err)
		}
		count++
	}
	return count, nil
}
