package reasoner

import (
	"context"
	"log/slog"

	"github.com/your-org/memoryd/internal/config"
	"github.com/your-org/memoryd/internal/domain"
)

const (
	narrativeTemperature = 0.4
	narrativeMaxTokens   = 256
)

// Reasoner is Phase F: it turns a fused-and-refined Event into the final
// narrative text stored on ev.SummaryText, short-circuiting the LLM call
// when there is nothing to describe and running the hallucination guard
// and behavioral role override after a successful call.
type Reasoner struct {
	gw       *Gateway
	behavior config.BehaviorConfig
	log      *slog.Logger
}

func New(gw *Gateway, behavior config.BehaviorConfig, log *slog.Logger) *Reasoner {
	return &Reasoner{gw: gw, behavior: behavior, log: log}
}

// Describe populates ev.SummaryText. It never returns an error for an
// empty-people event (that's the fixed no-LLM-call path); it does return an
// error if the LLM call itself fails after retries.
func (r *Reasoner) Describe(ctx context.Context, ev *domain.Event) error {
	sys, user, ok := BuildNarrativePrompt(ev)
	if !ok {
		ev.SummaryText = noPeoplePrompt
		return nil
	}

	text, err := r.gw.Generate(ctx, sys, user, narrativeTemperature, narrativeMaxTokens)
	if err != nil {
		return err
	}

	result := Validate(ev, text)
	if !result.OK {
		for _, w := range result.Warnings {
			r.log.Warn("narrative hallucination guard flagged a mismatch", "warning", w)
		}
	}

	if role, matched := InferRoleOverride(text, r.behavior); matched {
		ApplyBehaviorOverride(ev, role, text, r.behavior)
	}

	ev.SummaryText = text
	return nil
}
