package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/your-org/memoryd/internal/reasoner"
	"github.com/your-org/memoryd/internal/store"
)

const (
	synthTemperature = 0.3
	synthMaxTokens   = 512
	maxSynthEvidence = 5
)

const noEvidenceAnswer = "I couldn't find any recorded events matching that question."

const synthSystemPrompt = `You answer questions about home security footage using only the evidence events listed below. Cite specific times and cameras where relevant. If the evidence doesn't fully answer the question, say what is and isn't supported. Never invent people or events not present in the evidence.`

// Synthesize answers question using up to the first 5 evidence rows as
// grounding, with a fixed message when there is no evidence at all and a
// deterministic fallback (top 3 descriptions concatenated) if the LLM call
// fails after retries.
func Synthesize(ctx context.Context, gw *reasoner.Gateway, question string, evidence []store.AppearanceRow) (string, error) {
	if len(evidence) == 0 {
		return noEvidenceAnswer, nil
	}

	capped := evidence
	if len(capped) > maxSynthEvidence {
		capped = capped[:maxSynthEvidence]
	}

	user := fmt.Sprintf("Question: %s\n\nEvidence:\n%s", question, formatEvidence(capped))

	text, err := gw.Generate(ctx, synthSystemPrompt, user, synthTemperature, synthMaxTokens)
	if err != nil {
		return fallbackAnswer(evidence), nil
	}
	return text, nil
}

func formatEvidence(rows []store.AppearanceRow) string {
	var lines []string
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s [%s] %s (%s): %s",
			r.Event.StartTime.Format("2006-01-02 15:04:05"), r.Event.CameraLocation,
			r.PersonName, r.PersonRole, r.Event.LLMDescription))
	}
	return strings.Join(lines, "\n")
}

func fallbackAnswer(rows []store.AppearanceRow) string {
	n := 3
	if len(rows) < n {
		n = len(rows)
	}
	var parts []string
	for _, r := range rows[:n] {
		parts = append(parts, r.Event.LLMDescription)
	}
	return strings.Join(parts, " ")
}
