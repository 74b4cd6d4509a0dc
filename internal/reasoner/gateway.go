// Package reasoner implements Phase F: prompt composition from an Event
// plus config (no package-level globals), the Vertex AI Gemini-backed LLM
// gateway with bounded retry, and the hallucination guard and behavioral
// role-override inference that follow a successful call.
package reasoner

import (
	"context"
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/your-org/memoryd/internal/config"
)

// Gateway wraps a single Vertex AI Gemini client behind the retry/backoff
// policy described in spec §5/§7 and grounded on the original's tenacity
// decorator: stop_after_attempt(3), wait_exponential(base 2s, max 10s).
type Gateway struct {
	client *genai.Client
	model  string
	cfg    config.ModelConfig
}

func NewGateway(ctx context.Context, cfg config.ModelConfig) (*Gateway, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("model project id is required")
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("create vertex ai client: %w", err)
	}

	return &Gateway{client: client, model: cfg.ModelName, cfg: cfg}, nil
}

func (g *Gateway) Close() error {
	return g.client.Close()
}

// Generate concatenates systemPrompt and userPrompt (matching the
// original's f"{system_prompt}\n\n{user_prompt}" framing, since the Vertex
// AI Go SDK's GenerativeModel takes a single prompt) and makes up to
// cfg.RetryMax attempts with exponential backoff, each attempt bounded by
// cfg.CallTimeout.
func (g *Gateway) Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float32, maxTokens int32) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(maxTokens)

	prompt := systemPrompt + "\n\n" + userPrompt

	var lastErr error
	for attempt := 0; attempt < g.cfg.RetryMax; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt, g.cfg.RetryBase, g.cfg.RetryCap)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		text, err := g.call(callCtx, model, prompt)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("llm call failed after %d attempts: %w", g.cfg.RetryMax, lastErr)
}

func (g *Gateway) call(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty model response")
	}

	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out += string(txt)
		}
	}
	if out == "" {
		return "", fmt.Errorf("empty model response text")
	}
	return out, nil
}

func backoff(attempt int, base, cap time.Duration) time.Duration {
	d := base * time.Duration(math.Pow(2, float64(attempt-1)))
	if d > cap {
		return cap
	}
	return d
}
