package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/llm"
)

// GeminiNarrator is the concrete implementation of NarrativeGenerator that uses Gemini AI.
type GeminiNarrator struct {
	gen   llm.ContentGenerator
	model string
}

// NewGeminiNarrator creates a new instance of GeminiNarrator.
func NewGeminiNarrator(gen llm.ContentGenerator, model string) *GeminiNarrator {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiNarrator{gen: gen, model: model}
}

// Narrate asks Gemini for a summary and fits its lists to the score tier.
func (n *GeminiNarrator) Narrate(ctx context.Context, score *domain.ScoreResult) (*domain.Narrative, error) {
	if score == nil {
		return nil, fmt.Errorf("Narrate: score is nil")
	}
	tier := tierForScore(score.CreditScore)

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.4)}
	rawText, err := llm.GenerateText(ctx, n.gen, n.model, llm.UserText(buildNarrativePrompt(score, tier)), cfg)
	if err != nil {
		return nil, fmt.Errorf("Narrate: %w", err)
	}

	narrative, err := parseNarrative(rawText)
	if err != nil {
		return nil, fmt.Errorf("Narrate: %w", err)
	}

	fitToTier(narrative, tier)
	return narrative, nil
}

// parseNarrative reads the model's JSON object. A reply that is not JSON at
// all is kept as the summary with empty lists.
func parseNarrative(raw string) (*domain.Narrative, error) {
	clean := llm.CleanModelJSON(raw)
	if !strings.HasPrefix(clean, "{") {
		return &domain.Narrative{Summary: strings.TrimSpace(raw)}, nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, fmt.Errorf("parseNarrative: unmarshal JSON: %w", err)
	}

	summary, err := getOptionalStringField(obj, "summary")
	if err != nil {
		return nil, fmt.Errorf("parseNarrative: %w", err)
	}

	out := &domain.Narrative{
		Strengths:    getStringList(obj, "strengths"),
		Weaknesses:   getStringList(obj, "weaknesses"),
		Improvements: getStringList(obj, "improvements"),
	}
	if summary != nil {
		out.Summary = *summary
	}
	return out, nil
}

// getStringList reads an array of strings, dropping blanks and non-strings.
func getStringList(m map[string]interface{}, key string) []string {
	items, _ := m[key].([]interface{})
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// Fallback items used when the model returns fewer entries than the tier requires.
var (
	defaultStrengths = []string{
		"Regular account activity gives lenders a clear picture of cash flow.",
		"Income credits are visible and traceable on the statement.",
		"Most spending goes through traceable digital channels.",
		"No signs of severe financial distress in the reviewed period.",
	}
	defaultWeaknesses = []string{
		"Spending is high relative to income in the reviewed period.",
		"Savings buffer is thin compared with monthly outflows.",
		"Some outflows fall into higher-risk spending categories.",
		"Cash withdrawals reduce the transparency of spending.",
	}
	defaultImprovements = []string{
		"Set aside a fixed share of income as savings each month.",
		"Reduce discretionary and high-risk spending.",
		"Prefer digital payments over cash withdrawals.",
		"Keep a steady balance and avoid overdrawing the account.",
	}
)

// fitToTier trims or pads each list to the exact tier size.
func fitToTier(n *domain.Narrative, tier narrativeTier) {
	n.Strengths = fitList(n.Strengths, tier.Strengths, defaultStrengths)
	n.Weaknesses = fitList(n.Weaknesses, tier.Weaknesses, defaultWeaknesses)
	n.Improvements = fitList(n.Improvements, tier.Improvements, defaultImprovements)
	if strings.TrimSpace(n.Summary) == "" {
		n.Summary = "Your credit profile is rated " + tier.Label + " based on the transactions in this statement."
	}
}

func fitList(items []string, size int, defaults []string) []string {
	out := make([]string, 0, size)
	for _, it := range items {
		if len(out) == size {
			break
		}
		out = append(out, it)
	}
	for _, d := range defaults {
		if len(out) == size {
			break
		}
		if !containsFold(out, d) {
			out = append(out, d)
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, it := range list {
		if strings.EqualFold(it, s) {
			return true
		}
	}
	return false
}
