package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/llm"
	"github.com/dvloznov/credit-report/internal/logger"
)

// GeminiCandidateExtractor is the concrete implementation of CandidateExtractor that uses Gemini AI.
type GeminiCandidateExtractor struct {
	gen   llm.ContentGenerator
	model string
}

// NewGeminiCandidateExtractor creates a new instance of GeminiCandidateExtractor.
func NewGeminiCandidateExtractor(gen llm.ContentGenerator, model string) *GeminiCandidateExtractor {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiCandidateExtractor{gen: gen, model: model}
}

// ExtractCandidates sends the statement text to Gemini and returns the parsed candidates.
func (p *GeminiCandidateExtractor) ExtractCandidates(ctx context.Context, text string, maxChars int) (*domain.Extraction, error) {
	log := logger.FromContext(ctx)

	text = truncateRunes(text, maxChars)

	rawText, err := llm.GenerateText(ctx, p.gen, p.model, llm.UserText(buildExtractionPrompt(text)), nil)
	if err != nil {
		return nil, fmt.Errorf("ExtractCandidates: %w", err)
	}

	// Clean up Markdown fences / extra text if the model ignored instructions.
	clean := llm.CleanModelJSON(rawText)

	var parsed interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		log.Debug().Str("raw_response", rawText).Msg("Unparseable extraction output")
		return nil, fmt.Errorf("ExtractCandidates: unmarshal JSON: %w", err)
	}

	extraction, err := transformModelOutputToExtraction(parsed)
	if err != nil {
		return nil, fmt.Errorf("ExtractCandidates: %w", err)
	}

	log.Info().
		Int("candidates", len(extraction.Candidates)).
		Bool("opening_balance", extraction.OpeningBalance != nil).
		Msg("Extracted candidate transactions")

	return extraction, nil
}

// truncateRunes keeps at most max runes of s. max <= 0 disables truncation.
func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
