// Package llm holds the Gemini plumbing shared by the extractor, the
// narrator and the advisor chat.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the default Gemini model.
const DefaultModelName = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the model answered with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// ContentGenerator is the subset of *genai.Models the services call.
// Tests substitute a fake.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewClient creates a GenAI client. Credentials and backend come from the
// standard GOOGLE_API_KEY / GOOGLE_GENAI_USE_VERTEXAI environment.
func NewClient(ctx context.Context, apiVersion string) (*genai.Client, error) {
	if apiVersion == "" {
		apiVersion = "v1"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: apiVersion},
	})
	if err != nil {
		return nil, fmt.Errorf("NewClient: create genai client: %w", err)
	}
	return client, nil
}

// GenerateText sends contents to model and returns the response text.
func GenerateText(ctx context.Context, gen ContentGenerator, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	if model == "" {
		model = DefaultModelName
	}

	resp, err := gen.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("GenerateText: generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("GenerateText: %w", ErrEmptyResponse)
	}
	return text, nil
}

// UserText builds a single user turn holding prompt.
func UserText(prompt string) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
}

// CleanModelJSON strips Markdown fences and any prose around the outermost
// JSON object or array. Models ignore "no code fences" often enough.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep from the first opening bracket to its matching closer kind.
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	closer := "]"
	if s[start] == '{' {
		closer = "}"
	}
	if end := strings.LastIndex(s, closer); end > start {
		s = s[start : end+1]
	}

	return strings.TrimSpace(s)
}
