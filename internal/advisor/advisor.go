// Package advisor answers free-form questions about a user's credit health.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/credit-report/internal/llm"
	"github.com/dvloznov/credit-report/internal/logger"
)

// SystemPrompt frames every conversation.
const SystemPrompt = "You are a helpful financial assistant for BharatCred. " +
	"You help users understand their credit score, loan eligibility, and financial health. " +
	"Always respond in a clear, concise, and friendly manner."

// Roles accepted from clients.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

var (
	// ErrNoMessages is returned for an empty conversation.
	ErrNoMessages = errors.New("conversation has no messages")
	// ErrInvalidMessage is returned for an unknown role or blank content.
	ErrInvalidMessage = errors.New("invalid chat message")
)

// Message is one chat turn as exchanged with clients.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Advisor is a Gemini-backed chat assistant.
type Advisor struct {
	gen   llm.ContentGenerator
	model string
}

// NewAdvisor creates an Advisor. An empty model uses llm.DefaultModelName.
func NewAdvisor(gen llm.ContentGenerator, model string) *Advisor {
	if model == "" {
		model = llm.DefaultModelName
	}
	return &Advisor{gen: gen, model: model}
}

// Reply returns the assistant's next turn for messages. The last message
// must come from the user.
func (a *Advisor) Reply(ctx context.Context, messages []Message) (*Message, error) {
	contents, err := buildContents(messages)
	if err != nil {
		return nil, fmt.Errorf("Reply: %w", err)
	}

	text, err := llm.GenerateText(ctx, a.gen, a.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Reply: %w", err)
	}

	logger.FromContext(ctx).Debug().Int("turns", len(contents)).Msg("Advisor replied")
	return &Message{Role: RoleAssistant, Content: strings.TrimSpace(text)}, nil
}

// buildContents maps client turns onto Gemini roles. System messages from the
// client extend the preamble, which is prepended to the first user turn.
func buildContents(messages []Message) ([]*genai.Content, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	preamble := []string{SystemPrompt}
	var contents []*genai.Content
	for i, m := range messages {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			return nil, fmt.Errorf("message %d: blank content: %w", i, ErrInvalidMessage)
		}
		switch strings.ToLower(m.Role) {
		case RoleSystem:
			preamble = append(preamble, text)
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		case RoleAssistant, string(genai.RoleModel):
			contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
		default:
			return nil, fmt.Errorf("message %d: role %q: %w", i, m.Role, ErrInvalidMessage)
		}
	}

	if len(contents) == 0 || contents[len(contents)-1].Role != string(genai.RoleUser) {
		return nil, fmt.Errorf("last message must be from the user: %w", ErrInvalidMessage)
	}

	head := strings.Join(preamble, "\n\n")
	if contents[0].Role == string(genai.RoleUser) {
		contents[0] = genai.NewContentFromText(head+"\n\n"+contents[0].Parts[0].Text, genai.RoleUser)
	} else {
		contents = append([]*genai.Content{genai.NewContentFromText(head, genai.RoleUser)}, contents...)
	}
	return contents, nil
}
