package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
)

// Prompt is everything a provider needs for one completion.
// Model is optional, the provider default is used when empty.
type Prompt struct {
	System   string
	History  []commonModels.ConversationTurn
	Context  string
	Question string
	Model    string
}

// Token is one streamed piece of text. A token with Err set is the last one.
type Token struct {
	Text string
	Err  error
}

type Provider interface {
	Name() string
	DefaultModel() string
	Generate(ctx context.Context, prompt Prompt) (string, error)
	// Stream closes the returned channel when the answer is complete or ctx is done.
	Stream(ctx context.Context, prompt Prompt) (<-chan Token, error)
	// CheckModel returns a ModelUnavailableError when the model cannot be used.
	CheckModel(ctx context.Context, model string) error
	Models(ctx context.Context) ([]string, error)
}

// BuildUserPrompt renders the context block and the question as the last user message.
func BuildUserPrompt(p Prompt) string {
	if strings.TrimSpace(p.Context) == "" {
		return fmt.Sprintf("User Question: %s", p.Question)
	}
	return fmt.Sprintf("Context:\n%s\n\nUser Question: %s", p.Context, p.Question)
}

// ModelOrDefault picks the requested model or the provider default.
func ModelOrDefault(p Prompt, provider Provider) string {
	if p.Model != "" {
		return p.Model
	}
	return provider.DefaultModel()
}
