package openaiLLM

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/customHttpClient"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/internal/rag/llm"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// client works with OpenAI and every server speaking its chat dialect (Ollama by default).
type client struct {
	api       openai.Client
	modelName string
	local     bool
	logger    *logger_i.Logger
}

func NewOpenAIProvider(modelName string, apiKey string, baseURL string) llm.Provider {
	if modelName == "" {
		modelName = config.OpenAIModelName
	}
	if apiKey == "" {
		apiKey = "ollama"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(customHttpClient.NewClient(0)),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &client{
		api:       openai.NewClient(opts...),
		modelName: modelName,
		local:     baseURL != "",
		logger:    logger_i.NewLogger("llm_openai"),
	}
}

func (c *client) Name() string { return config.LLMProviderOpenAI }

func (c *client) DefaultModel() string { return c.modelName }

func buildParams(p llm.Prompt, model string) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(p.History)+2)
	if p.System != "" {
		messages = append(messages, openai.SystemMessage(p.System))
	}
	for _, turn := range p.History {
		if turn.Role == commonModels.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(turn.Text))
			continue
		}
		messages = append(messages, openai.UserMessage(turn.Text))
	}
	messages = append(messages, openai.UserMessage(llm.BuildUserPrompt(p)))

	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(float64(config.ModelTemperature)),
	}
}

func (c *client) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	log := logger_i.FromContext(ctx, "llm_openai")
	model := llm.ModelOrDefault(p, c)

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, buildParams(p, model))
	metrics.CaptureExecutionMetrics("llm_generate", time.Since(start))
	if err != nil {
		log.Error("Chat completion failed", "model", model, "error", err)
		return "", c.mapError(model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *client) Stream(ctx context.Context, p llm.Prompt) (<-chan llm.Token, error) {
	model := llm.ModelOrDefault(p, c)
	stream := c.api.Chat.Completions.NewStreaming(ctx, buildParams(p, model))
	out := make(chan llm.Token)

	go func() {
		defer close(out)
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case out <- llm.Token{Text: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			c.logger.Error("Chat stream failed", "model", model, "error", err)
			select {
			case out <- llm.Token{Err: c.mapError(model, err)}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (c *client) CheckModel(ctx context.Context, model string) error {
	if model == "" {
		model = c.modelName
	}
	if _, err := c.api.Models.Get(ctx, model); err != nil {
		return c.mapError(model, err)
	}
	return nil
}

func (c *client) Models(ctx context.Context) ([]string, error) {
	var names []string
	iter := c.api.Models.ListAutoPaging(ctx)
	for iter.Next() {
		names = append(names, iter.Current().ID)
	}
	if err := iter.Err(); err != nil {
		return names, c.mapError("", err)
	}
	return names, nil
}

func (c *client) mapError(model string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		hint := fmt.Sprintf("model %q does not exist, pick one from GET /chat/models", model)
		if c.local {
			hint = fmt.Sprintf("model %q is not installed, run `ollama pull %s`", model, model)
		}
		return &ragErrors.ModelUnavailableError{Provider: c.Name(), Model: model, Hint: hint, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &ragErrors.ModelUnavailableError{
			Provider: c.Name(),
			Model:    model,
			Hint:     "the model server is not reachable, check llm.base_url (is `ollama serve` running?)",
			Err:      err,
		}
	}
	return err
}
