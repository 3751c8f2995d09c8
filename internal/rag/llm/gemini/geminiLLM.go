package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/internal/rag/llm"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"google.golang.org/genai"
)

const maxListedModels = 100

type llmClient struct {
	client    *genai.Client
	modelName string
}

var logger = logger_i.NewLogger("llm_gemini")
var geminiClient *llmClient
var once sync.Once

// GetGeminiClient returns nil when the client cannot be created.
func GetGeminiClient(ctx context.Context, modelName string, apikey string) llm.Provider {
	once.Do(func() {
		newGeminiClient(ctx, modelName, apikey)
	})

	if geminiClient == nil {
		return nil
	}
	return &llmClient{client: geminiClient.client, modelName: geminiClient.modelName}
}

func newGeminiClient(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		logger.Error("Error creating Gemini client", "error", err)
		return
	}
	if modelName == "" {
		modelName = config.GeminiModelName
	}
	geminiClient = &llmClient{client: c, modelName: modelName}
	logger.Info("Gemini client created", "model", modelName)
	go closeClient(ctx)
}

func closeClient(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Gemini client")
}

func (c *llmClient) Name() string { return config.LLMProviderGemini }

func (c *llmClient) DefaultModel() string { return c.modelName }

func ptr[T any](v T) *T { return &v }

func buildRequest(p llm.Prompt) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(p.History)+1)
	for _, turn := range p.History {
		role := genai.Role(genai.RoleUser)
		if turn.Role == commonModels.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(llm.BuildUserPrompt(p), genai.RoleUser))

	cfg := &genai.GenerateContentConfig{Temperature: ptr(config.ModelTemperature)}
	if p.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: p.System}}}
	}
	return contents, cfg
}

func (c *llmClient) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	log := logger_i.FromContext(ctx, "llm_gemini")
	model := llm.ModelOrDefault(p, c)
	contents, cfg := buildRequest(p)

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	metrics.CaptureExecutionMetrics("llm_generate", time.Since(start))
	if err != nil {
		log.Error("Gemini generation failed", "model", model, "error", err)
		return "", mapError(model, err)
	}
	return result.Text(), nil
}

func (c *llmClient) Stream(ctx context.Context, p llm.Prompt) (<-chan llm.Token, error) {
	model := llm.ModelOrDefault(p, c)
	contents, cfg := buildRequest(p)
	out := make(chan llm.Token)

	go func() {
		defer close(out)
		log := logger_i.FromContext(ctx, "llm_gemini")
		for resp, err := range c.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			token := llm.Token{}
			if err != nil {
				log.Error("Gemini stream failed", "model", model, "error", err)
				token.Err = mapError(model, err)
			} else {
				token.Text = resp.Text()
				if token.Text == "" {
					continue
				}
			}
			select {
			case out <- token:
			case <-ctx.Done():
				return
			}
			if token.Err != nil {
				return
			}
		}
	}()
	return out, nil
}

func (c *llmClient) CheckModel(ctx context.Context, model string) error {
	if model == "" {
		model = c.modelName
	}
	if _, err := c.client.Models.Get(ctx, model, nil); err != nil {
		return mapError(model, err)
	}
	return nil
}

func (c *llmClient) Models(ctx context.Context) ([]string, error) {
	var names []string
	for m, err := range c.client.Models.All(ctx) {
		if err != nil {
			return names, mapError("", err)
		}
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
		if len(names) >= maxListedModels {
			break
		}
	}
	return names, nil
}

func mapError(model string, err error) error {
	code := apiErrorCode(err)
	switch code {
	case http.StatusNotFound:
		return &ragErrors.ModelUnavailableError{
			Provider: config.LLMProviderGemini,
			Model:    model,
			Hint:     fmt.Sprintf("model %q is not served by Gemini, pick one from GET /chat/models", model),
			Err:      err,
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ragErrors.ModelUnavailableError{
			Provider: config.LLMProviderGemini,
			Model:    model,
			Hint:     "the Gemini API key is missing or invalid",
			Err:      err,
		}
	}
	return err
}

func apiErrorCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}
