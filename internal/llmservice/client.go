package llmservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"morocco-rag/internal/config"
	"morocco-rag/internal/models"
)

// Generator produces answer text for a rendered prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SamplingConfig holds the fixed decoding parameters of every call
type SamplingConfig struct {
	MaxTokens         int
	Temperature       float64
	TopP              float64
	RepetitionPenalty float64
}

func SamplingFromConfig(cfg *config.GeneratorConfig) SamplingConfig {
	return SamplingConfig{
		MaxTokens:         cfg.MaxTokens,
		Temperature:       cfg.Temperature,
		TopP:              cfg.TopP,
		RepetitionPenalty: cfg.RepetitionPenalty,
	}
}

func (s SamplingConfig) CallOptions() []llms.CallOption {
	return []llms.CallOption{
		llms.WithMaxTokens(s.MaxTokens),
		llms.WithTemperature(s.Temperature),
		llms.WithTopP(s.TopP),
		llms.WithRepetitionPenalty(s.RepetitionPenalty),
	}
}

// Client calls a langchaingo model with the configured sampling options
type Client struct {
	llm      llms.Model
	sampling SamplingConfig
	model    string
}

func NewClient(llm llms.Model, sampling SamplingConfig, model string) *Client {
	return &Client{llm: llm, sampling: sampling, model: model}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, c.sampling.CallOptions()...)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", c.model, err)
	}
	log.Debug().Str("model", c.model).Dur("took", time.Since(start)).Int("chars", len(text)).Msg("Generated answer")
	return text, nil
}

// Load builds the generator from config. The backing model must exist, a
// missing one is reported as models.ErrModelNotFound.
func Load(ctx context.Context, cfg *config.GeneratorConfig) (*Client, error) {
	log.Debug().Interface("config", map[string]any{
		"provider": cfg.Provider,
		"base_url": cfg.BaseURL,
		"model":    cfg.Model,
	}).Msg("Loading generator")

	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: no model configured", models.ErrModelNotFound)
	}

	var (
		llm llms.Model
		err error
	)
	switch cfg.Provider {
	case config.ProviderOllama, "":
		if err := ProbeOllamaModel(ctx, cfg.BaseURL, cfg.Model); err != nil {
			return nil, err
		}
		llm, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown generator provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	return NewClient(llm, SamplingFromConfig(cfg), cfg.Model), nil
}

type ollamaTags struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// ProbeOllamaModel asks the Ollama server which models are pulled locally
func ProbeOllamaModel(ctx context.Context, baseURL, model string) error {
	var tags ollamaTags
	resp, err := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json").
		R().
		SetContext(ctx).
		SetResult(&tags).
		Get("/api/tags")
	if err != nil {
		return fmt.Errorf("failed to reach ollama at %s: %w", baseURL, err)
	}
	if resp.IsError() {
		return fmt.Errorf("ollama returned %s", resp.Status())
	}

	for _, m := range tags.Models {
		if matchesModel(m.Name, model) || matchesModel(m.Model, model) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not available on %s", models.ErrModelNotFound, model, baseURL)
}

// matchesModel treats "llama2" and "llama2:latest" as the same model
func matchesModel(have, want string) bool {
	if have == "" {
		return false
	}
	if have == want {
		return true
	}
	return !strings.Contains(want, ":") && have == want+":latest"
}
