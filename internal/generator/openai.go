package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultTimeout = 20 * time.Second

// OpenAI generates replies through an OpenAI-compatible chat completion
// API. Each call carries its own timeout so a slow upstream is a failure,
// never a hang.
type OpenAI struct {
	client  *openai.Client
	model   string
	persona Persona
	timeout time.Duration
	logger  *slog.Logger
}

type OpenAIConfig struct {
	APIKey  string
	APIBase string // empty means the upstream default
	Model   string
	Persona Persona
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.APIBase, "/")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Persona.SystemPrompt == "" {
		cfg.Persona = DefaultPersona()
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		persona: cfg.Persona,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// Generate returns reply text for the given message text.
func (g *OpenAI) Generate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.persona.MaxTokens,
		Temperature: g.persona.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.persona.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choice list")
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("chat completion: empty reply text")
	}

	g.logger.Debug("reply generated",
		"model", g.model,
		"latency_ms", time.Since(start).Milliseconds(),
		"reply_len", len(reply),
	)
	return reply, nil
}

// Healthy checks that the API is reachable with the configured key.
func (g *OpenAI) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("generator not reachable: %w", err)
	}
	return nil
}
