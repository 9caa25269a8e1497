package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewAnthropicProvider builds a provider on the Claude Messages API.
func NewAnthropicProvider(ctx context.Context, config *AnthropicConfig) (*ChatModelProvider, error) {
	apiKey, err := credential(config.APIKey, "ANTHROPIC_API_KEY")
	if err != nil {
		return nil, err
	}
	maxTokens := orDefault(config.MaxTokens, 8192)

	cfg := &claude.Config{
		APIKey:    apiKey,
		Model:     orDefault(config.Model, "claude-haiku-4-5"),
		MaxTokens: maxTokens,
	}
	if config.BaseURL != "" {
		cfg.BaseURL = &config.BaseURL
	}
	chatModel, err := claude.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Claude model: %w", err)
	}

	return &ChatModelProvider{
		id:        "anthropic",
		name:      "Anthropic",
		chatModel: chatModel,
		models:    catalog("anthropic", anthropicModels...),
		options: func(req *CompletionRequest) []model.Option {
			// Claude rejects requests without a token limit.
			r := *req
			r.MaxTokens = orDefault(r.MaxTokens, maxTokens)
			return commonOptions(&r, model.WithMaxTokens)
		},
	}, nil
}

var anthropicModels = []types.Model{
	{ID: "claude-haiku-4-5", Name: "Claude Haiku 4.5", ContextLength: 200000, MaxOutputTokens: 64000, InputPrice: 1.0, OutputPrice: 5.0},
	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ContextLength: 200000, MaxOutputTokens: 64000, InputPrice: 3.0, OutputPrice: 15.0},
	{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", ContextLength: 200000, MaxOutputTokens: 8192, InputPrice: 0.8, OutputPrice: 4.0},
}
