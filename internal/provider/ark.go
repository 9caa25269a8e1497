package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// ArkConfig configures the Volcengine ARK provider. ARK addresses a model by
// endpoint ID, so Model is required (or ARK_MODEL_ID).
type ArkConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewArkProvider builds a provider for one ARK endpoint.
func NewArkProvider(ctx context.Context, config *ArkConfig) (*ChatModelProvider, error) {
	apiKey, err := credential(config.APIKey, "ARK_API_KEY")
	if err != nil {
		return nil, err
	}
	endpoint, err := credential(config.Model, "ARK_MODEL_ID")
	if err != nil {
		return nil, err
	}
	maxTokens := orDefault(config.MaxTokens, 4096)

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey:    apiKey,
		BaseURL:   orDefault(config.BaseURL, os.Getenv("ARK_BASE_URL")),
		Model:     endpoint,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ARK model: %w", err)
	}

	return &ChatModelProvider{
		id:        "ark",
		name:      "ARK",
		chatModel: chatModel,
		models: catalog("ark", types.Model{
			ID:              endpoint,
			Name:            "ARK " + endpoint,
			ContextLength:   128000,
			MaxOutputTokens: maxTokens,
		}),
		options: func(req *CompletionRequest) []model.Option {
			// One endpoint per provider; a per-request model would be rejected.
			r := *req
			r.Model = ""
			return commonOptions(&r, model.WithMaxTokens)
		},
	}, nil
}
