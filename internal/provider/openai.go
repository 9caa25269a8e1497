package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// OpenAIConfig configures the OpenAI provider. Any OpenAI-compatible
// endpoint works when BaseURL is set; ID then names it (e.g. "ollama").
type OpenAIConfig struct {
	ID        string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// keylessAPIKey is sent to compatible endpoints configured without a key.
// The client refuses an empty one and local servers ignore it.
const keylessAPIKey = "unused"

// NewOpenAIProvider builds a provider on the Chat Completions API.
// A compatible endpoint (ID other than "openai") never falls back to
// OPENAI_API_KEY.
func NewOpenAIProvider(ctx context.Context, config *OpenAIConfig) (*ChatModelProvider, error) {
	id := orDefault(config.ID, "openai")
	apiKey := config.APIKey
	if id == "openai" {
		var err error
		if apiKey, err = credential(config.APIKey, "OPENAI_API_KEY"); err != nil {
			return nil, err
		}
	} else if apiKey == "" {
		apiKey = keylessAPIKey
	}

	modelID := orDefault(config.Model, "gpt-4o-mini")
	maxTokens := orDefault(config.MaxTokens, 8192)

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:              apiKey,
		BaseURL:             config.BaseURL,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
	}

	models := openAIModels
	name := "OpenAI"
	if id != "openai" {
		// A compatible endpoint serves whatever it was configured with.
		models = []types.Model{{ID: modelID, Name: modelID, ContextLength: 128000}}
		name = id
	}

	return &ChatModelProvider{
		id:        id,
		name:      name,
		chatModel: chatModel,
		models:    catalog(id, models...),
		options: func(req *CompletionRequest) []model.Option {
			return commonOptions(req, openai.WithMaxCompletionTokens)
		},
	}, nil
}

var openAIModels = []types.Model{
	{ID: "gpt-4o", Name: "GPT-4o", ContextLength: 128000, MaxOutputTokens: 16384, InputPrice: 2.5, OutputPrice: 10.0},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", ContextLength: 128000, MaxOutputTokens: 16384, InputPrice: 0.15, OutputPrice: 0.6},
	{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini", ContextLength: 1047576, MaxOutputTokens: 32768, InputPrice: 0.4, OutputPrice: 1.6},
	{ID: "gpt-5-mini", Name: "GPT-5 Mini", ContextLength: 272000, MaxOutputTokens: 128000, InputPrice: 0.25, OutputPrice: 2.0},
}
