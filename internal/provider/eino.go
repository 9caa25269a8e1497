package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino/components/model"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// ChatModelProvider serves completions from an Eino chat model. The
// OpenAI, Anthropic and ARK providers are all ChatModelProviders; they
// differ in how the model is built and in how a request maps onto call
// options.
type ChatModelProvider struct {
	id        string
	name      string
	chatModel model.BaseChatModel
	models    []types.Model
	options   func(req *CompletionRequest) []model.Option
}

func (p *ChatModelProvider) ID() string            { return p.id }
func (p *ChatModelProvider) Name() string          { return p.name }
func (p *ChatModelProvider) Models() []types.Model { return p.models }

// CreateCompletion opens a stream for req.
func (p *ChatModelProvider) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	var opts []model.Option
	if p.options != nil {
		opts = p.options(req)
	}
	stream, err := p.chatModel.Stream(ctx, req.Messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open stream: %w", p.id, err)
	}
	return NewCompletionStream(stream), nil
}

// commonOptions maps the request fields every backend understands.
// maxTokens builds the backend's own max-tokens option.
func commonOptions(req *CompletionRequest, maxTokens func(int) model.Option) []model.Option {
	var opts []model.Option
	if req.MaxTokens > 0 {
		opts = append(opts, maxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	return opts
}

// credential returns explicit, or the value of env when explicit is empty.
func credential(explicit, env string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s not set", env)
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// catalog stamps providerID onto a copy of models.
func catalog(providerID string, models ...types.Model) []types.Model {
	out := make([]types.Model, len(models))
	for i, m := range models {
		m.ProviderID = providerID
		out[i] = m
	}
	return out
}
