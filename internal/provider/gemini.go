package provider

import (
	"context"
	"fmt"
	"iter"
	"os"

	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements Provider for Google Gemini models.
type GeminiProvider struct {
	client *genai.Client
	models []types.Model
	config *GeminiConfig
}

// GeminiConfig holds configuration for Gemini provider.
type GeminiConfig struct {
	APIKey string
	Model  string
	// MaxTokens caps output when a request sets no limit of its own.
	MaxTokens int
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(ctx context.Context, config *GeminiConfig) (*GeminiProvider, error) {
	apiKey := config.APIKey
	for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"} {
		if apiKey != "" {
			break
		}
		apiKey = os.Getenv(env)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if config.Model == "" {
		config.Model = DefaultGeminiModel
	}

	return &GeminiProvider{
		client: client,
		models: geminiModels(),
		config: config,
	}, nil
}

// ID returns the provider identifier.
func (p *GeminiProvider) ID() string { return "google" }

// Name returns the human-readable provider name.
func (p *GeminiProvider) Name() string { return "Google" }

// Models returns the list of available models.
func (p *GeminiProvider) Models() []types.Model {
	return p.models
}

// CreateCompletion creates a streaming completion. Request errors surface
// on the first Recv, since the Gemini stream is lazy.
func (p *GeminiProvider) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	contents, system := toGeminiContents(req.Messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini: request has no user content")
	}

	modelID := req.Model
	if modelID == "" {
		modelID = p.config.Model
	}

	cfg := generateConfig(req, p.config.MaxTokens)
	cfg.SystemInstruction = system
	return pipeGemini(p.client.Models.GenerateContentStream(ctx, modelID, contents, cfg)), nil
}

// generateConfig maps request sampling options onto Gemini's config.
func generateConfig(req *CompletionRequest, maxTokens int) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	return cfg
}

// pipeGemini pumps a Gemini response iterator into an Eino stream. The pump
// goroutine exits when the iterator ends or the reader is closed.
func pipeGemini(seq iter.Seq2[*genai.GenerateContentResponse, error]) *CompletionStream {
	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer sw.Close()
		for resp, err := range seq {
			if err != nil {
				sw.Send(nil, err)
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if closed := sw.Send(&schema.Message{Role: schema.Assistant, Content: text}, nil); closed {
				return
			}
		}
	}()
	return NewCompletionStream(sr)
}

// toGeminiContents maps chat messages to Gemini contents. System messages
// are merged into the system instruction.
func toGeminiContents(msgs []*schema.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var system *genai.Content
	for _, m := range msgs {
		switch m.Role {
		case schema.System:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, &genai.Part{Text: m.Content})
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, system
}

func geminiModels() []types.Model {
	return []types.Model{
		{
			ID:              "gemini-2.5-flash",
			Name:            "Gemini 2.5 Flash",
			ProviderID:      "google",
			ContextLength:   1048576,
			MaxOutputTokens: 65536,
			InputPrice:      0.3,
			OutputPrice:     2.5,
		},
		{
			ID:              "gemini-2.5-pro",
			Name:            "Gemini 2.5 Pro",
			ProviderID:      "google",
			ContextLength:   1048576,
			MaxOutputTokens: 65536,
			InputPrice:      1.25,
			OutputPrice:     10.0,
		},
		{
			ID:              "gemini-2.0-flash",
			Name:            "Gemini 2.0 Flash",
			ProviderID:      "google",
			ContextLength:   1048576,
			MaxOutputTokens: 8192,
			InputPrice:      0.1,
			OutputPrice:     0.4,
		},
	}
}
