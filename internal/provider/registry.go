package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// DefaultModel is the model used when nothing is configured.
const DefaultModel = "google/" + DefaultGeminiModel

// Registry manages all available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	config    *types.Config
}

// NewRegistry creates a new provider registry.
func NewRegistry(config *types.Config) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		config:    config,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.ID()] = provider
}

// Get retrieves a provider by ID.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", providerID)
	}
	return provider, nil
}

// List returns all available providers sorted by ID.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].ID() < providers[j].ID()
	})
	return providers
}

// GetModel retrieves a specific model from a provider.
func (r *Registry) GetModel(providerID, modelID string) (*types.Model, error) {
	provider, err := r.Get(providerID)
	if err != nil {
		return nil, err
	}

	for _, model := range provider.Models() {
		if model.ID == modelID {
			return &model, nil
		}
	}

	return nil, fmt.Errorf("model not found: %s/%s", providerID, modelID)
}

// AllModels returns all models from all providers.
func (r *Registry) AllModels() []types.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var models []types.Model
	for _, p := range r.providers {
		models = append(models, p.Models()...)
	}

	sort.SliceStable(models, func(i, j int) bool {
		pi, pj := modelPriority(models[i].ID), modelPriority(models[j].ID)
		if pi != pj {
			return pi > pj
		}
		return models[i].ProviderID+"/"+models[i].ID < models[j].ProviderID+"/"+models[j].ID
	})

	return models
}

// DefaultModel returns the configured model, the Gemini default, or the
// first available model, in that order.
func (r *Registry) DefaultModel() (*types.Model, error) {
	if r.config != nil && r.config.Model != "" {
		providerID, modelID := ParseModelString(r.config.Model)
		return r.GetModel(providerID, modelID)
	}

	providerID, modelID := ParseModelString(DefaultModel)
	if model, err := r.GetModel(providerID, modelID); err == nil {
		return model, nil
	}

	models := r.AllModels()
	if len(models) == 0 {
		return nil, fmt.Errorf("no models available")
	}
	return &models[0], nil
}

// Resolve finds the provider and model for a "provider/model" string. An
// empty string selects the default model. A bare model ID is looked up
// across all providers.
func (r *Registry) Resolve(ref string) (Provider, *types.Model, error) {
	var model *types.Model
	var err error

	providerID, modelID := ParseModelString(ref)
	switch {
	case ref == "":
		model, err = r.DefaultModel()
	case providerID == "":
		for _, m := range r.AllModels() {
			if m.ID == modelID {
				model = &m
				break
			}
		}
		if model == nil {
			err = fmt.Errorf("model not found: %s", modelID)
		}
	default:
		model, err = r.GetModel(providerID, modelID)
	}
	if err != nil {
		return nil, nil, err
	}

	p, err := r.Get(model.ProviderID)
	if err != nil {
		return nil, nil, err
	}
	return p, model, nil
}

// ParseModelString parses "provider/model" format.
func ParseModelString(s string) (providerID, modelID string) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", s
}

func modelPriority(modelID string) int {
	switch {
	case strings.Contains(modelID, "gemini-2.5-flash"):
		return 100
	case strings.Contains(modelID, "gemini-2.5"):
		return 90
	case strings.Contains(modelID, "claude-sonnet-4"):
		return 85
	case strings.Contains(modelID, "gpt-4o"):
		return 80
	case strings.Contains(modelID, "gemini-2"):
		return 70
	default:
		return 50
	}
}

// getProviderCredentials returns the API key and base URL, preferring the
// top-level fields over the nested options.
func getProviderCredentials(cfg types.ProviderConfig) (apiKey, baseURL string) {
	apiKey, baseURL = cfg.APIKey, cfg.BaseURL
	if cfg.Options != nil {
		if apiKey == "" {
			apiKey = cfg.Options.APIKey
		}
		if baseURL == "" {
			baseURL = cfg.Options.BaseURL
		}
	}
	return apiKey, baseURL
}

// InitializeProviders creates and registers all providers from config.
// Providers that are disabled or lack credentials are skipped.
func InitializeProviders(ctx context.Context, config *types.Config) (*Registry, error) {
	registry := NewRegistry(config)

	maxTokens := 0
	if config.Generation != nil {
		maxTokens = config.Generation.MaxTokens
	}

	// configured returns the credentials of a provider entry that is present
	// and not disabled.
	configured := func(id string) (cfg types.ProviderConfig, apiKey, baseURL string, ok bool) {
		cfg, ok = config.Provider[id]
		if !ok || cfg.Disable {
			return cfg, "", "", false
		}
		apiKey, baseURL = getProviderCredentials(cfg)
		return cfg, apiKey, baseURL, true
	}
	// Built-in providers also need a key.
	enabled := func(id string) (types.ProviderConfig, string, string, bool) {
		cfg, key, url, ok := configured(id)
		return cfg, key, url, ok && key != ""
	}

	if cfg, key, _, ok := enabled("google"); ok {
		p, err := NewGeminiProvider(ctx, &GeminiConfig{APIKey: key, Model: cfg.Model, MaxTokens: maxTokens})
		register(registry, "google", p, err)
	}

	if cfg, key, url, ok := enabled("anthropic"); ok {
		p, err := NewAnthropicProvider(ctx, &AnthropicConfig{
			APIKey:    key,
			BaseURL:   url,
			Model:     cfg.Model,
			MaxTokens: maxTokens,
		})
		register(registry, "anthropic", p, err)
	}

	if cfg, key, url, ok := enabled("openai"); ok {
		p, err := NewOpenAIProvider(ctx, &OpenAIConfig{
			APIKey:    key,
			BaseURL:   url,
			Model:     cfg.Model,
			MaxTokens: maxTokens,
		})
		register(registry, "openai", p, err)
	}

	if cfg, key, url, ok := enabled("ark"); ok {
		p, err := NewArkProvider(ctx, &ArkConfig{
			APIKey:    key,
			BaseURL:   url,
			Model:     cfg.Model,
			MaxTokens: maxTokens,
		})
		register(registry, "ark", p, err)
	}

	// Any other provider entry with a baseURL is an OpenAI-compatible
	// endpoint registered under its own name. Local servers such as Ollama
	// need no key.
	names := make([]string, 0, len(config.Provider))
	for name := range config.Provider {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if builtinProviders[name] {
			continue
		}
		cfg, key, url, ok := configured(name)
		if !ok {
			continue
		}
		if url == "" {
			logging.Warn().Str("provider", name).Msg("skipping provider without baseURL")
			continue
		}
		p, err := NewOpenAIProvider(ctx, &OpenAIConfig{
			ID:        name,
			APIKey:    key,
			BaseURL:   url,
			Model:     cfg.Model,
			MaxTokens: maxTokens,
		})
		register(registry, name, p, err)
	}

	return registry, nil
}

var builtinProviders = map[string]bool{"google": true, "anthropic": true, "openai": true, "ark": true}

func register[P Provider](r *Registry, id string, p P, err error) {
	if err != nil {
		logging.Warn().Err(err).Str("provider", id).Msg("provider unavailable")
		return
	}
	r.Register(p)
}
