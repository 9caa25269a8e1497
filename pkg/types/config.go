package types

// Config represents the Server Builder configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// Model selection
	Model      string `json:"model,omitempty"`       // "google/gemini-2.5-flash"
	SmallModel string `json:"small_model,omitempty"` // For toolkit and chat topics

	// Provider configs
	Provider map[string]ProviderConfig `json:"provider,omitempty"`

	// Generation tuning
	Generation *GenerationConfig `json:"generation,omitempty"`

	// HTTP server
	Server *ServerConfig `json:"server,omitempty"`

	// Log level override (DEBUG|INFO|WARN|ERROR)
	LogLevel string `json:"logLevel,omitempty"`
}

// ProviderConfig holds configuration for a specific provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`

	// Endpoint ID for providers like ARK that address models by endpoint.
	Model string `json:"model,omitempty"`

	// Nested form of the same keys, copied up when the config loads.
	Options *ProviderOptions `json:"options,omitempty"`

	// Disable provider
	Disable bool `json:"disable,omitempty"`
}

// ProviderOptions holds nested provider options.
type ProviderOptions struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`
}

// GenerationConfig tunes template generation.
type GenerationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	// OpenRetries bounds how many times opening a stream is retried.
	OpenRetries *int `json:"openRetries,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int   `json:"port,omitempty"`
	EnableCORS *bool `json:"cors,omitempty"`
}

// Model represents an LLM model available from a provider.
type Model struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	ProviderID      string  `json:"providerID"`
	ContextLength   int     `json:"contextLength"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	InputPrice      float64 `json:"inputPrice,omitempty"`  // per 1M tokens
	OutputPrice     float64 `json:"outputPrice,omitempty"` // per 1M tokens
}
