// Package provider abstracts the language models that write server
// templates.
//
// Every provider turns a CompletionRequest into a CompletionStream of
// assistant message fragments. The stream is consumed by the template
// session, which decodes tags out of the concatenated text as it arrives.
//
// # Supported Providers
//
// Google Gemini is the default and talks to the Gemini API through the
// google.golang.org/genai client:
//
//	p, err := provider.NewGeminiProvider(ctx, &provider.GeminiConfig{
//	    Model: "gemini-2.5-flash",
//	})
//
// Anthropic, OpenAI (and OpenAI-compatible endpoints) and Volcengine ARK are
// built on Eino chat models:
//
//	p, err := provider.NewOpenAIProvider(ctx, &provider.OpenAIConfig{
//	    APIKey:  "sk-...",
//	    BaseURL: "http://localhost:11434/v1",
//	    Model:   "llama3",
//	})
//
// ScriptedProvider replays canned transcripts and needs no network.
//
// # Registry
//
// InitializeProviders registers every configured provider that has a key.
// Models are addressed as "provider/model":
//
//	registry, _ := provider.InitializeProviders(ctx, cfg)
//	p, model, err := registry.Resolve("google/gemini-2.5-flash")
//
// An empty reference resolves to the configured default model, then to
// DefaultModel, then to the highest ranked model available.
//
// # Streaming
//
//	stream, err := p.CreateCompletion(ctx, provider.NewPromptRequest(system, prompt))
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    msg, err := stream.Recv()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
//
// Gemini streams are lazy: request errors surface on the first Recv rather
// than from CreateCompletion.
package provider
