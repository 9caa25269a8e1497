package provider_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockLLMConfig configures the canned transcripts of a MockLLMServer.
type MockLLMConfig struct {
	// Responses maps a prompt substring to the transcript streamed back.
	Responses map[string]string
	// Fallback is streamed when no response matches.
	Fallback string
	// ChunkSize is the number of bytes per streamed delta.
	ChunkSize int
	// LagMS delays every delta.
	LagMS int
}

// MockRequest records an incoming request for verification.
type MockRequest struct {
	Path          string
	Authorization string
	Body          map[string]any
	Prompt        string
}

// MockLLMServer mimics the OpenAI chat completions API, streaming tag
// transcripts in fixed-size deltas so tags split across chunks.
type MockLLMServer struct {
	server *httptest.Server
	config *MockLLMConfig

	mu       sync.Mutex
	requests []MockRequest
}

// NewMockLLMServer creates a new mock LLM server.
func NewMockLLMServer(config *MockLLMConfig) *MockLLMServer {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 7
	}
	m := &MockLLMServer{config: config}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", m.handleChatCompletions)
	mux.HandleFunc("/chat/completions", m.handleChatCompletions)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the mock server's URL.
func (m *MockLLMServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockLLMServer) Close() {
	m.server.Close()
}

// Requests returns all recorded requests.
func (m *MockLLMServer) Requests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockRequest(nil), m.requests...)
}

func (m *MockLLMServer) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	prompt := lastUserPrompt(req)
	m.mu.Lock()
	m.requests = append(m.requests, MockRequest{
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Body:          req,
		Prompt:        prompt,
	})
	m.mu.Unlock()

	transcript := m.findResponse(prompt)
	if stream, _ := req["stream"].(bool); !stream {
		writeCompletion(w, transcript)
		return
	}
	m.writeStream(w, transcript)
}

func lastUserPrompt(req map[string]any) string {
	messages, _ := req["messages"].([]any)
	for i := len(messages) - 1; i >= 0; i-- {
		msg, ok := messages[i].(map[string]any)
		if !ok {
			continue
		}
		if role, _ := msg["role"].(string); role == "user" {
			content, _ := msg["content"].(string)
			return content
		}
	}
	return ""
}

func (m *MockLLMServer) findResponse(prompt string) string {
	prompt = strings.ToLower(prompt)
	for key, resp := range m.config.Responses {
		if strings.Contains(prompt, strings.ToLower(key)) {
			return resp
		}
	}
	return m.config.Fallback
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "mock-gpt",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
}

func (m *MockLLMServer) writeStream(w http.ResponseWriter, content string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	send := func(delta map[string]any, finish any) {
		data, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion.chunk",
			"created": time.Now().Unix(),
			"model":   "mock-gpt",
			"choices": []map[string]any{{
				"index":         0,
				"delta":         delta,
				"finish_reason": finish,
			}},
		})
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	send(map[string]any{"role": "assistant"}, nil)
	for len(content) > 0 {
		n := min(m.config.ChunkSize, len(content))
		send(map[string]any{"content": content[:n]}, nil)
		content = content[n:]
		if m.config.LagMS > 0 {
			time.Sleep(time.Duration(m.config.LagMS) * time.Millisecond)
		}
	}
	send(map[string]any{}, "stop")
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
