// Package provider provides LLM provider abstraction using Eino framework.
package provider

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// Provider represents an LLM provider that streams text completions.
type Provider interface {
	// ID returns the provider identifier.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Models returns the list of available models.
	Models() []types.Model

	// CreateCompletion creates a streaming completion.
	CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error)
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	// Model overrides the provider's configured model when set.
	Model       string            `json:"model,omitempty"`
	Messages    []*schema.Message `json:"messages"`
	MaxTokens   int               `json:"maxTokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// NewPromptRequest builds a request with an optional system instruction and
// a single user turn.
func NewPromptRequest(system, user string) *CompletionRequest {
	var msgs []*schema.Message
	if system != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	msgs = append(msgs, schema.UserMessage(user))
	return &CompletionRequest{Messages: msgs}
}

// CompletionStream wraps an Eino stream reader.
type CompletionStream struct {
	reader *schema.StreamReader[*schema.Message]
}

// NewCompletionStream creates a new completion stream.
func NewCompletionStream(reader *schema.StreamReader[*schema.Message]) *CompletionStream {
	return &CompletionStream{reader: reader}
}

// Recv receives the next message chunk from the stream.
func (s *CompletionStream) Recv() (*schema.Message, error) {
	return s.reader.Recv()
}

// Close closes the stream.
func (s *CompletionStream) Close() {
	s.reader.Close()
}

// Collect reads the stream to the end and returns the concatenated text.
// The stream is closed afterwards.
func Collect(stream *CompletionStream) (string, error) {
	defer stream.Close()

	var sb strings.Builder
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		if msg != nil {
			sb.WriteString(msg.Content)
		}
	}
}

// Complete runs a request and returns the full response text.
func Complete(ctx context.Context, p Provider, req *CompletionRequest) (string, error) {
	stream, err := p.CreateCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return Collect(stream)
}
