package provider

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// Script is one canned response of a ScriptedProvider.
type Script struct {
	// Chunks are delivered in order as separate stream messages.
	Chunks []string
	// StreamErr, when set, is returned by Recv after the last chunk.
	StreamErr error
	// OpenErr, when set, fails CreateCompletion itself.
	OpenErr error
}

// ScriptedProvider replays canned responses. Each completion consumes the
// next script; the last one repeats once the list is exhausted. It backs
// offline runs and tests.
type ScriptedProvider struct {
	id      string
	scripts []Script

	mu       sync.Mutex
	next     int
	requests []*CompletionRequest
}

// NewScriptedProvider creates a provider that answers with scripts in order.
func NewScriptedProvider(id string, scripts ...Script) *ScriptedProvider {
	if id == "" {
		id = "scripted"
	}
	return &ScriptedProvider{id: id, scripts: scripts}
}

// TextScript splits text into chunks of at most size bytes.
func TextScript(text string, size int) Script {
	if size <= 0 {
		size = len(text)
	}
	var chunks []string
	for len(text) > size {
		chunks = append(chunks, text[:size])
		text = text[size:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return Script{Chunks: chunks}
}

// ID returns the provider identifier.
func (p *ScriptedProvider) ID() string { return p.id }

// Name returns the human-readable provider name.
func (p *ScriptedProvider) Name() string { return "Scripted" }

// Models returns the single replay model.
func (p *ScriptedProvider) Models() []types.Model {
	return []types.Model{{ID: "replay", Name: "Replay", ProviderID: p.id}}
}

// Requests returns the requests seen so far.
func (p *ScriptedProvider) Requests() []*CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*CompletionRequest(nil), p.requests...)
}

// CreateCompletion returns the next scripted stream.
func (p *ScriptedProvider) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.requests = append(p.requests, req)
	var s Script
	if len(p.scripts) > 0 {
		i := p.next
		if i >= len(p.scripts) {
			i = len(p.scripts) - 1
		}
		s = p.scripts[i]
		p.next++
	}
	p.mu.Unlock()

	if s.OpenErr != nil {
		return nil, s.OpenErr
	}

	sr, sw := schema.Pipe[*schema.Message](len(s.Chunks) + 1)
	for _, c := range s.Chunks {
		sw.Send(&schema.Message{Role: schema.Assistant, Content: c}, nil)
	}
	if s.StreamErr != nil {
		sw.Send(nil, s.StreamErr)
	}
	sw.Close()
	return NewCompletionStream(sr), nil
}
