package generator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/event"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/provider"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/session"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/tagproto"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

const transcript = "<SERVER_NAME>Cozy Cafe</SERVER_NAME>" +
	"<VANITY_URL>cozycafe</VANITY_URL>" +
	"<ROLE>Barista|#C67C4E|true|MANAGE_MESSAGES</ROLE>" +
	"<CATEGORY>Counter</CATEGORY>" +
	"<CHANNEL>text|☕・orders|Place your order</CHANNEL>" +
	"<DONE />"

func zeroBackoff(ctx context.Context, retries int) backoff.BackOff {
	return backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(retries)), ctx)
}

func newTestGenerator(t *testing.T, scripts ...provider.Script) (*Generator, *provider.ScriptedProvider, *event.Bus) {
	t.Helper()
	p := provider.NewScriptedProvider("", scripts...)
	registry := provider.NewRegistry(nil)
	registry.Register(p)

	bus := event.NewBus()
	t.Cleanup(func() { bus.Close() })

	g := New(registry, WithBus(bus), WithBackoff(zeroBackoff))
	return g, p, bus
}

func TestValidatePrompt(t *testing.T) {
	tests := []struct {
		prompt string
		valid  bool
	}{
		{"a cozy coffee shop community", true},
		{"  retro gaming  ", true},
		{"", false},
		{"   ", false},
		{"server", false},
		{" SVR ", false},
		{"Server", false},
		{"servers for chess", true},
		{"aaaaa", false},
		{"zzzz", true},
		{"book club!!!!!", false},
		{"book club!!!!", true},
		{"ééééé", false},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			err := ValidatePrompt(tt.prompt)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPrompt)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestBuildTemplatePrompt(t *testing.T) {
	prompt := BuildTemplatePrompt("  space pirates ")

	assert.Contains(t, prompt, `"space pirates"`)
	for _, tag := range []string{"<SERVER_NAME>", "<VANITY_URL>", "<ICON_PROMPT>", "<ROLE>", "<CATEGORY>", "<CHANNEL>", "<SETTINGS>", "<DONE />"} {
		assert.Contains(t, prompt, tag)
	}
	assert.Contains(t, prompt, "kebab-case")
	assert.Less(t, strings.Index(prompt, "<SERVER_NAME>"), strings.Index(prompt, "<DONE />"))
}

func TestGenerate(t *testing.T) {
	g, p, _ := newTestGenerator(t, provider.TextScript(transcript, 9))

	var snaps []*types.ServerTemplate
	res, err := g.Generate(context.Background(), "a cozy cafe", func(tmpl *types.ServerTemplate) session.Action {
		snaps = append(snaps, tmpl)
		return session.Continue
	})
	require.NoError(t, err)

	assert.Equal(t, session.OutcomeCompleted, res.Outcome)
	assert.Len(t, snaps, 6)
	assert.Equal(t, "Cozy Cafe", res.Template.Name)
	assert.Equal(t, "☕・orders", res.Template.Categories[0].Channels[0].Name)
	assert.True(t, res.Template.Complete)
	assert.False(t, res.Template.Streaming)

	reqs := p.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "replay", reqs[0].Model)
	require.Len(t, reqs[0].Messages, 1)
	assert.Contains(t, reqs[0].Messages[0].Content, `"a cozy cafe"`)
}

func TestGenerate_RegexMatcher(t *testing.T) {
	p := provider.NewScriptedProvider("", provider.TextScript(transcript, 4))
	registry := provider.NewRegistry(nil)
	registry.Register(p)
	bus := event.NewBus()
	defer bus.Close()

	g := New(registry, WithBus(bus), WithMatcher(tagproto.NewRegexMatcher()), WithBackoff(zeroBackoff))
	res, err := g.Generate(context.Background(), "a cozy cafe", nil)
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeCompleted, res.Outcome)
	assert.Len(t, res.Template.Roles, 1)
}

func TestGenerate_Transcript(t *testing.T) {
	p := provider.NewScriptedProvider("", provider.TextScript(transcript+"\ntrailing", 7))
	registry := provider.NewRegistry(nil)
	registry.Register(p)
	bus := event.NewBus()
	defer bus.Close()

	var b strings.Builder
	g := New(registry, WithBus(bus), WithBackoff(zeroBackoff), WithTranscript(&b))
	res, err := g.Generate(context.Background(), "a cozy cafe", nil)
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeCompleted, res.Outcome)
	// Reading stops at the done-marker; the rest was never received.
	assert.True(t, strings.HasPrefix(b.String(), transcript))
	assert.NotContains(t, b.String(), "trailing")
}

type brokenWriter struct{ calls int }

func (w *brokenWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("disk full")
}

func TestGenerate_TranscriptWriteFailure(t *testing.T) {
	p := provider.NewScriptedProvider("", provider.TextScript(transcript, 5))
	registry := provider.NewRegistry(nil)
	registry.Register(p)
	bus := event.NewBus()
	defer bus.Close()

	w := &brokenWriter{}
	g := New(registry, WithBus(bus), WithBackoff(zeroBackoff), WithTranscript(w))
	res, err := g.Generate(context.Background(), "a cozy cafe", nil)
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeCompleted, res.Outcome)
	assert.Equal(t, 1, w.calls)
}

func TestGenerate_RetriesOpenFailure(t *testing.T) {
	g, p, _ := newTestGenerator(t,
		provider.Script{OpenErr: errors.New("503 unavailable")},
		provider.Script{StreamErr: errors.New("connection reset")},
		provider.TextScript(transcript, 0),
	)

	res, err := g.Generate(context.Background(), "a cozy cafe", nil)
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeCompleted, res.Outcome)
	assert.Len(t, p.Requests(), 3)
}

func TestGenerate_RetriesExhausted(t *testing.T) {
	unavailable := errors.New("503 unavailable")
	g, p, bus := newTestGenerator(t, provider.Script{OpenErr: unavailable})

	var mu sync.Mutex
	var failed []event.TemplateFinishedData
	unsub := bus.Subscribe(event.TemplateFailed, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, e.Data.(event.TemplateFinishedData))
	})
	defer unsub()

	res, err := g.Generate(context.Background(), "a cozy cafe", nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, unavailable)
	assert.Len(t, p.Requests(), DefaultOpenRetries+1)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failed) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestGenerate_NoRetryAfterOutput(t *testing.T) {
	reset := errors.New("connection reset")
	g, p, _ := newTestGenerator(t,
		provider.Script{
			Chunks:    []string{"<SERVER_NAME>Half</SERVER_NAME>", "<ROLE>Mod|#00"},
			StreamErr: reset,
		},
		provider.TextScript(transcript, 0),
	)

	res, err := g.Generate(context.Background(), "a cozy cafe", nil)
	require.Error(t, err)
	assert.True(t, session.IsSourceError(err))
	assert.ErrorIs(t, err, reset)
	assert.Equal(t, session.OutcomeFailed, res.Outcome)
	assert.Equal(t, "Half", res.Template.Name)
	assert.Equal(t, "<ROLE>Mod|#00", res.Discarded)
	assert.Len(t, p.Requests(), 1)
}

func TestGenerate_InvalidPrompt(t *testing.T) {
	g, p, _ := newTestGenerator(t, provider.TextScript(transcript, 0))

	_, err := g.Generate(context.Background(), "svr", nil)
	assert.ErrorIs(t, err, ErrInvalidPrompt)
	assert.Empty(t, p.Requests())
}

func TestGenerate_ContextCancelled(t *testing.T) {
	g, p, _ := newTestGenerator(t, provider.TextScript(transcript, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, "a cozy cafe", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.Requests())
}

func TestGenerate_EmptyResponse(t *testing.T) {
	g, _, _ := newTestGenerator(t, provider.Script{})

	calls := 0
	res, err := g.Generate(context.Background(), "a cozy cafe", func(*types.ServerTemplate) session.Action {
		calls++
		return session.Continue
	})
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeTruncated, res.Outcome)
	assert.Equal(t, types.PlaceholderName, res.Template.Name)
	assert.Equal(t, 1, calls)
}

func TestGenerate_UnknownModel(t *testing.T) {
	registry := provider.NewRegistry(nil)
	registry.Register(provider.NewScriptedProvider(""))
	g := New(registry, WithModel("google/gemini-2.5-flash"))

	_, err := g.Open(context.Background(), "a cozy cafe")
	assert.ErrorContains(t, err, "resolve model")
}

func TestWithGeneration(t *testing.T) {
	temp := 0.7
	retries := 1
	g := New(provider.NewRegistry(nil), WithGeneration(&types.GenerationConfig{
		Temperature: &temp,
		MaxTokens:   2048,
		OpenRetries: &retries,
	}), WithGeneration(nil))

	assert.Equal(t, 0.7, g.temperature)
	assert.Equal(t, 2048, g.maxTokens)
	assert.Equal(t, 1, g.retries)
}
