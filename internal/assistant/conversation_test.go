package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/event"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/provider"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/toolkit"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

func newTestConversation(t *testing.T, c Context, scripts ...provider.Script) (*Conversation, *provider.ScriptedProvider, *event.Bus) {
	t.Helper()
	p := provider.NewScriptedProvider("", scripts...)
	bus := event.NewBus()
	t.Cleanup(func() { bus.Close() })
	return New(p, c, WithBus(bus), WithModel("replay")), p, bus
}

func TestParseActions(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		text    string
		actions []types.ChatAction
	}{
		{
			name:  "no block",
			reply: "Roles are listed highest first.",
			text:  "Roles are listed highest first.",
		},
		{
			name:  "trailing block",
			reply: "Try the toolkit!\n\n[ACTIONS][{\"label\": \"Open Toolkit\", \"actionId\": \"NAV_TOOLKIT\"}]",
			text:  "Try the toolkit!",
			actions: []types.ChatAction{
				{Label: "Open Toolkit", ActionID: ActionNavToolkit},
			},
		},
		{
			name:  "multiline block",
			reply: "Pick one:\n[ACTIONS][\n {\"label\": \"Roles\", \"actionId\": \"NAV_RESULTS_ROLES\"},\n {\"label\": \"Bots\", \"actionId\": \"NAV_RESULTS_BOTS\"}\n]",
			text:  "Pick one:",
			actions: []types.ChatAction{
				{Label: "Roles", ActionID: ActionResultsRoles},
				{Label: "Bots", ActionID: ActionResultsBots},
			},
		},
		{
			name:  "broken json is still stripped",
			reply: "Hmm [ACTIONS][{\"label\": \"Oops\",]",
			text:  "Hmm",
		},
		{
			name:  "entries without id dropped",
			reply: "Go [ACTIONS][{\"label\": \"Nowhere\"}, {\"label\": \"Gallery\", \"actionId\": \"NAV_GALLERY\"}]",
			text:  "Go",
			actions: []types.ChatAction{
				{Label: "Gallery", ActionID: ActionNavGallery},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, actions := ParseActions(tt.reply)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.actions, actions)
		})
	}
}

func TestDeltaFilter(t *testing.T) {
	tests := []struct {
		name   string
		deltas []string
		want   string
	}{
		{"no block", []string{"Roles are ", "ordered."}, "Roles are ordered."},
		{"block in one delta", []string{"Hi there.", `[ACTIONS][{"label":"Go"}]`}, "Hi there."},
		{"marker split", []string{"Hi [", "ACT", "IONS][]"}, "Hi "},
		{"bracket that is not a marker", []string{"see [", "1] below"}, "see [1] below"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f DeltaFilter
			var b strings.Builder
			for _, d := range tt.deltas {
				b.WriteString(f.Push(d))
			}
			b.WriteString(f.Flush())
			assert.Equal(t, tt.want, b.String())
		})
	}
}

func TestGreeting(t *testing.T) {
	assert.Contains(t, Greeting(Context{}), "Flame Assistant")
	assert.Contains(t, Greeting(Context{View: "toolkit"}), `"your topic"`)
	assert.Contains(t, Greeting(Context{View: "toolkit", Prompt: "chess"}), `"chess"`)
	assert.Contains(t, Greeting(Context{View: "results", ServerName: "Pixel Raiders"}), `"Pixel Raiders"`)
	assert.Contains(t, Greeting(Context{View: "gallery"}), "Gallery")
}

func TestConversation_Send(t *testing.T) {
	c, p, _ := newTestConversation(t,
		Context{View: "results", ServerName: "Pixel Raiders", Prompt: "retro gaming"},
		provider.Script{Chunks: []string{"Your roles ", "look great.", "[ACTIONS][{\"label\":\"Roles\",\"actionId\":\"NAV_RESULTS_ROLES\"}]"}},
	)

	var deltas []string
	reply, err := c.Send(context.Background(), "  What about roles?  ", func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)

	assert.Equal(t, types.SenderAssistant, reply.Sender)
	assert.Equal(t, "Your roles look great.", reply.Text)
	assert.Equal(t, []types.ChatAction{{Label: "Roles", ActionID: ActionResultsRoles}}, reply.Actions)
	assert.Len(t, deltas, 3)

	history := c.History()
	require.Len(t, history, 3)
	assert.Equal(t, types.SenderAssistant, history[0].Sender)
	assert.Equal(t, types.ChatMessage{Sender: types.SenderUser, Text: "What about roles?"}, history[1])
	assert.Equal(t, reply, history[2])

	req := p.Requests()[0]
	assert.Equal(t, "replay", req.Model)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, schema.System, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, `Server being viewed/edited (if any): "Pixel Raiders"`)
	assert.Equal(t, schema.Assistant, req.Messages[1].Role)
	assert.Equal(t, schema.User, req.Messages[2].Role)
	assert.Equal(t, "What about roles?", req.Messages[2].Content)
}

func TestConversation_EmptyMessage(t *testing.T) {
	c, p, _ := newTestConversation(t, Context{})
	_, err := c.Send(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, p.Requests())
	assert.Len(t, c.History(), 1)
}

func TestConversation_ProviderError(t *testing.T) {
	down := errors.New("model overloaded")
	tests := []struct {
		name   string
		script provider.Script
	}{
		{"open", provider.Script{OpenErr: down}},
		{"mid stream", provider.Script{Chunks: []string{"Half an ans"}, StreamErr: down}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestConversation(t, Context{}, tt.script)
			reply, err := c.Send(context.Background(), "hello", nil)
			assert.ErrorIs(t, err, down)
			assert.Equal(t, ErrorReply, reply.Text)

			history := c.History()
			require.Len(t, history, 3)
			assert.Equal(t, ErrorReply, history[2].Text)
		})
	}
}

func TestConversation_PublishesMessages(t *testing.T) {
	c, _, bus := newTestConversation(t, Context{}, provider.TextScript("Hi there!", 0))

	var mu sync.Mutex
	var got []event.ChatMessageData
	unsub := bus.Subscribe(event.ChatMessage, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Data.(event.ChatMessageData))
	})
	defer unsub()

	_, err := c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, d := range got {
		assert.Equal(t, c.ID(), d.ConversationID)
	}
}

func TestConversation_Topic(t *testing.T) {
	topics := provider.NewScriptedProvider("topics", provider.TextScript(`"Role Setup Help"`, 0))
	bus := event.NewBus()
	defer bus.Close()
	k := toolkit.New(topics, toolkit.WithBus(bus))

	p := provider.NewScriptedProvider("", provider.TextScript("Sure.", 0))
	c := New(p, Context{}, WithBus(bus), WithTopics(k))
	ctx := context.Background()

	_, err := c.Send(ctx, "first question", nil)
	require.NoError(t, err)
	assert.Equal(t, NewChatTopic, c.Topic())
	assert.Empty(t, topics.Requests())

	_, err = c.Send(ctx, "second question", nil)
	require.NoError(t, err)
	assert.Equal(t, "Role Setup Help", c.Topic())

	_, err = c.Send(ctx, "third question", nil)
	require.NoError(t, err)
	assert.Len(t, topics.Requests(), 1)
}

func TestConversation_Reset(t *testing.T) {
	c, _, _ := newTestConversation(t, Context{}, provider.TextScript("ok", 0))
	_, err := c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)

	c.SetContext(Context{View: "gallery"})
	c.Reset()

	history := c.History()
	require.Len(t, history, 1)
	assert.True(t, strings.HasPrefix(history[0].Text, "Welcome to the Gallery"))
	assert.Equal(t, NewChatTopic, c.Topic())
}
