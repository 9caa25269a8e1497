package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/oklog/ulid/v2"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/event"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/provider"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/toolkit"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

const (
	// ErrorReply replaces the assistant's answer when the model failed.
	ErrorReply = "Sorry, I encountered an error. Please try again."
	// NewChatTopic is the topic until one has been generated.
	NewChatTopic = "New Chat"

	// topicAfter is the history length at which a topic is generated.
	topicAfter = 4
)

// ErrEmptyMessage is returned by Send for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// Context describes where the user is while chatting.
type Context struct {
	View       string `json:"view"`
	ServerName string `json:"serverName,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
}

// Greeting returns the assistant's opening line for a view.
func Greeting(c Context) string {
	switch c.View {
	case "gallery":
		return "Welcome to the Gallery! Ask me about these templates."
	case "history":
		return "Welcome to your creations page! Ask me about any of your past templates."
	case "toolkit", "toolkitPrompt":
		topic := c.Prompt
		if topic == "" {
			topic = "your topic"
		}
		return fmt.Sprintf("Welcome to the AI Toolkit! What would you like to create for your server about %q?", topic)
	case "results":
		name := c.ServerName
		if name == "" {
			name = "your server"
		}
		return fmt.Sprintf("This is the template for %q. How can I help you with it?", name)
	default:
		return "Hello! I'm the Flame Assistant. How can I help you with the Server Builder today?"
	}
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func systemInstruction(c Context) string {
	return fmt.Sprintf(`You are "Flame", an expert AI assistant for the Discord Server Builder application. Be helpful, concise, and friendly.
Your goal is to guide users, answer questions about the app's features, and help them build their ideal Discord server.
- Analyze the user's message and the conversation history.
- Provide relevant information and suggestions.
- You can suggest actions for the user to take within the app. To do this, you MUST end your response with a special block: [ACTIONS][{"label": "Button Text", "actionId": "ACTION_ID"}].
- Use simple markdown for formatting (bold, lists).

Available actionIds:
- %s: Navigate to the AI Toolkit page.
- %s: Navigate to the main server builder (home) page.
- %s: Navigate to the template gallery.
- %s: Scroll to the examples section on the homepage.
- %s: Scroll to the features section on the homepage.
- %s: Scroll to the "How It Works" section on the homepage.
- %s: On the results page, jump to the Channels & Categories section.
- %s: On the results page, jump to the Roles & Hierarchy section.
- %s: On the results page, jump to the AI Toolkit section.
- %s: On the results page, jump to the Bot Setup section.
- %s: On the results page, jump to the Setup Tutorial section.

Current context:
- The user is on the %q page.
- Server being viewed/edited (if any): %q
- The original prompt for the server (if any): %q`,
		ActionNavToolkit, ActionNavServerBuilder, ActionNavGallery,
		ActionScrollExamples, ActionScrollFeatures, ActionScrollHowItWorks,
		ActionResultsChannels, ActionResultsRoles, ActionResultsUtilities,
		ActionResultsBots, ActionResultsTutorial,
		c.View, orNone(c.ServerName), orNone(c.Prompt))
}

// Conversation is one chat with the assistant. It is safe for concurrent
// use, but Send calls are serialized.
type Conversation struct {
	id       string
	provider provider.Provider
	model    string
	bus      *event.Bus
	topics   *toolkit.Toolkit

	send sync.Mutex

	mu      sync.Mutex
	context Context
	history []types.ChatMessage
	topic   string
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithModel sets the model ID passed to the provider.
func WithModel(model string) Option {
	return func(c *Conversation) {
		c.model = model
	}
}

// WithBus publishes chat messages to bus instead of the global bus.
func WithBus(bus *event.Bus) Option {
	return func(c *Conversation) {
		c.bus = bus
	}
}

// WithTopics names the conversation with k once it is long enough.
func WithTopics(k *toolkit.Toolkit) Option {
	return func(c *Conversation) {
		c.topics = k
	}
}

// New starts a conversation whose history holds the greeting for ctx.
func New(p provider.Provider, ctx Context, opts ...Option) *Conversation {
	c := &Conversation{
		id:       ulid.Make().String(),
		provider: p,
		bus:      event.Default(),
		context:  ctx,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

// ID returns the conversation ID.
func (c *Conversation) ID() string {
	return c.id
}

// Topic returns the conversation topic.
func (c *Conversation) Topic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic
}

// History returns a copy of the messages so far.
func (c *Conversation) History() []types.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.ChatMessage(nil), c.history...)
}

// SetContext updates where the user is. It affects subsequent replies.
func (c *Conversation) SetContext(ctx Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.context = ctx
}

// Reset clears the history back to the greeting.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = []types.ChatMessage{{Sender: types.SenderAssistant, Text: Greeting(c.context)}}
	c.topic = NewChatTopic
}

func (c *Conversation) append(msg types.ChatMessage) {
	c.mu.Lock()
	c.history = append(c.history, msg)
	c.mu.Unlock()

	c.bus.Publish(event.Event{
		Type: event.ChatMessage,
		Data: event.ChatMessageData{ConversationID: c.id, Message: msg},
	})
}

func (c *Conversation) request() *provider.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := &provider.CompletionRequest{
		Model:    c.model,
		Messages: []*schema.Message{schema.SystemMessage(systemInstruction(c.context))},
	}
	for _, m := range c.history {
		if m.Sender == types.SenderUser {
			req.Messages = append(req.Messages, schema.UserMessage(m.Text))
		} else {
			req.Messages = append(req.Messages, schema.AssistantMessage(m.Text, nil))
		}
	}
	return req
}

// Send adds text to the conversation and streams the reply. onDelta, when
// set, receives every fragment as it arrives. The returned message has its
// action block parsed out.
//
// When the model fails the reply is ErrorReply, which is also recorded in
// the history, and the error is returned alongside it.
func (c *Conversation) Send(ctx context.Context, text string, onDelta func(string)) (types.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.ChatMessage{}, ErrEmptyMessage
	}

	c.send.Lock()
	defer c.send.Unlock()

	c.append(types.ChatMessage{Sender: types.SenderUser, Text: text})

	full, err := c.stream(ctx, onDelta)
	if err != nil {
		logging.Warn().Err(err).Str("conversationID", c.id).Msg("chat stream failed")
		reply := types.ChatMessage{Sender: types.SenderAssistant, Text: ErrorReply}
		c.append(reply)
		return reply, err
	}

	visible, actions := ParseActions(full)
	reply := types.ChatMessage{Sender: types.SenderAssistant, Text: visible, Actions: actions}
	c.append(reply)
	c.nameTopic(ctx)
	return reply, nil
}

func (c *Conversation) stream(ctx context.Context, onDelta func(string)) (string, error) {
	stream, err := c.provider.CreateCompletion(ctx, c.request())
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var b strings.Builder
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		b.WriteString(msg.Content)
		if onDelta != nil {
			onDelta(msg.Content)
		}
	}
}

func (c *Conversation) nameTopic(ctx context.Context) {
	if c.topics == nil {
		return
	}
	c.mu.Lock()
	ready := c.topic == NewChatTopic && len(c.history) >= topicAfter
	history := append([]types.ChatMessage(nil), c.history...)
	c.mu.Unlock()
	if !ready {
		return
	}

	topic := c.topics.ChatTopic(ctx, history)
	c.mu.Lock()
	c.topic = topic
	c.mu.Unlock()
}
