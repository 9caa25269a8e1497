package toolkit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/event"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/provider"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// Tool names a toolkit generator.
type Tool string

const (
	ToolTutorial     Tool = "tutorial"
	ToolWelcome      Tool = "welcome"
	ToolRules        Tool = "rules"
	ToolAnnouncement Tool = "announcement"
	ToolBots         Tool = "bots"
	ToolEmbed        Tool = "embed"
)

// Tools lists every tool in menu order.
var Tools = []Tool{ToolTutorial, ToolWelcome, ToolRules, ToolAnnouncement, ToolBots, ToolEmbed}

// ParseTool converts a tool name.
func ParseTool(name string) (Tool, error) {
	for _, t := range Tools {
		if string(t) == strings.ToLower(name) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tool: %q", name)
}

const (
	// FallbackTutorialTitle titles the single step returned when no tutorial
	// could be generated.
	FallbackTutorialTitle = "Tutorial Generation Failed"
	// FallbackTopic is returned when a chat topic could not be generated.
	FallbackTopic = "Chat Summary"

	fallbackTutorialDescription = "We couldn't generate the interactive tutorial at this time. Please refer to the Discord documentation for setting up roles and channels based on this template."
)

// ErrNoJSON is returned when a reply carries no usable JSON object.
var ErrNoJSON = errors.New("reply contains no JSON object")

// Toolkit generates the supporting content of a server: tutorials, welcome
// texts, rules, announcements, bot picks and embeds.
type Toolkit struct {
	provider provider.Provider
	model    string
	bus      *event.Bus
}

// Option configures a Toolkit.
type Option func(*Toolkit)

// WithModel sets the model ID passed to the provider.
func WithModel(model string) Option {
	return func(k *Toolkit) {
		k.model = model
	}
}

// WithBus publishes toolkit events to bus instead of the global bus.
func WithBus(bus *event.Bus) Option {
	return func(k *Toolkit) {
		k.bus = bus
	}
}

// New creates a toolkit backed by p.
func New(p provider.Provider, opts ...Option) *Toolkit {
	k := &Toolkit{provider: p, bus: event.Default()}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *Toolkit) complete(ctx context.Context, prompt string) (string, error) {
	req := provider.NewPromptRequest("", prompt)
	req.Model = k.model
	text, err := provider.Complete(ctx, k.provider, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (k *Toolkit) published(tool Tool, serverName string) {
	k.bus.Publish(event.Event{
		Type: event.ToolkitGenerated,
		Data: event.ToolkitGeneratedData{Tool: string(tool), ServerName: serverName},
	})
}

// SetupTutorial returns step-by-step setup instructions for t. It never
// fails: on any error a single fallback step is returned.
func (k *Toolkit) SetupTutorial(ctx context.Context, prompt string, t *types.ServerTemplate) []types.TutorialStep {
	fallback := []types.TutorialStep{{
		Title:       FallbackTutorialTitle,
		Description: fallbackTutorialDescription,
	}}

	text, err := k.complete(ctx, tutorialPrompt(prompt, t))
	if err != nil {
		logging.Warn().Err(err).Msg("tutorial generation failed")
		return fallback
	}
	doc, ok := ExtractJSON(text)
	if !ok {
		logging.Warn().Str("reply", text).Msg("tutorial reply is not JSON")
		return fallback
	}
	steps := parseSteps(doc)
	if len(steps) == 0 {
		logging.Warn().Msg("tutorial reply has no steps")
		return fallback
	}
	k.published(ToolTutorial, t.Name)
	return steps
}

// WelcomeMessage writes a welcome message that points at up to four key
// channels.
func (k *Toolkit) WelcomeMessage(ctx context.Context, prompt string, t *types.ServerTemplate) (string, error) {
	text, err := k.complete(ctx, welcomePrompt(prompt, t))
	if err != nil {
		return "", fmt.Errorf("failed to generate welcome message: %w", err)
	}
	k.published(ToolWelcome, t.Name)
	return text, nil
}

// ServerRules writes a rules post for the theme.
func (k *Toolkit) ServerRules(ctx context.Context, prompt string, t *types.ServerTemplate) (string, error) {
	text, err := k.complete(ctx, rulesPrompt(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate server rules: %w", err)
	}
	k.published(ToolRules, t.Name)
	return text, nil
}

// FirstAnnouncement writes a launch announcement that points at up to three
// key channels.
func (k *Toolkit) FirstAnnouncement(ctx context.Context, prompt string, t *types.ServerTemplate) (string, error) {
	text, err := k.complete(ctx, announcementPrompt(prompt, t))
	if err != nil {
		return "", fmt.Errorf("failed to generate first announcement: %w", err)
	}
	k.published(ToolAnnouncement, t.Name)
	return text, nil
}

// BotRecommendations suggests bots for the theme.
func (k *Toolkit) BotRecommendations(ctx context.Context, prompt string, t *types.ServerTemplate) ([]types.BotRecommendation, error) {
	text, err := k.complete(ctx, botsPrompt(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate bot recommendations: %w", err)
	}
	doc, ok := ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("failed to generate bot recommendations: %w", ErrNoJSON)
	}
	k.published(ToolBots, t.Name)
	return parseBots(doc), nil
}

// EmbedMessage designs an embed for prompt. The footer always carries the
// server name.
func (k *Toolkit) EmbedMessage(ctx context.Context, prompt, serverName string) (*types.EmbedMessage, error) {
	text, err := k.complete(ctx, embedPrompt(prompt, serverName))
	if err != nil {
		return nil, fmt.Errorf("failed to generate embed message: %w", err)
	}
	doc, ok := ExtractJSON(text)
	if !ok || !doc.Get("title").Exists() {
		return nil, fmt.Errorf("failed to generate embed message: %w", ErrNoJSON)
	}
	embed := parseEmbed(doc)
	embed.Footer.Text = serverName
	k.published(ToolEmbed, serverName)
	return &types.EmbedMessage{Embeds: []types.Embed{embed}}, nil
}

// ChatTopic names a conversation in at most four words.
func (k *Toolkit) ChatTopic(ctx context.Context, msgs []types.ChatMessage) string {
	text, err := k.complete(ctx, topicPrompt(msgs))
	if err != nil {
		logging.Warn().Err(err).Msg("chat topic generation failed")
		return FallbackTopic
	}
	text = strings.NewReplacer(`"`, "", "'", "").Replace(text)
	words := strings.Fields(text)
	if len(words) == 0 {
		return FallbackTopic
	}
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.Join(words, " ")
}

// Run dispatches tool by name. For ToolEmbed the prompt describes the
// embed; for the others it is the server's original theme.
func (k *Toolkit) Run(ctx context.Context, tool Tool, prompt string, t *types.ServerTemplate) (any, error) {
	switch tool {
	case ToolTutorial:
		return k.SetupTutorial(ctx, prompt, t), nil
	case ToolWelcome:
		return k.WelcomeMessage(ctx, prompt, t)
	case ToolRules:
		return k.ServerRules(ctx, prompt, t)
	case ToolAnnouncement:
		return k.FirstAnnouncement(ctx, prompt, t)
	case ToolBots:
		return k.BotRecommendations(ctx, prompt, t)
	case ToolEmbed:
		return k.EmbedMessage(ctx, prompt, t.Name)
	default:
		return nil, fmt.Errorf("unknown tool: %q", tool)
	}
}
