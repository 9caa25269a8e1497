package toolkit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/event"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/provider"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

func sampleTemplate() *types.ServerTemplate {
	return &types.ServerTemplate{
		Name: "Pixel Raiders",
		Roles: []types.Role{
			{Name: "Admin", Hoist: true},
			{Name: "Member"},
		},
		Categories: []types.Category{
			{Name: "Start Here", Channels: []types.Channel{
				{Kind: types.ChannelText, Name: "📜・rules"},
				{Kind: types.ChannelText, Name: "🎭・roles"},
				{Kind: types.ChannelText, Name: "👋・introduce-yourself"},
			}},
			{Name: "Community", Channels: []types.Channel{
				{Kind: types.ChannelText, Name: "💬・general"},
				{Kind: types.ChannelText, Name: "📚・general-help"},
				{Kind: types.ChannelVoice, Name: "🔊・lounge"},
			}},
		},
	}
}

func newTestToolkit(t *testing.T, scripts ...provider.Script) (*Toolkit, *provider.ScriptedProvider) {
	t.Helper()
	p := provider.NewScriptedProvider("", scripts...)
	bus := event.NewBus()
	t.Cleanup(func() { bus.Close() })
	return New(p, WithBus(bus), WithModel("replay")), p
}

func TestKeyChannels(t *testing.T) {
	tmpl := sampleTemplate()

	assert.Equal(t,
		[]string{"📜・rules", "🎭・roles", "👋・introduce-yourself", "💬・general"},
		KeyChannels(tmpl, 4, "rules", "roles", "general", "introduce"))
	assert.Equal(t,
		[]string{"📜・rules", "🎭・roles", "👋・introduce-yourself"},
		KeyChannels(tmpl, 3, "rules", "roles", "introduce"))
	assert.Empty(t, KeyChannels(tmpl, 4, "memes"))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
		title string
	}{
		{"plain", `{"title":"Hi"}`, true, "Hi"},
		{"fenced", "```json\n{\"title\":\"Fenced\"}\n```", true, "Fenced"},
		{"chatter around", `Here you go: {"title":"Chatty"} enjoy!`, true, "Chatty"},
		{"no object", "sorry, I can't", false, ""},
		{"broken", `{"title": "open`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, ok := ExtractJSON(tt.input)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.title, doc.Get("title").String())
			}
		})
	}
}

func TestParseTool(t *testing.T) {
	tool, err := ParseTool("Welcome")
	require.NoError(t, err)
	assert.Equal(t, ToolWelcome, tool)

	_, err = ParseTool("icon")
	assert.Error(t, err)
}

func TestSetupTutorial(t *testing.T) {
	k, p := newTestToolkit(t, provider.TextScript(
		"```json\n{\"steps\":[{\"title\":\"Create the server\",\"description\":\"* Click **+**\"},{\"title\":\"Roles\",\"description\":\"* Add **Admin**\"}]}\n```", 16))

	steps := k.SetupTutorial(context.Background(), "retro gaming", sampleTemplate())
	require.Len(t, steps, 2)
	assert.Equal(t, "Create the server", steps[0].Title)
	assert.Equal(t, "* Add **Admin**", steps[1].Description)

	req := p.Requests()[0]
	assert.Equal(t, "replay", req.Model)
	content := req.Messages[0].Content
	assert.Contains(t, content, "Admin (Displayed Separately: true)")
	assert.Contains(t, content, "Start Here (📜・rules, 🎭・roles, 👋・introduce-yourself)")
}

func TestSetupTutorial_Fallback(t *testing.T) {
	tests := []struct {
		name   string
		script provider.Script
	}{
		{"provider error", provider.Script{OpenErr: errors.New("quota")}},
		{"not json", provider.TextScript("Step one: make a server.", 0)},
		{"no steps", provider.TextScript(`{"steps":[]}`, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, _ := newTestToolkit(t, tt.script)
			steps := k.SetupTutorial(context.Background(), "retro gaming", sampleTemplate())
			require.Len(t, steps, 1)
			assert.Equal(t, FallbackTutorialTitle, steps[0].Title)
		})
	}
}

func TestTextTools(t *testing.T) {
	k, p := newTestToolkit(t, provider.TextScript("  Welcome {mention}!  ", 4))
	tmpl := sampleTemplate()
	ctx := context.Background()

	text, err := k.WelcomeMessage(ctx, "retro gaming", tmpl)
	require.NoError(t, err)
	assert.Equal(t, "Welcome {mention}!", text)
	assert.Contains(t, p.Requests()[0].Messages[0].Content,
		"Key Channels for new members: 📜・rules, 🎭・roles, 👋・introduce-yourself, 💬・general")

	_, err = k.ServerRules(ctx, "retro gaming", tmpl)
	require.NoError(t, err)
	assert.Contains(t, p.Requests()[1].Messages[0].Content, `"retro gaming"`)

	_, err = k.FirstAnnouncement(ctx, "retro gaming", tmpl)
	require.NoError(t, err)
	assert.Contains(t, p.Requests()[2].Messages[0].Content,
		"Key channels for first steps: 📜・rules, 🎭・roles, 👋・introduce-yourself\n")
}

func TestTextTools_Error(t *testing.T) {
	quota := errors.New("quota")
	k, _ := newTestToolkit(t, provider.Script{OpenErr: quota})

	_, err := k.WelcomeMessage(context.Background(), "x", sampleTemplate())
	assert.ErrorIs(t, err, quota)
	assert.ErrorContains(t, err, "failed to generate welcome message")
}

func TestBotRecommendations(t *testing.T) {
	k, _ := newTestToolkit(t, provider.TextScript(`{"bots":[
		{"name":"MEE6","purpose":"Moderation","description":"Levels and automod.","keyFeatures":["Auto-mod","Levels"],"inviteLink":"https://mee6.xyz"},
		{"name":"","purpose":"Music"},
		{"name":"Dyno","purpose":"Utility","description":"Custom commands."}
	]}`, 32))

	bots, err := k.BotRecommendations(context.Background(), "retro gaming", sampleTemplate())
	require.NoError(t, err)
	require.Len(t, bots, 2)
	assert.Equal(t, []string{"Auto-mod", "Levels"}, bots[0].KeyFeatures)
	assert.Equal(t, "Dyno", bots[1].Name)
	assert.Empty(t, bots[1].KeyFeatures)
}

func TestBotRecommendations_NoJSON(t *testing.T) {
	k, _ := newTestToolkit(t, provider.TextScript("I recommend MEE6.", 0))
	_, err := k.BotRecommendations(context.Background(), "retro gaming", sampleTemplate())
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestEmbedMessage(t *testing.T) {
	k, _ := newTestToolkit(t, provider.TextScript(`{
		"title":"Tournament Night","description":"Join **us**","color":15158332,
		"fields":[{"name":"When","value":"Friday","inline":true}],
		"footer":{"text":"Wrong Name"},
		"image":{"url":"https://i.imgur.com/x.png"}
	}`, 0))

	msg, err := k.EmbedMessage(context.Background(), "announce a tournament", "Pixel Raiders")
	require.NoError(t, err)
	require.Len(t, msg.Embeds, 1)
	embed := msg.Embeds[0]
	assert.Equal(t, "Tournament Night", embed.Title)
	assert.Equal(t, 15158332, embed.Color)
	assert.Equal(t, "Pixel Raiders", embed.Footer.Text)
	assert.True(t, embed.Fields[0].Inline)
	assert.Nil(t, embed.Thumbnail)
	require.NotNil(t, embed.Image)
	assert.Equal(t, "https://i.imgur.com/x.png", embed.Image.URL)
}

func TestEmbedMessage_MissingTitle(t *testing.T) {
	k, _ := newTestToolkit(t, provider.TextScript(`{"description":"no title"}`, 0))
	_, err := k.EmbedMessage(context.Background(), "x", "Pixel Raiders")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestChatTopic(t *testing.T) {
	msgs := []types.ChatMessage{
		{Sender: types.SenderAssistant, Text: "Hi, I'm Flame!"},
		{Sender: types.SenderUser, Text: "How do roles work?"},
		{Sender: types.SenderAssistant, Text: "Roles group permissions."},
	}

	tests := []struct {
		name   string
		script provider.Script
		want   string
	}{
		{"quotes stripped", provider.TextScript(`"Role Basics"`, 0), "Role Basics"},
		{"capped at four words", provider.TextScript("Understanding How Discord Roles Really Work", 0), "Understanding How Discord Roles"},
		{"empty reply", provider.TextScript(" '' ", 0), FallbackTopic},
		{"provider error", provider.Script{OpenErr: errors.New("down")}, FallbackTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, p := newTestToolkit(t, tt.script)
			assert.Equal(t, tt.want, k.ChatTopic(context.Background(), msgs))
			content := p.Requests()[0].Messages[0].Content
			assert.Contains(t, content, "user: How do roles work?")
			assert.NotContains(t, content, "Flame")
		})
	}
}

func TestRun(t *testing.T) {
	k, _ := newTestToolkit(t, provider.TextScript("Be kind.", 0))
	tmpl := sampleTemplate()

	out, err := k.Run(context.Background(), ToolRules, "retro gaming", tmpl)
	require.NoError(t, err)
	assert.Equal(t, "Be kind.", out)

	_, err = k.Run(context.Background(), Tool("icon"), "retro gaming", tmpl)
	assert.Error(t, err)
}
