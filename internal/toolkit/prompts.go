package toolkit

import (
	"fmt"
	"strings"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// KeyChannels returns the names of up to limit channels whose names contain
// one of the keywords, in display order.
func KeyChannels(t *types.ServerTemplate, limit int, keywords ...string) []string {
	var names []string
	for _, ch := range t.Channels() {
		if len(names) == limit {
			break
		}
		for _, kw := range keywords {
			if strings.Contains(ch.Name, kw) {
				names = append(names, ch.Name)
				break
			}
		}
	}
	return names
}

func tutorialPrompt(prompt string, t *types.ServerTemplate) string {
	roles := make([]string, len(t.Roles))
	for i, r := range t.Roles {
		roles[i] = fmt.Sprintf("%s (Displayed Separately: %t)", r.Name, r.Hoist)
	}
	cats := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		names := make([]string, len(c.Channels))
		for j, ch := range c.Channels {
			names[j] = ch.Name
		}
		cats[i] = fmt.Sprintf("%s (%s)", c.Name, strings.Join(names, ", "))
	}

	return fmt.Sprintf(`You are an expert Discord server architect. You have already generated a server template. Now, create a detailed, step-by-step tutorial for a beginner to set up the server based on that template.

The original user prompt was: %q

The generated server template is as follows:
- Server Name: %s
- Roles: %s
- Categories and Channels: %s

The tutorial should be a list of actionable steps covering: creating the server; setting the server name and icon; creating roles with their permissions and the 'Display role members separately' toggle; creating categories and channels; configuring the recommended server settings.

Each description MUST be clear for a beginner: use Discord markdown, bullet points for lists of actions, **bold** for UI elements and `+"`backticks`"+` for setting and permission names.

Respond with JSON only, in the form {"steps":[{"title":"...","description":"..."}]}.`,
		prompt, t.Name, strings.Join(roles, ", "), strings.Join(cats, "; "))
}

func welcomePrompt(prompt string, t *types.ServerTemplate) string {
	channels := KeyChannels(t, 4, "rules", "roles", "general", "introduce")
	return fmt.Sprintf(`You are a creative and friendly community manager for a new Discord server. Generate a warm, engaging and informative welcome message for new members.

Server Theme: %q
Server Name: "**%s**"
Key Channels for new members: %s

The message must include:
1. A vibrant greeting for the new member using the placeholder "{mention}".
2. A one-sentence description of what makes this server special.
3. A "Getting Started" section with 3-4 numbered steps inspired by the key channels.
4. A friendly closing statement.
Format it for Discord Markdown and use emojis.`,
		prompt, t.Name, strings.Join(channels, ", "))
}

func rulesPrompt(prompt string) string {
	return fmt.Sprintf(`You are an experienced Discord moderator and community architect. Generate a comprehensive yet easy-to-digest set of server rules for a Discord server with the theme: %q.

The rules document should include:
1. A brief, positive opening statement about the community's goals.
2. A numbered list of 7-10 essential rules, each with a bolded title and a one-sentence explanation.
3. Standard etiquette (Be Respectful, No Spamming) as well as rules tailored to the theme.
4. A concluding sentence about how to contact moderators.
Output a single block of Discord Markdown ready to be posted in a #rules channel.`, prompt)
}

func announcementPrompt(prompt string, t *types.ServerTemplate) string {
	channels := KeyChannels(t, 3, "rules", "roles", "introduce")
	return fmt.Sprintf(`You are a master of hype and community launches. Write an EPIC "Grand Opening" announcement for a brand new Discord server.

Server Theme: %q
Server Name: %q
Key channels for first steps: %s

The announcement must be high-energy, use a bold headline, be around 200 words, include a "What To Do Next" section with 2-3 actions, start with "@everyone" and end with a call to action.`,
		prompt, t.Name, strings.Join(channels, ", "))
}

func botsPrompt(prompt string) string {
	return fmt.Sprintf(`You are a Discord bot expert. Recommend the 2 best, most popular and reliable Discord bots for a server with the theme %q.

For each bot provide 'name', 'purpose' (a single category such as Moderation, Music, Engagement or Utility), 'description' (one sentence), 'keyFeatures' (2-3 items) and 'inviteLink' (the official invite link).

Respond with JSON only, in the form {"bots":[{"name":"...","purpose":"...","description":"...","keyFeatures":["..."],"inviteLink":"..."}]}.`, prompt)
}

func embedPrompt(prompt, serverName string) string {
	return fmt.Sprintf(`You are a Discord message design expert. Generate the JSON for a beautiful and effective Discord embed message.

User's Request: %q

Guidelines:
- Craft a compelling title and description; the description may use **bold**.
- color is the integer value of a single hex color.
- Create 2-3 fields, each with name, value and inline.
- Optionally add thumbnail.url or image.url pointing to a public image.
- footer.text must be the server name: %q.

Respond with JSON only, with the keys title, description, color, fields, footer, thumbnail and image.`, prompt, serverName)
}

func topicPrompt(msgs []types.ChatMessage) string {
	// The first message is the assistant's greeting.
	if len(msgs) > 0 {
		msgs = msgs[1:]
	}
	if len(msgs) > 3 {
		msgs = msgs[:3]
	}
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = fmt.Sprintf("%s: %s", m.Sender, m.Text)
	}
	return "Summarize the following conversation into a short, concise topic title (4 words maximum).\nConversation:\n" +
		strings.Join(lines, "\n")
}
