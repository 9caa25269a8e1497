package types

// PlaceholderName is the server name shown until the first name unit arrives.
const PlaceholderName = "Generating..."

// ChannelKind is the kind of a channel inside a category.
type ChannelKind string

const (
	ChannelText  ChannelKind = "text"
	ChannelVoice ChannelKind = "voice"
)

// Valid reports whether the kind is one of the known channel kinds.
func (k ChannelKind) Valid() bool {
	return k == ChannelText || k == ChannelVoice
}

// ServerTemplate is the structured server description assembled from a
// model's tagged output.
type ServerTemplate struct {
	Name       string     `json:"serverName" yaml:"serverName"`
	VanityURL  string     `json:"vanityUrlSuggestion" yaml:"vanityUrlSuggestion"`
	IconPrompt string     `json:"serverIconPrompt" yaml:"serverIconPrompt"`
	Roles      []Role     `json:"roles" yaml:"roles"`
	Categories []Category `json:"categories" yaml:"categories"`
	Settings   Settings   `json:"serverSettings" yaml:"serverSettings"`

	// Complete is set once the producer emitted its done-marker.
	Complete bool `json:"isComplete" yaml:"isComplete"`
	// Streaming is true while a session is still feeding the template.
	Streaming bool `json:"isStreaming" yaml:"isStreaming"`
}

// NewServerTemplate returns an empty template with the placeholder name.
func NewServerTemplate() *ServerTemplate {
	return &ServerTemplate{
		Name:       PlaceholderName,
		Roles:      []Role{},
		Categories: []Category{},
	}
}

// Role is a server role. Roles are ordered from most to least privileged.
type Role struct {
	Name        string   `json:"name" yaml:"name"`
	Color       string   `json:"color" yaml:"color"`
	Hoist       bool     `json:"hoist" yaml:"hoist"`
	Permissions []string `json:"permissions" yaml:"permissions"`
}

// Category groups channels.
type Category struct {
	Name     string    `json:"name" yaml:"name"`
	Channels []Channel `json:"channels" yaml:"channels"`
}

// Channel is a text or voice channel.
type Channel struct {
	Kind  ChannelKind `json:"type" yaml:"type"`
	Name  string      `json:"name" yaml:"name"`
	Topic string      `json:"topic" yaml:"topic"`
}

// Settings holds the recommended server settings. Values are whatever the
// model produced; they are not validated against an enumeration.
type Settings struct {
	VerificationLevel     string `json:"verificationLevel" yaml:"verificationLevel"`
	ExplicitContentFilter string `json:"explicitContentFilter" yaml:"explicitContentFilter"`
	DefaultNotifications  string `json:"defaultNotifications" yaml:"defaultNotifications"`
}

// Clone returns a deep copy of the template.
func (t *ServerTemplate) Clone() *ServerTemplate {
	if t == nil {
		return nil
	}
	c := *t
	c.Roles = make([]Role, len(t.Roles))
	for i, r := range t.Roles {
		r.Permissions = append([]string(nil), r.Permissions...)
		if r.Permissions == nil {
			r.Permissions = []string{}
		}
		c.Roles[i] = r
	}
	c.Categories = make([]Category, len(t.Categories))
	for i, cat := range t.Categories {
		cat.Channels = append([]Channel{}, cat.Channels...)
		c.Categories[i] = cat
	}
	return &c
}

// Channels returns every channel across all categories in display order.
func (t *ServerTemplate) Channels() []Channel {
	var out []Channel
	for _, cat := range t.Categories {
		out = append(out, cat.Channels...)
	}
	return out
}
