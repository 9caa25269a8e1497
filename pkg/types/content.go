package types

// TutorialStep is one step of a server setup tutorial.
type TutorialStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// BotRecommendation describes a third-party bot suited to the server.
type BotRecommendation struct {
	Name        string   `json:"name"`
	Purpose     string   `json:"purpose"`
	Description string   `json:"description"`
	KeyFeatures []string `json:"keyFeatures"`
	InviteLink  string   `json:"inviteLink"`
}

// EmbedField is a name/value row of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// EmbedFooter is the footer of an embed.
type EmbedFooter struct {
	Text string `json:"text"`
}

// EmbedImage references an image by URL.
type EmbedImage struct {
	URL string `json:"url"`
}

// Embed is a rich message embed.
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields"`
	Footer      EmbedFooter  `json:"footer"`
	Thumbnail   *EmbedImage  `json:"thumbnail,omitempty"`
	Image       *EmbedImage  `json:"image,omitempty"`
}

// EmbedMessage is a message payload carrying embeds.
type EmbedMessage struct {
	Embeds []Embed `json:"embeds"`
}
