package event

import "github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"

// TemplateStartedData is the data for template.started events.
type TemplateStartedData struct {
	SessionID string `json:"sessionID"`
	Prompt    string `json:"prompt,omitempty"`
	Model     string `json:"model,omitempty"`
}

// TemplateUpdatedData is the data for template.updated events.
// Template is a snapshot; subscribers may keep it.
type TemplateUpdatedData struct {
	SessionID string                `json:"sessionID"`
	Unit      string                `json:"unit"`
	Template  *types.ServerTemplate `json:"template"`
}

// TemplateSkippedData is the data for template.unit.skipped events.
type TemplateSkippedData struct {
	SessionID string `json:"sessionID"`
	Unit      string `json:"unit"`
	Value     string `json:"value"`
	Reason    string `json:"reason"`
}

// TemplateFinishedData is the data for template.completed,
// template.cancelled and template.failed events.
type TemplateFinishedData struct {
	SessionID string                `json:"sessionID"`
	Outcome   string                `json:"outcome"`
	Units     int                   `json:"units"`
	Template  *types.ServerTemplate `json:"template,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// ChatMessageData is the data for chat.message events.
type ChatMessageData struct {
	ConversationID string            `json:"conversationID"`
	Message        types.ChatMessage `json:"message"`
}

// ToolkitGeneratedData is the data for toolkit.generated events.
type ToolkitGeneratedData struct {
	Tool       string `json:"tool"`
	ServerName string `json:"serverName"`
}
