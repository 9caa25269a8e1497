package types

import (
	"encoding/json"
	"fmt"
)

// Sender identifies who wrote a chat message.
type Sender int

const (
	SenderUser Sender = iota
	SenderAssistant
)

// String returns the wire name of the sender.
func (s Sender) String() string {
	switch s {
	case SenderUser:
		return "user"
	case SenderAssistant:
		return "bot"
	default:
		return fmt.Sprintf("Sender(%d)", int(s))
	}
}

// ParseSender converts a wire name to a Sender.
func ParseSender(s string) (Sender, error) {
	switch s {
	case "user":
		return SenderUser, nil
	case "bot", "assistant", "model":
		return SenderAssistant, nil
	default:
		return 0, fmt.Errorf("unknown sender: %q", s)
	}
}

// MarshalJSON encodes the sender by name.
func (s Sender) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a sender name.
func (s *Sender) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, err := ParseSender(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ChatAction is an in-app action suggested by the assistant.
type ChatAction struct {
	Label    string `json:"label"`
	ActionID string `json:"actionId"`
}

// ChatMessage is one entry of an assistant conversation.
type ChatMessage struct {
	Sender  Sender       `json:"sender"`
	Text    string       `json:"text"`
	Actions []ChatAction `json:"actions,omitempty"`
}
