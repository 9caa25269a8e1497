package generator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPrompt is matched by every prompt rejected by ValidatePrompt.
var ErrInvalidPrompt = errors.New("invalid prompt")

// ValidationError explains why a prompt was rejected.
type ValidationError struct {
	Prompt string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid prompt: %s", e.Reason)
}

// Is reports whether target is ErrInvalidPrompt.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPrompt
}

// maxRepeat is the longest run of one character a prompt may contain.
const maxRepeat = 4

// ValidatePrompt rejects prompts too vague to design a server from: empty
// text, the bare words "server" or "svr", and keyboard mashing.
func ValidatePrompt(prompt string) error {
	trimmed := strings.TrimSpace(prompt)
	switch strings.ToLower(trimmed) {
	case "":
		return &ValidationError{Prompt: prompt, Reason: "prompt is empty"}
	case "server", "svr":
		return &ValidationError{Prompt: prompt, Reason: "prompt does not describe a theme"}
	}

	var last rune
	run := 0
	for _, r := range trimmed {
		if r == last {
			run++
		} else {
			last, run = r, 1
		}
		if run > maxRepeat {
			return &ValidationError{Prompt: prompt, Reason: fmt.Sprintf("character %q repeated %d times", r, run)}
		}
	}
	return nil
}

// BuildTemplatePrompt returns the instruction that makes a model emit a
// server template in the tag grammar for the given theme.
func BuildTemplatePrompt(theme string) string {
	var b strings.Builder
	b.WriteString("You are an expert Discord server architect. Based on the user's prompt, generate a server template piece by piece, using the specific XML-like tags provided. Do not output anything other than these tags. The output must be sequential and well-formed.\n\n")
	fmt.Fprintf(&b, "User's server theme: %q\n\n", strings.TrimSpace(theme))
	b.WriteString(`**Output Format (Strictly Adhere):**
1. First, generate the server name: <SERVER_NAME>Your Creative Server Name</SERVER_NAME>
2. Second, the vanity URL: <VANITY_URL>your-vanity-url</VANITY_URL>
3. Third, the icon prompt: <ICON_PROMPT>A detailed prompt for an AI image generator.</ICON_PROMPT>
4. Then, generate all roles from highest to lowest hierarchy. For each role: <ROLE>Role Name|#HexColor|isHoisted(true/false)|Permission1,Permission2,Permission3</ROLE>
5. Then, generate categories and their channels. For each category: <CATEGORY>Category Name</CATEGORY>. For each channel inside that category: <CHANNEL>type(text/voice)|channel-name|Channel Topic</CHANNEL>
6. Then, generate the server settings: <SETTINGS>VerificationLevel|ExplicitContentFilter|DefaultNotifications</SETTINGS>
7. Finally, when ALL parts are generated, output: <DONE />

**Generation Guidelines:**
- Roles: Invent at least 2-3 creative, theme-specific roles in addition to standard ones. Do not include emojis in role names.
- Permissions: Use Discord permission names such as ADMINISTRATOR, MANAGE_MESSAGES, KICK_MEMBERS, SEND_MESSAGES.
- Channels: Create thematic and unique channels. Channel names MUST be in kebab-case and start with a single relevant emoji followed by a '・' separator (e.g., '👋・welcome'). This format is mandatory.
- Flow: Follow the sequence exactly as described above. Do not mix the order of tags.
`)
	return b.String()
}
