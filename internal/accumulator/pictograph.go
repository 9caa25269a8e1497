package accumulator

import (
	"strings"
	"unicode"
)

// StripPictographs removes leading emoji and their modifiers from s and
// trims the result.
func StripPictographs(s string) string {
	return strings.TrimSpace(strings.TrimLeftFunc(s, isPictographic))
}

func isPictographic(r rune) bool {
	switch {
	case r == 0x200d: // zero width joiner
		return true
	case r == 0x20e3: // combining keycap
		return true
	case r >= 0xfe00 && r <= 0xfe0f: // variation selectors
		return true
	case r >= 0x1f1e6 && r <= 0x1f1ff: // regional indicators
		return true
	case r >= 0x1f3fb && r <= 0x1f3ff: // skin tones
		return true
	case r >= 0xe0020 && r <= 0xe007f: // tag sequences
		return true
	}
	return unicode.Is(unicode.So, r) || unicode.IsSpace(r)
}
