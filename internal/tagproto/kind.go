package tagproto

import (
	"fmt"
	"strings"
)

// Kind identifies the tag of a unit.
type Kind int

const (
	KindServerName Kind = iota
	KindVanityURL
	KindIconPrompt
	KindRole
	KindCategory
	KindChannel
	KindSettings
	KindDone
)

// contentKinds are the kinds that wrap a value between start and end tags.
var contentKinds = []Kind{
	KindServerName,
	KindVanityURL,
	KindIconPrompt,
	KindRole,
	KindCategory,
	KindChannel,
	KindSettings,
}

// String returns the tag name as it appears on the wire.
func (k Kind) String() string {
	switch k {
	case KindServerName:
		return "SERVER_NAME"
	case KindVanityURL:
		return "VANITY_URL"
	case KindIconPrompt:
		return "ICON_PROMPT"
	case KindRole:
		return "ROLE"
	case KindCategory:
		return "CATEGORY"
	case KindChannel:
		return "CHANNEL"
	case KindSettings:
		return "SETTINGS"
	case KindDone:
		return "DONE"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsContent reports whether the kind carries a value.
func (k Kind) IsContent() bool {
	return k >= KindServerName && k <= KindSettings
}

// ParseKind converts a wire tag name to a Kind.
func ParseKind(name string) (Kind, bool) {
	for _, k := range contentKinds {
		if k.String() == name {
			return k, true
		}
	}
	if name == KindDone.String() {
		return KindDone, true
	}
	return 0, false
}

// StartTag returns the start delimiter of a content kind.
func (k Kind) StartTag() string {
	return "<" + k.String() + ">"
}

// EndTag returns the end delimiter of a content kind.
func (k Kind) EndTag() string {
	return "</" + k.String() + ">"
}

// DoneMarker is the canonical terminal marker.
const DoneMarker = "<DONE />"

// isTagSpace matches the RE2 \s class so both matchers agree.
func isTagSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\f' || c == '\r'
}

// doneAt reports whether a done-marker starts at buf[i:]. n is its length.
// partial is true when buf ends inside something that may still become one.
func doneAt(buf string, i int) (n int, ok, partial bool) {
	const open = "<DONE"
	rest := buf[i:]
	if len(rest) < len(open) {
		return 0, false, strings.HasPrefix(open, rest)
	}
	if !strings.HasPrefix(rest, open) {
		return 0, false, false
	}
	j := len(open)
	for j < len(rest) && isTagSpace(rest[j]) {
		j++
	}
	switch {
	case j == len(rest):
		return 0, false, true
	case rest[j] != '/':
		return 0, false, false
	case j+1 == len(rest):
		return 0, false, true
	case rest[j+1] == '>':
		return j + 2, true, false
	}
	return 0, false, false
}

// ContainsDone reports whether buf holds a complete done-marker anywhere.
func ContainsDone(buf string) bool {
	for pos := 0; ; {
		i := strings.Index(buf[pos:], "<DONE")
		if i < 0 {
			return false
		}
		if _, ok, _ := doneAt(buf, pos+i); ok {
			return true
		}
		pos += i + 1
	}
}
