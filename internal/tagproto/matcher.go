package tagproto

import (
	"regexp"
	"strings"
)

// Match locates one complete unit inside a buffer.
type Match struct {
	Kind  Kind
	Value string
	// Start is the offset of the start delimiter, End the offset just past
	// the end delimiter.
	Start int
	End   int
}

// Matcher finds the first complete unit in a buffer.
//
// Implementations must locate the first known start delimiter and report a
// match only if its end delimiter is already buffered; otherwise they report
// no match so the caller waits for more input. The value ends at the first
// matching end delimiter.
type Matcher interface {
	Match(buf string) (Match, bool)
}

// ScanMatcher finds units with a plain delimiter scan.
type ScanMatcher struct{}

// Match implements Matcher.
func (ScanMatcher) Match(buf string) (Match, bool) {
	for pos := 0; pos < len(buf); {
		i := strings.IndexByte(buf[pos:], '<')
		if i < 0 {
			return Match{}, false
		}
		start := pos + i

		if n, ok, partial := doneAt(buf, start); ok {
			return Match{Kind: KindDone, Start: start, End: start + n}, true
		} else if partial {
			return Match{}, false
		}

		kind, found, partial := contentOpenerAt(buf, start)
		if partial {
			return Match{}, false
		}
		if !found {
			pos = start + 1
			continue
		}

		valStart := start + len(kind.StartTag())
		end := strings.Index(buf[valStart:], kind.EndTag())
		if end < 0 {
			return Match{}, false
		}
		return Match{
			Kind:  kind,
			Value: buf[valStart : valStart+end],
			Start: start,
			End:   valStart + end + len(kind.EndTag()),
		}, true
	}
	return Match{}, false
}

// contentOpenerAt reports which start tag begins at buf[i:], if any.
func contentOpenerAt(buf string, i int) (kind Kind, found, partial bool) {
	rest := buf[i:]
	for _, k := range contentKinds {
		tag := k.StartTag()
		if strings.HasPrefix(rest, tag) {
			return k, true, false
		}
		if len(rest) < len(tag) && strings.HasPrefix(tag, rest) {
			partial = true
		}
	}
	return 0, false, partial
}

// RegexMatcher finds units with compiled regular expressions. Go's RE2 has
// no back-references, so each kind gets its own end pattern.
type RegexMatcher struct {
	opener *regexp.Regexp
	values map[Kind]*regexp.Regexp
}

// NewRegexMatcher compiles the patterns for all known kinds.
func NewRegexMatcher() *RegexMatcher {
	names := make([]string, len(contentKinds))
	values := make(map[Kind]*regexp.Regexp, len(contentKinds))
	for i, k := range contentKinds {
		names[i] = regexp.QuoteMeta(k.String())
		values[k] = regexp.MustCompile(`(?s)^(.*?)` + regexp.QuoteMeta(k.EndTag()))
	}
	opener := regexp.MustCompile(`<(?:(` + strings.Join(names, "|") + `)>|(DONE)\s*/>)`)
	return &RegexMatcher{opener: opener, values: values}
}

// Match implements Matcher.
func (m *RegexMatcher) Match(buf string) (Match, bool) {
	loc := m.opener.FindStringSubmatchIndex(buf)
	if loc == nil {
		return Match{}, false
	}
	start, openEnd := loc[0], loc[1]
	if loc[4] >= 0 {
		return Match{Kind: KindDone, Start: start, End: openEnd}, true
	}

	kind, _ := ParseKind(buf[loc[2]:loc[3]])
	rest := buf[openEnd:]
	v := m.values[kind].FindStringSubmatchIndex(rest)
	if v == nil {
		return Match{}, false
	}
	return Match{
		Kind:  kind,
		Value: rest[v[2]:v[3]],
		Start: start,
		End:   openEnd + v[1],
	}, true
}
