package tagproto

// Unit is one decoded tagged span.
type Unit struct {
	Kind Kind
	// Value is the verbatim text between the delimiters.
	Value string
	// Skipped is the text in front of the start delimiter that was consumed
	// together with the unit (whitespace, fences, unknown tags).
	Skipped string
	// Len is the number of bytes to drop from the front of the buffer.
	Len int
}

// TryExtractNext returns the first complete unit in buf. When no unit is
// complete it returns false and the caller must wait for more input.
func TryExtractNext(buf string, m Matcher) (Unit, bool) {
	match, ok := m.Match(buf)
	if !ok {
		return Unit{}, false
	}
	return Unit{
		Kind:    match.Kind,
		Value:   match.Value,
		Skipped: buf[:match.Start],
		Len:     match.End,
	}, true
}

// Decoder owns a growing buffer and hands out complete units in order.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	matcher Matcher
	buf     string
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMatcher selects the matching strategy. The default is ScanMatcher.
func WithMatcher(m Matcher) Option {
	return func(d *Decoder) {
		d.matcher = m
	}
}

// NewDecoder creates an empty decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{matcher: ScanMatcher{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Write appends a chunk of producer text to the buffer.
func (d *Decoder) Write(chunk string) {
	d.buf += chunk
}

// Next extracts the next complete unit and advances past it.
func (d *Decoder) Next() (Unit, bool) {
	u, ok := TryExtractNext(d.buf, d.matcher)
	if !ok {
		return Unit{}, false
	}
	d.buf = d.buf[u.Len:]
	return u, true
}

// Drain extracts every unit that is currently complete.
func (d *Decoder) Drain() []Unit {
	var units []Unit
	for {
		u, ok := d.Next()
		if !ok {
			return units
		}
		units = append(units, u)
	}
}

// Buffered returns the unconsumed text.
func (d *Decoder) Buffered() string {
	return d.buf
}

// HasTerminal reports whether a done-marker is buffered, possibly behind a
// unit that is still open.
func (d *Decoder) HasTerminal() bool {
	return ContainsDone(d.buf)
}

// Discard drops the unconsumed text and returns it.
func (d *Decoder) Discard() string {
	rest := d.buf
	d.buf = ""
	return rest
}

// Reset empties the buffer, keeping the matcher.
func (d *Decoder) Reset() {
	d.buf = ""
}
