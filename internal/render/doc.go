// Package render prints server templates to a terminal, progressively while
// a session streams and in full as text, JSON or YAML once it ends.
package render
