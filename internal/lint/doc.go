// Package lint checks a server template against the conventions the
// generation prompt asks for: #RRGGBB role colors, Discord permission
// flags, emoji-prefixed kebab-case text channels and known setting values.
package lint
