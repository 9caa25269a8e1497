// Package assistant implements the in-app chat assistant.
//
// A Conversation owns its history; there is no package-level chat state.
// Replies stream through an onDelta callback and may end with an
// [ACTIONS][...] block listing in-app actions, which ParseActions removes
// from the visible text.
package assistant
