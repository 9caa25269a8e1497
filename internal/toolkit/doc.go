// Package toolkit generates the content that accompanies a server template:
// setup tutorials, welcome messages, rules, launch announcements, bot
// recommendations, embeds and chat topics.
//
// Every generator is a single non-streaming completion. Structured replies
// are read leniently with gjson, so fenced or chatty JSON still parses.
package toolkit
