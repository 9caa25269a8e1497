// Package tagproto decodes the tagged text protocol a model emits while it
// writes a server template.
//
// The wire form is a sequence of units:
//
//	<SERVER_NAME>Ember Hollow</SERVER_NAME>
//	<ROLE>Night Warden|#8B0000|true|Manage Messages,Kick Members</ROLE>
//	<CATEGORY>Lobby</CATEGORY>
//	<CHANNEL>text|👋・welcome|Say hi</CHANNEL>
//	<DONE />
//
// A Decoder is fed arbitrary chunks and only ever yields units whose full
// delimited span is buffered. It never interprets values; splitting
// pipe-delimited fields is the accumulator's job.
package tagproto
