// Package server exposes template generation over HTTP.
//
// The router is chi-based with request IDs, zerolog request logging,
// panic recovery and optional CORS. Streaming endpoints answer with
// Server-Sent Events.
//
// # Endpoints
//
//   - POST /template: generate a template for a prompt. Emits a "run" event,
//     one "snapshot" per applied unit and a final "result" (or "error").
//   - POST /template/decode: replay a recorded transcript through a session.
//   - POST /template/lint: check a template for problems.
//   - GET /template/active, POST /template/{runID}/abort: list and abort runs.
//   - GET /toolkit, POST /toolkit/{tool}: the content toolkit.
//   - POST /chat, GET/DELETE /chat/{conversationID}: the assistant.
//   - GET /history, GET/DELETE /history/{creationID}: saved generations,
//     when the server was built WithHistory.
//   - GET /event: every bus event as {"type","data"} JSON.
//   - GET /provider, GET /health.
//
// Errors outside a stream use the envelope
//
//	{"error": {"code": "INVALID_PROMPT", "message": "..."}}
package server
