// Package gateway exposes the assistant over HTTP.
//
// # Overview
//
// The gateway is the external surface of coven-assist. Request/response
// operations mutate a conversation's session and return a post-call snapshot;
// push updates flow to observers over Server-Sent Events.
//
// # HTTP API
//
// Registry-level endpoints:
//
//   - GET  /api/conversations - List visible conversations
//   - POST /api/conversations - Create a conversation
//   - GET  /api/actions - Grouped quick-action definitions
//   - GET  /api/premium - Premium entitlement snapshot
//   - POST /api/premium/dismiss-prompt - Hide the premium prompt
//   - POST /api/agreement/accept - Mark the usage agreement accepted
//   - GET/POST /api/default-conversation - Host-UI default conversation
//   - POST /api/page - Push extracted page text
//   - GET  /health - Liveness check
//
// Session-level endpoints under /api/conversations/{id}:
//
//   - GET    (bare id) - Session state snapshot
//   - DELETE (bare id) - Delete the conversation
//   - GET  /history - Visible turns with edit revisions
//   - POST /entries - Submit a human entry (starts a response cycle)
//   - POST /summarize - Submit a page summarization request
//   - POST /edits - Append an edit revision to a turn
//   - POST /model - Change the active model (entitlement-gated)
//   - GET  /models - Accessible models for the current entitlement
//   - POST /page-contents - Toggle page content grounding
//   - POST /retry - Retry after a retryable error
//   - POST /clear-error - Clear the error and recover the failed entry
//   - POST /rating, /feedback - Rate turns and send feedback
//   - GET/POST /content - Associated content info
//   - GET/POST /questions - Suggested follow-up questions
//
// # SSE Streaming
//
// GET /api/events streams hub notifications. A conversation_id query
// parameter scopes the stream to one conversation; without it the client
// observes global registry events:
//
//	event: history_updated
//	data: {"conversation_id": "..."}
//
//	event: request_in_progress_changed
//	data: {"conversation_id": "...", "data": true}
//
// # Idempotency
//
// POST /entries and /summarize honor an Idempotency-Key header. A key seen
// within the dedupe window is acknowledged without submitting a second entry,
// so clients can retry safely over flaky links.
package gateway
