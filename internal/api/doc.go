// Package api is the JSON HTTP surface of the HR chatbot.
//
// It exposes the chat endpoint (plus an SSE streaming variant), session
// CRUD, and the manager-facing leave endpoints that act on the leave
// ledger outside the agent path. Health probes live outside the
// middleware stack so load balancers are never rate limited.
//
// Error mapping is uniform: domain error kinds translate to HTTP status
// codes in one place (statusForError), and every error body is
// {"error": {"code", "message"}}.
package api
