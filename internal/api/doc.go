// Package api wires HTTP routes to handlers.
//
// Handlers translate requests into service calls and map service errors onto
// status codes; the real-time gateway is mounted at /api/ws.
package api
