// Package handlers implements the HTTP and WebSocket handlers of the
// workflow engine API: graph construction, run management, state queries,
// the per-run event stream, and health probes.
package handlers
