// Package api defines the request and response shapes of the HTTP surface.
package api

import (
	"github.com/geekdivyxnsh/WorkFlow-Engine/engine"
)

// GraphCreateRequest is the simplified graph-build request: one tool per
// node and at most one unconditional outgoing edge per source node.
// Richer conditional or looping graphs are assembled in code against the
// engine package directly.
type GraphCreateRequest struct {
	// Start is the entry node name.
	Start string `json:"start"`
	// Nodes maps node name → tool name.
	Nodes map[string]string `json:"nodes"`
	// Edges maps source node name → target node name.
	Edges map[string]string `json:"edges"`
}

// GraphCreateResponse carries the id of a stored graph.
type GraphCreateResponse struct {
	GraphID string `json:"graph_id"`
}

// RunRequest starts an execution of a stored graph.
type RunRequest struct {
	GraphID      string         `json:"graph_id"`
	InitialState map[string]any `json:"initial_state"`
}

// RunStateResponse is the canonical run view returned by the run and
// state endpoints.
type RunStateResponse struct {
	RunID   string                `json:"run_id"`
	Status  string                `json:"status"`
	State   map[string]any        `json:"state"`
	History []engine.HistoryEntry `json:"history"`
	Error   string                `json:"error,omitempty"`
}
