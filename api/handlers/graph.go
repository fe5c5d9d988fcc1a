package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/geekdivyxnsh/WorkFlow-Engine/api"
	"github.com/geekdivyxnsh/WorkFlow-Engine/codereview"
	"github.com/geekdivyxnsh/WorkFlow-Engine/engine"
	"github.com/geekdivyxnsh/WorkFlow-Engine/registry"
	"github.com/geekdivyxnsh/WorkFlow-Engine/store"
	"github.com/geekdivyxnsh/WorkFlow-Engine/supervisor"
	"github.com/geekdivyxnsh/WorkFlow-Engine/types"
)

// GraphHandler serves graph construction, run, and state queries.
type GraphHandler struct {
	registry *registry.Registry
	graphs   *store.GraphStore
	sup      *supervisor.Supervisor
	logger   *zap.Logger
}

// NewGraphHandler creates a graph handler.
func NewGraphHandler(reg *registry.Registry, graphs *store.GraphStore, sup *supervisor.Supervisor, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		registry: reg,
		graphs:   graphs,
		sup:      sup,
		logger:   logger.With(zap.String("component", "graph_handler")),
	}
}

// HandleCreate builds a graph from the simplified request shape: one tool
// per node, at most one unconditional edge per source. Tool resolution
// never fails — unknown names get registry fallbacks — so neither does
// construction.
func (h *GraphHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.GraphCreateRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Start == "" || len(req.Nodes) == 0 {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"start and nodes are required", h.logger)
		return
	}

	g := engine.NewGraph()
	for name, toolName := range req.Nodes {
		g.AddNode(name, h.registry.Get(toolName))
	}
	for from, to := range req.Edges {
		g.AddEdge(from, to)
	}

	// A start node outside the node table would make every run fail
	// structurally; backfill it with a noop to keep the graph runnable.
	if _, ok := req.Nodes[req.Start]; !ok {
		g.AddNode(req.Start, h.registry.Get("noop"))
	}
	g.SetEntry(req.Start)

	graphID := h.graphs.Add(g)
	h.logger.Info("graph created",
		zap.String("graph_id", graphID),
		zap.Int("nodes", len(req.Nodes)),
		zap.Int("edges", len(req.Edges)),
	)

	WriteJSON(w, http.StatusOK, api.GraphCreateResponse{GraphID: graphID})
}

// HandleCreateSample stores the code-review demo graph.
func (h *GraphHandler) HandleCreateSample(w http.ResponseWriter, r *http.Request) {
	graphID := h.graphs.Add(codereview.NewGraph(h.registry))
	h.logger.Info("sample graph created", zap.String("graph_id", graphID))
	WriteJSON(w, http.StatusOK, api.GraphCreateResponse{GraphID: graphID})
}

// HandleRun starts a run of a stored graph. The default is asynchronous:
// the run is handed to the supervisor and the response returns immediately
// with status running. With ?sync=true the run executes inline and the
// response carries the final state and history.
func (h *GraphHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req api.RunRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	graph, ok := h.graphs.Get(req.GraphID)
	if !ok {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrGraphNotFound,
			"graph not found", h.logger)
		return
	}

	initial := engine.State(req.InitialState)

	if r.URL.Query().Get("sync") == "true" {
		runID, snap, err := h.sup.RunSync(r.Context(), graph, initial)
		if err != nil {
			WriteError(w, types.NewError(types.ErrServiceUnavailable, "supervisor unavailable").
				WithCause(err), h.logger)
			return
		}
		WriteJSON(w, http.StatusOK, snapshotResponse(runID, snap))
		return
	}

	runID, err := h.sup.Start(r.Context(), graph, initial)
	if err != nil {
		WriteError(w, types.NewError(types.ErrServiceUnavailable, "supervisor unavailable").
			WithCause(err), h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, api.RunStateResponse{
		RunID:   runID,
		Status:  string(supervisor.StatusRunning),
		State:   req.InitialState,
		History: []engine.HistoryEntry{},
	})
}

// HandleState returns the current snapshot of a run.
func (h *GraphHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	snap, err := h.sup.Snapshot(runID)
	if err != nil {
		if errors.Is(err, supervisor.ErrRunNotFound) {
			WriteErrorMessage(w, http.StatusNotFound, types.ErrRunNotFound,
				"run not found", h.logger)
			return
		}
		WriteError(w, types.NewError(types.ErrInternalError, "snapshot failed").
			WithCause(err), h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, snapshotResponse(runID, snap))
}

func snapshotResponse(runID string, snap *supervisor.RunSnapshot) api.RunStateResponse {
	return api.RunStateResponse{
		RunID:   runID,
		Status:  string(snap.Status),
		State:   snap.State,
		History: snap.History,
		Error:   snap.Error,
	}
}
