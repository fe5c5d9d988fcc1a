package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/geekdivyxnsh/WorkFlow-Engine/engine"
	"github.com/geekdivyxnsh/WorkFlow-Engine/supervisor"
)

// StreamHandler serves the per-run WebSocket event stream: full replay of
// the run log, a status snapshot, then live events until the client
// disconnects. A client text frame "ping" is answered with a pong event.
type StreamHandler struct {
	sup    *supervisor.Supervisor
	logger *zap.Logger
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(sup *supervisor.Supervisor, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		sup:    sup,
		logger: logger.With(zap.String("component", "stream_handler")),
	}
}

// HandleStream upgrades the connection and attaches it to the run stream.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	ctx := r.Context()
	sub := newWSSubscriber(conn)

	if err := h.sup.Attach(ctx, runID, sub); err != nil {
		if errors.Is(err, supervisor.ErrRunNotFound) {
			// One error event, then close: the channel contract for
			// unknown run ids.
			_ = sub.Send(ctx, engine.NewEvent(engine.EventError, map[string]any{
				"error": "Run not found",
			}))
			_ = conn.Close(websocket.StatusNormalClosure, "run not found")
			return
		}
		h.logger.Warn("attach failed", zap.String("run_id", runID), zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "attach failed")
		return
	}
	defer h.sup.Detach(runID, sub)

	h.logger.Info("subscriber attached", zap.String("run_id", runID))

	// Read loop: keeps the connection alive, answers liveness pings, and
	// detects disconnect. Live events arrive via the supervisor fan-out.
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			h.logger.Info("subscriber disconnected",
				zap.String("run_id", runID),
				zap.String("close_status", fmt.Sprint(websocket.CloseStatus(err))),
			)
			return
		}
		if typ == websocket.MessageText && string(data) == "ping" {
			if err := sub.Send(ctx, engine.NewEvent(engine.EventPong, nil)); err != nil {
				return
			}
		}
	}
}

// wsSubscriber adapts a websocket connection to the supervisor.Subscriber
// interface. Writes are serialized with a mutex because WebSocket does not
// support concurrent writers.
type wsSubscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSSubscriber(conn *websocket.Conn) *wsSubscriber {
	return &wsSubscriber{conn: conn}
}

func (s *wsSubscriber) Send(ctx context.Context, event engine.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}
