package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geekdivyxnsh/WorkFlow-Engine/engine"
	"github.com/geekdivyxnsh/WorkFlow-Engine/supervisor"
)

func dialStream(t *testing.T, ctx context.Context, srv *httptest.Server, runID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/run/" + runID
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) engine.Event {
	t.Helper()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)

	var ev engine.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHandleStream_UnknownRun(t *testing.T) {
	f := newHandlerFixture(t)
	srv := httptest.NewServer(f.mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialStream(t, ctx, srv, "no-such-run")

	ev := readEvent(t, ctx, conn)
	assert.Equal(t, engine.EventError, ev.Type)
	assert.Equal(t, "Run not found", ev.Data["error"])

	// The server closes after the single error event.
	_, _, err := conn.Read(ctx)
	assert.Error(t, err)
}

func TestHandleStream_ReplaysCompletedRun(t *testing.T) {
	f := newHandlerFixture(t)
	srv := httptest.NewServer(f.mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runID, err := f.sup.Start(context.Background(), sampleStreamGraph(), engine.State{"message": "hi"})
	require.NoError(t, err)
	require.NoError(t, f.sup.Wait(ctx, runID))

	conn := dialStream(t, ctx, srv, runID)

	var types []engine.EventType
	for {
		ev := readEvent(t, ctx, conn)
		types = append(types, ev.Type)
		if ev.Type == engine.EventStatusUpdate {
			assert.Equal(t, string(supervisor.StatusCompleted), ev.Data["status"])
			break
		}
	}

	require.NotEmpty(t, types)
	assert.Equal(t, engine.EventExecutionStarted, types[0])
	assert.Equal(t, engine.EventExecutionComplete, types[len(types)-2])
	assert.Contains(t, types, engine.EventStepStart)
	assert.Contains(t, types, engine.EventStepComplete)
	assert.Contains(t, types, engine.EventTransition)
}

func TestHandleStream_PingPong(t *testing.T) {
	f := newHandlerFixture(t)
	srv := httptest.NewServer(f.mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runID, err := f.sup.Start(context.Background(), sampleStreamGraph(), engine.State{})
	require.NoError(t, err)
	require.NoError(t, f.sup.Wait(ctx, runID))

	conn := dialStream(t, ctx, srv, runID)

	// Drain the replay up to the status snapshot.
	for readEvent(t, ctx, conn).Type != engine.EventStatusUpdate {
	}

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("ping")))
	ev := readEvent(t, ctx, conn)
	assert.Equal(t, engine.EventPong, ev.Type)
}

func sampleStreamGraph() *engine.Graph {
	g := engine.NewGraph()
	g.AddNode("start", engine.NewStepFunc("start", func(ctx context.Context, state engine.State) (engine.State, error) {
		return engine.State{"started": true}, nil
	}))
	g.AddNode("finish", engine.NewStepFunc("finish", func(ctx context.Context, state engine.State) (engine.State, error) {
		return engine.State{"finished": true}, nil
	}))
	g.AddEdge("start", "finish")
	g.SetEntry("start")
	return g
}
