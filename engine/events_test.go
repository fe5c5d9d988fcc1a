package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectSink appends events to a slice; not safe for concurrent use,
// which is fine because emission is strictly sequential.
type collectSink struct {
	events []Event
	failAt int // emit index at which to fail; -1 never fails
}

func newCollectSink() *collectSink {
	return &collectSink{failAt: -1}
}

func (s *collectSink) Emit(ctx context.Context, event Event) error {
	if s.failAt >= 0 && len(s.events) == s.failAt {
		return errors.New("sink unavailable")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *collectSink) types() []EventType {
	types := make([]EventType, len(s.events))
	for i, ev := range s.events {
		types[i] = ev.Type
	}
	return types
}

func TestRunWithEvents_OrderedSequence(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", setStep("a", "a_done", true))
	g.AddNode("b", setStep("b", "b_done", true))
	g.AddEdge("a", "b")
	g.SetEntry("a")

	sink := newCollectSink()
	result, err := g.RunWithEvents(context.Background(), State{}, sink, WithStepDelay(0))

	require.NoError(t, err)
	require.NoError(t, result.Err)

	assert.Equal(t, []EventType{
		EventExecutionStarted,
		EventStepStart, EventStepComplete, EventTransition,
		EventStepStart, EventStepComplete, EventTransition,
		EventExecutionComplete,
	}, sink.types())

	// Timestamps never go backwards within one run.
	for i := 1; i < len(sink.events); i++ {
		assert.False(t, sink.events[i].Timestamp.Before(sink.events[i-1].Timestamp))
	}
}

func TestRunWithEvents_TransitionPayloads(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", setStep("a", "x", 1))
	g.AddNode("b", setStep("b", "y", 2))
	g.AddConditionalEdge("a", "b", PredicateFunc(func(ctx context.Context, s State) (bool, error) {
		return true, nil
	}))
	g.SetEntry("a")

	sink := newCollectSink()
	_, err := g.RunWithEvents(context.Background(), State{}, sink, WithStepDelay(0))
	require.NoError(t, err)

	var transitions []Event
	for _, ev := range sink.events {
		if ev.Type == EventTransition {
			transitions = append(transitions, ev)
		}
	}
	require.Len(t, transitions, 2)

	// Guarded edge taken from a to b.
	assert.Equal(t, "a", transitions[0].Data["from_node"])
	assert.Equal(t, "b", transitions[0].Data["to_node"])
	assert.Equal(t, true, transitions[0].Data["condition_met"])

	// No edge out of b: transition still reported, with no target.
	assert.Equal(t, "b", transitions[1].Data["from_node"])
	assert.Nil(t, transitions[1].Data["to_node"])
	assert.Nil(t, transitions[1].Data["condition_met"])
}

func TestRunWithEvents_InvalidEntryEmitsExecutionFailed(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", setStep("a", "x", 1))
	g.SetEntry("ghost")

	sink := newCollectSink()
	result, err := g.RunWithEvents(context.Background(), State{}, sink, WithStepDelay(0))

	require.NoError(t, err)
	require.ErrorIs(t, result.Err, ErrInvalidEntryPoint)
	require.Len(t, sink.events, 1)
	assert.Equal(t, EventExecutionFailed, sink.events[0].Type)
	assert.Equal(t, ErrInvalidEntryPoint.Error(), sink.events[0].Data["error"])
}

func TestRunWithEvents_DanglingTargetEmitsExecutionFailed(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", setStep("a", "x", 1))
	g.AddEdge("a", "ghost")
	g.SetEntry("a")

	sink := newCollectSink()
	result, err := g.RunWithEvents(context.Background(), State{}, sink, WithStepDelay(0))

	require.NoError(t, err)
	require.NoError(t, result.Err)

	types := sink.types()
	assert.Contains(t, types, EventExecutionFailed)
	// The loop still finishes with execution_complete after the hard stop.
	assert.Equal(t, EventExecutionComplete, types[len(types)-1])
}

func TestRunWithEvents_SinkErrorEscapes(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", setStep("a", "x", 1))
	g.SetEntry("a")

	sink := newCollectSink()
	sink.failAt = 1 // fail on the first step_start
	_, err := g.RunWithEvents(context.Background(), State{}, sink, WithStepDelay(0))

	require.Error(t, err)
	assert.Equal(t, []EventType{EventExecutionStarted}, sink.types())
}

func TestRunWithEvents_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	g := NewGraph()
	g.AddNode("a", NewStepFunc("a", func(ctx context.Context, state State) (State, error) {
		cancel() // cancel mid-run; the loop must stop before the next step
		return State{"done": true}, nil
	}))
	g.AddNode("b", setStep("b", "never", true))
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")
	g.SetEntry("a")

	sink := newCollectSink()
	result, err := g.RunWithEvents(ctx, State{}, sink, WithStepDelay(0))

	require.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, result.FinalState, "never")
}

func TestRunWithEvents_EventStateSnapshotsAreIsolated(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", setStep("a", "v", 1))
	g.AddNode("b", setStep("b", "v", 2))
	g.AddEdge("a", "b")
	g.SetEntry("a")

	sink := newCollectSink()
	_, err := g.RunWithEvents(context.Background(), State{}, sink, WithStepDelay(0))
	require.NoError(t, err)

	var completes []Event
	for _, ev := range sink.events {
		if ev.Type == EventStepComplete {
			completes = append(completes, ev)
		}
	}
	require.Len(t, completes, 2)
	state0 := completes[0].Data["state"].(State)
	assert.Equal(t, 1, state0["v"], "earlier event snapshots must not see later mutations")
}
