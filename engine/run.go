package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MaxSteps is the hard cap on node visits for a single run. It is the
// engine's only built-in termination control for cyclic graphs.
const MaxSteps = 50

// DefaultStepDelay is the pacing delay inserted between steps of an
// event-emitting run. It exists purely to make interleaving observable to
// live subscribers; it is not a correctness requirement.
const DefaultStepDelay = 100 * time.Millisecond

// maxStepsWarning is merged into the final state when the cap is hit.
const maxStepsWarning = "Max steps reached"

// ErrInvalidEntryPoint reports a run whose entry point is unset or absent
// from the node table.
var ErrInvalidEntryPoint = errors.New("graph entry point invalid or missing")

// HistoryEntry records one node visit (or one structural stop) of a run.
type HistoryEntry struct {
	Step          int    `json:"step,omitempty"`
	Node          string `json:"node,omitempty"`
	StateSnapshot State  `json:"state_snapshot,omitempty"`
	Error         string `json:"error,omitempty"`
}

// RunResult is the outcome of one run. Err is set for structural failures
// at the entry point and, on the synchronous path, for context
// cancellation; all other failures are folded into FinalState and History.
type RunResult struct {
	FinalState State          `json:"final_state"`
	History    []HistoryEntry `json:"history"`
	Err        error          `json:"-"`
}

// RunOption tunes a single run.
type RunOption func(*runConfig)

type runConfig struct {
	stepDelay time.Duration
	logger    *zap.Logger
}

// WithStepDelay overrides the pacing delay of an event-emitting run.
// Zero disables pacing entirely.
func WithStepDelay(d time.Duration) RunOption {
	return func(c *runConfig) { c.stepDelay = d }
}

// WithLogger attaches a logger to the run loop.
func WithLogger(logger *zap.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Run executes the graph synchronously from its entry point. It never
// returns a raised fault: structural problems and context cancellation are
// reported in RunResult.Err, and step failures are absorbed into state. An
// interrupted run carries the history accumulated up to the interruption.
func (g *Graph) Run(ctx context.Context, initial State, opts ...RunOption) *RunResult {
	cfg := runConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.stepDelay = 0 // pacing applies to the event-emitting run only

	result, err := g.execute(ctx, initial, nil, cfg)
	if err != nil && result.Err == nil {
		result.Err = err
	}
	return result
}

// RunWithEvents executes the same state machine as Run, emitting an ordered
// event around each phase through sink. Emission is awaited, so subscriber
// backpressure slows the run. The returned error is an escaping failure
// (sink delivery or context cancellation), never a step or structural
// failure — those are reported the same way Run reports them.
func (g *Graph) RunWithEvents(ctx context.Context, initial State, sink EventSink, opts ...RunOption) (*RunResult, error) {
	cfg := runConfig{stepDelay: DefaultStepDelay, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return g.execute(ctx, initial, sink, cfg)
}

// execute is the single state-machine loop shared by Run and RunWithEvents.
// A nil sink suppresses emission.
func (g *Graph) execute(ctx context.Context, initial State, sink EventSink, cfg runConfig) (*RunResult, error) {
	state := initial.DeepCopy()
	history := make([]HistoryEntry, 0)
	current := g.entry

	emit := func(typ EventType, data map[string]any) error {
		if sink == nil {
			return nil
		}
		return sink.Emit(ctx, NewEvent(typ, data))
	}

	if current == "" {
		if err := emit(EventExecutionFailed, map[string]any{
			"error": ErrInvalidEntryPoint.Error(),
			"state": state,
		}); err != nil {
			return &RunResult{FinalState: state, History: history, Err: ErrInvalidEntryPoint}, err
		}
		return &RunResult{FinalState: state, History: history, Err: ErrInvalidEntryPoint}, nil
	}
	if _, ok := g.nodes[current]; !ok {
		if err := emit(EventExecutionFailed, map[string]any{
			"error": ErrInvalidEntryPoint.Error(),
			"state": state,
		}); err != nil {
			return &RunResult{FinalState: state, History: history, Err: ErrInvalidEntryPoint}, err
		}
		return &RunResult{FinalState: state, History: history, Err: ErrInvalidEntryPoint}, nil
	}

	cfg.logger.Info("starting graph execution", zap.String("entry_point", current))

	if err := emit(EventExecutionStarted, map[string]any{
		"entry_point":   current,
		"initial_state": state.DeepCopy(),
	}); err != nil {
		return &RunResult{FinalState: state, History: history}, err
	}

	steps := 0
	for current != "" && steps < MaxSteps {
		if err := ctx.Err(); err != nil {
			return &RunResult{FinalState: state, History: history}, err
		}
		steps++

		node, ok := g.nodes[current]
		if !ok {
			// Reached through a dangling edge. Hard stop, not a fault.
			msg := fmt.Sprintf("Node %s missing", current)
			cfg.logger.Error("node defined in edge but missing in node table, stopping",
				zap.String("node", current))
			if err := emit(EventExecutionFailed, map[string]any{
				"error": msg,
				"state": state.DeepCopy(),
			}); err != nil {
				return &RunResult{FinalState: state, History: history}, err
			}
			history = append(history, HistoryEntry{Error: msg})
			break
		}

		cfg.logger.Info("executing node", zap.Int("step", steps), zap.String("node", current))
		if err := emit(EventStepStart, map[string]any{
			"step":  steps,
			"node":  current,
			"state": state.DeepCopy(),
		}); err != nil {
			return &RunResult{FinalState: state, History: history}, err
		}

		updates := node.run(ctx, state)
		state.Merge(updates)

		history = append(history, HistoryEntry{
			Step:          steps,
			Node:          current,
			StateSnapshot: state.DeepCopy(),
		})

		if err := emit(EventStepComplete, map[string]any{
			"step":    steps,
			"node":    current,
			"state":   state.DeepCopy(),
			"updates": updates,
		}); err != nil {
			return &RunResult{FinalState: state, History: history}, err
		}

		next, conditionMet := g.resolveNext(ctx, current, state, cfg.logger)
		transition := map[string]any{
			"from_node":     current,
			"condition_met": conditionMet,
		}
		if next != "" {
			transition["to_node"] = next
		} else {
			transition["to_node"] = nil
		}
		if err := emit(EventTransition, transition); err != nil {
			return &RunResult{FinalState: state, History: history}, err
		}

		current = next

		if cfg.stepDelay > 0 {
			select {
			case <-time.After(cfg.stepDelay):
			case <-ctx.Done():
				return &RunResult{FinalState: state, History: history}, ctx.Err()
			}
		}
	}

	if steps >= MaxSteps {
		cfg.logger.Warn("max steps reached, stopping execution", zap.Int("steps", steps))
		state["_warning"] = maxStepsWarning
	}

	if err := emit(EventExecutionComplete, map[string]any{
		"final_state": state.DeepCopy(),
		"total_steps": steps,
		"history":     history,
	}); err != nil {
		return &RunResult{FinalState: state, History: history}, err
	}

	return &RunResult{FinalState: state, History: history}, nil
}

// resolveNext walks the source's edges in insertion order and returns the
// first match: an unconditional edge, or a conditional edge whose predicate
// evaluates true. A predicate error or panic counts as "not matched".
// conditionMet is true for a matched guarded edge and nil for an
// unconditional one, mirroring the wire shape of transition events.
func (g *Graph) resolveNext(ctx context.Context, from string, state State, logger *zap.Logger) (next string, conditionMet any) {
	for _, edge := range g.edges[from] {
		if edge.Condition == nil {
			logger.Info("following unconditional edge",
				zap.String("from", from), zap.String("to", edge.To))
			return edge.To, nil
		}

		matched, err := evaluatePredicate(ctx, edge.Condition, state)
		if err != nil {
			logger.Error("edge condition evaluation failed, treating as not matched",
				zap.String("from", from), zap.String("to", edge.To), zap.Error(err))
			continue
		}
		if matched {
			logger.Info("condition met for edge",
				zap.String("from", from), zap.String("to", edge.To))
			return edge.To, true
		}
	}
	return "", nil
}

// evaluatePredicate shields the run loop from panicking predicates.
func evaluatePredicate(ctx context.Context, p Predicate, state State) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			err = fmt.Errorf("predicate panicked: %v", r)
		}
	}()
	return p.Evaluate(ctx, state)
}
