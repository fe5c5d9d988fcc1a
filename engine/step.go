package engine

import "context"

// Step is a named unit of work over shared state. It returns a partial
// state to merge into the working state; a nil update is ignored.
type Step interface {
	Name() string
	Execute(ctx context.Context, state State) (State, error)
}

// StepFunc adapts a plain function to a named Step.
type StepFunc struct {
	name string
	fn   func(ctx context.Context, state State) (State, error)
}

// NewStepFunc creates a Step from a function.
func NewStepFunc(name string, fn func(ctx context.Context, state State) (State, error)) *StepFunc {
	return &StepFunc{name: name, fn: fn}
}

func (s *StepFunc) Name() string { return s.name }

func (s *StepFunc) Execute(ctx context.Context, state State) (State, error) {
	return s.fn(ctx, state)
}

// Predicate guards a conditional edge. An error (or panic) during
// evaluation is treated as "not matched" by the run loop.
type Predicate interface {
	Evaluate(ctx context.Context, state State) (bool, error)
}

// PredicateFunc adapts a plain function to a Predicate.
type PredicateFunc func(ctx context.Context, state State) (bool, error)

func (f PredicateFunc) Evaluate(ctx context.Context, state State) (bool, error) {
	return f(ctx, state)
}
