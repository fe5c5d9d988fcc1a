// Package registry provides the name→step table that graph construction
// draws from. Lookup is two-tier: a static table of registered tools, and
// an explicit unknown-name branch that synthesizes a never-failing
// fallback step. The registry is an explicit value passed to whoever
// builds graphs; there is no package-level instance.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/geekdivyxnsh/WorkFlow-Engine/engine"
)

// Registry maps tool names to steps.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]engine.Step
	logger *zap.Logger
}

// New creates a registry pre-populated with the built-in tools.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		tools:  make(map[string]engine.Step),
		logger: logger.With(zap.String("component", "tool_registry")),
	}
	r.registerDefaults()
	return r
}

// Register binds a name to a step, silently overwriting any prior binding.
func (r *Registry) Register(name string, step engine.Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = step
}

// RegisterFunc binds a name to a plain function.
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context, state engine.State) (engine.State, error)) {
	r.Register(name, engine.NewStepFunc(name, fn))
}

// Lookup is the strict tier: it returns the registered step, or false.
func (r *Registry) Lookup(name string) (engine.Step, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	step, ok := r.tools[name]
	return step, ok
}

// Get never fails. An unknown name takes the fallback branch: a diagnostic
// step is synthesized, stored under the name, and returned, so graph
// construction and execution can never fail on an unresolved tool. This is
// a deliberate availability-over-validation policy.
func (r *Registry) Get(name string) engine.Step {
	if step, ok := r.Lookup(name); ok {
		return step
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if step, ok := r.tools[name]; ok {
		return step
	}

	r.logger.Info("tool not found, registering fallback", zap.String("tool", name))
	fb := newFallbackStep(name, r.logger)
	r.tools[name] = fb
	return fb
}

// Names returns the sorted names of all registered tools, fallbacks
// included.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fallbackStep is the auto-synthesized substitute for an unregistered tool
// name. It deterministically reports what it replaced and never fails.
type fallbackStep struct {
	tool   string
	logger *zap.Logger
}

func newFallbackStep(tool string, logger *zap.Logger) *fallbackStep {
	return &fallbackStep{tool: tool, logger: logger}
}

func (s *fallbackStep) Name() string { return s.tool }

func (s *fallbackStep) Execute(ctx context.Context, state engine.State) (engine.State, error) {
	s.logger.Warn("executing fallback for unknown tool", zap.String("tool", s.tool))
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return engine.State{
		"tool_execution":      s.tool,
		"status":              "fallback_executed",
		"original_input_keys": keys,
	}, nil
}

// registerDefaults installs the universal built-in tools.
func (r *Registry) registerDefaults() {
	r.RegisterFunc("echo", func(ctx context.Context, state engine.State) (engine.State, error) {
		return engine.State{"output": map[string]any(state.DeepCopy())}, nil
	})

	r.RegisterFunc("print", func(ctx context.Context, state engine.State) (engine.State, error) {
		r.logger.Info("print tool", zap.Any("state", map[string]any(state)))
		return engine.State{}, nil
	})

	r.RegisterFunc("noop", func(ctx context.Context, state engine.State) (engine.State, error) {
		return engine.State{}, nil
	})

	r.RegisterFunc("passthrough", func(ctx context.Context, state engine.State) (engine.State, error) {
		return engine.State{}, nil
	})

	r.RegisterFunc("sum", func(ctx context.Context, state engine.State) (engine.State, error) {
		values, ok := state["values"].([]any)
		if !ok {
			return engine.State{"sum": 0, "error": "Invalid input for sum"}, nil
		}
		total := 0.0
		for _, v := range values {
			switch n := v.(type) {
			case int:
				total += float64(n)
			case float64:
				total += n
			default:
				return engine.State{"sum": 0, "error": "Invalid input for sum"}, nil
			}
		}
		return engine.State{"sum": total}, nil
	})

	r.RegisterFunc("llm", func(ctx context.Context, state engine.State) (engine.State, error) {
		prompt, _ := state["prompt"].(string)
		if len(prompt) > 20 {
			prompt = prompt[:20]
		}
		return engine.State{"llm_response": fmt.Sprintf("Mock response for: %s...", prompt)}, nil
	})
}
