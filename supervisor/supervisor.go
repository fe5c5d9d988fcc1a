// Package supervisor launches graph runs as independently scheduled
// goroutines and owns each run's status record, append-only event log, and
// subscriber set. Event distribution is replay-then-live: a subscriber
// attaching to a run first receives the full log in original order, then a
// status snapshot, then live events. Replay, registration, and the run's
// append path are serialized on one per-run mutex, so the handoff loses and
// duplicates nothing.
package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geekdivyxnsh/WorkFlow-Engine/engine"
	"github.com/geekdivyxnsh/WorkFlow-Engine/internal/metrics"
)

var (
	// ErrRunNotFound reports an unknown (or already evicted) run id.
	ErrRunNotFound = errors.New("run not found")
	// ErrDuplicateRun reports reuse of an existing run id.
	ErrDuplicateRun = errors.New("run id already exists")
	// ErrClosed reports an operation on a closed supervisor.
	ErrClosed = errors.New("supervisor is closed")
)

const (
	// DefaultRetention is how long terminal records and their logs are
	// kept before the janitor evicts them.
	DefaultRetention = time.Hour
	// DefaultSweepInterval is how often the janitor scans for expired
	// records.
	DefaultSweepInterval = time.Minute
)

// runEntry bundles everything the supervisor owns for one run. mu is the
// single-writer lock that makes the replay-then-live handoff linearizable:
// the run's append path and Attach's replay path both hold it.
type runEntry struct {
	mu      sync.Mutex
	record  *ExecutionRecord
	log     []engine.Event
	subs    map[Subscriber]struct{}
	expires time.Time     // zero while the run is active
	done    chan struct{} // closed when the record turns terminal
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithRetention sets how long terminal records are retained.
func WithRetention(d time.Duration) Option {
	return func(s *Supervisor) { s.retention = d }
}

// WithSweepInterval sets the janitor scan interval.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.sweepInterval = d }
}

// WithStepDelay sets the pacing delay passed to event-emitting runs.
func WithStepDelay(d time.Duration) Option {
	return func(s *Supervisor) { s.stepDelay = d }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Supervisor) { s.metrics = c }
}

// Supervisor is the process-wide run scheduler and event distributor.
type Supervisor struct {
	mu     sync.RWMutex
	runs   map[string]*runEntry
	tasks  map[string]context.CancelFunc // active-handle table
	closed bool

	retention     time.Duration
	sweepInterval time.Duration
	stepDelay     time.Duration

	logger  *zap.Logger
	metrics *metrics.Collector

	wg          sync.WaitGroup
	stopJanitor chan struct{}
	janitorDone chan struct{}
}

// New creates a supervisor and starts its retention janitor.
func New(logger *zap.Logger, opts ...Option) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Supervisor{
		runs:          make(map[string]*runEntry),
		tasks:         make(map[string]context.CancelFunc),
		retention:     DefaultRetention,
		sweepInterval: DefaultSweepInterval,
		stepDelay:     engine.DefaultStepDelay,
		logger:        logger.With(zap.String("component", "supervisor")),
		stopJanitor:   make(chan struct{}),
		janitorDone:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.janitor()
	return s
}

// Start launches an event-emitting run of graph under a fresh run id and
// returns immediately; the run proceeds as an independently scheduled
// goroutine (fire-and-forget with a retained cancel handle).
func (s *Supervisor) Start(ctx context.Context, graph *engine.Graph, initial engine.State) (string, error) {
	runID := uuid.NewString()
	if err := s.StartWithID(ctx, runID, graph, initial); err != nil {
		return "", err
	}
	return runID, nil
}

// StartWithID is Start with a caller-chosen run id. Reuse of an existing
// id — active or retained — is rejected.
func (s *Supervisor) StartWithID(ctx context.Context, runID string, graph *engine.Graph, initial engine.State) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, exists := s.runs[runID]; exists {
		s.mu.Unlock()
		return ErrDuplicateRun
	}

	entry := &runEntry{
		record: &ExecutionRecord{
			RunID:     runID,
			Status:    StatusRunning,
			State:     initial.DeepCopy(),
			History:   []engine.HistoryEntry{},
			StartedAt: time.Now().UTC(),
		},
		subs: make(map[Subscriber]struct{}),
		done: make(chan struct{}),
	}
	s.runs[runID] = entry

	// Detach the run's lifetime from the caller's request context; the
	// retained cancel handle is the supervisor-level cancellation hook.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.tasks[runID] = cancel

	// Register with the WaitGroup while still holding the lock: Close sets
	// closed and snapshots tasks under the same lock, so it either rejects
	// this start or waits for its goroutine.
	s.wg.Add(1)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordRunStarted()
	}
	s.logger.Info("run started", zap.String("run_id", runID))

	go s.runGraph(runCtx, runID, entry, graph, initial)
	return nil
}

// RunSync executes a graph inline and retains the terminal record under a
// fresh run id, so synchronous runs are queryable like supervised ones.
// No events are emitted: a synchronous run has an empty log, and a later
// subscriber receives only the status snapshot. A run interrupted by the
// caller's context settles as failed with the partial state and history.
func (s *Supervisor) RunSync(ctx context.Context, graph *engine.Graph, initial engine.State) (string, *RunSnapshot, error) {
	runID := uuid.NewString()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", nil, ErrClosed
	}
	entry := &runEntry{
		record: &ExecutionRecord{
			RunID:     runID,
			Status:    StatusRunning,
			State:     initial.DeepCopy(),
			History:   []engine.HistoryEntry{},
			StartedAt: time.Now().UTC(),
		},
		subs: make(map[Subscriber]struct{}),
		done: make(chan struct{}),
	}
	s.runs[runID] = entry
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordRunStarted()
	}
	start := time.Now()
	result := graph.Run(ctx, initial, engine.WithLogger(s.logger.With(zap.String("run_id", runID))))

	entry.mu.Lock()
	if result.Err != nil {
		entry.record.Status = StatusFailed
		entry.record.Error = result.Err.Error()
	} else {
		entry.record.Status = StatusCompleted
	}
	entry.record.State = result.FinalState
	entry.record.History = result.History
	entry.record.CompletedAt = time.Now().UTC()
	entry.expires = time.Now().Add(s.retention)
	entry.mu.Unlock()
	close(entry.done)

	if s.metrics != nil {
		if result.Err != nil {
			s.metrics.RecordRunFailed()
		} else {
			s.metrics.RecordRunCompleted(time.Since(start))
		}
	}

	snap, err := s.Snapshot(runID)
	return runID, snap, err
}

// runGraph is the run's owning goroutine: it executes the graph, feeds the
// run log and subscribers, settles the record, and removes its handle.
func (s *Supervisor) runGraph(ctx context.Context, runID string, entry *runEntry, graph *engine.Graph, initial engine.State) {
	defer s.wg.Done()
	defer close(entry.done)
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.tasks[runID]; ok {
			cancel()
			delete(s.tasks, runID)
		}
		s.mu.Unlock()
	}()

	start := time.Now()
	sink := engine.SinkFunc(func(ctx context.Context, event engine.Event) error {
		s.publish(ctx, runID, entry, event)
		return nil
	})

	result, runErr := graph.RunWithEvents(ctx, initial, sink,
		engine.WithStepDelay(s.stepDelay),
		engine.WithLogger(s.logger.With(zap.String("run_id", runID))),
	)

	switch {
	case runErr != nil:
		// Escaping failure: the loop itself was interrupted (cancellation
		// or sink delivery). Fall back to reporting the original input.
		entry.mu.Lock()
		entry.record.Status = StatusFailed
		entry.record.Error = runErr.Error()
		entry.record.State = initial.DeepCopy()
		entry.record.History = []engine.HistoryEntry{}
		entry.record.CompletedAt = time.Now().UTC()
		entry.expires = time.Now().Add(s.retention)
		entry.mu.Unlock()

		s.publish(context.WithoutCancel(ctx), runID, entry, engine.NewEvent(engine.EventExecutionFailed, map[string]any{
			"error": runErr.Error(),
		}))

		if s.metrics != nil {
			s.metrics.RecordRunFailed()
		}
		s.logger.Error("run failed", zap.String("run_id", runID), zap.Error(runErr))

	case result.Err != nil:
		// Structural failure at the entry point.
		entry.mu.Lock()
		entry.record.Status = StatusFailed
		entry.record.Error = result.Err.Error()
		entry.record.State = result.FinalState
		entry.record.History = result.History
		entry.record.CompletedAt = time.Now().UTC()
		entry.expires = time.Now().Add(s.retention)
		entry.mu.Unlock()

		if s.metrics != nil {
			s.metrics.RecordRunFailed()
		}
		s.logger.Error("run failed", zap.String("run_id", runID), zap.Error(result.Err))

	default:
		entry.mu.Lock()
		entry.record.Status = StatusCompleted
		entry.record.State = result.FinalState
		entry.record.History = result.History
		entry.record.CompletedAt = time.Now().UTC()
		entry.expires = time.Now().Add(s.retention)
		entry.mu.Unlock()

		if s.metrics != nil {
			s.metrics.RecordRunCompleted(time.Since(start))
		}
		s.logger.Info("run completed",
			zap.String("run_id", runID),
			zap.Int("steps", len(result.History)),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// publish appends the event to the run's log and fans it out to the
// current subscriber set. Unreachable subscribers are pruned without
// aborting delivery to the rest. The entry lock is held across append and
// fan-out so subscriber delivery order equals log order.
func (s *Supervisor) publish(ctx context.Context, runID string, entry *runEntry, event engine.Event) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.log = append(entry.log, event)
	if s.metrics != nil {
		s.metrics.RecordEventEmitted(string(event.Type))
	}

	for sub := range entry.subs {
		if err := sub.Send(ctx, event); err != nil {
			s.logger.Warn("subscriber delivery failed, pruning",
				zap.String("run_id", runID), zap.Error(err))
			delete(entry.subs, sub)
			if s.metrics != nil {
				s.metrics.RecordSubscriberDetached()
			}
		}
	}
}

// Attach registers a live observer on a run. The subscriber first receives
// the entire current log in original order, then a status_update snapshot,
// then live events until Detach, delivery failure, or eviction. The run
// lock is held across replay and registration, so no event is lost or
// duplicated at the handoff.
func (s *Supervisor) Attach(ctx context.Context, runID string, sub Subscriber) error {
	entry, err := s.entry(runID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	for _, event := range entry.log {
		if err := sub.Send(ctx, event); err != nil {
			return err
		}
	}

	status := engine.NewEvent(engine.EventStatusUpdate, map[string]any{
		"run_id": runID,
		"status": string(entry.record.Status),
	})
	if err := sub.Send(ctx, status); err != nil {
		return err
	}

	entry.subs[sub] = struct{}{}
	if s.metrics != nil {
		s.metrics.RecordSubscriberAttached()
	}
	return nil
}

// Detach removes a subscriber from a run. Detaching an unknown subscriber
// or run is a no-op.
func (s *Supervisor) Detach(runID string, sub Subscriber) {
	entry, err := s.entry(runID)
	if err != nil {
		return
	}
	entry.mu.Lock()
	if _, ok := entry.subs[sub]; ok {
		delete(entry.subs, sub)
		if s.metrics != nil {
			s.metrics.RecordSubscriberDetached()
		}
	}
	entry.mu.Unlock()
}

// Cancel interrupts an active run; the run settles as failed with the
// original input as its reported state. Cancelling a terminal run is a
// no-op. This is a supervisor-level hook, deliberately not exposed on the
// HTTP surface.
func (s *Supervisor) Cancel(runID string) error {
	s.mu.RLock()
	_, known := s.runs[runID]
	cancel, active := s.tasks[runID]
	s.mu.RUnlock()

	if !known {
		return ErrRunNotFound
	}
	if active {
		cancel()
	}
	return nil
}

// Snapshot returns a caller-safe copy of the run's current record.
func (s *Supervisor) Snapshot(runID string) (*RunSnapshot, error) {
	entry, err := s.entry(runID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	history := make([]engine.HistoryEntry, len(entry.record.History))
	copy(history, entry.record.History)

	return &RunSnapshot{
		RunID:   entry.record.RunID,
		Status:  entry.record.Status,
		State:   entry.record.State.DeepCopy(),
		History: history,
		Error:   entry.record.Error,
	}, nil
}

// Log returns a copy of the run's event log.
func (s *Supervisor) Log(runID string) ([]engine.Event, error) {
	entry, err := s.entry(runID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	log := make([]engine.Event, len(entry.log))
	copy(log, entry.log)
	return log, nil
}

// Wait blocks until the run is terminal or the context is done. It exists
// for callers that need a completion barrier (tests, shutdown paths).
func (s *Supervisor) Wait(ctx context.Context, runID string) error {
	entry, err := s.entry(runID)
	if err != nil {
		return err
	}
	select {
	case <-entry.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels all active runs, waits for them to settle, and stops the
// janitor. Records are not evicted; a closed supervisor still serves
// Snapshot and Attach for retained runs.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, cancel := range s.tasks {
		cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	close(s.stopJanitor)
	<-s.janitorDone
}

func (s *Supervisor) entry(runID string) (*runEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return entry, nil
}

// janitor evicts terminal records once their retention deadline passes.
// Run logs grow without bound for the run's lifetime; eviction is the only
// pruning policy.
func (s *Supervisor) janitor() {
	defer close(s.janitorDone)
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopJanitor:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

// sweep removes expired terminal runs. Exposed to tests via the clock
// parameter.
func (s *Supervisor) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for runID, entry := range s.runs {
		entry.mu.Lock()
		expired := !entry.expires.IsZero() && now.After(entry.expires)
		entry.mu.Unlock()
		if !expired {
			continue
		}
		delete(s.runs, runID)
		if s.metrics != nil {
			s.metrics.RecordRunEvicted()
		}
		s.logger.Info("run evicted", zap.String("run_id", runID))
	}
}
