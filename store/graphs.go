// Package store holds the in-memory graph table shared by the API
// handlers. Graphs are process-lifetime: there is no persistence backend.
package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/geekdivyxnsh/WorkFlow-Engine/engine"
)

// GraphStore is an id-keyed table of built graphs.
type GraphStore struct {
	mu     sync.RWMutex
	graphs map[string]*engine.Graph
}

// NewGraphStore creates an empty store.
func NewGraphStore() *GraphStore {
	return &GraphStore{graphs: make(map[string]*engine.Graph)}
}

// Add stores a graph under a fresh id and returns the id.
func (s *GraphStore) Add(g *engine.Graph) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.graphs[id] = g
	s.mu.Unlock()
	return id
}

// Get retrieves a graph by id.
func (s *GraphStore) Get(id string) (*engine.Graph, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[id]
	return g, ok
}

// Len returns the number of stored graphs.
func (s *GraphStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.graphs)
}
