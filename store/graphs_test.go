package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geekdivyxnsh/WorkFlow-Engine/engine"
)

func TestGraphStore(t *testing.T) {
	s := NewGraphStore()
	assert.Equal(t, 0, s.Len())

	g := engine.NewGraph()
	id := s.Add(g)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, s.Len())

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Same(t, g, got)

	_, ok = s.Get("missing")
	assert.False(t, ok)

	// Ids are unique per Add, even for the same graph.
	other := s.Add(g)
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, s.Len())
}
