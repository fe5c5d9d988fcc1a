package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_DeepCopyNil(t *testing.T) {
	var s State
	copied := s.DeepCopy()
	assert.NotNil(t, copied)
	assert.Empty(t, copied)
}

func TestState_DeepCopyNestedStructures(t *testing.T) {
	original := State{
		"scalar": 42,
		"nested": map[string]any{"inner": []any{"a", "b"}},
		"list":   []any{map[string]any{"k": 1}},
		"tags":   []string{"x", "y"},
	}

	copied := original.DeepCopy()

	copied["scalar"] = 0
	copied["nested"].(map[string]any)["inner"].([]any)[0] = "mutated"
	copied["list"].([]any)[0].(map[string]any)["k"] = 99
	copied["tags"].([]string)[0] = "mutated"

	assert.Equal(t, 42, original["scalar"])
	assert.Equal(t, "a", original["nested"].(map[string]any)["inner"].([]any)[0])
	assert.Equal(t, 1, original["list"].([]any)[0].(map[string]any)["k"])
	assert.Equal(t, "x", original["tags"].([]string)[0])
}

func TestState_DeepCopyTypedContainers(t *testing.T) {
	original := State{
		"labels":  map[string]string{"env": "prod"},
		"records": []map[string]any{{"id": 1, "tags": []string{"a"}}},
		"counts":  map[string]int{"runs": 3},
		"rows":    [][]string{{"x"}},
	}

	copied := original.DeepCopy()

	copied["labels"].(map[string]string)["env"] = "mutated"
	copied["records"].([]map[string]any)[0]["id"] = 99
	copied["records"].([]map[string]any)[0]["tags"].([]string)[0] = "mutated"
	copied["counts"].(map[string]int)["runs"] = 0
	copied["rows"].([][]string)[0][0] = "mutated"

	assert.Equal(t, "prod", original["labels"].(map[string]string)["env"])
	assert.Equal(t, 1, original["records"].([]map[string]any)[0]["id"])
	assert.Equal(t, "a", original["records"].([]map[string]any)[0]["tags"].([]string)[0])
	assert.Equal(t, 3, original["counts"].(map[string]int)["runs"])
	assert.Equal(t, "x", original["rows"].([][]string)[0][0])
}

func TestState_DeepCopyNilContainers(t *testing.T) {
	original := State{
		"nil_map":   map[string]string(nil),
		"nil_slice": []map[string]any(nil),
		"nil_value": nil,
	}

	copied := original.DeepCopy()
	assert.Nil(t, copied["nil_map"])
	assert.Nil(t, copied["nil_slice"])
	assert.Nil(t, copied["nil_value"])
}

func TestState_Merge(t *testing.T) {
	s := State{"a": 1, "b": 2}
	s.Merge(State{"b": 20, "c": 3})
	assert.Equal(t, State{"a": 1, "b": 20, "c": 3}, s)

	s.Merge(nil)
	assert.Equal(t, State{"a": 1, "b": 20, "c": 3}, s)
}
