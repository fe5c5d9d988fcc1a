package codereview

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geekdivyxnsh/WorkFlow-Engine/engine"
	"github.com/geekdivyxnsh/WorkFlow-Engine/registry"
)

func TestExtractCode(t *testing.T) {
	state := engine.State{"raw_code": "import os\n\ndef parse(x):\n    pass\n\nfunc run() {}\nnot a def"}
	update, err := ExtractCode(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, []any{"def parse(x):", "func run() {}"}, update["functions"])
}

func TestExtractCode_NoCode(t *testing.T) {
	update, err := ExtractCode(context.Background(), engine.State{})
	require.NoError(t, err)
	assert.Equal(t, []any{}, update["functions"])
}

func TestCheckComplexity_CountsNonEmptyLines(t *testing.T) {
	state := engine.State{"raw_code": "a\n\nb\n   \nc"}
	update, err := CheckComplexity(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 3, update["complexity_score"])
}

func TestCheckComplexity_Clamps(t *testing.T) {
	low, err := CheckComplexity(context.Background(), engine.State{"raw_code": ""})
	require.NoError(t, err)
	assert.Equal(t, 1, low["complexity_score"])

	high, err := CheckComplexity(context.Background(), engine.State{
		"raw_code": strings.Repeat("line\n", 25),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, high["complexity_score"])
}

func TestCheckComplexity_ReusesExistingScore(t *testing.T) {
	state := engine.State{"raw_code": strings.Repeat("line\n", 25), "complexity_score": 4}
	update, err := CheckComplexity(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 4, update["complexity_score"])
}

func TestDetectIssues(t *testing.T) {
	update, err := DetectIssues(context.Background(), engine.State{
		"complexity_score": 8,
		"raw_code":         "x = 1  # TODO fix this",
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"High complexity detected", "Found TODO comments"}, update["issues"])

	clean, err := DetectIssues(context.Background(), engine.State{
		"complexity_score": 3,
		"raw_code":         "x = 1",
	})
	require.NoError(t, err)
	assert.Equal(t, []any{}, clean["issues"])
}

func TestSuggestImprovements(t *testing.T) {
	update, err := SuggestImprovements(context.Background(), engine.State{
		"complexity_score": 9,
		"issues":           []any{"High complexity detected", "Found TODO comments"},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, update["complexity_score"])
	assert.Equal(t, []any{
		"Refactor long functions into smaller ones",
		"Resolve pending TODOs",
	}, update["suggestions"])
}

func TestSuggestImprovements_ScoreFloor(t *testing.T) {
	update, err := SuggestImprovements(context.Background(), engine.State{"complexity_score": 1})
	require.NoError(t, err)
	assert.Equal(t, 0, update["complexity_score"])
}

func TestComplexityScore_Float64(t *testing.T) {
	// Scores arriving through JSON decode as float64.
	ok, err := NeedsImprovement(context.Background(), engine.State{"complexity_score": float64(6)})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NeedsImprovement(context.Background(), engine.State{"complexity_score": float64(5)})
	require.NoError(t, err)
	assert.False(t, ok)
}

// Nine non-empty lines with a TODO: the first scoring pass lands on 9,
// the loop runs improve twice (9→7→5), and the guard ends the run on
// its third check, well under the step cap.
func TestReviewLoop_ConvergesByGuard(t *testing.T) {
	reg := registry.New(zap.NewNop())
	RegisterTools(reg)
	g := NewGraph(reg)

	raw := strings.Join([]string{
		"def process(data):",
		"    # TODO clean this up",
		"    total = 0",
		"    for item in data:",
		"        total += item",
		"    if total > 100:",
		"        total = 100",
		"    print(total)",
		"    return total",
	}, "\n")

	result := g.Run(context.Background(), engine.State{"raw_code": raw})
	require.NoError(t, result.Err)

	visited := make([]string, 0, len(result.History))
	for _, h := range result.History {
		visited = append(visited, h.Node)
	}
	assert.Equal(t, []string{
		"extract",
		"complexity", "issues", "improve",
		"complexity", "issues", "improve",
		"complexity", "issues",
	}, visited)

	assert.Equal(t, 5, result.FinalState["complexity_score"])
	assert.Equal(t, []any{"Found TODO comments"}, result.FinalState["issues"])
	assert.NotContains(t, result.FinalState, "_warning")

	// The first detect pass saw both triggers.
	firstIssues := result.History[2].StateSnapshot["issues"]
	assert.Equal(t, []any{"High complexity detected", "Found TODO comments"}, firstIssues)
}

func TestReviewLoop_LowComplexitySkipsImprovement(t *testing.T) {
	reg := registry.New(zap.NewNop())
	RegisterTools(reg)
	g := NewGraph(reg)

	result := g.Run(context.Background(), engine.State{"raw_code": "def ok():\n    return 1"})
	require.NoError(t, result.Err)
	require.Len(t, result.History, 3)
	assert.Equal(t, "issues", result.History[2].Node)
	assert.NotContains(t, result.FinalState, "suggestions")
}
