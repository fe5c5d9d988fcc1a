// Package codereview ships the code-review mini-agent: four deterministic
// tools and a graph that wires them into a conditional improvement loop.
// It exists to exercise the engine end to end — conditional edges, a cycle
// with a data-driven exit, and event streaming — with predictable output.
package codereview

import (
	"context"
	"strings"

	"github.com/geekdivyxnsh/WorkFlow-Engine/engine"
	"github.com/geekdivyxnsh/WorkFlow-Engine/registry"
)

// Tool names registered by RegisterTools.
const (
	ToolExtractCode         = "extract_code"
	ToolCheckComplexity     = "check_complexity"
	ToolDetectIssues        = "detect_issues"
	ToolSuggestImprovements = "suggest_improvements"
)

// RegisterTools installs the code-review tools into the registry.
func RegisterTools(r *registry.Registry) {
	r.RegisterFunc(ToolExtractCode, ExtractCode)
	r.RegisterFunc(ToolCheckComplexity, CheckComplexity)
	r.RegisterFunc(ToolDetectIssues, DetectIssues)
	r.RegisterFunc(ToolSuggestImprovements, SuggestImprovements)
}

// ExtractCode collects function definition lines from raw_code.
func ExtractCode(ctx context.Context, state engine.State) (engine.State, error) {
	raw, _ := state["raw_code"].(string)
	functions := make([]any, 0)
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "func ") {
			functions = append(functions, trimmed)
		}
	}
	return engine.State{"functions": functions}, nil
}

// CheckComplexity scores raw_code by its number of non-empty lines,
// clamped to 1..10. An existing score (set by a previous improvement
// pass) is reused unchanged so the loop can converge.
func CheckComplexity(ctx context.Context, state engine.State) (engine.State, error) {
	if score, ok := state["complexity_score"]; ok {
		return engine.State{"complexity_score": score}, nil
	}

	raw, _ := state["raw_code"].(string)
	lines := 0
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	score := lines
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return engine.State{"complexity_score": score}, nil
}

// DetectIssues flags high complexity and leftover TODO markers.
func DetectIssues(ctx context.Context, state engine.State) (engine.State, error) {
	issues := make([]any, 0)
	if complexityScore(state) > 7 {
		issues = append(issues, "High complexity detected")
	}
	raw, _ := state["raw_code"].(string)
	if strings.Contains(strings.ToLower(raw), "todo") {
		issues = append(issues, "Found TODO comments")
	}
	return engine.State{"issues": issues}, nil
}

// SuggestImprovements proposes fixes for detected issues and lowers the
// complexity score by two, floored at zero, to drive the loop forward.
func SuggestImprovements(ctx context.Context, state engine.State) (engine.State, error) {
	suggestions := make([]any, 0)
	if issues, ok := state["issues"].([]any); ok {
		for _, issue := range issues {
			switch issue {
			case "High complexity detected":
				suggestions = append(suggestions, "Refactor long functions into smaller ones")
			case "Found TODO comments":
				suggestions = append(suggestions, "Resolve pending TODOs")
			}
		}
	}

	score := complexityScore(state) - 2
	if score < 0 {
		score = 0
	}
	return engine.State{"suggestions": suggestions, "complexity_score": score}, nil
}

// NewGraph builds the review loop:
//
//	extract → complexity → issues
//	issues  → improve        (only while complexity_score > 5)
//	improve → complexity     (loop back to re-score)
//
// The run terminates when the guard fails, not by the step cap.
func NewGraph(r *registry.Registry) *engine.Graph {
	g := engine.NewGraph()

	g.AddNode("extract", r.Get(ToolExtractCode))
	g.AddNode("complexity", r.Get(ToolCheckComplexity))
	g.AddNode("issues", r.Get(ToolDetectIssues))
	g.AddNode("improve", r.Get(ToolSuggestImprovements))

	g.AddEdge("extract", "complexity")
	g.AddEdge("complexity", "issues")
	g.AddConditionalEdge("issues", "improve", engine.PredicateFunc(NeedsImprovement))
	g.AddEdge("improve", "complexity")

	g.SetEntry("extract")
	return g
}

// NeedsImprovement is the loop guard: keep improving while the score is
// above five.
func NeedsImprovement(ctx context.Context, state engine.State) (bool, error) {
	return complexityScore(state) > 5, nil
}

// complexityScore reads complexity_score tolerantly; JSON decoding turns
// numbers into float64 while the tools themselves write int.
func complexityScore(state engine.State) int {
	switch v := state["complexity_score"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
