package engine

import (
	"context"
	"fmt"
)

// Node binds a unique name to a step function.
type Node struct {
	Name string
	Step Step
}

// run executes the node's step under a failure boundary. A returned error
// or a panic never escapes: it is converted into a diagnostic update so
// the graph can continue (or at least fail gracefully).
func (n *Node) run(ctx context.Context, state State) (updates State) {
	defer func() {
		if r := recover(); r != nil {
			updates = n.failureUpdate(fmt.Sprintf("%v", r))
		}
	}()

	updates, err := n.Step.Execute(ctx, state)
	if err != nil {
		return n.failureUpdate(err.Error())
	}
	return updates
}

func (n *Node) failureUpdate(msg string) State {
	return State{
		"error":       msg,
		"failed_node": n.Name,
		"status":      "node_execution_failed",
	}
}
