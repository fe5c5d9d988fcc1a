package engine

// Edge is a directed, optionally guarded transition. The target is a soft
// reference: it may name a node absent from the node table, which is only
// detected (and stops the run) when the edge is actually followed.
type Edge struct {
	To        string
	Condition Predicate // nil means unconditional
}

// Graph holds the node table, per-source ordered edge lists, and the entry
// point. It is treated as immutable once a run has started; all mutation
// happens during construction.
type Graph struct {
	nodes map[string]*Node
	edges map[string][]Edge
	entry string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string][]Edge),
	}
}

// AddNode binds a name to a step, overwriting any prior binding.
func (g *Graph) AddNode(name string, step Step) {
	g.nodes[name] = &Node{Name: name, Step: step}
	if _, ok := g.edges[name]; !ok {
		g.edges[name] = nil
	}
}

// AddEdge appends an unconditional edge to the source's edge list.
func (g *Graph) AddEdge(from, to string) {
	g.edges[from] = append(g.edges[from], Edge{To: to})
}

// AddConditionalEdge appends an edge guarded by a predicate.
func (g *Graph) AddConditionalEdge(from, to string, condition Predicate) {
	g.edges[from] = append(g.edges[from], Edge{To: to, Condition: condition})
}

// SetEntry sets the entry point. The node need not exist yet; a missing
// entry is reported when the graph runs, not here.
func (g *Graph) SetEntry(name string) {
	g.entry = name
}

// Entry returns the entry point name.
func (g *Graph) Entry() string { return g.entry }

// Node retrieves a node by name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Edges returns the ordered outgoing edges for a source node.
func (g *Graph) Edges(from string) []Edge {
	return g.edges[from]
}

// NodeNames returns the names of all registered nodes.
func (g *Graph) NodeNames() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	return names
}
