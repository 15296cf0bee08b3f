package graph

import "fmt"

// Kind discriminates player-owned nodes from neutral ones.
type Kind string

const (
	KindPlayer  Kind = "player"
	KindNeutral Kind = "neutral"
)

// Node is one vertex of a room's board. The node set is fixed at room
// creation; only display names may change afterwards.
type Node struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	DisplayName string `json:"display_name"`
}

// EdgeKey identifies an ordered pair of node indices. Self-loops
// (Source == Target) are valid edges.
type EdgeKey struct {
	Source int
	Target int
}

// Graph holds the node set and the n×n weighted adjacency for one room.
// The node set is immutable once built; weights are only replaced wholesale
// via SetWeights so a half-applied update is never observable.
type Graph struct {
	nodes   []Node
	index   map[string]int
	weights [][]float64
}

// New builds a Graph over nodes with an all-zero adjacency.
// Node IDs must be unique.
func New(nodes []Node) (*Graph, error) {
	idx := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("graph: node %d has empty id", i)
		}
		if _, dup := idx[n.ID]; dup {
			return nil, fmt.Errorf("graph: duplicate node id %q", n.ID)
		}
		idx[n.ID] = i
	}
	g := &Graph{
		nodes:   append([]Node(nil), nodes...),
		index:   idx,
		weights: zeroMatrix(len(nodes)),
	}
	return g, nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Nodes returns a copy of the node descriptors in index order.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// IndexOf resolves a node ID to its matrix index.
func (g *Graph) IndexOf(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// NodeAt returns the node descriptor at index i.
func (g *Graph) NodeAt(i int) Node { return g.nodes[i] }

// Weight returns the current weight of edge (i,j).
func (g *Graph) Weight(i, j int) float64 { return g.weights[i][j] }

// Weights returns a deep copy of the adjacency matrix.
func (g *Graph) Weights() [][]float64 {
	return copyMatrix(g.weights)
}

// SetDisplayName renames a node. The node ID and index are unaffected.
func (g *Graph) SetDisplayName(id, name string) bool {
	i, ok := g.index[id]
	if !ok {
		return false
	}
	g.nodes[i].DisplayName = name
	return true
}

// WithDeltas returns a new adjacency matrix with the consolidated deltas
// applied on top of the current weights. Every updated entry is floored at
// zero; a sabotage move can empty an edge but never drive it negative.
// The receiver is not modified.
func (g *Graph) WithDeltas(deltas map[EdgeKey]int) ([][]float64, error) {
	n := len(g.nodes)
	out := copyMatrix(g.weights)
	for k, d := range deltas {
		if k.Source < 0 || k.Source >= n || k.Target < 0 || k.Target >= n {
			return nil, fmt.Errorf("graph: delta references edge (%d,%d) outside %d nodes", k.Source, k.Target, n)
		}
		w := out[k.Source][k.Target] + float64(d)
		if w < 0 {
			w = 0
		}
		out[k.Source][k.Target] = w
	}
	return out, nil
}

// SetWeights replaces the adjacency matrix. The matrix must be n×n.
func (g *Graph) SetWeights(w [][]float64) error {
	n := len(g.nodes)
	if len(w) != n {
		return fmt.Errorf("graph: weights have %d rows, want %d", len(w), n)
	}
	for i, row := range w {
		if len(row) != n {
			return fmt.Errorf("graph: weights row %d has %d columns, want %d", i, len(row), n)
		}
	}
	g.weights = copyMatrix(w)
	return nil
}

// Snapshot is the wire/persistence form of a Graph: node descriptors plus a
// plain nested numeric matrix.
type Snapshot struct {
	Nodes   []Node      `json:"nodes"`
	Weights [][]float64 `json:"weights"`
}

// Snapshot returns a detached copy of the graph in wire form.
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{Nodes: g.Nodes(), Weights: g.Weights()}
}

func zeroMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

func copyMatrix(src [][]float64) [][]float64 {
	out := make([][]float64, len(src))
	for i, row := range src {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
