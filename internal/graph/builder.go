package graph

// NewComplete builds the initial board: every distinct ordered pair of nodes
// is connected with initialWeight in both directions, self-loops start at
// zero. Players come first in index order, then neutrals, so the stationary
// score vector lines up with seat order.
func NewComplete(players, neutrals []Node, initialWeight float64) (*Graph, error) {
	nodes := make([]Node, 0, len(players)+len(neutrals))
	nodes = append(nodes, players...)
	nodes = append(nodes, neutrals...)

	g, err := New(nodes)
	if err != nil {
		return nil, err
	}
	n := len(nodes)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			g.weights[i][j] = initialWeight
		}
	}
	return g, nil
}
