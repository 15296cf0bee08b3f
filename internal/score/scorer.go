// Package score computes the stationary distribution of a room's adjacency
// matrix. The resolver and post-game replay both go through Score with the
// same constants, so a replayed round can never drift from the recorded one.
package score

import "fmt"

const (
	// EpsFloor is the regularization floor applied to every entry before
	// normalization. A strictly positive matrix is irreducible and
	// aperiodic, so the stationary distribution exists and is unique.
	EpsFloor = 0.01

	// EpsConverge is the L1 threshold between successive iterates.
	EpsConverge = 1e-10

	// MaxIterations caps the power iteration. Hitting the cap is not
	// fatal; the last iterate is returned with Converged = false.
	MaxIterations = 400
)

// Result is the outcome of one scoring pass.
type Result struct {
	// Scores is the stationary probability of each node, index-aligned
	// with the adjacency matrix. Entries are strictly positive and sum
	// to 1.
	Scores []float64

	// Iterations is how many power-iteration steps ran.
	Iterations int

	// Converged reports whether the L1 residual dropped below
	// EpsConverge before MaxIterations.
	Converged bool
}

// Score computes the stationary distribution of the Markov chain induced by
// weights. The matrix is regularized with EpsFloor, row-normalized into a
// right-stochastic transition matrix, and power-iterated from the uniform
// vector. Deterministic: identical input yields identical output.
func Score(weights [][]float64) (Result, error) {
	n := len(weights)
	if n == 0 {
		return Result{}, fmt.Errorf("score: empty adjacency matrix")
	}
	for i, row := range weights {
		if len(row) != n {
			return Result{}, fmt.Errorf("score: row %d has %d columns, want %d", i, len(row), n)
		}
	}
	if n == 1 {
		return Result{Scores: []float64{1}, Converged: true}, nil
	}

	// Regularize and row-normalize in one pass.
	p := make([][]float64, n)
	for i := range weights {
		row := make([]float64, n)
		sum := 0.0
		for j, w := range weights[i] {
			if w < EpsFloor {
				w = EpsFloor
			}
			row[j] = w
			sum += w
		}
		for j := range row {
			row[j] /= sum
		}
		p[i] = row
	}

	pi := make([]float64, n)
	for i := range pi {
		pi[i] = 1.0 / float64(n)
	}

	next := make([]float64, n)
	iters := 0
	converged := false
	for iters < MaxIterations {
		iters++
		for j := 0; j < n; j++ {
			acc := 0.0
			for i := 0; i < n; i++ {
				acc += pi[i] * p[i][j]
			}
			next[j] = acc
		}
		residual := 0.0
		for j := range next {
			d := next[j] - pi[j]
			if d < 0 {
				d = -d
			}
			residual += d
		}
		pi, next = next, pi
		if residual < EpsConverge {
			converged = true
			break
		}
	}

	// Renormalize so the result sums to exactly 1 despite float drift.
	total := 0.0
	for _, v := range pi {
		total += v
	}
	for i := range pi {
		pi[i] /= total
	}

	out := append([]float64(nil), pi...)
	return Result{Scores: out, Iterations: iters, Converged: converged}, nil
}
