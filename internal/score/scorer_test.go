package score_test

import (
	"math"
	"testing"

	"github.com/shizuo-kaji/markov-game/internal/score"
)

const tolerance = 1e-9

func TestScoreUniformOnSymmetricGraph(t *testing.T) {
	// Fully symmetric adjacency of equal positive weights: the stationary
	// distribution must be uniform.
	w := [][]float64{
		{1, 1, 1},
		{1, 1, 1},
		{1, 1, 1},
	}
	res, err := score.Score(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Converged {
		t.Fatalf("expected convergence, ran %d iterations", res.Iterations)
	}
	for i, s := range res.Scores {
		if math.Abs(s-1.0/3.0) > tolerance {
			t.Errorf("node %d score = %v, want 1/3", i, s)
		}
	}
}

func TestScorePositiveAndNormalized(t *testing.T) {
	w := [][]float64{
		{0, 5, 0, 2},
		{1, 0, 0, 0},
		{0, 3, 0, 7},
		{2, 0, 1, 0},
	}
	res, err := score.Score(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum := 0.0
	for i, s := range res.Scores {
		if s <= 0 {
			t.Errorf("node %d score = %v, want strictly positive", i, s)
		}
		sum += s
	}
	if math.Abs(sum-1) > tolerance {
		t.Errorf("scores sum to %v, want 1", sum)
	}
}

func TestScoreDeterministic(t *testing.T) {
	w := [][]float64{
		{0.5, 2, 9},
		{4, 0, 0.25},
		{1, 1, 3},
	}
	a, err := score.Score(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := score.Score(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range a.Scores {
		if a.Scores[i] != b.Scores[i] {
			t.Errorf("node %d: repeated scoring differs: %v vs %v", i, a.Scores[i], b.Scores[i])
		}
	}
	if a.Iterations != b.Iterations {
		t.Errorf("iteration counts differ: %d vs %d", a.Iterations, b.Iterations)
	}
}

func TestScoreSingleNode(t *testing.T) {
	res, err := score.Score([][]float64{{0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Scores) != 1 || res.Scores[0] != 1 {
		t.Fatalf("scores = %v, want [1]", res.Scores)
	}
	if !res.Converged {
		t.Error("single node must report convergence")
	}
}

func TestScoreRejectsMalformedInput(t *testing.T) {
	if _, err := score.Score(nil); err == nil {
		t.Error("empty matrix: expected error")
	}
	if _, err := score.Score([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("ragged matrix: expected error")
	}
}

func TestScoreFavorsHeavierInflow(t *testing.T) {
	// Node 0 receives far more weight than the others and should hold the
	// largest stationary share.
	w := [][]float64{
		{0, 1, 1},
		{10, 0, 1},
		{10, 1, 0},
	}
	res, err := score.Score(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Scores[0] <= res.Scores[1] || res.Scores[0] <= res.Scores[2] {
		t.Errorf("node 0 should dominate, got %v", res.Scores)
	}
}
