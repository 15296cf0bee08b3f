package history

import (
	"fmt"

	"github.com/shizuo-kaji/markov-game/internal/score"
)

// RoundSource is anything that can produce a stored round snapshot.
// Both MemoryStore and engine-level wrappers satisfy it.
type RoundSource interface {
	Round(roomID string, index int) (Snapshot, bool)
}

// ReplayScore re-runs the stationary scorer over the stored post-resolution
// adjacency of a closed round. Because the scorer is pure and its constants
// fixed, the result must match the recorded score vector within numerical
// tolerance; callers compare via Drift.
func ReplayScore(src RoundSource, roomID string, index int) ([]float64, error) {
	snap, ok := src.Round(roomID, index)
	if !ok {
		return nil, fmt.Errorf("history: room %s has no round %d", roomID, index)
	}
	res, err := score.Score(snap.AdjacencyAfter)
	if err != nil {
		return nil, fmt.Errorf("history: replay room %s round %d: %w", roomID, index, err)
	}
	return res.Scores, nil
}

// Drift returns the largest absolute componentwise difference between two
// score vectors. Vectors of different lengths report -1.
func Drift(a, b []float64) float64 {
	if len(a) != len(b) {
		return -1
	}
	max := 0.0
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d > max {
			max = d
		}
	}
	return max
}
