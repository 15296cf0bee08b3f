// Package history keeps the append-only per-round record of every room:
// adjacency before and after resolution, the moves that produced it, and the
// resulting score vector. Stored shapes are plain nested numeric structures
// so any replay consumer can read them.
package history

import "time"

// Move is the persisted form of one accepted move.
type Move struct {
	ID       string `json:"id"`
	PlayerID string `json:"player_id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Delta    int    `json:"delta"`
	Round    int    `json:"round"`
}

// Snapshot is the immutable record of one resolved round.
type Snapshot struct {
	RoomID          string      `json:"room_id"`
	Index           int         `json:"index"`
	AdjacencyBefore [][]float64 `json:"adjacency_before"`
	Moves           []Move      `json:"moves"`
	AdjacencyAfter  [][]float64 `json:"adjacency_after"`
	Scores          []float64   `json:"scores"`
	Iterations      int         `json:"iterations"`
	Converged       bool        `json:"converged"`
	RecordedAt      time.Time   `json:"recorded_at"`
}
