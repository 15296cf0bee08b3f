package game

import (
	"time"

	"github.com/shizuo-kaji/markov-game/internal/graph"
)

// RoundDigest summarizes one resolved round inside a room snapshot. The
// full record (adjacencies and moves) lives in the history store.
type RoundDigest struct {
	Index      int       `json:"index"`
	Scores     []float64 `json:"scores"`
	Converged  bool      `json:"converged"`
	RecordedAt time.Time `json:"recorded_at"`
}

// PlayerView is one player's row in a room snapshot, including the ledger
// state for the open round.
type PlayerView struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AI        bool    `json:"ai"`
	Score     float64 `json:"score"`
	Spent     int     `json:"spent"`
	Remaining int     `json:"remaining"`
	Passed    bool    `json:"passed"`
}

// RoomSnapshot is the full state view handed to collaborators. Everything
// in it is a copy; holding one never blocks the room.
type RoomSnapshot struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	PointsPerRound  int            `json:"points_per_round"`
	MaxRounds       int            `json:"max_rounds"`
	Round           int            `json:"round"`
	State           State          `json:"state"`
	Players         []PlayerView   `json:"players"`
	Graph           graph.Snapshot `json:"graph"`
	PendingMoves    []Move         `json:"pending_moves"`
	CompletedRounds int            `json:"completed_rounds"`
	Rounds          []RoundDigest  `json:"rounds"`
	Ranking         []Standing     `json:"ranking,omitempty"`
	Faulted         bool           `json:"faulted"`
}

// Snapshot captures the room's current state.
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]PlayerView, len(r.players))
	for i, p := range r.players {
		spent, remaining := r.ledger.query(p.ID)
		players[i] = PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			AI:        p.AI,
			Score:     p.Score,
			Spent:     spent,
			Remaining: remaining,
			Passed:    r.passed[p.ID],
		}
	}

	snap := RoomSnapshot{
		ID:              r.id,
		Name:            r.name,
		PointsPerRound:  r.k,
		MaxRounds:       r.s,
		Round:           r.round,
		State:           r.state,
		Players:         players,
		Graph:           r.g.Snapshot(),
		PendingMoves:    append([]Move(nil), r.moves...),
		CompletedRounds: r.round - 1,
		Rounds:          append([]RoundDigest(nil), r.digests...),
		Faulted:         r.faulted,
	}
	if r.state == StateGameOver {
		snap.Ranking = r.rankingLocked()
	}
	return snap
}
