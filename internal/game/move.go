package game

// Move is one signed edge-weight adjustment submitted by a player. Moves are
// created on submission, consumed when their round resolves, and never
// mutated. The engine does not care whether a human or an AI produced one.
type Move struct {
	ID       string `json:"id"`
	PlayerID string `json:"player_id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Delta    int    `json:"delta"`
	Round    int    `json:"round"`
}

// Cost is the number of budget points the move consumes: |Delta|.
func (m Move) Cost() int {
	if m.Delta < 0 {
		return -m.Delta
	}
	return m.Delta
}
