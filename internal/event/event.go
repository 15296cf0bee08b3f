// Package event defines the domain events the core emits for transport
// layers to relay, plus an in-process bus with bounded subscriber queues.
package event

import (
	"time"

	"github.com/shizuo-kaji/markov-game/internal/game"
	"github.com/shizuo-kaji/markov-game/internal/history"
)

// Type names one kind of domain event.
type Type string

const (
	TypeGameStart        Type = "game_start"
	TypeMoveSubmitted    Type = "move_submitted"
	TypeMovesReset       Type = "moves_reset"
	TypeTurnPassed       Type = "turn_passed"
	TypeScoresCalculated Type = "scores_calculated"
	TypePlayerRenamed    Type = "player_renamed"
	TypeGameOver         Type = "game_over"
	TypeRoomDeleted      Type = "room_deleted"
)

// Event is one emitted domain event. The payload fields matching Type are
// set; the rest are nil.
type Event struct {
	Type       Type      `json:"type"`
	RoomID     string    `json:"room_id"`
	OccurredAt time.Time `json:"occurred_at"`

	Move     *game.Move        `json:"move,omitempty"`
	PlayerID string            `json:"player_id,omitempty"`
	Round    *history.Snapshot `json:"round,omitempty"`
	Ranking  []game.Standing   `json:"ranking,omitempty"`
}
