package game

import "errors"

// Validation failures are returned synchronously and never touch shared
// state; the API layer maps them onto status codes with errors.Is.
var (
	// ErrInvalidNode rejects a move whose source or target is not part
	// of the room's fixed node set.
	ErrInvalidNode = errors.New("move references a node outside the room")

	// ErrBudgetExceeded rejects a move that would push the player past
	// the K-point cap for the open round. The ledger is unchanged.
	ErrBudgetExceeded = errors.New("move exceeds the player's point budget for this round")

	// ErrRoundClosed rejects a move or reset once the round in question
	// can no longer accept input.
	ErrRoundClosed = errors.New("round is closed to further input")

	// ErrUnknownPlayer rejects operations naming a player that is not a
	// member of the room.
	ErrUnknownPlayer = errors.New("player is not a member of the room")

	// ErrRoundNotReady rejects an advance while players still hold
	// unspent budget and have not passed.
	ErrRoundNotReady = errors.New("round is not ready to advance")

	// ErrRoomFaulted is returned for every operation after an internal
	// fault during resolution or scoring halted the room.
	ErrRoomFaulted = errors.New("room halted after an internal fault")
)
