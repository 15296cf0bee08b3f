package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shizuo-kaji/markov-game/internal/engine"
	"github.com/shizuo-kaji/markov-game/internal/game"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps core sentinels onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownRoom),
		errors.Is(err, engine.ErrUnknownRound),
		errors.Is(err, game.ErrUnknownPlayer),
		errors.Is(err, game.ErrInvalidNode):
		return http.StatusNotFound
	case errors.Is(err, game.ErrBudgetExceeded),
		errors.Is(err, game.ErrRoundClosed),
		errors.Is(err, game.ErrRoundNotReady),
		errors.Is(err, engine.ErrRoomLimit):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrRoomFaulted):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
