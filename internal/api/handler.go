// Package api exposes the core over HTTP. It is a thin collaborator: it
// decodes requests, calls the engine, and encodes snapshots; all game rules
// live below it.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shizuo-kaji/markov-game/internal/engine"
	"github.com/shizuo-kaji/markov-game/internal/history"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng *engine.Engine
	mux *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine) http.Handler {
	h := &Handler{eng: eng, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/rooms", h.createRoom)
	h.mux.HandleFunc("GET /v1/rooms", h.listRooms)
	h.mux.HandleFunc("GET /v1/rooms/{id}", h.getRoom)
	h.mux.HandleFunc("DELETE /v1/rooms/{id}", h.deleteRoom)
	h.mux.HandleFunc("POST /v1/rooms/{id}/moves", h.submitMove)
	h.mux.HandleFunc("POST /v1/rooms/{id}/reset", h.resetMoves)
	h.mux.HandleFunc("POST /v1/rooms/{id}/pass", h.passTurn)
	h.mux.HandleFunc("POST /v1/rooms/{id}/advance", h.advanceTurn)
	h.mux.HandleFunc("GET /v1/rooms/{id}/ready", h.readyToAdvance)
	h.mux.HandleFunc("GET /v1/rooms/{id}/rounds/{index}", h.getRound)
	h.mux.HandleFunc("GET /v1/rooms/{id}/rounds/{index}/replay", h.replayRound)
	h.mux.HandleFunc("POST /v1/rooms/{id}/players/{playerID}/rename", h.renamePlayer)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// POST /v1/rooms — create a room; zero-valued params inherit defaults.
func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var params engine.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if params.Name == "" {
		writeError(w, http.StatusBadRequest, "room name is required")
		return
	}
	snap, err := h.eng.CreateRoom(params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// GET /v1/rooms — list active rooms.
func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": h.eng.ListRooms()})
}

// GET /v1/rooms/{id} — full room snapshot.
func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	snap, err := h.eng.RoomSnapshot(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DELETE /v1/rooms/{id}
func (h *Handler) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.eng.DeleteRoom(r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	PlayerID string `json:"player_id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Delta    int    `json:"delta"`
}

// POST /v1/rooms/{id}/moves — submit one move for the open round.
func (h *Handler) submitMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	move, remaining, err := h.eng.SubmitMove(r.PathValue("id"), req.PlayerID, req.Source, req.Target, req.Delta)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"move":      move,
		"remaining": remaining,
	})
}

type playerRequest struct {
	PlayerID string `json:"player_id"`
}

// POST /v1/rooms/{id}/reset — cancel the caller's pending moves.
func (h *Handler) resetMoves(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if err := h.eng.ResetPlayerMoves(r.PathValue("id"), req.PlayerID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// POST /v1/rooms/{id}/pass — declare the round done with budget left.
func (h *Handler) passTurn(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if err := h.eng.PassTurn(r.PathValue("id"), req.PlayerID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// POST /v1/rooms/{id}/advance — resolve the ready round (idempotent).
func (h *Handler) advanceTurn(w http.ResponseWriter, r *http.Request) {
	snap, err := h.eng.AdvanceTurn(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GET /v1/rooms/{id}/ready — poll whether the open round can resolve.
func (h *Handler) readyToAdvance(w http.ResponseWriter, r *http.Request) {
	ready, err := h.eng.ReadyToAdvance(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": ready})
}

// GET /v1/rooms/{id}/rounds/{index} — stored snapshot of a resolved round.
// With ?completed=1 the body is just the completion flag, which stays
// useful for pollers while a round is still open.
func (h *Handler) getRound(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 1 {
		writeError(w, http.StatusBadRequest, "round index must be a positive integer")
		return
	}
	if r.URL.Query().Get("completed") != "" {
		done, err := h.eng.TurnCompleted(roomID, index)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"completed": done})
		return
	}
	snap, err := h.eng.Round(roomID, index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GET /v1/rooms/{id}/rounds/{index}/replay — recompute the stored round's
// scores through the same scorer and report both vectors and their drift.
func (h *Handler) replayRound(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 1 {
		writeError(w, http.StatusBadRequest, "round index must be a positive integer")
		return
	}
	recorded, recomputed, err := h.eng.ReplayRound(r.PathValue("id"), index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recorded":   recorded,
		"recomputed": recomputed,
		"drift":      history.Drift(recorded, recomputed),
	})
}

type renameRequest struct {
	Name string `json:"name"`
}

// POST /v1/rooms/{id}/players/{playerID}/rename
func (h *Handler) renamePlayer(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.eng.RenamePlayer(r.PathValue("id"), r.PathValue("playerID"), req.Name); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if the archive queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.ArchiveQueueUtilization()
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"archive_queue_use": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"archive_queue_use": util,
	})
}
