// Package engine owns the room registry and ties the core together: it
// routes operations to rooms, wires each room to the history store,
// archives snapshots in the background, and publishes domain events.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shizuo-kaji/markov-game/internal/config"
	"github.com/shizuo-kaji/markov-game/internal/event"
	"github.com/shizuo-kaji/markov-game/internal/game"
	"github.com/shizuo-kaji/markov-game/internal/history"
	"github.com/shizuo-kaji/markov-game/internal/metrics"
)

// ErrUnknownRoom is returned when an operation names a room the engine does
// not hold.
var ErrUnknownRoom = errors.New("room not found")

// ErrRoomLimit rejects room creation beyond the configured caps.
var ErrRoomLimit = errors.New("room parameters exceed configured limits")

// ErrUnknownRound is returned when a queried round has not resolved yet.
var ErrUnknownRound = errors.New("round not recorded")

// RoomInfo is one row of the room listing.
type RoomInfo struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Players int        `json:"players"`
	Round   int        `json:"round"`
	State   game.State `json:"state"`
}

// CreateParams are the caller-supplied room settings. Zero values fall back
// to the engine's current game defaults.
type CreateParams struct {
	Name           string `json:"name"`
	Players        int    `json:"num_players"`
	Neutrals       int    `json:"num_neutrals"`
	PointsPerRound int    `json:"points_per_round"`
	MaxRounds      int    `json:"max_rounds"`
	AISeats        []int  `json:"ai_seats"`
}

// Engine is the room-keyed store plus the facade every collaborator talks
// to. Rooms serialize their own mutations; the engine's lock only guards
// the registry map.
type Engine struct {
	mu    sync.RWMutex
	rooms map[string]*game.Room

	store    *history.MemoryStore
	archive  *history.Archive // nil when archiving is disabled
	bus      *event.Bus
	defaults atomic.Pointer[config.GameConf]

	archivePool *workerPool[history.Snapshot]
}

// New creates an Engine and starts its background archive workers. archive
// may be nil.
func New(ctx context.Context, cfg *config.Config, bus *event.Bus, store *history.MemoryStore, archive *history.Archive) *Engine {
	e := &Engine{
		rooms:   make(map[string]*game.Room),
		store:   store,
		archive: archive,
		bus:     bus,
	}
	defaults := cfg.Game
	e.defaults.Store(&defaults)

	e.archivePool = newWorkerPool(ctx, cfg.Engine.ArchiveWorkers, cfg.Engine.ArchiveQueueDepth,
		func(ctx context.Context, snap history.Snapshot) {
			if e.archive == nil {
				return
			}
			if err := e.archive.Record(ctx, snap); err != nil {
				slog.Error("archive round snapshot", "room", snap.RoomID, "round", snap.Index, "err", err)
				metrics.SnapshotsArchived.WithLabelValues("error").Inc()
				return
			}
			metrics.SnapshotsArchived.WithLabelValues("ok").Inc()
		})
	return e
}

// SwapDefaults atomically replaces the room-creation defaults (used on
// config hot-reload). Existing rooms are unaffected.
func (e *Engine) SwapDefaults(gc config.GameConf) {
	e.defaults.Store(&gc)
}

// CreateRoom builds a room and registers it. Unset numeric params inherit
// the engine defaults.
func (e *Engine) CreateRoom(p CreateParams) (game.RoomSnapshot, error) {
	d := e.defaults.Load()
	if p.Players == 0 {
		p.Players = d.DefaultPlayers
	}
	if p.Neutrals == 0 {
		p.Neutrals = d.DefaultNeutrals
	}
	if p.PointsPerRound == 0 {
		p.PointsPerRound = d.PointsPerRound
	}
	if p.MaxRounds == 0 {
		p.MaxRounds = d.MaxRounds
	}
	if p.Players > d.MaxPlayers || p.Neutrals > d.MaxNeutrals {
		return game.RoomSnapshot{}, ErrRoomLimit
	}

	room, err := game.NewRoom(uuid.NewString(), game.Params{
		Name:           p.Name,
		Players:        p.Players,
		Neutrals:       p.Neutrals,
		PointsPerRound: p.PointsPerRound,
		MaxRounds:      p.MaxRounds,
		InitialWeight:  d.InitialWeight,
		AISeats:        p.AISeats,
	})
	if err != nil {
		return game.RoomSnapshot{}, err
	}
	room.SetRecorder(e.store)

	e.mu.Lock()
	e.rooms[room.ID()] = room
	e.mu.Unlock()
	metrics.ActiveRooms.Inc()

	e.bus.Publish(event.Event{
		Type:       event.TypeGameStart,
		RoomID:     room.ID(),
		OccurredAt: time.Now().UTC(),
	})
	return room.Snapshot(), nil
}

// DeleteRoom removes a room and its in-memory history. Archived rounds
// survive deletion.
func (e *Engine) DeleteRoom(roomID string) error {
	e.mu.Lock()
	_, ok := e.rooms[roomID]
	if ok {
		delete(e.rooms, roomID)
	}
	e.mu.Unlock()
	if !ok {
		return ErrUnknownRoom
	}
	metrics.ActiveRooms.Dec()
	e.store.DropRoom(roomID)
	e.bus.Publish(event.Event{
		Type:       event.TypeRoomDeleted,
		RoomID:     roomID,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// ListRooms returns a listing row for every active room.
func (e *Engine) ListRooms() []RoomInfo {
	e.mu.RLock()
	rooms := make([]*game.Room, 0, len(e.rooms))
	for _, r := range e.rooms {
		rooms = append(rooms, r)
	}
	e.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		snap := r.Snapshot()
		out = append(out, RoomInfo{
			ID:      snap.ID,
			Name:    snap.Name,
			Players: len(snap.Players),
			Round:   snap.Round,
			State:   snap.State,
		})
	}
	return out
}

// RoomSnapshot returns the full state view of one room.
func (e *Engine) RoomSnapshot(roomID string) (game.RoomSnapshot, error) {
	r, err := e.room(roomID)
	if err != nil {
		return game.RoomSnapshot{}, err
	}
	return r.Snapshot(), nil
}

// SubmitMove validates and records one move; the submitter may be a human
// or an AI driver, the engine does not distinguish.
func (e *Engine) SubmitMove(roomID, playerID, source, target string, delta int) (game.Move, int, error) {
	r, err := e.room(roomID)
	if err != nil {
		return game.Move{}, 0, err
	}
	m, remaining, err := r.SubmitMove(playerID, source, target, delta)
	if err != nil {
		metrics.MovesRejected.WithLabelValues(rejectReason(err)).Inc()
		return game.Move{}, remaining, err
	}
	metrics.MovesSubmitted.Inc()
	e.bus.Publish(event.Event{
		Type:       event.TypeMoveSubmitted,
		RoomID:     roomID,
		OccurredAt: time.Now().UTC(),
		Move:       &m,
		PlayerID:   playerID,
	})
	return m, remaining, nil
}

// ResetPlayerMoves cancels the player's pending moves for the open round.
func (e *Engine) ResetPlayerMoves(roomID, playerID string) error {
	r, err := e.room(roomID)
	if err != nil {
		return err
	}
	if err := r.ResetPlayer(playerID); err != nil {
		return err
	}
	e.bus.Publish(event.Event{
		Type:       event.TypeMovesReset,
		RoomID:     roomID,
		OccurredAt: time.Now().UTC(),
		PlayerID:   playerID,
	})
	return nil
}

// PassTurn marks the player done for the open round.
func (e *Engine) PassTurn(roomID, playerID string) error {
	r, err := e.room(roomID)
	if err != nil {
		return err
	}
	if err := r.PassTurn(playerID); err != nil {
		return err
	}
	e.bus.Publish(event.Event{
		Type:       event.TypeTurnPassed,
		RoomID:     roomID,
		OccurredAt: time.Now().UTC(),
		PlayerID:   playerID,
	})
	return nil
}

// AdvanceTurn resolves the ready round. Idempotent: concurrent or repeated
// calls produce exactly one resolution; later callers get the same snapshot
// back without re-executing it.
func (e *Engine) AdvanceTurn(roomID string) (history.Snapshot, error) {
	r, err := e.room(roomID)
	if err != nil {
		return history.Snapshot{}, err
	}

	start := time.Now()
	snap, resolved, err := r.Advance()
	if err != nil {
		return history.Snapshot{}, err
	}
	if !resolved {
		return snap, nil
	}

	metrics.RoundsResolved.Inc()
	metrics.ResolutionDuration.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	metrics.ScoreIterations.Observe(float64(snap.Iterations))
	if !snap.Converged {
		metrics.ScoreNonConverged.Inc()
		slog.Warn("power iteration hit cap before converging",
			"room", roomID, "round", snap.Index, "iterations", snap.Iterations)
	}

	// The in-memory store was already written by the room, inside its
	// critical section, so rounds land there in order. Only the keyed
	// SQLite archive runs asynchronously.
	if e.archive != nil {
		if !e.archivePool.Submit(snap) {
			slog.Warn("archive queue full, snapshot dropped", "room", roomID, "round", snap.Index)
			metrics.SnapshotsArchived.WithLabelValues("dropped").Inc()
		}
	}

	now := time.Now().UTC()
	e.bus.Publish(event.Event{
		Type:       event.TypeScoresCalculated,
		RoomID:     roomID,
		OccurredAt: now,
		Round:      &snap,
	})
	if r.GameOver() {
		e.bus.Publish(event.Event{
			Type:       event.TypeGameOver,
			RoomID:     roomID,
			OccurredAt: now,
			Ranking:    r.Ranking(),
		})
	}
	return snap, nil
}

// ReadyToAdvance reports whether the room's open round can resolve.
func (e *Engine) ReadyToAdvance(roomID string) (bool, error) {
	r, err := e.room(roomID)
	if err != nil {
		return false, err
	}
	return r.ReadyToAdvance(), nil
}

// TurnCompleted reports whether the given round of the room has resolved.
func (e *Engine) TurnCompleted(roomID string, round int) (bool, error) {
	r, err := e.room(roomID)
	if err != nil {
		return false, err
	}
	return r.TurnCompleted(round), nil
}

// RenamePlayer updates a player's display name.
func (e *Engine) RenamePlayer(roomID, playerID, newName string) error {
	r, err := e.room(roomID)
	if err != nil {
		return err
	}
	if err := r.RenamePlayer(playerID, newName); err != nil {
		return err
	}
	e.bus.Publish(event.Event{
		Type:       event.TypePlayerRenamed,
		RoomID:     roomID,
		OccurredAt: time.Now().UTC(),
		PlayerID:   playerID,
	})
	return nil
}

// Round returns the stored snapshot of a resolved round.
func (e *Engine) Round(roomID string, index int) (history.Snapshot, error) {
	if _, err := e.room(roomID); err != nil {
		return history.Snapshot{}, err
	}
	snap, ok := e.store.Round(roomID, index)
	if !ok {
		return history.Snapshot{}, ErrUnknownRound
	}
	return snap, nil
}

// ReplayRound re-scores a stored round and returns (recorded, recomputed).
// The two must agree within numerical tolerance.
func (e *Engine) ReplayRound(roomID string, index int) ([]float64, []float64, error) {
	snap, err := e.Round(roomID, index)
	if err != nil {
		return nil, nil, err
	}
	recomputed, err := history.ReplayScore(e.store, roomID, index)
	if err != nil {
		return nil, nil, err
	}
	return snap.Scores, recomputed, nil
}

// ArchiveQueueUtilization returns archive queue used / capacity (0–1).
func (e *Engine) ArchiveQueueUtilization() float64 {
	if e.archivePool.QueueCap() == 0 {
		return 0
	}
	return float64(e.archivePool.QueueLen()) / float64(e.archivePool.QueueCap())
}

// Shutdown drains the archive pool.
func (e *Engine) Shutdown() {
	e.archivePool.Drain()
}

func (e *Engine) room(roomID string) (*game.Room, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rooms[roomID]
	if !ok {
		return nil, ErrUnknownRoom
	}
	return r, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidNode):
		return "invalid_node"
	case errors.Is(err, game.ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.Is(err, game.ErrRoundClosed):
		return "round_closed"
	case errors.Is(err, game.ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, game.ErrRoomFaulted):
		return "room_faulted"
	default:
		return "other"
	}
}
