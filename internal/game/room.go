// Package game implements the per-room core: budget ledger, move validation,
// the round state machine, and the turn resolver that merges all accepted
// moves into one atomic graph update before scoring.
package game

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shizuo-kaji/markov-game/internal/graph"
	"github.com/shizuo-kaji/markov-game/internal/history"
	"github.com/shizuo-kaji/markov-game/internal/score"
)

// State names the phases of the round state machine. A resolved round is
// closed the moment its snapshot is recorded; the room either reopens for
// the next round in the same critical section or ends the game, so "closed"
// is only ever observable through history (Snapshot per round) and
// TurnCompleted.
type State string

const (
	// StateOpen accepts moves, passes, and resets.
	StateOpen State = "open"
	// StateReady means every player has spent the full budget or passed;
	// the next Advance resolves the round.
	StateReady State = "ready_to_advance"
	// StateResolving is held while the resolver and scorer run.
	StateResolving State = "resolving"
	// StateGameOver is terminal; the final ranking is available.
	StateGameOver State = "game_over"
)

// Player is one seat in the room. AI seats are driven by an external move
// producer; the room treats all submitters identically.
type Player struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	AI    bool    `json:"ai"`
	Score float64 `json:"score"`
}

// Params configures a new room.
type Params struct {
	Name           string
	Players        int     // N player seats
	Neutrals       int     // M neutral nodes
	PointsPerRound int     // K budget per player per round
	MaxRounds      int     // S rounds before the game ends
	InitialWeight  float64 // starting weight on every non-loop edge
	AISeats        []int   // 1-based seats flagged as AI-controlled
}

// RoundRecorder persists resolved rounds. Advance invokes it inside the
// room's critical section, so records arrive in strict round order and a
// later round can never outrun an earlier one into the store.
type RoundRecorder interface {
	Record(snap history.Snapshot) error
}

// Standing is one row of the ranking.
type Standing struct {
	Rank     int     `json:"rank"`
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
}

// Room is one independent game. A single mutex serializes every mutation,
// so no move lands mid-resolution and no two resolutions of the same round
// can race; the scorer runs synchronously inside the critical section.
type Room struct {
	mu sync.Mutex

	id        string
	name      string
	players   []*Player
	g         *graph.Graph
	k         int
	s         int
	createdAt time.Time

	round    int // 1-based index of the open round
	state    State
	ledger   *ledger
	moves    []Move
	passed   map[string]bool
	lastSnap *history.Snapshot
	digests  []RoundDigest
	recorder RoundRecorder
	faulted  bool
}

// NewRoom builds a room with N player seats, M neutral nodes, and the
// initial fully connected board.
func NewRoom(id string, p Params) (*Room, error) {
	if p.Players < 1 {
		return nil, fmt.Errorf("room: need at least one player, got %d", p.Players)
	}
	if p.Neutrals < 0 {
		return nil, fmt.Errorf("room: negative neutral count %d", p.Neutrals)
	}
	if p.PointsPerRound < 1 {
		return nil, fmt.Errorf("room: points per round must be positive, got %d", p.PointsPerRound)
	}
	if p.MaxRounds < 1 {
		return nil, fmt.Errorf("room: max rounds must be positive, got %d", p.MaxRounds)
	}
	if p.InitialWeight < 0 {
		return nil, fmt.Errorf("room: negative initial weight %g", p.InitialWeight)
	}
	ai := make(map[int]bool, len(p.AISeats))
	for _, seat := range p.AISeats {
		if seat < 1 || seat > p.Players {
			return nil, fmt.Errorf("room: AI seat %d out of range 1..%d", seat, p.Players)
		}
		ai[seat] = true
	}

	players := make([]*Player, p.Players)
	playerNodes := make([]graph.Node, p.Players)
	for i := range players {
		players[i] = &Player{
			ID:   uuid.NewString(),
			Name: fmt.Sprintf("Player-%d", i+1),
			AI:   ai[i+1],
		}
		playerNodes[i] = graph.Node{
			ID:          players[i].ID,
			Kind:        graph.KindPlayer,
			DisplayName: players[i].Name,
		}
	}
	neutralNodes := make([]graph.Node, p.Neutrals)
	for i := range neutralNodes {
		neutralNodes[i] = graph.Node{
			ID:          fmt.Sprintf("neutral-%d", i+1),
			Kind:        graph.KindNeutral,
			DisplayName: fmt.Sprintf("Neutral %d", i+1),
		}
	}

	g, err := graph.NewComplete(playerNodes, neutralNodes, p.InitialWeight)
	if err != nil {
		return nil, err
	}

	return &Room{
		id:        id,
		name:      p.Name,
		players:   players,
		g:         g,
		k:         p.PointsPerRound,
		s:         p.MaxRounds,
		createdAt: time.Now().UTC(),
		round:     1,
		state:     StateOpen,
		ledger:    newLedger(p.PointsPerRound),
		passed:    make(map[string]bool),
	}, nil
}

// SetRecorder wires the round recorder. Call once, before any round
// resolves.
func (r *Room) SetRecorder(rec RoundRecorder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorder = rec
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// Name returns the room's display name.
func (r *Room) Name() string { return r.name }

// SubmitMove validates and records a move for the open round. On success it
// returns the stored move and the player's remaining budget.
func (r *Room) SubmitMove(playerID, source, target string, delta int) (Move, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.faulted {
		return Move{}, 0, ErrRoomFaulted
	}
	if r.state == StateGameOver {
		return Move{}, 0, ErrRoundClosed
	}
	if r.playerByID(playerID) == nil {
		return Move{}, 0, ErrUnknownPlayer
	}
	if r.passed[playerID] {
		return Move{}, 0, ErrRoundClosed
	}
	if _, ok := r.g.IndexOf(source); !ok {
		return Move{}, 0, ErrInvalidNode
	}
	if _, ok := r.g.IndexOf(target); !ok {
		return Move{}, 0, ErrInvalidNode
	}

	remaining, err := r.ledger.submit(playerID, delta)
	if err != nil {
		return Move{}, remaining, err
	}

	m := Move{
		ID:       uuid.NewString(),
		PlayerID: playerID,
		Source:   source,
		Target:   target,
		Delta:    delta,
		Round:    r.round,
	}
	r.moves = append(r.moves, m)
	r.refreshReadiness()
	return m, remaining, nil
}

// PassTurn marks the player done for the open round with whatever budget is
// left unspent. A passed player cannot submit again until the round
// resolves; ResetPlayer lifts the pass.
func (r *Room) PassTurn(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.faulted {
		return ErrRoomFaulted
	}
	if r.state == StateGameOver {
		return ErrRoundClosed
	}
	if r.playerByID(playerID) == nil {
		return ErrUnknownPlayer
	}
	r.passed[playerID] = true
	r.refreshReadiness()
	return nil
}

// ResetPlayer cancels the player's pending moves for the open round and
// restores their full budget. Other players' ledgers are untouched. The
// reset window spans the whole pre-resolution phase: a reset while the room
// is ready_to_advance drops it back to open. Once the round resolves the
// moves are committed and only the next round can be reset.
func (r *Room) ResetPlayer(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.faulted {
		return ErrRoomFaulted
	}
	if r.state == StateGameOver {
		return ErrRoundClosed
	}
	if r.playerByID(playerID) == nil {
		return ErrUnknownPlayer
	}

	kept := r.moves[:0]
	for _, m := range r.moves {
		if m.PlayerID != playerID {
			kept = append(kept, m)
		}
	}
	r.moves = kept
	r.ledger.reset(playerID)
	delete(r.passed, playerID)
	r.refreshReadiness()
	return nil
}

// Budget returns (spent, remaining) for the player in the open round.
func (r *Room) Budget(playerID string) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.playerByID(playerID) == nil {
		return 0, 0, ErrUnknownPlayer
	}
	spent, remaining := r.ledger.query(playerID)
	return spent, remaining, nil
}

// ReadyToAdvance reports whether the open round can resolve. Read-only,
// safe to poll.
func (r *Room) ReadyToAdvance() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateReady
}

// TurnCompleted reports whether the given round has resolved. Read-only,
// safe to poll.
func (r *Room) TurnCompleted(round int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return round >= 1 && round < r.round
}

// CurrentRound returns the 1-based index of the open round. After game
// over it is S+1.
func (r *Room) CurrentRound() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.round
}

// GameOver reports whether the game has finished all S rounds.
func (r *Room) GameOver() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateGameOver
}

// Advance resolves the open round: consolidate all accepted moves into one
// additive update, apply it with clamp-at-zero, score the new adjacency, and
// record the snapshot. It resolves at most once per round; a duplicate call
// against an already-resolved round returns the cached snapshot with
// resolved=false and re-executes nothing.
func (r *Room) Advance() (history.Snapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.faulted {
		return history.Snapshot{}, false, ErrRoomFaulted
	}
	if r.state == StateGameOver {
		if r.lastSnap != nil {
			return *r.lastSnap, false, nil
		}
		return history.Snapshot{}, false, ErrRoundClosed
	}
	if r.state != StateReady {
		// A concurrent caller that lost the race sees the freshly
		// opened round with no activity; hand it the same result.
		if r.lastSnap != nil && len(r.moves) == 0 && len(r.passed) == 0 && r.ledger.untouched() {
			return *r.lastSnap, false, nil
		}
		return history.Snapshot{}, false, ErrRoundNotReady
	}

	r.state = StateResolving

	deltas := make(map[graph.EdgeKey]int)
	recorded := make([]history.Move, 0, len(r.moves))
	for _, m := range r.moves {
		si, ok := r.g.IndexOf(m.Source)
		if !ok {
			return history.Snapshot{}, false, r.fault(fmt.Errorf("move %s names unknown node %q", m.ID, m.Source))
		}
		ti, ok := r.g.IndexOf(m.Target)
		if !ok {
			return history.Snapshot{}, false, r.fault(fmt.Errorf("move %s names unknown node %q", m.ID, m.Target))
		}
		deltas[graph.EdgeKey{Source: si, Target: ti}] += m.Delta
		recorded = append(recorded, history.Move{
			ID:       m.ID,
			PlayerID: m.PlayerID,
			Source:   m.Source,
			Target:   m.Target,
			Delta:    m.Delta,
			Round:    m.Round,
		})
	}

	before := r.g.Weights()
	after, err := r.g.WithDeltas(deltas)
	if err != nil {
		return history.Snapshot{}, false, r.fault(err)
	}
	res, err := score.Score(after)
	if err != nil {
		return history.Snapshot{}, false, r.fault(err)
	}

	snap := history.Snapshot{
		RoomID:          r.id,
		Index:           r.round,
		AdjacencyBefore: before,
		Moves:           recorded,
		AdjacencyAfter:  after,
		Scores:          append([]float64(nil), res.Scores...),
		Iterations:      res.Iterations,
		Converged:       res.Converged,
		RecordedAt:      time.Now().UTC(),
	}
	// Record while still holding the room mutex: round N+1 cannot start
	// resolving, let alone reach the store, before round N is recorded.
	// The graph is only written once scoring and recording have succeeded,
	// so a fault never leaves a partially resolved round behind.
	if r.recorder != nil {
		if err := r.recorder.Record(snap); err != nil {
			return history.Snapshot{}, false, r.fault(err)
		}
	}
	if err := r.g.SetWeights(after); err != nil {
		return history.Snapshot{}, false, r.fault(err)
	}
	for _, p := range r.players {
		if i, ok := r.g.IndexOf(p.ID); ok {
			p.Score = res.Scores[i]
		}
	}
	r.lastSnap = &snap
	r.digests = append(r.digests, RoundDigest{
		Index:      snap.Index,
		Scores:     snap.Scores,
		Converged:  snap.Converged,
		RecordedAt: snap.RecordedAt,
	})

	r.moves = nil
	r.ledger.clear()
	r.passed = make(map[string]bool)
	r.round++
	if r.round > r.s {
		r.state = StateGameOver
	} else {
		r.state = StateOpen
	}
	return snap, true, nil
}

// Ranking returns players ordered by score descending; ties keep the
// original seat order. Final once GameOver reports true.
func (r *Room) Ranking() []Standing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rankingLocked()
}

// RenamePlayer updates the player's display name and the matching node
// label. Scores and node identity are unaffected.
func (r *Room) RenamePlayer(playerID, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.faulted {
		return ErrRoomFaulted
	}
	if newName == "" {
		return fmt.Errorf("room: empty player name")
	}
	p := r.playerByID(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	p.Name = newName
	r.g.SetDisplayName(playerID, newName)
	return nil
}

func (r *Room) playerByID(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// refreshReadiness flips Open ↔ ReadyToAdvance based on the ledger: the
// round is ready once every player has spent the full budget or passed.
func (r *Room) refreshReadiness() {
	if r.state != StateOpen && r.state != StateReady {
		return
	}
	for _, p := range r.players {
		if !r.passed[p.ID] && !r.ledger.exhausted(p.ID) {
			r.state = StateOpen
			return
		}
	}
	r.state = StateReady
}

// fault halts the room. Every later operation fails with ErrRoomFaulted.
func (r *Room) fault(err error) error {
	r.faulted = true
	return fmt.Errorf("%w: %v", ErrRoomFaulted, err)
}

func (r *Room) rankingLocked() []Standing {
	out := make([]Standing, len(r.players))
	for i, p := range r.players {
		out[i] = Standing{PlayerID: p.ID, Name: p.Name, Score: p.Score}
	}
	// Stable sort keeps the original seat order for equal scores.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
