package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shizuo-kaji/markov-game/internal/config"
	"github.com/shizuo-kaji/markov-game/internal/engine"
	"github.com/shizuo-kaji/markov-game/internal/event"
	"github.com/shizuo-kaji/markov-game/internal/game"
	"github.com/shizuo-kaji/markov-game/internal/history"
)

func newTestEngine(t *testing.T) (*engine.Engine, *event.Bus) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		Engine: config.EngineConf{
			EventBuffer:       64,
			ArchiveWorkers:    1,
			ArchiveQueueDepth: 16,
		},
		Game: config.GameConf{
			PointsPerRound:  10,
			MaxRounds:       10,
			DefaultPlayers:  2,
			DefaultNeutrals: 2,
			MaxPlayers:      16,
			MaxNeutrals:     32,
			InitialWeight:   1,
		},
	}
	bus := event.NewBus(cfg.Engine.EventBuffer)
	eng := engine.New(ctx, cfg, bus, history.NewMemoryStore(), nil)
	t.Cleanup(eng.Shutdown)
	return eng, bus
}

func collectEvents(t *testing.T, bus *event.Bus) func() []event.Event {
	t.Helper()
	ch, unsubscribe := bus.Subscribe(t.Name())
	var mu sync.Mutex
	var got []event.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			mu.Lock()
			got = append(got, ev)
			mu.Unlock()
		}
	}()
	return func() []event.Event {
		// Give in-flight publishes a moment before closing the channel.
		time.Sleep(20 * time.Millisecond)
		unsubscribe()
		<-done
		mu.Lock()
		defer mu.Unlock()
		return append([]event.Event(nil), got...)
	}
}

func countEvents(evs []event.Event, typ event.Type) int {
	n := 0
	for _, ev := range evs {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestFullGameFlow(t *testing.T) {
	eng, bus := newTestEngine(t)
	drain := collectEvents(t, bus)

	room, err := eng.CreateRoom(engine.CreateParams{
		Name:           "duel",
		Players:        2,
		Neutrals:       1,
		PointsPerRound: 2,
		MaxRounds:      1,
	})
	if err != nil {
		t.Fatalf("CreateRoom error: %v", err)
	}
	if len(room.Players) != 2 || len(room.Graph.Nodes) != 3 {
		t.Fatalf("room has %d players, %d nodes, want 2 and 3", len(room.Players), len(room.Graph.Nodes))
	}

	p0, p1 := room.Players[0].ID, room.Players[1].ID
	neutral := room.Graph.Nodes[2].ID

	if _, rem, err := eng.SubmitMove(room.ID, p0, neutral, p0, 2); err != nil || rem != 0 {
		t.Fatalf("p0 move: remaining=%d err=%v, want 0, nil", rem, err)
	}
	if _, _, err := eng.SubmitMove(room.ID, p1, neutral, p1, 2); err != nil {
		t.Fatalf("p1 move error: %v", err)
	}

	ready, err := eng.ReadyToAdvance(room.ID)
	if err != nil || !ready {
		t.Fatalf("ReadyToAdvance = %v, %v, want true, nil", ready, err)
	}

	snap, err := eng.AdvanceTurn(room.ID)
	if err != nil {
		t.Fatalf("AdvanceTurn error: %v", err)
	}
	if snap.Index != 1 {
		t.Errorf("snapshot index = %d, want 1", snap.Index)
	}

	done, err := eng.TurnCompleted(room.ID, 1)
	if err != nil || !done {
		t.Fatalf("TurnCompleted = %v, %v, want true, nil", done, err)
	}

	final, err := eng.RoomSnapshot(room.ID)
	if err != nil {
		t.Fatalf("RoomSnapshot error: %v", err)
	}
	if final.State != game.StateGameOver {
		t.Errorf("state = %s, want game_over", final.State)
	}
	if len(final.Ranking) != 2 {
		t.Errorf("ranking size = %d, want 2", len(final.Ranking))
	}

	evs := drain()
	for typ, want := range map[event.Type]int{
		event.TypeGameStart:        1,
		event.TypeMoveSubmitted:    2,
		event.TypeScoresCalculated: 1,
		event.TypeGameOver:         1,
	} {
		if got := countEvents(evs, typ); got != want {
			t.Errorf("%s events = %d, want %d", typ, got, want)
		}
	}
}

func TestConcurrentAdvanceEmitsOneScoreEvent(t *testing.T) {
	eng, bus := newTestEngine(t)

	room, err := eng.CreateRoom(engine.CreateParams{
		Name:           "race",
		Players:        2,
		Neutrals:       1,
		PointsPerRound: 1,
		MaxRounds:      2,
	})
	if err != nil {
		t.Fatalf("CreateRoom error: %v", err)
	}
	p0, p1 := room.Players[0].ID, room.Players[1].ID
	if _, _, err := eng.SubmitMove(room.ID, p0, p0, p1, 1); err != nil {
		t.Fatalf("p0 move error: %v", err)
	}
	if _, _, err := eng.SubmitMove(room.ID, p1, p1, p0, 1); err != nil {
		t.Fatalf("p1 move error: %v", err)
	}

	drain := collectEvents(t, bus)
	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := eng.AdvanceTurn(room.ID); err != nil {
				t.Errorf("AdvanceTurn error: %v", err)
			}
		}()
	}
	wg.Wait()

	evs := drain()
	if got := countEvents(evs, event.TypeScoresCalculated); got != 1 {
		t.Fatalf("scores_calculated events = %d, want exactly 1", got)
	}
}

func TestRoundsRecordedInOrderUnderContention(t *testing.T) {
	eng, _ := newTestEngine(t)

	room, err := eng.CreateRoom(engine.CreateParams{
		Name:           "marathon",
		Players:        2,
		Neutrals:       1,
		PointsPerRound: 1,
		MaxRounds:      4,
	})
	if err != nil {
		t.Fatalf("CreateRoom error: %v", err)
	}
	p0, p1 := room.Players[0].ID, room.Players[1].ID

	// Each round is resolved by racing callers; the history store must
	// still receive every round, in order.
	for round := 1; round <= 4; round++ {
		if _, _, err := eng.SubmitMove(room.ID, p0, p0, p1, 1); err != nil {
			t.Fatalf("round %d p0 move error: %v", round, err)
		}
		if _, _, err := eng.SubmitMove(room.ID, p1, p1, p0, 1); err != nil {
			t.Fatalf("round %d p1 move error: %v", round, err)
		}
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := eng.AdvanceTurn(room.ID); err != nil {
					t.Errorf("round %d AdvanceTurn error: %v", round, err)
				}
			}()
		}
		wg.Wait()
	}

	for i := 1; i <= 4; i++ {
		snap, err := eng.Round(room.ID, i)
		if err != nil {
			t.Fatalf("round %d missing from history: %v", i, err)
		}
		if snap.Index != i {
			t.Errorf("round %d stored with index %d", i, snap.Index)
		}
	}
	final, err := eng.RoomSnapshot(room.ID)
	if err != nil {
		t.Fatalf("RoomSnapshot error: %v", err)
	}
	if len(final.Rounds) != 4 {
		t.Errorf("snapshot lists %d round digests, want 4", len(final.Rounds))
	}
}

func TestReplayRoundMatches(t *testing.T) {
	eng, _ := newTestEngine(t)

	room, err := eng.CreateRoom(engine.CreateParams{
		Name:           "replayable",
		Players:        2,
		Neutrals:       2,
		PointsPerRound: 3,
		MaxRounds:      2,
	})
	if err != nil {
		t.Fatalf("CreateRoom error: %v", err)
	}
	p0, p1 := room.Players[0].ID, room.Players[1].ID
	if _, _, err := eng.SubmitMove(room.ID, p0, p1, p0, 3); err != nil {
		t.Fatalf("p0 move error: %v", err)
	}
	if err := eng.PassTurn(room.ID, p1); err != nil {
		t.Fatalf("PassTurn error: %v", err)
	}
	if _, err := eng.AdvanceTurn(room.ID); err != nil {
		t.Fatalf("AdvanceTurn error: %v", err)
	}

	recorded, recomputed, err := eng.ReplayRound(room.ID, 1)
	if err != nil {
		t.Fatalf("ReplayRound error: %v", err)
	}
	if d := history.Drift(recorded, recomputed); d < 0 || d > 1e-9 {
		t.Errorf("replay drift = %v, want <= 1e-9", d)
	}
}

func TestDeleteRoomLifecycle(t *testing.T) {
	eng, bus := newTestEngine(t)
	drain := collectEvents(t, bus)

	room, err := eng.CreateRoom(engine.CreateParams{Name: "doomed"})
	if err != nil {
		t.Fatalf("CreateRoom error: %v", err)
	}
	if got := len(eng.ListRooms()); got != 1 {
		t.Fatalf("room listing = %d entries, want 1", got)
	}

	if err := eng.DeleteRoom(room.ID); err != nil {
		t.Fatalf("DeleteRoom error: %v", err)
	}
	if _, err := eng.RoomSnapshot(room.ID); !errors.Is(err, engine.ErrUnknownRoom) {
		t.Errorf("snapshot of deleted room err = %v, want ErrUnknownRoom", err)
	}
	if err := eng.DeleteRoom(room.ID); !errors.Is(err, engine.ErrUnknownRoom) {
		t.Errorf("second delete err = %v, want ErrUnknownRoom", err)
	}
	if got := len(eng.ListRooms()); got != 0 {
		t.Errorf("room listing after delete = %d entries, want 0", got)
	}

	evs := drain()
	if got := countEvents(evs, event.TypeRoomDeleted); got != 1 {
		t.Errorf("room_deleted events = %d, want 1", got)
	}
}

func TestRoomLimitEnforced(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.CreateRoom(engine.CreateParams{Name: "too big", Players: 17})
	if !errors.Is(err, engine.ErrRoomLimit) {
		t.Fatalf("oversized room err = %v, want ErrRoomLimit", err)
	}
}

func TestUnknownRoomOperations(t *testing.T) {
	eng, _ := newTestEngine(t)
	if _, _, err := eng.SubmitMove("nope", "p", "a", "b", 1); !errors.Is(err, engine.ErrUnknownRoom) {
		t.Errorf("SubmitMove err = %v, want ErrUnknownRoom", err)
	}
	if _, err := eng.AdvanceTurn("nope"); !errors.Is(err, engine.ErrUnknownRoom) {
		t.Errorf("AdvanceTurn err = %v, want ErrUnknownRoom", err)
	}
	if _, err := eng.Round("nope", 1); !errors.Is(err, engine.ErrUnknownRoom) {
		t.Errorf("Round err = %v, want ErrUnknownRoom", err)
	}
}
