package history

import (
	"fmt"
	"sync"
)

// MemoryStore is the in-process round archive, keyed by room. Appends only:
// a round index can be recorded once and never overwritten.
type MemoryStore struct {
	mu     sync.RWMutex
	byRoom map[string][]Snapshot
}

// NewMemoryStore allocates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byRoom: make(map[string][]Snapshot)}
}

// Record appends a round snapshot. Rounds must arrive in order: the snapshot
// index has to be exactly one past the last recorded round for its room.
func (s *MemoryStore) Record(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	have := s.byRoom[snap.RoomID]
	if snap.Index != len(have)+1 {
		return fmt.Errorf("history: room %s round %d out of order (have %d rounds)", snap.RoomID, snap.Index, len(have))
	}
	s.byRoom[snap.RoomID] = append(have, snap)
	return nil
}

// Round returns the snapshot for one round of a room.
func (s *MemoryStore) Round(roomID string, index int) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	have := s.byRoom[roomID]
	if index < 1 || index > len(have) {
		return Snapshot{}, false
	}
	return have[index-1], true
}

// Rounds returns all recorded snapshots of a room in round order.
func (s *MemoryStore) Rounds(roomID string) []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Snapshot(nil), s.byRoom[roomID]...)
}

// DropRoom discards the in-memory record of a deleted room. The SQLite
// archive, when configured, keeps its copy.
func (s *MemoryStore) DropRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byRoom, roomID)
}
