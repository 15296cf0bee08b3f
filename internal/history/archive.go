package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS rounds (
	room_id     TEXT    NOT NULL,
	round_index INTEGER NOT NULL,
	snapshot    TEXT    NOT NULL,
	recorded_at INTEGER NOT NULL,
	PRIMARY KEY (room_id, round_index)
);`

// Archive persists round snapshots to SQLite so history survives restarts
// and room deletion. Insert-only, mirroring the append-only contract of the
// in-memory store.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens (and if needed initializes) the SQLite archive at path.
func OpenArchive(path string) (*Archive, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history: archive path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping archive: %w", err)
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: init archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the SQLite handle.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Record inserts one snapshot. A duplicate (room, round) pair is an error;
// prior rounds are never rewritten.
func (a *Archive) Record(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("history: encode snapshot: %w", err)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO rounds (room_id, round_index, snapshot, recorded_at) VALUES (?, ?, ?, ?)`,
		snap.RoomID, snap.Index, string(body), snap.RecordedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("history: archive room %s round %d: %w", snap.RoomID, snap.Index, err)
	}
	return nil
}

// Round loads one archived snapshot.
func (a *Archive) Round(ctx context.Context, roomID string, index int) (Snapshot, error) {
	var body string
	err := a.db.QueryRowContext(ctx,
		`SELECT snapshot FROM rounds WHERE room_id = ? AND round_index = ?`,
		roomID, index,
	).Scan(&body)
	if err != nil {
		return Snapshot{}, fmt.Errorf("history: load room %s round %d: %w", roomID, index, err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("history: decode room %s round %d: %w", roomID, index, err)
	}
	return snap, nil
}

// RoundCount reports how many rounds are archived for a room.
func (a *Archive) RoundCount(ctx context.Context, roomID string) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rounds WHERE room_id = ?`, roomID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("history: count rounds for room %s: %w", roomID, err)
	}
	return n, nil
}
