// Package sqlite provides a SQLite implementation of the snapshot store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ballerhq/baller/internal/storage"
	"github.com/ballerhq/baller/pkg/types"
)

// Schema creates the reference-data tables. All statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS teams (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    short_name TEXT NOT NULL DEFAULT '',
    tla        TEXT NOT NULL DEFAULT '',
    area       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS competitions (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    code TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL DEFAULT '',
    area TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS snapshot_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// SnapshotStore implements storage.SnapshotStore using SQLite.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore opens (and if needed creates) the snapshot database at
// dsn, e.g. "file:data/refdata.db" or ":memory:" for tests.
func NewSnapshotStore(dsn string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY under concurrent load; WAL
	// mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

// Load returns the stored snapshot, or storage.ErrNotFound when no snapshot
// has ever been saved.
func (s *SnapshotStore) Load(ctx context.Context) (*storage.Snapshot, error) {
	var stamp string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM snapshot_meta WHERE key = 'timestamp'").Scan(&stamp)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to read snapshot timestamp: %w", err)
	}

	timestamp, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return nil, fmt.Errorf("sqlite: corrupt snapshot timestamp %q: %w", stamp, err)
	}

	snapshot := &storage.Snapshot{Timestamp: timestamp}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, short_name, tla, area FROM teams ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load teams: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t types.TeamRecord
		if err := rows.Scan(&t.ID, &t.Name, &t.ShortName, &t.TLA, &t.AreaName); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan team row: %w", err)
		}
		snapshot.Teams = append(snapshot.Teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: team rows: %w", err)
	}

	compRows, err := s.db.QueryContext(ctx,
		"SELECT id, name, code, type, area FROM competitions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load competitions: %w", err)
	}
	defer compRows.Close()
	for compRows.Next() {
		var c types.CompetitionRecord
		if err := compRows.Scan(&c.ID, &c.Name, &c.Code, &c.Type, &c.AreaName); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan competition row: %w", err)
		}
		snapshot.Competitions = append(snapshot.Competitions, c)
	}
	if err := compRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: competition rows: %w", err)
	}

	return snapshot, nil
}

// Save replaces the stored snapshot inside a single transaction, so a
// concurrent Load sees either the old snapshot or the new one, never a mix.
func (s *SnapshotStore) Save(ctx context.Context, snapshot *storage.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("sqlite: nil snapshot")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM teams"); err != nil {
		return fmt.Errorf("sqlite: failed to clear teams: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM competitions"); err != nil {
		return fmt.Errorf("sqlite: failed to clear competitions: %w", err)
	}

	for _, t := range snapshot.Teams {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO teams (id, name, short_name, tla, area)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				short_name = excluded.short_name,
				tla = excluded.tla,
				area = excluded.area
		`, t.ID, t.Name, t.ShortName, t.TLA, t.AreaName); err != nil {
			return fmt.Errorf("sqlite: failed to insert team %d: %w", t.ID, err)
		}
	}

	for _, c := range snapshot.Competitions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO competitions (id, name, code, type, area)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				code = excluded.code,
				type = excluded.type,
				area = excluded.area
		`, c.ID, c.Name, c.Code, c.Type, c.AreaName); err != nil {
			return fmt.Errorf("sqlite: failed to insert competition %d: %w", c.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (key, value)
		VALUES ('timestamp', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, snapshot.Timestamp.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("sqlite: failed to write snapshot timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
