// Package storage defines the durable-storage boundary for reference data.
// The cache persists a full snapshot of teams and competitions tagged with a
// load timestamp; backends only need to load and save that snapshot
// atomically. Freshness policy (24h TTL) belongs to the cache, not here.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ballerhq/baller/pkg/types"
)

// ErrNotFound is returned by Load when no snapshot has been saved yet.
var ErrNotFound = errors.New("storage: snapshot not found")

// Snapshot is the persisted form of the reference-data cache.
type Snapshot struct {
	Teams        []types.TeamRecord
	Competitions []types.CompetitionRecord
	Timestamp    time.Time // when the snapshot was fetched from the source
}

// Empty reports whether the snapshot carries no records at all.
func (s *Snapshot) Empty() bool {
	return len(s.Teams) == 0 && len(s.Competitions) == 0
}

// Age returns how old the snapshot is relative to now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// SnapshotStore loads and saves reference-data snapshots. Save replaces any
// previous snapshot wholesale; a reader must never observe a half-written
// snapshot.
type SnapshotStore interface {
	// Load returns the stored snapshot, or ErrNotFound if none exists.
	Load(ctx context.Context) (*Snapshot, error)

	// Save atomically replaces the stored snapshot.
	Save(ctx context.Context, snapshot *Snapshot) error

	// Close releases the underlying resources.
	Close() error
}
