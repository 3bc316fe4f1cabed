// Package refdata holds the canonical team and competition records the
// intent engine resolves names against. The cache is populated from durable
// storage when a fresh snapshot exists, otherwise from the remote data
// source, and guards all lookups behind a one-way readiness gate so they
// never race a partial load.
package refdata

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ballerhq/baller/internal/storage"
	"github.com/ballerhq/baller/pkg/types"
)

const (
	// DefaultTTL is how long a stored snapshot is considered fresh.
	DefaultTTL = 24 * time.Hour

	// defaultFetchTimeout bounds each individual remote fetch so a hung
	// sub-request can never stall initialization indefinitely.
	defaultFetchTimeout = 30 * time.Second
)

// topCompetitionIDs are the competitions whose teams are loaded eagerly.
var topCompetitionIDs = []int{2021, 2014, 2002, 2019, 2015}

// Source is the remote data-fetch collaborator. Failures it returns are
// logged and absorbed; they never propagate out of cache initialization.
type Source interface {
	ListCompetitions(ctx context.Context) ([]types.CompetitionRecord, error)
	ListTeams(ctx context.Context, competitionID int) ([]types.TeamRecord, error)
}

// Cache indexes teams and competitions by name and by id. Lookups block on
// the readiness gate until the first load attempt finishes; the gate opens
// exactly once and never closes again. Reloads build new indexes off to the
// side and swap them in atomically.
type Cache struct {
	source       Source
	store        storage.SnapshotStore
	logger       *zap.Logger
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	onReload     func()

	ready     chan struct{}
	readyOnce sync.Once
	loading   atomic.Bool

	invalidate chan struct{}

	mu        sync.RWMutex
	teams     map[string]types.TeamRecord // lowercased name -> record
	teamsByID map[int]types.TeamRecord
	comps     map[string]types.CompetitionRecord // lowercased name -> record
	compsByID map[int]types.CompetitionRecord
	loadedAt  time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL overrides the snapshot freshness TTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// WithFetchTimeout overrides the per-sub-fetch timeout applied to each
// remote call during population.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(c *Cache) { c.fetchTimeout = d }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithReloadHook registers a callback invoked after every successful index
// swap. The extractor's team table is refreshed through this hook.
func WithReloadHook(fn func()) CacheOption {
	return func(c *Cache) { c.onReload = fn }
}

// NewCache creates a cache backed by the given source and store. Both may
// be nil: a nil store skips persistence, a nil source limits population to
// whatever the store has.
func NewCache(source Source, store storage.SnapshotStore, opts ...CacheOption) *Cache {
	c := &Cache{
		source:       source,
		store:        store,
		logger:       zap.NewNop(),
		ttl:          DefaultTTL,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
		ready:        make(chan struct{}),
		invalidate:   make(chan struct{}, 1),
		teams:        map[string]types.TeamRecord{},
		teamsByID:    map[int]types.TeamRecord{},
		comps:        map[string]types.CompetitionRecord{},
		compsByID:    map[int]types.CompetitionRecord{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize populates the cache: from the store if a fresh, non-empty
// snapshot exists, otherwise from the remote source (persisting the
// result). All faults are logged and absorbed. Whatever happens, the
// readiness gate opens exactly once when the attempt finishes, so lookups
// can never deadlock on a failed load. Concurrent calls are coalesced: a
// second Initialize while one is in flight returns immediately.
func (c *Cache) Initialize(ctx context.Context) {
	if !c.loading.CompareAndSwap(false, true) {
		return
	}
	defer c.loading.Store(false)
	defer c.openGate()

	if c.loadFromStore(ctx) {
		return
	}
	c.loadFromSource(ctx)
}

// openGate opens the readiness gate. Safe to call more than once.
func (c *Cache) openGate() {
	c.readyOnce.Do(func() { close(c.ready) })
}

// Ready reports whether the gate is open without blocking.
func (c *Cache) Ready() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// waitReady blocks until the gate opens or the context is cancelled.
func (c *Cache) waitReady(ctx context.Context) bool {
	select {
	case <-c.ready:
		return true
	case <-ctx.Done():
		return false
	}
}

// GetTeam resolves a team by numeric id (integer or all-digit string) or by
// exact, case-insensitive name. It blocks until the cache has finished its
// initial load. A miss returns (nil, false); it is not an error.
func (c *Cache) GetTeam(ctx context.Context, nameOrID string) (*types.TeamRecord, bool) {
	if !c.waitReady(ctx) {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if id, ok := parseNumericID(nameOrID); ok {
		if record, found := c.teamsByID[id]; found {
			return &record, true
		}
		return nil, false
	}
	if record, found := c.teams[lowerKey(nameOrID)]; found {
		return &record, true
	}
	return nil, false
}

// GetCompetition resolves a competition by numeric id or exact name,
// blocking until the cache is ready. A miss returns (nil, false).
func (c *Cache) GetCompetition(ctx context.Context, nameOrID string) (*types.CompetitionRecord, bool) {
	if !c.waitReady(ctx) {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if id, ok := parseNumericID(nameOrID); ok {
		if record, found := c.compsByID[id]; found {
			return &record, true
		}
		return nil, false
	}
	if record, found := c.comps[lowerKey(nameOrID)]; found {
		return &record, true
	}
	return nil, false
}

// AddTeam upserts a team into both indexes. Records missing a name or id
// are skipped with a log line rather than rejected with an error.
func (c *Cache) AddTeam(record types.TeamRecord) {
	if record.Name == "" || record.ID == 0 {
		c.logger.Warn("skipping team record with missing name or id",
			zap.String("name", record.Name), zap.Int("id", record.ID))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teams[lowerKey(record.Name)] = record
	c.teamsByID[record.ID] = record
}

// AddCompetition upserts a competition into both indexes, skipping records
// missing a name or id.
func (c *Cache) AddCompetition(record types.CompetitionRecord) {
	if record.Name == "" || record.ID == 0 {
		c.logger.Warn("skipping competition record with missing name or id",
			zap.String("name", record.Name), zap.Int("id", record.ID))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.comps[lowerKey(record.Name)] = record
	c.compsByID[record.ID] = record
}

// TeamTable returns a copy of the team index keyed by canonical name,
// suitable for handing to the extractor.
func (c *Cache) TeamTable() map[string]types.TeamRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	table := make(map[string]types.TeamRecord, len(c.teams))
	for _, record := range c.teams {
		table[record.Name] = record
	}
	return table
}

// Counts returns the number of teams and competitions currently indexed.
func (c *Cache) Counts() (teams, competitions int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.teams), len(c.comps)
}

// Invalidate requests an out-of-band refresh from the Run loop. It never
// blocks; coalescing multiple pending invalidations into one is fine.
func (c *Cache) Invalidate() {
	select {
	case c.invalidate <- struct{}{}:
	default:
	}
}

// Run refreshes the cache when the snapshot TTL elapses or an invalidation
// arrives, until the context is cancelled. Run assumes Initialize has been
// started (or will be) by the caller.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx)
		case <-c.invalidate:
			c.refresh(ctx)
		}
	}
}

// refresh re-fetches from the remote source, guarded against overlapping
// loads by the same in-flight flag Initialize uses.
func (c *Cache) refresh(ctx context.Context) {
	if !c.loading.CompareAndSwap(false, true) {
		return
	}
	defer c.loading.Store(false)

	c.logger.Info("refreshing reference data")
	c.loadFromSource(ctx)
}

// loadFromStore installs the stored snapshot if it is fresh and non-empty.
// Any storage fault is treated as a cache miss.
func (c *Cache) loadFromStore(ctx context.Context) bool {
	if c.store == nil {
		return false
	}

	snapshot, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Error("failed to load snapshot from storage", zap.Error(err))
		}
		return false
	}
	if snapshot.Empty() {
		return false
	}
	if snapshot.Age(c.now()) > c.ttl {
		c.logger.Info("stored snapshot is stale, reloading from source",
			zap.Duration("age", snapshot.Age(c.now())))
		return false
	}

	c.install(snapshot)
	c.logger.Info("loaded reference data from storage",
		zap.Int("teams", len(snapshot.Teams)),
		zap.Int("competitions", len(snapshot.Competitions)))
	return true
}

// loadFromSource fetches competitions and the teams of the top leagues. A
// failure on one competition's teams does not abort the others: the cache
// accumulates whatever succeeds, logging each failure independently.
func (c *Cache) loadFromSource(ctx context.Context) {
	if c.source == nil {
		c.logger.Warn("no data source configured, cannot load reference data")
		return
	}

	snapshot := &storage.Snapshot{Timestamp: c.now()}

	comps, err := c.fetchCompetitions(ctx)
	if err != nil {
		c.logger.Error("failed to load competitions from source", zap.Error(err))
	} else {
		snapshot.Competitions = comps
	}

	for _, compID := range topCompetitionIDs {
		teams, err := c.fetchTeams(ctx, compID)
		if err != nil {
			c.logger.Error("failed to load teams for competition",
				zap.Int("competition_id", compID), zap.Error(err))
			continue
		}
		snapshot.Teams = append(snapshot.Teams, teams...)
	}

	if snapshot.Empty() {
		c.logger.Warn("source load produced no reference data, keeping existing indexes")
		return
	}

	c.install(snapshot)
	c.logger.Info("loaded reference data from source",
		zap.Int("teams", len(snapshot.Teams)),
		zap.Int("competitions", len(snapshot.Competitions)))

	if c.store != nil {
		if err := c.store.Save(ctx, snapshot); err != nil {
			c.logger.Error("failed to persist reference data snapshot", zap.Error(err))
		}
	}
}

func (c *Cache) fetchCompetitions(ctx context.Context) ([]types.CompetitionRecord, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	return c.source.ListCompetitions(fetchCtx)
}

func (c *Cache) fetchTeams(ctx context.Context, competitionID int) ([]types.TeamRecord, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	return c.source.ListTeams(fetchCtx, competitionID)
}

// install builds fresh indexes from a snapshot and swaps them in under the
// write lock, so concurrent readers see either the old tables or the new
// ones, never a mix. Records missing a name or id are dropped with a log
// line.
func (c *Cache) install(snapshot *storage.Snapshot) {
	teams := make(map[string]types.TeamRecord, len(snapshot.Teams))
	teamsByID := make(map[int]types.TeamRecord, len(snapshot.Teams))
	for _, t := range snapshot.Teams {
		if t.Name == "" || t.ID == 0 {
			c.logger.Warn("dropping team record with missing name or id",
				zap.String("name", t.Name), zap.Int("id", t.ID))
			continue
		}
		teams[lowerKey(t.Name)] = t
		teamsByID[t.ID] = t
	}

	comps := make(map[string]types.CompetitionRecord, len(snapshot.Competitions))
	compsByID := make(map[int]types.CompetitionRecord, len(snapshot.Competitions))
	for _, comp := range snapshot.Competitions {
		if comp.Name == "" || comp.ID == 0 {
			c.logger.Warn("dropping competition record with missing name or id",
				zap.String("name", comp.Name), zap.Int("id", comp.ID))
			continue
		}
		comps[lowerKey(comp.Name)] = comp
		compsByID[comp.ID] = comp
	}

	c.mu.Lock()
	c.teams = teams
	c.teamsByID = teamsByID
	c.comps = comps
	c.compsByID = compsByID
	c.loadedAt = c.now()
	c.mu.Unlock()

	if c.onReload != nil {
		c.onReload()
	}
}

// parseNumericID returns the integer value of an all-digit string.
func parseNumericID(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return id, true
}

// lowerKey case-folds a name for index keys. Unicode-aware because team
// names carry diacritics (Atlético, Köln).
func lowerKey(s string) string {
	return strings.ToLower(s)
}
