package refdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballerhq/baller/internal/storage"
	"github.com/ballerhq/baller/pkg/types"
)

// fakeSource is a scriptable Source for cache tests. The optional gate
// channel blocks ListCompetitions until released, to exercise the readiness
// gate. failTeamsFor marks competition ids whose team fetch fails.
type fakeSource struct {
	mu           sync.Mutex
	gate         chan struct{}
	competitions []types.CompetitionRecord
	teams        map[int][]types.TeamRecord
	failAll      bool
	failTeamsFor map[int]bool
	calls        int
}

func (s *fakeSource) ListCompetitions(ctx context.Context) ([]types.CompetitionRecord, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failAll {
		return nil, errors.New("source unavailable")
	}
	return s.competitions, nil
}

func (s *fakeSource) ListTeams(ctx context.Context, competitionID int) ([]types.TeamRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll || s.failTeamsFor[competitionID] {
		return nil, errors.New("source unavailable")
	}
	return s.teams[competitionID], nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeStore is an in-memory SnapshotStore.
type fakeStore struct {
	mu       sync.Mutex
	snapshot *storage.Snapshot
	loadErr  error
	saves    int
}

func (s *fakeStore) Load(ctx context.Context) (*storage.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.snapshot == nil {
		return nil, storage.ErrNotFound
	}
	return s.snapshot, nil
}

func (s *fakeStore) Save(ctx context.Context, snapshot *storage.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.saves++
	return nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func testSource() *fakeSource {
	return &fakeSource{
		competitions: []types.CompetitionRecord{
			{ID: 2021, Name: "Premier League", Code: "PL"},
			{ID: 2014, Name: "La Liga", Code: "PD"},
		},
		teams: map[int][]types.TeamRecord{
			2021: {
				{ID: 57, Name: "Arsenal", ShortName: "Arsenal", TLA: "ARS"},
				{ID: 66, Name: "Manchester United", ShortName: "Man United", TLA: "MUN"},
			},
			2002: {
				{ID: 5, Name: "Bayern Munich", ShortName: "Bayern", TLA: "BAY"},
			},
		},
	}
}

func TestCache_InitializeFromSource(t *testing.T) {
	source := testSource()
	store := &fakeStore{}
	cache := NewCache(source, store)

	cache.Initialize(context.Background())
	require.True(t, cache.Ready())

	team, ok := cache.GetTeam(context.Background(), "Arsenal")
	require.True(t, ok)
	assert.Equal(t, 57, team.ID)

	comp, ok := cache.GetCompetition(context.Background(), "premier league")
	require.True(t, ok)
	assert.Equal(t, 2021, comp.ID)

	assert.Equal(t, 1, store.saveCount(), "successful source load is persisted")
}

func TestCache_LookupByNumericID(t *testing.T) {
	cache := NewCache(testSource(), nil)
	cache.Initialize(context.Background())

	team, ok := cache.GetTeam(context.Background(), "66")
	require.True(t, ok)
	assert.Equal(t, "Manchester United", team.Name)

	comp, ok := cache.GetCompetition(context.Background(), "2014")
	require.True(t, ok)
	assert.Equal(t, "La Liga", comp.Name)

	_, ok = cache.GetTeam(context.Background(), "9999")
	assert.False(t, ok)
}

func TestCache_LookupBeforeInitializeBlocksUntilReady(t *testing.T) {
	source := testSource()
	source.gate = make(chan struct{})
	cache := NewCache(source, nil)

	type result struct {
		team *types.TeamRecord
		ok   bool
	}
	results := make(chan result, 1)
	go func() {
		team, ok := cache.GetTeam(context.Background(), "Arsenal")
		results <- result{team, ok}
	}()

	go cache.Initialize(context.Background())

	select {
	case <-results:
		t.Fatal("lookup must not return before the load finishes")
	case <-time.After(50 * time.Millisecond):
	}

	close(source.gate)

	select {
	case got := <-results:
		require.True(t, got.ok)
		assert.Equal(t, 57, got.team.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("lookup never unblocked")
	}
}

func TestCache_GateOpensOnTotalFailure(t *testing.T) {
	source := testSource()
	source.failAll = true
	cache := NewCache(source, nil)

	cache.Initialize(context.Background())
	require.True(t, cache.Ready(), "a failed load must still open the gate")

	_, ok := cache.GetTeam(context.Background(), "Arsenal")
	assert.False(t, ok)
}

func TestCache_GateOpensWithNoSourceOrStore(t *testing.T) {
	cache := NewCache(nil, nil)
	cache.Initialize(context.Background())
	assert.True(t, cache.Ready())
}

func TestCache_PartialTeamFailureKeepsTheRest(t *testing.T) {
	source := testSource()
	source.failTeamsFor = map[int]bool{2021: true}
	cache := NewCache(source, nil)

	cache.Initialize(context.Background())

	_, ok := cache.GetTeam(context.Background(), "Arsenal")
	assert.False(t, ok, "failed competition's teams are absent")

	team, ok := cache.GetTeam(context.Background(), "Bayern Munich")
	require.True(t, ok, "other competitions' teams survive the partial failure")
	assert.Equal(t, 5, team.ID)
}

func TestCache_FreshSnapshotSkipsSource(t *testing.T) {
	source := testSource()
	store := &fakeStore{snapshot: &storage.Snapshot{
		Teams:        []types.TeamRecord{{ID: 61, Name: "Chelsea"}},
		Competitions: []types.CompetitionRecord{{ID: 2021, Name: "Premier League"}},
		Timestamp:    time.Now(),
	}}
	cache := NewCache(source, store)

	cache.Initialize(context.Background())

	team, ok := cache.GetTeam(context.Background(), "chelsea")
	require.True(t, ok)
	assert.Equal(t, 61, team.ID)
	assert.Equal(t, 0, source.callCount(), "fresh snapshot must not hit the source")
}

func TestCache_StaleSnapshotFallsBackToSource(t *testing.T) {
	source := testSource()
	store := &fakeStore{snapshot: &storage.Snapshot{
		Teams:     []types.TeamRecord{{ID: 61, Name: "Chelsea"}},
		Timestamp: time.Now().Add(-48 * time.Hour),
	}}
	cache := NewCache(source, store)

	cache.Initialize(context.Background())

	_, ok := cache.GetTeam(context.Background(), "Chelsea")
	assert.False(t, ok, "stale snapshot is discarded")

	team, ok := cache.GetTeam(context.Background(), "Arsenal")
	require.True(t, ok)
	assert.Equal(t, 57, team.ID)
}

func TestCache_AddSkipsIncompleteRecords(t *testing.T) {
	cache := NewCache(nil, nil)
	cache.Initialize(context.Background())

	cache.AddTeam(types.TeamRecord{Name: "Nameless", ID: 0})
	cache.AddTeam(types.TeamRecord{Name: "", ID: 42})
	cache.AddTeam(types.TeamRecord{Name: "Arsenal", ID: 57})
	cache.AddTeam(types.TeamRecord{Name: "Arsenal", ID: 57}) // idempotent upsert

	teams, _ := cache.Counts()
	assert.Equal(t, 1, teams)

	cache.AddCompetition(types.CompetitionRecord{Name: "Premier League", ID: 0})
	_, comps := cache.Counts()
	assert.Equal(t, 0, comps)
}

func TestCache_TeamTableIsACopy(t *testing.T) {
	cache := NewCache(testSource(), nil)
	cache.Initialize(context.Background())

	table := cache.TeamTable()
	require.Contains(t, table, "Arsenal")
	delete(table, "Arsenal")

	_, ok := cache.GetTeam(context.Background(), "Arsenal")
	assert.True(t, ok, "mutating the returned table must not touch the cache")
}

func TestCache_ReloadHookFiresOnInstall(t *testing.T) {
	fired := 0
	cache := NewCache(testSource(), nil, WithReloadHook(func() { fired++ }))

	cache.Initialize(context.Background())
	assert.Equal(t, 1, fired)
}

func TestCache_InvalidateTriggersRefresh(t *testing.T) {
	source := testSource()
	cache := NewCache(source, nil, WithTTL(time.Hour))

	cache.Initialize(context.Background())
	first := source.callCount()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cache.Run(ctx)

	cache.Invalidate()

	require.Eventually(t, func() bool {
		return source.callCount() > first
	}, 2*time.Second, 10*time.Millisecond, "invalidation should trigger a source refresh")
}

func TestCache_GetTeamHonoursContextCancellation(t *testing.T) {
	cache := NewCache(testSource(), nil) // never initialized: gate stays shut

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := cache.GetTeam(ctx, "Arsenal")
	assert.False(t, ok)
}
