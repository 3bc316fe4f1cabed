package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballerhq/baller/internal/conversation"
	"github.com/ballerhq/baller/internal/extract"
	"github.com/ballerhq/baller/pkg/types"
)

var testClock = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

func newTestProcessor() *Processor {
	extractor := extract.New(extract.WithClock(func() time.Time { return testClock }))
	extractor.SetTeams(map[string]types.TeamRecord{
		"Arsenal":           {ID: 57, Name: "Arsenal", ShortName: "Arsenal", TLA: "ARS"},
		"Manchester United": {ID: 66, Name: "Manchester United", ShortName: "Man United", TLA: "MUN"},
		"Bayern Munich":     {ID: 5, Name: "Bayern Munich", ShortName: "Bayern", TLA: "BAY"},
	})
	store := conversation.NewStore(16, conversation.WithStoreClock(func() time.Time { return testClock }))
	return NewProcessor(extractor, store)
}

func TestProcessMessage_StandingsWithCompetition(t *testing.T) {
	p := newTestProcessor()

	intent := p.ProcessMessage("user-1", "Show me the Premier League standings")
	require.NotNil(t, intent)

	assert.Equal(t, "get_standings", intent.Name)
	assert.Equal(t, 0.8, intent.Confidence)
	require.NotNil(t, intent.Resource)
	assert.Contains(t, intent.Resource.URI, "/standings")
	assert.Equal(t, 2021, intent.APIParams["competition_id"])
}

func TestProcessMessage_MatchesTomorrow(t *testing.T) {
	p := newTestProcessor()

	intent := p.ProcessMessage("user-1", "What matches are there tomorrow?")
	require.NotNil(t, intent)

	assert.Equal(t, "get_matches", intent.Name)
	assert.Equal(t, "2025-03-13", intent.APIParams["date_from"])
	assert.Equal(t, "2025-03-13", intent.APIParams["date_to"])
	// No competition was named, so the required id stays unsatisfied and the
	// pattern confidence is halved.
	assert.InDelta(t, 0.35, intent.Confidence, 1e-9)
}

func TestProcessMessage_CompetitionCarriesOverToFollowUp(t *testing.T) {
	p := newTestProcessor()

	first := p.ProcessMessage("user-1", "Show me Premier League")
	require.NotNil(t, first)
	assert.Equal(t, "get_competition", first.Name)
	assert.Equal(t, 0.6, first.Confidence)
	assert.Equal(t, 2021, first.APIParams["competition_id"])

	second := p.ProcessMessage("user-1", "What about the standings?")
	require.NotNil(t, second)
	assert.Equal(t, "get_standings", second.Name)
	assert.Equal(t, 0.8, second.Confidence)

	backfilled, ok := second.Entities["competition_context"]
	require.True(t, ok, "competition should be backfilled from the previous turn")
	assert.Equal(t, "Premier League", backfilled.Value)
	assert.Equal(t, 2021, second.APIParams["competition_id"])
}

func TestProcessMessage_ContextIsPerUser(t *testing.T) {
	p := newTestProcessor()

	p.ProcessMessage("user-1", "Show me Premier League")

	// A different user asking the follow-up has no competition to inherit.
	other := p.ProcessMessage("user-2", "What about the standings?")
	require.NotNil(t, other)
	assert.Equal(t, "get_standings", other.Name)
	_, ok := other.Entities["competition_context"]
	assert.False(t, ok)
	assert.InDelta(t, 0.4, other.Confidence, 1e-9, "missing id halves the explicit confidence")
}

func TestProcessMessage_RepeatedMentionBindsOneSlot(t *testing.T) {
	p := newTestProcessor()

	intent := p.ProcessMessage("user-1", "Premier League standings in the premier league")
	require.NotNil(t, intent)

	assert.Equal(t, "get_standings", intent.Name)
	require.Len(t, intent.Entities, 1, "same value twice must fill a single slot")
	assert.Equal(t, 2021, intent.APIParams["competition_id"])
}

func TestProcessMessage_FollowUpReproposesLastIntent(t *testing.T) {
	p := newTestProcessor()

	p.ProcessMessage("user-1", "Show me the Premier League standings")

	followUp := p.ProcessMessage("user-1", "and now?")
	require.NotNil(t, followUp)
	assert.Equal(t, "get_standings", followUp.Name)
	assert.Equal(t, 0.4, followUp.Confidence, "follow-up carry-over is weak but id is satisfied from context")
	assert.Equal(t, 2021, followUp.APIParams["competition_id"])
}

func TestProcessMessage_NoIntent(t *testing.T) {
	p := newTestProcessor()

	assert.Nil(t, p.ProcessMessage("user-1", "hello there"))
	assert.Nil(t, p.ProcessMessage("user-1", ""))
}

func TestProcessMessage_MissingRequiredParamHalvesConfidence(t *testing.T) {
	p := newTestProcessor()

	intent := p.ProcessMessage("user-1", "show me the standings")
	require.NotNil(t, intent)
	assert.Equal(t, "get_standings", intent.Name)
	assert.InDelta(t, 0.4, intent.Confidence, 1e-9)
	assert.Empty(t, intent.APIParams)
}

func TestProcessMessage_BareTeamInfersTeamMatches(t *testing.T) {
	p := newTestProcessor()

	intent := p.ProcessMessage("user-1", "Arsenal")
	require.NotNil(t, intent)
	assert.Equal(t, "get_team_matches", intent.Name)
	assert.Equal(t, 0.6, intent.Confidence)
	assert.Equal(t, 57, intent.APIParams["team_id"])
}

func TestProcessMessage_StatusParam(t *testing.T) {
	p := newTestProcessor()

	intent := p.ProcessMessage("user-1", "show live matches")
	require.NotNil(t, intent)
	assert.Equal(t, "get_matches", intent.Name)
	assert.Equal(t, "IN_PLAY", intent.APIParams["status"])
}

func TestProcessMessage_HeadToHead(t *testing.T) {
	p := newTestProcessor()

	intent := p.ProcessMessage("user-1", "Arsenal vs Manchester United")
	require.NotNil(t, intent)
	assert.Equal(t, "get_match_head2head", intent.Name)
	require.NotNil(t, intent.Resource)
	assert.Contains(t, intent.Resource.URI, "/head2head")
	assert.Len(t, intent.Entities, 2)
	assert.Equal(t, 0.7, intent.Confidence)
	assert.Contains(t, intent.APIParams, "team_id")
}

func TestResolveResource_FirstMatchWins(t *testing.T) {
	matches := resolveResource("get_matches")
	require.NotNil(t, matches)
	// The competition matches endpoint registers before the cross-competition
	// list, so a bare matches intent resolves to it.
	assert.Equal(t, "/v4/competitions/{id}/matches", matches.URI)

	standings := resolveResource("get_standings")
	require.NotNil(t, standings)
	assert.Equal(t, "/v4/competitions/{id}/standings", standings.URI)

	assert.Nil(t, resolveResource("get_weather"))
}

func TestInferFromEntities_CompetitionAndTeam(t *testing.T) {
	entities := []types.Entity{
		{Type: types.EntityCompetition, Value: "Premier League", ID: 2021, Confidence: 0.9},
		{Type: types.EntityTeam, Value: "Arsenal", ID: 57, Confidence: 0.95},
	}
	candidates := inferFromEntities("premier league arsenal", entities)
	require.Len(t, candidates, 1)
	assert.Equal(t, "get_competition_teams", candidates[0].name)
	assert.Equal(t, 0.6, candidates[0].confidence)
}

func TestPickBest_EarlierRegistrationWinsTies(t *testing.T) {
	best := pickBest([]candidate{
		{"get_competition", 0.6},
		{"get_standings", 0.6},
	})
	assert.Equal(t, "get_competition", best.name)
}
