package footballdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const competitionsPayload = `{
	"competitions": [
		{"id": 2021, "name": "Premier League", "code": "PL", "type": "LEAGUE", "area": {"name": "England"}},
		{"id": 2014, "name": "Primera Division", "code": "PD", "type": "LEAGUE", "area": {"name": "Spain"}}
	]
}`

const teamsPayload = `{
	"teams": [
		{"id": 57, "name": "Arsenal FC", "shortName": "Arsenal", "tla": "ARS", "area": {"name": "England"}},
		{"id": 66, "name": "Manchester United FC", "shortName": "Man United", "tla": "MUN", "area": {"name": "England"}}
	]
}`

// fastClient returns a client pointed at srv with the rate limiter
// effectively disabled so tests do not sleep.
func fastClient(srv *httptest.Server, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithBaseURL(srv.URL),
		WithRequestsPerMinute(60000),
	}
	return NewClient("test-token", append(base, opts...)...)
}

func TestListCompetitions(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Auth-Token")
		assert.Equal(t, "/competitions", r.URL.Path)
		w.Write([]byte(competitionsPayload))
	}))
	defer srv.Close()

	client := fastClient(srv)
	records, err := client.ListCompetitions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-token", gotToken)
	require.Len(t, records, 2)
	assert.Equal(t, 2021, records[0].ID)
	assert.Equal(t, "Premier League", records[0].Name)
	assert.Equal(t, "England", records[0].AreaName)
	assert.Equal(t, "PD", records[1].Code)
}

func TestListTeams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/competitions/2021/teams", r.URL.Path)
		w.Write([]byte(teamsPayload))
	}))
	defer srv.Close()

	client := fastClient(srv)
	records, err := client.ListTeams(context.Background(), 2021)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, 57, records[0].ID)
	assert.Equal(t, "Arsenal FC", records[0].Name)
	assert.Equal(t, "ARS", records[0].TLA)
	assert.Equal(t, "Man United", records[1].ShortName)
}

func TestGet_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := fastClient(srv)
	_, err := client.ListCompetitions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestGet_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"competitions": [`))
	}))
	defer srv.Close()

	client := fastClient(srv)
	_, err := client.ListCompetitions(context.Background())
	assert.Error(t, err)
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := fastClient(srv, WithBreakerConfig(BreakerConfig{
		MaxFailures:          3,
		Timeout:              time.Minute,
		HalfOpenMaxSuccesses: 1,
	}))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.ListCompetitions(ctx)
		require.Error(t, err)
		require.False(t, errors.Is(err, ErrCircuitOpen), "circuit must stay closed until the threshold")
	}

	_, err := client.ListCompetitions(ctx)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, 3, hits, "an open circuit must not reach the server")
}

func TestGet_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(competitionsPayload))
	}))
	defer srv.Close()

	client := fastClient(srv)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListCompetitions(ctx)
	assert.Error(t, err)
}
