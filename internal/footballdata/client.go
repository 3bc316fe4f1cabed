// Package footballdata is an HTTP client for the football-data.org v4 API,
// used to populate the reference-data cache. It implements refdata.Source.
//
// The free tier allows 10 requests per minute, so every call goes through a
// client-side rate limiter; a circuit breaker keeps a flapping upstream
// from stacking blocked cache refreshes on top of each other.
package footballdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ballerhq/baller/pkg/types"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.football-data.org/v4"

	// defaultRequestsPerMinute matches the free-tier quota.
	defaultRequestsPerMinute = 10

	defaultRequestTimeout = 15 * time.Second
)

// Client talks to the football-data.org API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *breaker
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root (used by tests).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestsPerMinute overrides the client-side rate limit.
func WithRequestsPerMinute(n int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// WithBreakerConfig overrides the circuit breaker settings.
func WithBreakerConfig(config BreakerConfig) ClientOption {
	return func(c *Client) { c.breaker = newBreaker(config) }
}

// WithClientLogger sets the logger. Defaults to a no-op logger.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client authenticated with the given API token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/defaultRequestsPerMinute), 1),
		breaker:    newBreaker(defaultBreakerConfig()),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// competitionsResponse mirrors the /v4/competitions payload.
type competitionsResponse struct {
	Competitions []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
		Code string `json:"code"`
		Type string `json:"type"`
		Area struct {
			Name string `json:"name"`
		} `json:"area"`
	} `json:"competitions"`
}

// teamsResponse mirrors the /v4/competitions/{id}/teams payload.
type teamsResponse struct {
	Teams []struct {
		ID        int    `json:"id"`
		Name      string `json:"name"`
		ShortName string `json:"shortName"`
		TLA       string `json:"tla"`
		Area      struct {
			Name string `json:"name"`
		} `json:"area"`
	} `json:"teams"`
}

// ListCompetitions returns all competitions visible to the API token.
func (c *Client) ListCompetitions(ctx context.Context) ([]types.CompetitionRecord, error) {
	var payload competitionsResponse
	if err := c.get(ctx, "/competitions", &payload); err != nil {
		return nil, err
	}

	records := make([]types.CompetitionRecord, 0, len(payload.Competitions))
	for _, comp := range payload.Competitions {
		records = append(records, types.CompetitionRecord{
			ID:       comp.ID,
			Name:     comp.Name,
			Code:     comp.Code,
			Type:     comp.Type,
			AreaName: comp.Area.Name,
		})
	}
	return records, nil
}

// ListTeams returns the teams participating in a competition.
func (c *Client) ListTeams(ctx context.Context, competitionID int) ([]types.TeamRecord, error) {
	var payload teamsResponse
	path := fmt.Sprintf("/competitions/%d/teams", competitionID)
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}

	records := make([]types.TeamRecord, 0, len(payload.Teams))
	for _, team := range payload.Teams {
		records = append(records, types.TeamRecord{
			ID:        team.ID,
			Name:      team.Name,
			ShortName: team.ShortName,
			TLA:       team.TLA,
			AreaName:  team.Area.Name,
		})
	}
	return records, nil
}

// get performs a rate-limited, breaker-guarded GET and decodes the JSON
// response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("footballdata: rate limiter: %w", err)
	}

	_, err := c.breaker.execute(ctx, func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("footballdata: failed to build request: %w", err)
		}
		if c.token != "" {
			req.Header.Set("X-Auth-Token", c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("footballdata: request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("footballdata: %s returned status %d", path, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("footballdata: failed to decode response: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		c.logger.Debug("football-data request failed",
			zap.String("path", path),
			zap.String("breaker_state", c.breaker.state()),
			zap.Error(err))
	}
	return err
}
