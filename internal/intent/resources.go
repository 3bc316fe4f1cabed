package intent

import "github.com/ballerhq/baller/pkg/types"

// namedResource pairs a resource with its registry name. Resources are kept
// as an ordered slice because resolution takes the first resource whose URI
// matches the intent, and that order is part of the engine's observable
// behavior.
type namedResource struct {
	name     string
	resource *types.APIResource
}

// apiResources is the downstream football-data v4 surface the engine can
// target. Required/optional parameter names describe the endpoint shape for
// the API mapping layer; they are not executed here.
var apiResources = []namedResource{
	{"area", &types.APIResource{
		URI:            "/v4/areas/{id}",
		RequiredParams: []string{"id"},
		Description:    "Information about a specific area (country/region)",
	}},
	{"areas", &types.APIResource{
		URI:         "/v4/areas/",
		Description: "List of all available areas (countries/regions)",
	}},
	{"competition", &types.APIResource{
		URI:            "/v4/competitions/{id}",
		RequiredParams: []string{"id"},
		Description:    "Information about a specific competition",
	}},
	{"competitions", &types.APIResource{
		URI:            "/v4/competitions/",
		OptionalParams: []string{"areas"},
		Description:    "List of all available competitions",
	}},
	{"competition_standings", &types.APIResource{
		URI:            "/v4/competitions/{id}/standings",
		RequiredParams: []string{"id"},
		OptionalParams: []string{"matchday", "season", "date"},
		Description:    "Standings for a specific competition",
	}},
	{"competition_matches", &types.APIResource{
		URI:            "/v4/competitions/{id}/matches",
		RequiredParams: []string{"id"},
		OptionalParams: []string{"dateFrom", "dateTo", "stage", "status", "matchday", "group", "season"},
		Description:    "Matches for a specific competition",
	}},
	{"competition_teams", &types.APIResource{
		URI:            "/v4/competitions/{id}/teams",
		RequiredParams: []string{"id"},
		OptionalParams: []string{"season"},
		Description:    "Teams participating in a specific competition",
	}},
	{"competition_scorers", &types.APIResource{
		URI:            "/v4/competitions/{id}/scorers",
		RequiredParams: []string{"id"},
		OptionalParams: []string{"limit", "season"},
		Description:    "Top scorers for a specific competition",
	}},
	{"team", &types.APIResource{
		URI:            "/v4/teams/{id}",
		RequiredParams: []string{"id"},
		Description:    "Information about a specific team",
	}},
	{"teams", &types.APIResource{
		URI:            "/v4/teams/",
		OptionalParams: []string{"limit", "offset"},
		Description:    "List of teams",
	}},
	{"team_matches", &types.APIResource{
		URI:            "/v4/teams/{id}/matches/",
		RequiredParams: []string{"id"},
		OptionalParams: []string{"dateFrom", "dateTo", "season", "competitions", "status", "venue", "limit"},
		Description:    "Matches for a specific team",
	}},
	{"person", &types.APIResource{
		URI:            "/v4/persons/{id}",
		RequiredParams: []string{"id"},
		Description:    "Information about a specific person (player/coach)",
	}},
	{"person_matches", &types.APIResource{
		URI:            "/v4/persons/{id}/matches",
		RequiredParams: []string{"id"},
		OptionalParams: []string{"dateFrom", "dateTo", "status", "competitions", "limit", "offset"},
		Description:    "Matches involving a specific person (player/coach)",
	}},
	{"match", &types.APIResource{
		URI:            "/v4/matches/{id}",
		RequiredParams: []string{"id"},
		Description:    "Information about a specific match",
	}},
	{"matches", &types.APIResource{
		URI:            "/v4/matches",
		OptionalParams: []string{"competitions", "ids", "dateFrom", "dateTo", "status"},
		Description:    "List of matches across competitions",
	}},
	{"match_head2head", &types.APIResource{
		URI:            "/v4/matches/{id}/head2head",
		RequiredParams: []string{"id"},
		OptionalParams: []string{"limit", "dateFrom", "dateTo", "competitions"},
		Description:    "Previous encounters between teams in a match",
	}},
}

// resolveResource returns the first registered resource serving the intent,
// or nil when none matches.
func resolveResource(intentName string) *types.APIResource {
	for _, entry := range apiResources {
		if entry.resource.MatchesIntent(intentName) {
			return entry.resource
		}
	}
	return nil
}
