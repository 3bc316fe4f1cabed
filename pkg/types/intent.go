package types

import "strings"

// APIResource describes the shape of a downstream football-data endpoint:
// its URI template and which parameters it requires or accepts. It is
// descriptive metadata consumed by the API mapping layer; the intent engine
// never executes the call itself.
type APIResource struct {
	URI            string   `json:"uri"`
	RequiredParams []string `json:"required_params,omitempty"`
	OptionalParams []string `json:"optional_params,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// intentURIFragments maps intent names to the URI fragment that identifies
// the resource serving that intent. Order is irrelevant here; resolution
// order lives in the processor's resource table.
var intentURIFragments = map[string]string{
	"get_standings":           "/standings",
	"get_matches":             "/matches",
	"get_team":                "/teams/",
	"get_team_matches":        "/teams/{id}/matches",
	"get_competition":         "/competitions/",
	"get_competition_matches": "/competitions/{id}/matches",
	"get_competition_teams":   "/competitions/{id}/teams",
	"get_competition_scorers": "/competitions/{id}/scorers",
	"get_match_head2head":     "/head2head",
}

// MatchesIntent reports whether this resource serves the named intent.
func (r *APIResource) MatchesIntent(intentName string) bool {
	fragment, ok := intentURIFragments[intentName]
	if !ok {
		return false
	}
	return strings.Contains(r.URI, fragment)
}

// NeedsID reports whether the resource URI contains an {id} placeholder
// that must be satisfied before the call can be made.
func (r *APIResource) NeedsID() bool {
	return strings.Contains(r.URI, "{id}")
}

// RequiresParam reports whether the named parameter is required.
func (r *APIResource) RequiresParam(name string) bool {
	for _, p := range r.RequiredParams {
		if p == name {
			return true
		}
	}
	return false
}

// Intent is the classified purpose of a message together with the bound
// entities and the parameters needed to act on it downstream.
type Intent struct {
	Name       string            `json:"name"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]Entity `json:"entities,omitempty"`
	Resource   *APIResource      `json:"api_resource,omitempty"`
	APIParams  map[string]any    `json:"api_params,omitempty"`
}
