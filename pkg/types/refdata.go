package types

// TeamRecord is the canonical reference record for a football team as
// served by the downstream data API.
type TeamRecord struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName,omitempty"`
	TLA       string `json:"tla,omitempty"`
	AreaName  string `json:"area,omitempty"`
}

// CompetitionRecord is the canonical reference record for a competition.
type CompetitionRecord struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code,omitempty"`
	Type     string `json:"type,omitempty"` // LEAGUE or CUP
	AreaName string `json:"area,omitempty"`
}
