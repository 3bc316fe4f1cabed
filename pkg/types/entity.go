// Package types defines the shared value types of the baller intent engine:
// entities extracted from chat messages, classified intents, and the
// reference-data records (teams, competitions) they resolve against.
package types

import (
	"fmt"
	"strings"
)

// EntityType classifies a fragment of meaning extracted from a message.
type EntityType string

const (
	EntityTeam        EntityType = "team"
	EntityCompetition EntityType = "competition"
	EntityPlayer      EntityType = "player"
	EntityDate        EntityType = "date"
	EntityMatchday    EntityType = "matchday"
	EntityTimeframe   EntityType = "timeframe" // e.g. "this weekend", "next week"
	EntityStatus      EntityType = "status"    // e.g. "scheduled", "finished"
	EntityGroup       EntityType = "group"     // e.g. "Group A"
	EntityStage       EntityType = "stage"     // e.g. "QUARTER_FINAL"
	EntityVenue       EntityType = "venue"     // e.g. "home", "away"
	EntityScore       EntityType = "score"     // e.g. "2-1"
	EntityLimit       EntityType = "limit"     // e.g. "top 5"
	EntityUnknown     EntityType = "unknown"
)

// Entity is an immutable, confidence-scored fragment extracted from user
// input. Value holds the canonical surface form, ID the downstream API
// identifier when one is known (0 means no identifier), and Start/End the
// byte offsets of the match in the source text (-1/-1 for synthetic
// entities that were not matched against text).
type Entity struct {
	Type       EntityType        `json:"type"`
	Value      string            `json:"value"`
	ID         int               `json:"id,omitempty"`
	Confidence float64           `json:"confidence"`
	Start      int               `json:"start"`
	End        int               `json:"end"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Equal reports whether two entities denote the same thing: same type,
// case-insensitive value, and same ID. Confidence, span, and metadata do
// not participate in identity.
func (e Entity) Equal(other Entity) bool {
	return e.Type == other.Type &&
		strings.EqualFold(e.Value, other.Value) &&
		e.ID == other.ID
}

// Key returns the stable identity key for an entity, used for timestamp
// bookkeeping in conversation contexts. The value portion is lowercased so
// the key agrees with Equal.
func (e Entity) Key() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s:%s:%d", e.Type, strings.ToLower(e.Value), e.ID)
	}
	return fmt.Sprintf("%s:%s", e.Type, strings.ToLower(e.Value))
}

// Synthetic reports whether the entity carries no span into the source text.
func (e Entity) Synthetic() bool {
	return e.Start == -1
}
