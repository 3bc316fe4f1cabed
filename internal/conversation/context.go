// Package conversation keeps per-user short-term memory: recently mentioned
// entities with time-decayed confidence, and a bounded history of recent
// intents. It is what makes follow-up messages ("what about the standings?")
// resolvable.
package conversation

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ballerhq/baller/pkg/types"
)

const (
	// ActiveWindow is how long an entity keeps its stored confidence
	// before decay kicks in.
	ActiveWindow = 10 * time.Minute

	// HistoryTTL is how long entities and intents are remembered at all.
	HistoryTTL = time.Hour

	// confidenceDecay is the confidence lost per elapsed active window
	// once an entity leaves the window.
	confidenceDecay = 0.1

	// maxRecentIntents bounds the intent history, newest last.
	maxRecentIntents = 5
)

// IntentRecord is one entry in the per-user intent history.
type IntentRecord struct {
	Name       string
	Confidence float64
	Entities   map[string]types.Entity
	Timestamp  time.Time
}

// Context is the conversational memory for a single user. All methods are
// safe for concurrent use; the internal mutex serializes a user's turns so
// later merges always see earlier state.
type Context struct {
	userID string

	mu         sync.Mutex
	entities   map[types.EntityType][]types.Entity
	timestamps map[string]time.Time // entity key -> last mention
	recent     []IntentRecord
	lastActive time.Time

	now func() time.Time
}

// NewContext creates an empty context for a user.
func NewContext(userID string) *Context {
	return newContext(userID, time.Now)
}

func newContext(userID string, now func() time.Time) *Context {
	return &Context{
		userID:     userID,
		entities:   make(map[types.EntityType][]types.Entity),
		timestamps: make(map[string]time.Time),
		lastActive: now(),
		now:        now,
	}
}

// UserID returns the owning user's identifier.
func (c *Context) UserID() string { return c.userID }

// AddEntities merges extracted entities into the context. An entity that is
// already present (same type, case-insensitive value, and id) is replaced by
// a copy carrying the higher of the two confidences; either way its mention
// timestamp is refreshed. Entities are never mutated in place.
func (c *Context) AddEntities(entities []types.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.lastActive = now

	for _, entity := range entities {
		list := c.entities[entity.Type]
		idx := -1
		for i, existing := range list {
			if existing.Equal(entity) {
				idx = i
				break
			}
		}

		if idx >= 0 {
			merged := entity
			if list[idx].Confidence > merged.Confidence {
				merged.Confidence = list[idx].Confidence
			}
			list[idx] = merged
			c.entities[entity.Type] = list
		} else {
			c.entities[entity.Type] = append(list, entity)
		}

		c.timestamps[entity.Key()] = now
	}
}

// AddIntent appends an intent to the history, keeping the last
// maxRecentIntents entries in arrival order.
func (c *Context) AddIntent(name string, confidence float64, entities map[string]types.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.lastActive = now

	c.recent = append(c.recent, IntentRecord{
		Name:       name,
		Confidence: confidence,
		Entities:   entities,
		Timestamp:  now,
	})
	if len(c.recent) > maxRecentIntents {
		c.recent = c.recent[len(c.recent)-maxRecentIntents:]
	}
}

// EntitiesByType returns the remembered entities of one type, pruning
// anything older than HistoryTTL first.
func (c *Context) EntitiesByType(t types.EntityType) []types.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()
	src := c.entities[t]
	out := make([]types.Entity, len(src))
	copy(out, src)
	return out
}

// EntityByValue returns a remembered entity matched by type and
// case-insensitive value.
func (c *Context) EntityByValue(t types.EntityType, value string) (types.Entity, bool) {
	for _, e := range c.EntitiesByType(t) {
		if strings.EqualFold(e.Value, value) {
			return e, true
		}
	}
	return types.Entity{}, false
}

// MostRecentEntities returns up to limit entities of any type, most
// recently mentioned first.
func (c *Context) MostRecentEntities(limit int) []types.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()

	type stamped struct {
		entity types.Entity
		at     time.Time
	}
	var all []stamped
	for _, list := range c.entities {
		for _, e := range list {
			all = append(all, stamped{e, c.timestamps[e.Key()]})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].at.After(all[j].at) })

	if limit > len(all) {
		limit = len(all)
	}
	out := make([]types.Entity, 0, limit)
	for _, s := range all[:limit] {
		out = append(out, s.entity)
	}
	return out
}

// LastIntent returns the most recently recorded intent, if any.
func (c *Context) LastIntent() (IntentRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()
	if len(c.recent) == 0 {
		return IntentRecord{}, false
	}
	return c.recent[len(c.recent)-1], true
}

// EntityConfidence returns the entity's confidence as seen right now.
// Within ActiveWindow of its last mention the stored confidence is returned
// unchanged; past the window it decays linearly with elapsed windows,
// floored at zero. Decay is computed on read because it is a function of
// current time against a fixed mention timestamp.
func (c *Context) EntityConfidence(entity types.Entity) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	stamp := c.timestamps[entity.Key()]
	elapsed := c.now().Sub(stamp)
	if elapsed <= ActiveWindow {
		return entity.Confidence
	}

	windows := elapsed.Seconds() / ActiveWindow.Seconds()
	decayed := entity.Confidence - confidenceDecay*windows
	if decayed < 0 {
		return 0
	}
	return decayed
}

// LastActive returns the time of the user's most recent activity.
func (c *Context) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// pruneLocked drops entities, timestamps, and intents older than
// HistoryTTL. It builds filtered slices rather than mutating entries in
// place. Caller must hold c.mu.
func (c *Context) pruneLocked() {
	now := c.now()

	for t, list := range c.entities {
		kept := list[:0]
		for _, e := range list {
			if now.Sub(c.timestamps[e.Key()]) <= HistoryTTL {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(c.entities, t)
		} else {
			c.entities[t] = kept
		}
	}

	for key, stamp := range c.timestamps {
		if now.Sub(stamp) > HistoryTTL {
			delete(c.timestamps, key)
		}
	}

	kept := c.recent[:0]
	for _, r := range c.recent {
		if now.Sub(r.Timestamp) <= HistoryTTL {
			kept = append(kept, r)
		}
	}
	c.recent = kept
}
