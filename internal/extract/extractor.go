// Package extract turns raw chat text into typed, confidence-scored
// entities using ordered regex rule families. Extraction is deterministic,
// side-effect free, and never fails: malformed input simply yields no
// entities.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ballerhq/baller/pkg/types"
)

// teamTable is the immutable team-name index the extractor matches against.
// It is replaced wholesale on refresh (copy-then-swap) so concurrent
// Extract calls never observe a half-built table.
type teamTable struct {
	records  map[string]types.TeamRecord // lowercased name -> record
	patterns []teamPattern
}

type teamPattern struct {
	re   *regexp.Regexp
	name string // lowercased key into records
}

// Extractor matches competitions, timeframes, match statuses, and known
// team names in message text. Team matching is exact whole-word only and
// requires a loaded team table; everything else is table-driven from the
// compiled rule families in rules.go.
type Extractor struct {
	teams  atomic.Pointer[teamTable]
	now    func() time.Time
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the wall clock used for timeframe arithmetic.
func WithClock(now func() time.Time) Option {
	return func(x *Extractor) { x.now = now }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(x *Extractor) { x.logger = l }
}

// New creates an extractor. The team table starts empty; call SetTeams once
// reference data is available.
func New(opts ...Option) *Extractor {
	x := &Extractor{
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	x.teams.Store(&teamTable{records: map[string]types.TeamRecord{}})
	return x
}

// SetTeams replaces the team-name table. A new index is built off to the
// side and published atomically, so in-flight extractions keep the table
// they started with.
func (x *Extractor) SetTeams(teams map[string]types.TeamRecord) {
	table := &teamTable{
		records:  make(map[string]types.TeamRecord, len(teams)),
		patterns: make([]teamPattern, 0, len(teams)),
	}
	for name, record := range teams {
		lower := strings.ToLower(name)
		table.records[lower] = record
		table.patterns = append(table.patterns, teamPattern{
			re:   regexp.MustCompile(`\b` + regexp.QuoteMeta(lower) + `\b`),
			name: lower,
		})
	}
	// Stable iteration order for deterministic output.
	sort.Slice(table.patterns, func(i, j int) bool {
		return table.patterns[i].name < table.patterns[j].name
	})
	x.teams.Store(table)
	x.logger.Debug("team table replaced", zap.Int("teams", len(teams)))
}

// TeamCount returns the number of teams currently loaded.
func (x *Extractor) TeamCount() int {
	return len(x.teams.Load().records)
}

// Extract returns all entities found in text, sorted by span start.
// Synthetic entities (span -1) are filtered out.
func (x *Extractor) Extract(text string) []types.Entity {
	lower := strings.ToLower(text)

	var entities []types.Entity
	entities = append(entities, x.extractCompetitions(lower)...)
	entities = append(entities, x.extractTimeframes(lower)...)
	entities = append(entities, x.extractStatuses(lower)...)

	if table := x.teams.Load(); len(table.records) > 0 {
		entities = append(entities, extractTeams(table, lower)...)
	}

	out := entities[:0]
	for _, e := range entities {
		if !e.Synthetic() {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func (x *Extractor) extractCompetitions(lower string) []types.Entity {
	var entities []types.Entity
	for _, rule := range competitionRules {
		for _, span := range rule.re.FindAllStringIndex(lower, -1) {
			value := rule.name
			confidence := confCompetitionKnown
			if rule.id == 0 {
				// Generic mention: keep the surface form, lower confidence.
				value = lower[span[0]:span[1]]
				confidence = confCompetitionGeneric
			}
			entities = append(entities, types.Entity{
				Type:       types.EntityCompetition,
				Value:      value,
				ID:         rule.id,
				Confidence: confidence,
				Start:      span[0],
				End:        span[1],
			})
		}
	}
	return entities
}

func (x *Extractor) extractTimeframes(lower string) []types.Entity {
	var entities []types.Entity
	for _, rule := range timeframeRules {
		for _, span := range rule.re.FindAllStringIndex(lower, -1) {
			entities = append(entities, types.Entity{
				Type:       types.EntityTimeframe,
				Value:      rule.name,
				Confidence: confTimeframe,
				Start:      span[0],
				End:        span[1],
				Metadata:   x.timeframeDates(rule),
			})
		}
	}
	return entities
}

// timeframeDates resolves a timeframe rule to concrete dates relative to
// the extractor's clock. Single days produce "date"; ranges produce
// "date_from"/"date_to".
func (x *Extractor) timeframeDates(rule timeframeRule) map[string]string {
	today := x.today()

	if rule.hasOffset {
		return map[string]string{
			"date": isoDate(today.AddDate(0, 0, rule.offset)),
		}
	}

	switch rule.name {
	case "weekend":
		saturday := today.AddDate(0, 0, daysUntilSaturday(today))
		return map[string]string{
			"date_from": isoDate(saturday),
			"date_to":   isoDate(saturday.AddDate(0, 0, 1)),
		}
	case "week":
		return map[string]string{
			"date_from": isoDate(today),
			"date_to":   isoDate(today.AddDate(0, 0, 7)),
		}
	case "next_week":
		return map[string]string{
			"date_from": isoDate(today.AddDate(0, 0, 7)),
			"date_to":   isoDate(today.AddDate(0, 0, 14)),
		}
	case "next_weekend":
		days := daysUntilSaturday(today)
		if days == 0 {
			// Already Saturday: "next weekend" still means the following one.
			days = 7
		}
		saturday := today.AddDate(0, 0, days)
		return map[string]string{
			"date_from": isoDate(saturday),
			"date_to":   isoDate(saturday.AddDate(0, 0, 1)),
		}
	}
	return nil
}

func (x *Extractor) extractStatuses(lower string) []types.Entity {
	var entities []types.Entity
	for _, rule := range statusRules {
		for _, span := range rule.re.FindAllStringIndex(lower, -1) {
			entities = append(entities, types.Entity{
				Type:       types.EntityStatus,
				Value:      rule.status,
				Confidence: confStatus,
				Start:      span[0],
				End:        span[1],
			})
		}
	}
	return entities
}

func extractTeams(table *teamTable, lower string) []types.Entity {
	var entities []types.Entity
	for _, pattern := range table.patterns {
		for _, span := range pattern.re.FindAllStringIndex(lower, -1) {
			record := table.records[pattern.name]
			entities = append(entities, types.Entity{
				Type:       types.EntityTeam,
				Value:      record.Name,
				ID:         record.ID,
				Confidence: confTeam,
				Start:      span[0],
				End:        span[1],
				Metadata: map[string]string{
					"shortName": record.ShortName,
					"tla":       record.TLA,
				},
			})
		}
	}
	return entities
}

// today truncates the clock to a calendar date in local time.
func (x *Extractor) today() time.Time {
	now := x.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// daysUntilSaturday returns 0..6: the distance to the upcoming Saturday,
// with Saturday itself counting as 0.
func daysUntilSaturday(day time.Time) int {
	return (int(time.Saturday) - int(day.Weekday()) + 7) % 7
}

func isoDate(t time.Time) string {
	return t.Format("2006-01-02")
}
