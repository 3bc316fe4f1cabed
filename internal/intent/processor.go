// Package intent classifies chat messages into parameter-complete intents.
// It fuses current-turn entities with per-user conversational context:
// layered pattern rules propose confidence-scored candidates, the winner is
// bound to a downstream API resource, and missing parameters are backfilled
// from what the user said in earlier turns.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ballerhq/baller/internal/conversation"
	"github.com/ballerhq/baller/internal/extract"
	"github.com/ballerhq/baller/pkg/types"
)

// Base confidences for the classification layers. Explicit lexical
// mentions outrank generic patterns, which outrank entity-type inference,
// which outranks follow-up carry-over.
const (
	confExplicit  = 0.8
	confPattern   = 0.7
	confInferred  = 0.6
	confSecondary = 0.5
	confFollowUp  = 0.4

	// missingParamPenalty is applied once when required parameters remain
	// unsatisfied after binding. The intent is still returned; callers set
	// their own threshold for acting on it.
	missingParamPenalty = 0.5
)

// intentPattern proposes an intent when its expression matches the message.
// Order matters: equal-confidence candidates tie-break on registration
// order.
type intentPattern struct {
	re   *regexp.Regexp
	name string
}

var intentPatterns = []intentPattern{
	{regexp.MustCompile(`\b(?:standing|table|position|rank|league table)\b`), "get_standings"},
	{regexp.MustCompile(`\b(?:match(?:es)?|game(?:s)?|fixture(?:s)?|schedule|upcoming|played)\b`), "get_matches"},
	{regexp.MustCompile(`\b(?:team|club|squad)\b`), "get_team"},
	{regexp.MustCompile(`\b(?:player|squad|roster|lineup)\b`), "get_team"},
	{regexp.MustCompile(`\b(?:scorer|goal scorer|top scorer|leading scorer|golden boot)\b`), "get_competition_scorers"},
	{regexp.MustCompile(`\b(?:head to head|h2h|versus|vs)\b`), "get_match_head2head"},
}

// competitionShapedIntents backfill a competition id from context;
// teamShapedIntents backfill a team id.
var competitionShapedIntents = map[string]bool{
	"get_standings":           true,
	"get_competition_matches": true,
	"get_competition_teams":   true,
	"get_competition_scorers": true,
}

var teamShapedIntents = map[string]bool{
	"get_team_matches": true,
}

// Processor turns raw messages into intents. It owns the per-user context
// store; processing the same message can resolve differently depending on
// what the user said before.
type Processor struct {
	extractor *extract.Extractor
	contexts  *conversation.Store
	logger    *zap.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor creates a processor backed by the given extractor and
// context store.
func NewProcessor(extractor *extract.Extractor, contexts *conversation.Store, opts ...ProcessorOption) *Processor {
	p := &Processor{
		extractor: extractor,
		contexts:  contexts,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessMessage resolves the intent of one message. It never returns an
// error: the worst case is nil, meaning no intent could be detected. The
// user's conversation context is updated as a side effect (new entities are
// merged in, the detected intent is recorded).
func (p *Processor) ProcessMessage(userID, text string) *types.Intent {
	logger := p.logger.With(
		zap.String("trace_id", uuid.NewString()),
		zap.String("user_id", userID),
	)
	logger.Debug("processing message", zap.Int("length", len(text)))

	convCtx := p.contexts.GetOrCreate(userID)

	entities := p.extractor.Extract(text)
	if len(entities) > 0 {
		convCtx.AddEntities(entities)
		logger.Debug("extracted entities", zap.Int("count", len(entities)))
	}

	intent := p.detect(text, entities, convCtx)
	if intent == nil {
		logger.Debug("no intent detected")
		return nil
	}

	logger.Info("detected intent",
		zap.String("intent", intent.Name),
		zap.Float64("confidence", intent.Confidence))

	convCtx.AddIntent(intent.Name, intent.Confidence, intent.Entities)
	return intent
}

type candidate struct {
	name       string
	confidence float64
}

// detect runs the layered classification rules and assembles the winning
// intent with bound entities and API parameters.
func (p *Processor) detect(text string, entities []types.Entity, convCtx *conversation.Context) *types.Intent {
	lower := strings.ToLower(text)

	candidates := p.classify(lower, entities, convCtx)
	if len(candidates) == 0 {
		return nil
	}

	// Highest confidence wins; a stable sort preserves registration order
	// between equals.
	best := pickBest(candidates)

	intent := &types.Intent{
		Name:       best.name,
		Confidence: best.confidence,
		Resource:   resolveResource(best.name),
	}

	intent.Entities = p.bindEntities(intent, entities, convCtx)
	intent.APIParams = buildAPIParams(intent)
	p.applyCompletenessPenalty(intent)

	return intent
}

// classify appends (intent, confidence) candidates layer by layer: explicit
// lexical override, generic patterns, entity-type inference, follow-up.
func (p *Processor) classify(lower string, entities []types.Entity, convCtx *conversation.Context) []candidate {
	var candidates []candidate

	// Explicit mentions of standings get priority over the generic rules.
	if strings.Contains(lower, "standings") || strings.Contains(lower, "table") {
		candidates = append(candidates, candidate{"get_standings", confExplicit})
	}

	for _, pattern := range intentPatterns {
		if pattern.re.MatchString(lower) {
			candidates = append(candidates, candidate{pattern.name, confPattern})
		}
	}

	if len(candidates) == 0 {
		candidates = inferFromEntities(lower, entities)
	}

	if len(candidates) == 0 {
		// Possibly a follow-up: re-propose the previous intent, weakly.
		if last, ok := convCtx.LastIntent(); ok {
			candidates = append(candidates, candidate{last.Name, confFollowUp})
		}
	}

	return candidates
}

// inferFromEntities proposes intents from the entity types present when no
// lexical rule fired.
func inferFromEntities(lower string, entities []types.Entity) []candidate {
	hasType := func(t types.EntityType) bool {
		for _, e := range entities {
			if e.Type == t {
				return true
			}
		}
		return false
	}

	switch {
	case hasType(types.EntityCompetition):
		if hasType(types.EntityTeam) {
			return []candidate{{"get_competition_teams", confInferred}}
		}
		if strings.Contains(lower, "standing") || strings.Contains(lower, "table") {
			return []candidate{{"get_standings", confPattern}}
		}
		return []candidate{
			{"get_competition", confInferred},
			{"get_standings", confSecondary},
		}
	case hasType(types.EntityTeam):
		return []candidate{
			{"get_team_matches", confInferred},
			{"get_team", confSecondary},
		}
	case hasType(types.EntityTimeframe):
		return []candidate{{"get_matches", confInferred}}
	}
	return nil
}

// pickBest returns the highest-confidence candidate; earlier registration
// wins ties.
func pickBest(candidates []candidate) candidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.confidence > best.confidence {
			best = c
		}
	}
	return best
}

// bindEntities fills the intent's entity slots from the current turn,
// deduplicated per type by value so one competition mentioned twice fills
// one slot. When the resource needs an {id} and the turn supplied neither a
// competition nor a team, the highest-decayed-confidence matching entity is
// backfilled from context.
func (p *Processor) bindEntities(intent *types.Intent, entities []types.Entity, convCtx *conversation.Context) map[string]types.Entity {
	bound := make(map[string]types.Entity)
	seen := make(map[string]bool)

	for _, entity := range entities {
		key := string(entity.Type) + ":" + strings.ToLower(entity.Value)
		if seen[key] {
			continue
		}
		seen[key] = true
		slot := string(entity.Type) + "_" + strconv.Itoa(len(bound))
		bound[slot] = entity
	}

	if intent.Resource == nil || !intent.Resource.NeedsID() {
		return bound
	}
	if hasBoundType(bound, types.EntityCompetition) || hasBoundType(bound, types.EntityTeam) {
		return bound
	}

	switch {
	case competitionShapedIntents[intent.Name]:
		if backfill, ok := bestFromContext(convCtx, types.EntityCompetition); ok {
			bound["competition_context"] = backfill
			p.logger.Debug("backfilled competition from context", zap.String("value", backfill.Value))
		}
	case teamShapedIntents[intent.Name]:
		if backfill, ok := bestFromContext(convCtx, types.EntityTeam); ok {
			bound["team_context"] = backfill
			p.logger.Debug("backfilled team from context", zap.String("value", backfill.Value))
		}
	}

	return bound
}

// bestFromContext returns the remembered entity of the given type with the
// highest decayed confidence.
func bestFromContext(convCtx *conversation.Context, t types.EntityType) (types.Entity, bool) {
	remembered := convCtx.EntitiesByType(t)
	if len(remembered) == 0 {
		return types.Entity{}, false
	}

	best := remembered[0]
	bestConf := convCtx.EntityConfidence(best)
	for _, e := range remembered[1:] {
		if conf := convCtx.EntityConfidence(e); conf > bestConf {
			best, bestConf = e, conf
		}
	}
	return best, true
}

func hasBoundType(bound map[string]types.Entity, t types.EntityType) bool {
	for _, e := range bound {
		if e.Type == t {
			return true
		}
	}
	return false
}

// buildAPIParams maps bound entities onto downstream call parameters.
func buildAPIParams(intent *types.Intent) map[string]any {
	params := make(map[string]any)
	needsID := intent.Resource != nil && intent.Resource.NeedsID()

	for _, entity := range intent.Entities {
		switch entity.Type {
		case types.EntityCompetition:
			if needsID && entity.ID != 0 {
				params["competition_id"] = entity.ID
			}
		case types.EntityTeam:
			if needsID && entity.ID != 0 {
				params["team_id"] = entity.ID
			}
		case types.EntityStatus:
			params["status"] = entity.Value
		case types.EntityTimeframe:
			if date, ok := entity.Metadata["date"]; ok {
				params["date_from"] = date
				params["date_to"] = date
			} else if from, ok := entity.Metadata["date_from"]; ok {
				if to, ok := entity.Metadata["date_to"]; ok {
					params["date_from"] = from
					params["date_to"] = to
				}
			}
		}
	}
	return params
}

// applyCompletenessPenalty halves the confidence when the resolved resource
// still has unsatisfied required parameters. Incompleteness is modeled as
// reduced confidence, never as an error.
func (p *Processor) applyCompletenessPenalty(intent *types.Intent) {
	if intent.Resource == nil {
		return
	}

	for _, required := range intent.Resource.RequiredParams {
		satisfied := false
		if required == "id" {
			_, hasComp := intent.APIParams["competition_id"]
			_, hasTeam := intent.APIParams["team_id"]
			satisfied = hasComp || hasTeam
		} else {
			_, satisfied = intent.APIParams[required]
		}
		if !satisfied {
			intent.Confidence *= missingParamPenalty
			p.logger.Debug("reduced confidence for missing required parameter",
				zap.String("param", required), zap.String("intent", intent.Name))
			return
		}
	}
}
