package extract

import "regexp"

// competitionRule resolves a competition mention to its canonical name and
// downstream API id. Rules with id 0 are generic mentions that need further
// context to resolve, and carry a lower confidence.
type competitionRule struct {
	re   *regexp.Regexp
	name string
	id   int
}

// Rule order matters: it is the tie-break when families overlap, so rules
// are kept as ordered slices rather than maps.
var competitionRules = []competitionRule{
	{regexp.MustCompile(`\b(?:premier league|epl|english premier league)\b`), "Premier League", 2021},
	{regexp.MustCompile(`\b(?:la liga|laliga|spanish la liga)\b`), "La Liga", 2014},
	{regexp.MustCompile(`\b(?:bundesliga|german bundesliga)\b`), "Bundesliga", 2002},
	{regexp.MustCompile(`\b(?:serie a|italian serie a)\b`), "Serie A", 2019},
	{regexp.MustCompile(`\b(?:ligue 1|french ligue 1)\b`), "Ligue 1", 2015},
	{regexp.MustCompile(`\b(?:champions league|ucl|uefa champions league)\b`), "UEFA Champions League", 2001},
	{regexp.MustCompile(`\b(?:europa league|uel|uefa europa league)\b`), "UEFA Europa League", 2146},
	{regexp.MustCompile(`\b(?:world cup|fifa world cup)\b`), "FIFA World Cup", 2000},
	// A bare "league" mention is too broad to be useful, so only the
	// explicit word "competition" survives as a generic rule.
	{regexp.MustCompile(`\b(?:competition)\b`), "", 0},
}

// timeframeRule maps a relative-time mention to either a fixed day offset
// (offset, when hasOffset is true) or a named range computed at match time.
type timeframeRule struct {
	re        *regexp.Regexp
	name      string
	offset    int
	hasOffset bool
}

var timeframeRules = []timeframeRule{
	{regexp.MustCompile(`\b(?:today|tonight)\b`), "today", 0, true},
	{regexp.MustCompile(`\b(?:tomorrow)\b`), "tomorrow", 1, true},
	{regexp.MustCompile(`\b(?:yesterday)\b`), "yesterday", -1, true},
	{regexp.MustCompile(`\b(?:this weekend|upcoming weekend)\b`), "weekend", 0, false},
	{regexp.MustCompile(`\b(?:this week|current week)\b`), "week", 0, false},
	{regexp.MustCompile(`\b(?:next week)\b`), "next_week", 0, false},
	{regexp.MustCompile(`\b(?:next weekend)\b`), "next_weekend", 0, false},
}

// statusRule maps a lexical cue to a downstream match status constant.
type statusRule struct {
	re     *regexp.Regexp
	status string
}

var statusRules = []statusRule{
	{regexp.MustCompile(`\b(?:scheduled|upcoming|future)\b`), "SCHEDULED"},
	{regexp.MustCompile(`\b(?:live|ongoing|in progress)\b`), "IN_PLAY"},
	{regexp.MustCompile(`\b(?:finished|completed|past|final|full-?time)\b`), "FINISHED"},
	{regexp.MustCompile(`\b(?:postponed)\b`), "POSTPONED"},
	{regexp.MustCompile(`\b(?:canceled|cancelled)\b`), "CANCELLED"},
}

const (
	confCompetitionKnown   = 0.9
	confCompetitionGeneric = 0.7
	confTimeframe          = 0.9
	confStatus             = 0.8
	confTeam               = 0.95
)
