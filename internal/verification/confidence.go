package verification

import (
	"math"
	"regexp"
	"strings"

	"github.com/medrow/clinagent/internal/core/domain"
)

// Phrases in an answer indicating uncertainty.
var hedgingPhrases = []string{
	"i'm not sure",
	"i cannot confirm",
	"i don't have enough",
	"i was unable to",
	"the data is incomplete",
	"no information available",
	"could not find",
	"i couldn't find",
	"unable to retrieve",
	"there may be",
	"i believe",
	"it's possible",
	"might be",
	"i don't have access",
	"no data",
}

var (
	numberSignalRe = regexp.MustCompile(`\b\d+(?:[./]\d+)?\b`)
	dateSignalRe   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	unitSignalRe   = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:mg|mcg|g|ml|mmhg|bpm|units?)\b`)
	properNounRe   = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)
)

// ConfidenceScorer computes a deterministic 0.0-1.0 reliability score from
// tool usage, data completeness, answer specificity, and the grounding rate.
//
// Formula: score = 0.25*toolUsage + 0.30*completeness + 0.20*specificity
// + 0.25*groundingRate, clamped to [0,1].
//   - toolUsage: 0.5 with no tool calls (neutral), rising linearly to 1.0 at
//     three calls (diminishing returns: flat above three).
//   - completeness: populated / (populated + empty); 1.0 when no tools ran.
//     Strictly decreasing as empty results accumulate.
//   - specificity: 0.5 base, +0.125 per concrete-signal class present
//     (numbers, dates, dosed quantities, proper nouns), -0.15 per hedging
//     phrase, clamped to [0,1].
type ConfidenceScorer struct {
	// LowThreshold flags the response for a low-confidence disclaimer.
	LowThreshold float64
}

// NewConfidenceScorer uses the given low-confidence threshold (0.3 in the
// reference configuration).
func NewConfidenceScorer(lowThreshold float64) *ConfidenceScorer {
	return &ConfidenceScorer{LowThreshold: lowThreshold}
}

// ConfidenceInput carries the already-computed signals the scorer combines.
// GroundingRate comes from the claim verifier, which must run first.
type ConfidenceInput struct {
	Answer           string
	ToolCallCount    int
	PopulatedResults int
	EmptyResults     int
	GroundingRate    float64
}

// Score computes the weighted confidence score and its factor breakdown.
func (s *ConfidenceScorer) Score(in ConfidenceInput) domain.ConfidenceReport {
	toolUsage := 0.5
	if in.ToolCallCount > 0 {
		toolUsage = 0.5 + 0.5*math.Min(1, float64(in.ToolCallCount)/3.0)
	}

	completeness := 1.0
	if total := in.PopulatedResults + in.EmptyResults; total > 0 {
		completeness = float64(in.PopulatedResults) / float64(total)
	}

	specificity := s.scoreSpecificity(in.Answer)

	score := 0.25*toolUsage + 0.30*completeness + 0.20*specificity + 0.25*in.GroundingRate
	score = math.Max(0, math.Min(1, score))

	return domain.ConfidenceReport{
		Score: round2(score),
		Factors: map[string]float64{
			"tool_usage":        round2(toolUsage),
			"data_completeness": round2(completeness),
			"specificity":       round2(specificity),
			"grounding_rate":    round2(in.GroundingRate),
		},
	}
}

// IsLow reports whether the score falls below the disclaimer threshold.
func (s *ConfidenceScorer) IsLow(score float64) bool {
	return score < s.LowThreshold
}

func (s *ConfidenceScorer) scoreSpecificity(answer string) float64 {
	spec := 0.5

	for _, re := range []*regexp.Regexp{numberSignalRe, dateSignalRe, unitSignalRe, properNounRe} {
		if re.MatchString(answer) {
			spec += 0.125
		}
	}

	lower := strings.ToLower(answer)
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			spec -= 0.15
		}
	}

	return math.Max(0, math.Min(1, spec))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
