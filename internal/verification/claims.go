// Package verification implements the three-stage answer verification
// pipeline: drug safety checking, claim grounding, and confidence scoring.
// Every stage is a pure function over the draft answer and the raw tool
// output text, so the pipeline is deterministic and idempotent.
package verification

import (
	"regexp"
	"sort"
	"strings"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/refdata"
)

// hedging and capitalized-but-not-a-name words used by the extractor and
// scorer.
var notANameWords = map[string]bool{
	"blood": true, "pressure": true, "heart": true, "rate": true,
	"date": true, "birth": true, "patient": true, "summary": true,
	"medical": true, "records": true, "gender": true, "allergies": true,
	"medications": true, "conditions": true, "important": true,
	"final": true, "answer": true, "note": true, "warning": true,
	"interaction": true, "check": true, "severity": true, "emergency": true,
}

var (
	doseRe      = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*(mg|mcg|g|ml|units?)\b`)
	conditionRe = regexp.MustCompile(`(?i)(?:patient|they|he|she)\s+(?:has|have|is diagnosed with|suffers? from)\s+([^.,;!?\n]+)`)
	measureRe   = regexp.MustCompile(`(?i)\b(blood pressure|heart rate|temperature|weight|bmi|a1c|hba1c|glucose|cholesterol|inr)\s*(?:is|was|of|:)\s*([\d][\d./]*(?:\s?[a-zA-Z/%]+)?)`)
	titleNameRe = regexp.MustCompile(`\b(?:Dr|Mr|Ms|Mrs)\.?\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	plainNameRe = regexp.MustCompile(`\b([A-Z][a-z]+)\s+([A-Z][a-z]+)\b`)
	isoDateRe   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	longDateRe  = regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`)
)

// ClaimExtractor pulls atomic factual assertions out of free-text answers
// using lexicon and pattern rules. Deterministic and idempotent: the same
// text always yields the same claim set in the same order.
type ClaimExtractor struct {
	drugRe *regexp.Regexp
}

// NewClaimExtractor compiles the medication lexicon into a single
// word-boundary alternation.
func NewClaimExtractor() *ClaimExtractor {
	names := refdata.KnownDrugNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return &ClaimExtractor{
		drugRe: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

// Extract returns the ordered claim sequence for the draft answer. Empty
// text yields an empty sequence, not an error.
func (e *ClaimExtractor) Extract(text string) []domain.Claim {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var claims []domain.Claim
	seen := make(map[string]bool)

	add := func(c domain.Claim) {
		key := string(c.Category) + "|" + strings.ToLower(c.Text)
		if len(c.Text) < 2 || len(c.Text) > 200 || seen[key] {
			return
		}
		seen[key] = true
		claims = append(claims, c)
	}

	// Medication mentions, with an adjacent dose captured as the value.
	for _, loc := range e.drugRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[loc[2]:loc[3]]
		value := ""
		if m := doseRe.FindStringSubmatch(text[loc[3]:]); m != nil {
			value = m[1] + " " + strings.ToLower(m[2])
		}
		add(domain.Claim{
			Category: domain.ClaimMedication,
			Subject:  name,
			Value:    value,
			Text:     strings.TrimSpace(name + " " + value),
			Start:    loc[2],
			End:      loc[3],
		})
	}

	// "Patient has <condition>" style assertions.
	for _, loc := range conditionRe.FindAllStringSubmatchIndex(text, -1) {
		cond := strings.TrimSpace(text[loc[2]:loc[3]])
		add(domain.Claim{
			Category: domain.ClaimCondition,
			Subject:  "patient",
			Value:    cond,
			Text:     cond,
			Start:    loc[2],
			End:      loc[3],
		})
	}

	// Measurements: "blood pressure is 120/80".
	for _, loc := range measureRe.FindAllStringSubmatchIndex(text, -1) {
		add(domain.Claim{
			Category: domain.ClaimNumeric,
			Subject:  strings.ToLower(text[loc[2]:loc[3]]),
			Value:    strings.TrimSpace(text[loc[4]:loc[5]]),
			Text:     strings.TrimSpace(text[loc[0]:loc[1]]),
			Start:    loc[0],
			End:      loc[1],
		})
	}

	// Person names: titled names first, then capitalized pairs that are not
	// section headings.
	for _, loc := range titleNameRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[loc[2]:loc[3]]
		add(domain.Claim{
			Category: domain.ClaimName,
			Subject:  name,
			Text:     strings.TrimSpace(text[loc[0]:loc[1]]),
			Start:    loc[0],
			End:      loc[1],
		})
	}
	for _, loc := range plainNameRe.FindAllStringSubmatchIndex(text, -1) {
		first := text[loc[2]:loc[3]]
		second := text[loc[4]:loc[5]]
		if notANameWords[strings.ToLower(first)] || notANameWords[strings.ToLower(second)] {
			continue
		}
		add(domain.Claim{
			Category: domain.ClaimName,
			Subject:  first + " " + second,
			Text:     first + " " + second,
			Start:    loc[0],
			End:      loc[1],
		})
	}

	// Dates.
	for _, re := range []*regexp.Regexp{isoDateRe, longDateRe} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			d := text[loc[0]:loc[1]]
			add(domain.Claim{
				Category: domain.ClaimDate,
				Subject:  d,
				Text:     d,
				Start:    loc[0],
				End:      loc[1],
			})
		}
	}

	sort.SliceStable(claims, func(i, j int) bool {
		if claims[i].Start != claims[j].Start {
			return claims[i].Start < claims[j].Start
		}
		return claims[i].Text < claims[j].Text
	})
	return claims
}
