package verification

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/refdata"
)

// Phrases with which an answer claims two drugs are safe to combine.
var safetyPhrases = []string{
	"safe to take together",
	"safe to combine",
	"safe combination",
	"no known interaction",
	"no significant interaction",
	"no interaction",
	"generally safe",
	"can be taken together",
	"no issues",
	"no major interaction",
}

// Phrases with which an answer acknowledges interaction risk.
var riskPhrases = []string{
	"interaction",
	"risk",
	"caution",
	"dangerous",
	"contraindicated",
	"avoid",
	"warning",
	"severe",
	"bleeding",
	"serotonin syndrome",
	"monitor",
	"concern",
}

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?\n]`)
	wordRe          = regexp.MustCompile(`[a-z-]+`)
)

// DrugSafetyVerifier scans a draft answer for medication co-mentions and
// flags known dangerous combinations. This is a hard safety gate: a major
// severity pair fails the check regardless of confidence.
type DrugSafetyVerifier struct {
	mentionRe *regexp.Regexp
}

// NewDrugSafetyVerifier compiles the known-drug lexicon once.
func NewDrugSafetyVerifier() *DrugSafetyVerifier {
	names := refdata.KnownDrugNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return &DrugSafetyVerifier{
		mentionRe: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

// Verify checks every unordered pair of medications against the interaction
// table. The pair set is the union of drugs mentioned in the answer and drugs
// appearing in the tool evidence, so a dangerous combination on the patient's
// record is flagged even when the answer names only one of the drugs. Fewer
// than two distinct medications short-circuits to a pass with no flags.
// Moderate and minor interactions are recorded but only major severity fails
// the check.
func (v *DrugSafetyVerifier) Verify(answer, rawToolText string) domain.DrugSafetyReport {
	mentioned := v.extractDrugs(answer + "\n" + rawToolText)
	if len(mentioned) < 2 {
		return domain.DrugSafetyReport{Passed: true, Flags: []domain.InteractionFlag{}}
	}

	var flags []domain.InteractionFlag
	hasMajor := false
	for i := 0; i < len(mentioned); i++ {
		for j := i + 1; j < len(mentioned); j++ {
			d1, d2 := mentioned[i], mentioned[j]
			inter, ok := refdata.LookupInteraction(d1, d2)
			if !ok {
				continue
			}
			desc := inter.Description
			if v.claimsSafeTogether(answer, d1, d2) {
				desc = fmt.Sprintf("%s (the answer suggests %s and %s are safe together, contradicting the interaction table)", desc, d1, d2)
			}
			flags = append(flags, domain.InteractionFlag{
				Drugs:       [2]string{d1, d2},
				Severity:    inter.Severity,
				Description: desc,
			})
			if inter.Severity == domain.SeverityMajor {
				hasMajor = true
			}
		}
	}
	if flags == nil {
		flags = []domain.InteractionFlag{}
	}
	return domain.DrugSafetyReport{Passed: !hasMajor, Flags: flags}
}

// extractDrugs returns the distinct normalized generic names mentioned in
// the text, sorted for deterministic pair ordering.
func (v *DrugSafetyVerifier) extractDrugs(text string) []string {
	set := make(map[string]struct{})
	for _, m := range v.mentionRe.FindAllString(text, -1) {
		set[refdata.NormalizeDrugName(m)] = struct{}{}
	}
	drugs := make([]string, 0, len(set))
	for d := range set {
		drugs = append(drugs, d)
	}
	sort.Strings(drugs)
	return drugs
}

// claimsSafeTogether reports whether any sentence mentions both drugs with a
// safety phrase and no risk acknowledgement.
func (v *DrugSafetyVerifier) claimsSafeTogether(answer, drug1, drug2 string) bool {
	lower := strings.ToLower(answer)
	for _, sentence := range sentenceSplitRe.Split(lower, -1) {
		if !mentionsDrug(sentence, drug1) || !mentionsDrug(sentence, drug2) {
			continue
		}
		claimsSafe := false
		for _, p := range safetyPhrases {
			if strings.Contains(sentence, p) {
				claimsSafe = true
				break
			}
		}
		if !claimsSafe {
			continue
		}
		acknowledgesRisk := false
		for _, p := range riskPhrases {
			if strings.Contains(sentence, p) {
				acknowledgesRisk = true
				break
			}
		}
		if !acknowledgesRisk {
			return true
		}
	}
	return false
}

func mentionsDrug(sentence, generic string) bool {
	if strings.Contains(sentence, generic) {
		return true
	}
	// Brand names normalize to the same generic.
	for _, m := range wordRe.FindAllString(sentence, -1) {
		if refdata.NormalizeDrugName(m) == generic {
			return true
		}
	}
	return false
}
