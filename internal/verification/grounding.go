package verification

import (
	"regexp"
	"strings"

	"github.com/medrow/clinagent/internal/core/domain"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// GroundingChecker checks each extracted claim against the concatenated raw
// tool output and computes a grounding rate.
type GroundingChecker struct {
	// PassThreshold is the minimum grounding rate for the check to pass.
	PassThreshold float64
}

// NewGroundingChecker uses the given pass threshold (0.5 in the reference
// configuration).
func NewGroundingChecker(passThreshold float64) *GroundingChecker {
	return &GroundingChecker{PassThreshold: passThreshold}
}

// Verify partitions the claims into grounded and ungrounded against the raw
// tool text. A claim is grounded when its subject and value both appear in
// the evidence after normalization (lowercase, collapsed whitespace).
//
// Policy: an answer with zero extractable claims is vacuously grounded, so
// the rate is defined as 1.0 when there are no claims. This is deliberate,
// not an accident of division: such an answer asserts nothing checkable.
func (c *GroundingChecker) Verify(claims []domain.Claim, rawToolText string) domain.ClaimReport {
	evidence := normalizeText(rawToolText)

	verified := make([]domain.VerifiedClaim, 0, len(claims))
	grounded := 0
	for _, claim := range claims {
		vc := domain.VerifiedClaim{Claim: claim}
		subject := normalizeText(claim.Subject)
		value := normalizeText(claim.Value)

		switch {
		case subject == "":
			// Malformed claim: score it unverifiable rather than aborting
			// the pipeline.
			vc.Note = "unverifiable: empty subject"
		case strings.Contains(evidence, subject) && (value == "" || strings.Contains(evidence, value)):
			vc.Grounded = true
		case value != "" && strings.Contains(evidence, value):
			vc.Note = "value found but subject missing from tool output"
		default:
			vc.Note = "not found in tool output"
		}

		if vc.Grounded {
			grounded++
		}
		verified = append(verified, vc)
	}

	rate := 1.0
	if len(claims) > 0 {
		rate = float64(grounded) / float64(len(claims))
	}

	return domain.ClaimReport{
		Passed:        rate >= c.PassThreshold,
		GroundingRate: rate,
		Claims:        verified,
	}
}

func normalizeText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToLower(s), " "))
}
