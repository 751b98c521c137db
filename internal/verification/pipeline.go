package verification

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/medrow/clinagent/internal/core/domain"
)

// genericDisclaimer is attached to every clinical answer.
const genericDisclaimer = "This information is for educational purposes only. " +
	"Always consult a qualified healthcare provider for medical advice."

// Pipeline runs the three verifiers in their required order and merges the
// outputs into one VerificationReport. Stages run sequentially; confidence
// scoring consumes the grounding rate produced by claim verification.
type Pipeline struct {
	logger     *slog.Logger
	extractor  *ClaimExtractor
	drugSafety *DrugSafetyVerifier
	grounding  *GroundingChecker
	scorer     *ConfidenceScorer
}

// NewPipeline wires the verifiers with the configured thresholds.
func NewPipeline(logger *slog.Logger, groundingPassThreshold, confidenceLowThreshold float64) *Pipeline {
	return &Pipeline{
		logger:     logger,
		extractor:  NewClaimExtractor(),
		drugSafety: NewDrugSafetyVerifier(),
		grounding:  NewGroundingChecker(groundingPassThreshold),
		scorer:     NewConfidenceScorer(confidenceLowThreshold),
	}
}

// Input is everything the pipeline needs from a completed agent loop.
type Input struct {
	Answer      string
	ToolCalls   []domain.ToolCall
	ToolResults []domain.ToolResult
	RawToolText string
}

// Run executes drug safety, then claim grounding, then confidence scoring,
// and assembles the report with its disclaimers. overall_safe is true iff
// drug safety and claim verification both passed; low confidence adds a
// warning but never fails the response on its own.
func (p *Pipeline) Run(in Input) domain.VerificationReport {
	drugReport := p.drugSafety.Verify(in.Answer, in.RawToolText)

	claims := p.extractor.Extract(in.Answer)
	claimReport := p.grounding.Verify(claims, in.RawToolText)

	populated, empty := 0, 0
	for _, r := range in.ToolResults {
		if r.Found {
			populated++
		} else {
			empty++
		}
	}
	confReport := p.scorer.Score(ConfidenceInput{
		Answer:           in.Answer,
		ToolCallCount:    len(in.ToolCalls),
		PopulatedResults: populated,
		EmptyResults:     empty,
		GroundingRate:    claimReport.GroundingRate,
	})

	report := domain.VerificationReport{
		DrugSafety:        drugReport,
		ConfidenceScoring: confReport,
		ClaimVerification: claimReport,
		OverallSafe:       drugReport.Passed && claimReport.Passed,
	}
	report.Disclaimers = p.buildDisclaimers(report)

	p.logger.Info("verification complete",
		"drug_safety_passed", drugReport.Passed,
		"grounding_rate", claimReport.GroundingRate,
		"confidence", confReport.Score,
		"overall_safe", report.OverallSafe,
	)
	return report
}

// buildDisclaimers assembles the disclaimer list in deterministic order:
// generic notice, drug interaction warning, low confidence, unverified
// information.
func (p *Pipeline) buildDisclaimers(r domain.VerificationReport) []string {
	disclaimers := []string{genericDisclaimer}

	if !r.DrugSafety.Passed {
		var pairs []string
		for _, f := range r.DrugSafety.Flags {
			if f.Severity == domain.SeverityMajor {
				pairs = append(pairs, f.Drugs[0]+" and "+f.Drugs[1])
			}
		}
		disclaimers = append(disclaimers, fmt.Sprintf(
			"SAFETY ALERT: Potential drug interaction concern detected (%s). "+
				"Please consult a pharmacist or healthcare provider before combining these medications.",
			strings.Join(pairs, ", ")))
	}

	if p.scorer.IsLow(r.ConfidenceScoring.Score) {
		disclaimers = append(disclaimers,
			"LOW CONFIDENCE: This response has limited data backing. "+
				"Please verify this information with your healthcare provider.")
	}

	if !r.ClaimVerification.Passed {
		ungrounded := len(r.ClaimVerification.Claims) - r.ClaimVerification.GroundedCount()
		disclaimers = append(disclaimers, fmt.Sprintf(
			"UNVERIFIED INFORMATION: %d statement(s) in this response could not be "+
				"verified against medical records data and may be general knowledge "+
				"rather than patient-specific facts.", ungrounded))
	}

	return disclaimers
}
