package domain

// Severity is the three-level clinical risk rating for a medication pair.
type Severity string

const (
	SeverityMajor    Severity = "major"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
)

// ClaimCategory tags what kind of factual assertion a claim is.
type ClaimCategory string

const (
	ClaimMedication ClaimCategory = "medication-mention"
	ClaimCondition  ClaimCategory = "condition-mention"
	ClaimNumeric    ClaimCategory = "numeric-value"
	ClaimName       ClaimCategory = "name-mention"
	ClaimDate       ClaimCategory = "date-mention"
)

// Claim is one atomic factual assertion extracted from a draft answer,
// with its source span. Ephemeral: produced and consumed within one
// verification pass.
type Claim struct {
	Category ClaimCategory `json:"category"`
	Subject  string        `json:"subject"`
	Value    string        `json:"value,omitempty"`
	Text     string        `json:"text"`
	Start    int           `json:"start"`
	End      int           `json:"end"`
}

// VerifiedClaim is a claim plus its grounding verdict.
type VerifiedClaim struct {
	Claim
	Grounded bool   `json:"grounded"`
	Note     string `json:"note,omitempty"`
}

// InteractionFlag records one flagged medication pair.
type InteractionFlag struct {
	Drugs       [2]string `json:"drugs"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
}

// DrugSafetyReport is the outcome of the drug safety verifier. Passed is
// false iff any flagged pair is major severity.
type DrugSafetyReport struct {
	Passed bool              `json:"passed"`
	Flags  []InteractionFlag `json:"flags"`
}

// ConfidenceReport carries the scorer's result and its factor breakdown.
type ConfidenceReport struct {
	Score   float64            `json:"score"`
	Factors map[string]float64 `json:"factors"`
}

// ClaimReport is the grounding checker's verdict with the full per-claim
// partition kept for auditability.
type ClaimReport struct {
	Passed        bool            `json:"passed"`
	GroundingRate float64         `json:"grounding_rate"`
	Claims        []VerifiedClaim `json:"claims"`
}

// GroundedCount returns how many claims were grounded.
func (r ClaimReport) GroundedCount() int {
	n := 0
	for _, c := range r.Claims {
		if c.Grounded {
			n++
		}
	}
	return n
}

// VerificationReport merges the three verifier outputs. Immutable once
// built. OverallSafe is true iff drug safety and claim verification both
// passed; low confidence only adds a disclaimer.
type VerificationReport struct {
	DrugSafety        DrugSafetyReport `json:"drug_safety"`
	ConfidenceScoring ConfidenceReport `json:"confidence_scoring"`
	ClaimVerification ClaimReport      `json:"claim_verification"`
	OverallSafe       bool             `json:"overall_safe"`
	Disclaimers       []string         `json:"-"`
}

// FinalResponse is the JSON-serializable answer envelope returned to the
// caller after verification.
type FinalResponse struct {
	Answer                string             `json:"answer"`
	SessionID             string             `json:"session_id"`
	Confidence            float64            `json:"confidence"`
	Disclaimers           []string           `json:"disclaimers"`
	Verification          VerificationReport `json:"verification"`
	ToolCalls             []ToolCall         `json:"tool_calls"`
	IterationLimitReached bool               `json:"iteration_limit_reached"`
}
