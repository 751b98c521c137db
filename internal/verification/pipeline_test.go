package verification

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrow/clinagent/internal/core/domain"
)

func testPipeline() *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPipeline(logger, 0.5, 0.3)
}

func TestPipeline_CleanAnswerIsSafe(t *testing.T) {
	p := testPipeline()
	evidence := "=== PATIENT SUMMARY: John Smith ===\nCurrent Medications:\n  - Lisinopril 10 mg"

	report := p.Run(Input{
		Answer: "John Smith currently takes Lisinopril 10 mg. " +
			"Please consult your healthcare provider with any questions.",
		ToolCalls:   []domain.ToolCall{{ID: "c1", Name: "patient_summary"}},
		ToolResults: []domain.ToolResult{{CallID: "c1", RawText: evidence, Found: true}},
		RawToolText: evidence,
	})

	assert.True(t, report.DrugSafety.Passed)
	assert.True(t, report.ClaimVerification.Passed)
	assert.True(t, report.OverallSafe)
	require.NotEmpty(t, report.Disclaimers)
	assert.Contains(t, report.Disclaimers[0], "educational purposes")
}

func TestPipeline_MajorInteractionFailsOverall(t *testing.T) {
	p := testPipeline()
	evidence := "Medications checked: aspirin, warfarin\n[MAJOR] aspirin + warfarin"

	report := p.Run(Input{
		Answer:      "The records show warfarin and aspirin together.",
		ToolCalls:   []domain.ToolCall{{ID: "c1", Name: "drug_interaction_check"}},
		ToolResults: []domain.ToolResult{{CallID: "c1", RawText: evidence, Found: true}},
		RawToolText: evidence,
	})

	assert.False(t, report.DrugSafety.Passed)
	assert.False(t, report.OverallSafe)

	found := false
	for _, d := range report.Disclaimers {
		if strings.Contains(d, "SAFETY ALERT") {
			found = true
			assert.Contains(t, d, "aspirin and warfarin")
		}
	}
	assert.True(t, found, "expected a safety alert disclaimer")
}

func TestPipeline_UngroundedClaimsFailVerification(t *testing.T) {
	p := testPipeline()

	report := p.Run(Input{
		Answer:      "Jane Roe has an appointment on 2030-12-01 and takes metformin 500 mg.",
		ToolCalls:   []domain.ToolCall{{ID: "c1", Name: "patient_summary"}},
		ToolResults: []domain.ToolResult{{CallID: "c1", RawText: "No patient found matching 'Jane Roe'.", Found: false}},
		RawToolText: "No patient found matching 'Jane Roe'.",
	})

	assert.False(t, report.ClaimVerification.Passed)
	assert.False(t, report.OverallSafe)

	found := false
	for _, d := range report.Disclaimers {
		if strings.Contains(d, "UNVERIFIED INFORMATION") {
			found = true
		}
	}
	assert.True(t, found, "expected an unverified information disclaimer")
}

func TestPipeline_NoClaimsNoToolsStaysSafe(t *testing.T) {
	p := testPipeline()

	report := p.Run(Input{Answer: "i can help with medication questions, scheduling, and health records."})

	assert.True(t, report.OverallSafe)
	assert.Equal(t, 1.0, report.ClaimVerification.GroundingRate)
	assert.Len(t, report.Disclaimers, 1)
}

func TestPipeline_Deterministic(t *testing.T) {
	p := testPipeline()
	in := Input{
		Answer:      "John Smith takes warfarin 5 mg.",
		ToolCalls:   []domain.ToolCall{{ID: "c1", Name: "patient_summary"}},
		ToolResults: []domain.ToolResult{{CallID: "c1", RawText: "John Smith warfarin 5 mg", Found: true}},
		RawToolText: "John Smith warfarin 5 mg",
	}

	assert.Equal(t, p.Run(in), p.Run(in))
}
