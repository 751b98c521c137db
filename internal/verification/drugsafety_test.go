package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrow/clinagent/internal/core/domain"
)

func TestDrugSafety_SingleDrugPasses(t *testing.T) {
	v := NewDrugSafetyVerifier()
	report := v.Verify("Warfarin 5 mg is on the current medication list.", "")

	assert.True(t, report.Passed)
	assert.Empty(t, report.Flags)
}

func TestDrugSafety_MajorPairFails(t *testing.T) {
	v := NewDrugSafetyVerifier()
	report := v.Verify("The patient takes warfarin and was advised to add aspirin for pain.", "")

	assert.False(t, report.Passed)
	require.Len(t, report.Flags, 1)
	assert.Equal(t, domain.SeverityMajor, report.Flags[0].Severity)
	assert.Equal(t, [2]string{"aspirin", "warfarin"}, report.Flags[0].Drugs)
}

func TestDrugSafety_BrandNamesNormalize(t *testing.T) {
	v := NewDrugSafetyVerifier()
	report := v.Verify("Coumadin and Advil should not be combined.", "")

	assert.False(t, report.Passed)
	require.Len(t, report.Flags, 1)
	assert.Equal(t, [2]string{"ibuprofen", "warfarin"}, report.Flags[0].Drugs)
}

func TestDrugSafety_ModeratePairFlaggedButPasses(t *testing.T) {
	v := NewDrugSafetyVerifier()
	report := v.Verify("They take warfarin and occasionally acetaminophen.", "")

	assert.True(t, report.Passed)
	require.Len(t, report.Flags, 1)
	assert.Equal(t, domain.SeverityModerate, report.Flags[0].Severity)
}

func TestDrugSafety_ContradictionAnnotated(t *testing.T) {
	v := NewDrugSafetyVerifier()
	report := v.Verify("Warfarin and aspirin are safe to take together.", "")

	assert.False(t, report.Passed)
	require.Len(t, report.Flags, 1)
	assert.Contains(t, report.Flags[0].Description, "contradicting")
}

func TestDrugSafety_RiskAcknowledgementIsNotContradiction(t *testing.T) {
	v := NewDrugSafetyVerifier()
	report := v.Verify(
		"Warfarin and aspirin carry a serious bleeding interaction and should not be combined.", "")

	assert.False(t, report.Passed)
	require.Len(t, report.Flags, 1)
	assert.NotContains(t, report.Flags[0].Description, "contradicting")
}

func TestDrugSafety_PairFromToolEvidenceFlagged(t *testing.T) {
	v := NewDrugSafetyVerifier()
	report := v.Verify(
		"Aspirin may help with the pain.",
		"=== PATIENT SUMMARY: John Smith ===\nCurrent Medications:\n  - Warfarin 5mg tablet daily")

	assert.False(t, report.Passed)
	require.Len(t, report.Flags, 1)
	assert.Equal(t, [2]string{"aspirin", "warfarin"}, report.Flags[0].Drugs)
}

func TestDrugSafety_UnrelatedPairPasses(t *testing.T) {
	v := NewDrugSafetyVerifier()
	report := v.Verify("Current medications are metformin and lisinopril.", "")

	assert.True(t, report.Passed)
}
