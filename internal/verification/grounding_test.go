package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrow/clinagent/internal/core/domain"
)

func TestGroundingChecker_ZeroClaimsRateIsOne(t *testing.T) {
	c := NewGroundingChecker(0.5)
	report := c.Verify(nil, "some tool output")

	assert.True(t, report.Passed)
	assert.Equal(t, 1.0, report.GroundingRate)
	assert.Empty(t, report.Claims)
}

func TestGroundingChecker_SubjectAndValueMustAppear(t *testing.T) {
	c := NewGroundingChecker(0.5)
	evidence := "Current Medications:\n  - Warfarin 5 mg [active]"

	claims := []domain.Claim{
		{Category: domain.ClaimMedication, Subject: "Warfarin", Value: "5 mg", Text: "Warfarin 5 mg"},
		{Category: domain.ClaimMedication, Subject: "Warfarin", Value: "10 mg", Text: "Warfarin 10 mg"},
		{Category: domain.ClaimMedication, Subject: "Metformin", Text: "Metformin"},
	}
	report := c.Verify(claims, evidence)

	require.Len(t, report.Claims, 3)
	assert.True(t, report.Claims[0].Grounded)
	assert.False(t, report.Claims[1].Grounded, "wrong dose must not ground")
	assert.False(t, report.Claims[2].Grounded, "unseen drug must not ground")
	assert.InDelta(t, 1.0/3.0, report.GroundingRate, 1e-9)
	assert.False(t, report.Passed)
}

func TestGroundingChecker_NormalizationBridgesCaseAndWhitespace(t *testing.T) {
	c := NewGroundingChecker(0.5)
	evidence := "Patient:   JOHN   SMITH\nDOB: 1980-04-02"

	claims := []domain.Claim{
		{Category: domain.ClaimName, Subject: "John Smith", Text: "John Smith"},
		{Category: domain.ClaimDate, Subject: "1980-04-02", Text: "1980-04-02"},
	}
	report := c.Verify(claims, evidence)

	assert.Equal(t, 1.0, report.GroundingRate)
	assert.True(t, report.Passed)
}

func TestGroundingChecker_EmptySubjectIsUnverifiable(t *testing.T) {
	c := NewGroundingChecker(0.5)
	report := c.Verify([]domain.Claim{{Category: domain.ClaimName, Text: "??"}}, "evidence")

	require.Len(t, report.Claims, 1)
	assert.False(t, report.Claims[0].Grounded)
	assert.Contains(t, report.Claims[0].Note, "empty subject")
}

func TestGroundingChecker_PassThresholdBoundary(t *testing.T) {
	c := NewGroundingChecker(0.5)
	evidence := "warfarin"

	claims := []domain.Claim{
		{Subject: "warfarin", Text: "warfarin"},
		{Subject: "unmentioned", Text: "unmentioned"},
	}
	report := c.Verify(claims, evidence)

	assert.Equal(t, 0.5, report.GroundingRate)
	assert.True(t, report.Passed, "rate equal to threshold passes")
}

func TestGroundingChecker_Idempotent(t *testing.T) {
	c := NewGroundingChecker(0.5)
	claims := []domain.Claim{
		{Subject: "warfarin", Value: "5 mg", Text: "warfarin 5 mg"},
		{Subject: "aspirin", Text: "aspirin"},
	}
	evidence := "warfarin 5 mg on the list"

	first := c.Verify(claims, evidence)
	second := c.Verify(claims, evidence)
	assert.Equal(t, first, second)
}
