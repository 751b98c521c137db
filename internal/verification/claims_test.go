package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrow/clinagent/internal/core/domain"
)

func TestClaimExtractor_EmptyText(t *testing.T) {
	e := NewClaimExtractor()
	assert.Empty(t, e.Extract(""))
	assert.Empty(t, e.Extract("   \n\t "))
}

func TestClaimExtractor_MedicationWithDose(t *testing.T) {
	e := NewClaimExtractor()
	claims := e.Extract("The patient takes Warfarin 5 mg daily.")

	require.NotEmpty(t, claims)
	med := findClaim(t, claims, domain.ClaimMedication)
	assert.Equal(t, "Warfarin", med.Subject)
	assert.Equal(t, "5 mg", med.Value)
}

func TestClaimExtractor_BrandNameMention(t *testing.T) {
	e := NewClaimExtractor()
	claims := e.Extract("They were given Tylenol for the fever.")

	med := findClaim(t, claims, domain.ClaimMedication)
	assert.Equal(t, "Tylenol", med.Subject)
	assert.Empty(t, med.Value)
}

func TestClaimExtractor_ConditionAssertion(t *testing.T) {
	e := NewClaimExtractor()
	claims := e.Extract("The patient has type 2 diabetes and hypertension.")

	cond := findClaim(t, claims, domain.ClaimCondition)
	assert.Equal(t, "patient", cond.Subject)
	assert.Contains(t, cond.Value, "type 2 diabetes")
}

func TestClaimExtractor_Measurement(t *testing.T) {
	e := NewClaimExtractor()
	claims := e.Extract("Their blood pressure is 120/80 mmHg today.")

	num := findClaim(t, claims, domain.ClaimNumeric)
	assert.Equal(t, "blood pressure", num.Subject)
	assert.Contains(t, num.Value, "120/80")
}

func TestClaimExtractor_NamesAndDates(t *testing.T) {
	e := NewClaimExtractor()
	claims := e.Extract("John Smith saw Dr. Wilson on 2026-02-25.")

	var names, dates int
	for _, c := range claims {
		switch c.Category {
		case domain.ClaimName:
			names++
		case domain.ClaimDate:
			dates++
		}
	}
	assert.GreaterOrEqual(t, names, 2)
	assert.Equal(t, 1, dates)
}

func TestClaimExtractor_SectionHeadingsAreNotNames(t *testing.T) {
	e := NewClaimExtractor()
	claims := e.Extract("Blood Pressure and Heart Rate were recorded.")

	for _, c := range claims {
		assert.NotEqual(t, domain.ClaimName, c.Category, "heading %q treated as a name", c.Text)
	}
}

func TestClaimExtractor_DeduplicatesAndOrders(t *testing.T) {
	e := NewClaimExtractor()
	text := "Aspirin was started. Aspirin remains on the list. Seen on 2025-01-02."
	claims := e.Extract(text)

	medCount := 0
	for _, c := range claims {
		if c.Category == domain.ClaimMedication {
			medCount++
		}
	}
	assert.Equal(t, 1, medCount)

	for i := 1; i < len(claims); i++ {
		assert.LessOrEqual(t, claims[i-1].Start, claims[i].Start)
	}
}

func TestClaimExtractor_Deterministic(t *testing.T) {
	e := NewClaimExtractor()
	text := "John Smith takes Warfarin 5 mg and Lisinopril. Blood pressure is 130/85."

	first := e.Extract(text)
	second := e.Extract(text)
	assert.Equal(t, first, second)
}

func findClaim(t *testing.T, claims []domain.Claim, cat domain.ClaimCategory) domain.Claim {
	t.Helper()
	for _, c := range claims {
		if c.Category == cat {
			return c
		}
	}
	t.Fatalf("no claim with category %s in %+v", cat, claims)
	return domain.Claim{}
}
