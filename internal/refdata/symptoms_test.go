package refdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupSymptoms_ExactMatch(t *testing.T) {
	results := LookupSymptoms([]string{"chest pain"})

	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
	assert.NotEmpty(t, results[0].Conditions)
	assert.Equal(t, UrgencyEmergency, results[0].HighestUrgency())
}

func TestLookupSymptoms_SubstringFallback(t *testing.T) {
	results := LookupSymptoms([]string{"a really bad headache"})

	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
}

func TestLookupSymptoms_CaseInsensitive(t *testing.T) {
	results := LookupSymptoms([]string{"  FEVER "})

	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
}

func TestLookupSymptoms_Unknown(t *testing.T) {
	results := LookupSymptoms([]string{"glowing toes"})

	require.Len(t, results, 1)
	assert.False(t, results[0].Matched)
	assert.Empty(t, results[0].Conditions)
	assert.Empty(t, results[0].HighestUrgency())
}

func TestLookupSymptoms_PreservesOrder(t *testing.T) {
	results := LookupSymptoms([]string{"fatigue", "dizziness"})

	require.Len(t, results, 2)
	assert.Equal(t, "fatigue", results[0].Symptom)
	assert.Equal(t, "dizziness", results[1].Symptom)
}

func TestConditionsCarryRedFlags(t *testing.T) {
	results := LookupSymptoms([]string{"shortness of breath"})

	require.True(t, results[0].Matched)
	hasRedFlag := false
	for _, c := range results[0].Conditions {
		if len(c.RedFlags) > 0 {
			hasRedFlag = true
		}
		assert.NotEmpty(t, c.ICD10)
	}
	assert.True(t, hasRedFlag)
}
