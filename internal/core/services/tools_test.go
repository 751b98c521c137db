package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrow/clinagent/internal/core/domain"
)

// fakeSource serves canned FHIR resources keyed by resource type.
type fakeSource struct {
	resources map[string][]map[string]any
	byID      map[string]map[string]any
	err       error
}

func (f *fakeSource) Search(_ context.Context, resourceType string, params map[string]string) ([]map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	entries := f.resources[resourceType]
	if resourceType != "Patient" && resourceType != "Practitioner" {
		return entries, nil
	}
	// Name params filter crudely on the family name, mirroring the way the
	// tools fall through their search strategies.
	family := params["family"]
	if family == "" && params["name"] != "" {
		family = params["name"]
	}
	if family == "" {
		return entries, nil
	}
	var out []map[string]any
	for _, e := range entries {
		names, _ := e["name"].([]any)
		if len(names) == 0 {
			continue
		}
		if n, ok := names[0].(map[string]any); ok && n["family"] == family {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSource) Get(_ context.Context, resourceType, id string) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.byID[resourceType+"/"+id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("not found: %s/%s", resourceType, id)
}

func smithPatient() map[string]any {
	return map[string]any{
		"id":        "pat-1",
		"birthDate": "1962-07-14",
		"gender":    "male",
		"name": []any{map[string]any{
			"family": "Smith",
			"given":  []any{"John"},
		}},
	}
}

func warfarinRequest() map[string]any {
	return map[string]any{
		"status": "active",
		"medicationCodeableConcept": map[string]any{
			"coding": []any{map[string]any{"display": "Warfarin 5mg tablet"}},
		},
	}
}

func TestPatientSummaryTool_FormatsRecord(t *testing.T) {
	source := &fakeSource{resources: map[string][]map[string]any{
		"Patient":           {smithPatient()},
		"MedicationRequest": {warfarinRequest()},
		"Condition": {{
			"code": map[string]any{"coding": []any{map[string]any{
				"display": "Atrial fibrillation", "code": "I48.91",
			}}},
		}},
	}}
	tool := NewPatientSummaryTool(source)

	res, err := tool.Execute(context.Background(), map[string]any{"patient_identifier": "John Smith"})

	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Contains(t, res.RawText, "PATIENT SUMMARY: John Smith")
	assert.Contains(t, res.RawText, "Warfarin 5mg tablet")
	assert.Contains(t, res.RawText, "Atrial fibrillation")
	assert.Contains(t, res.RawText, "No known allergies")
	assert.Equal(t, true, res.Data["found"])
}

func TestPatientSummaryTool_NotFound(t *testing.T) {
	source := &fakeSource{resources: map[string][]map[string]any{}}
	tool := NewPatientSummaryTool(source)

	res, err := tool.Execute(context.Background(), map[string]any{"patient_identifier": "Nobody Here"})

	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Contains(t, res.RawText, "No patient found matching 'Nobody Here'")
}

func TestPatientSummaryTool_EmptyIdentifierRejected(t *testing.T) {
	tool := NewPatientSummaryTool(&fakeSource{})

	_, err := tool.Execute(context.Background(), map[string]any{"patient_identifier": "  "})

	var inputErr *domain.ToolInputError
	require.ErrorAs(t, err, &inputErr)
}

func TestDrugInteractionTool_FlagsMajorPair(t *testing.T) {
	tool := NewDrugInteractionTool(&fakeSource{})

	res, err := tool.Execute(context.Background(), map[string]any{
		"medications": []any{"Coumadin", "aspirin"},
	})

	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Contains(t, res.RawText, "[MAJOR]")
	assert.Contains(t, res.RawText, "WARNING")
	assert.Equal(t, true, res.Data["has_major_interaction"])
}

func TestDrugInteractionTool_MergesPatientRecordMeds(t *testing.T) {
	source := &fakeSource{resources: map[string][]map[string]any{
		"Patient":           {smithPatient()},
		"MedicationRequest": {warfarinRequest()},
	}}
	tool := NewDrugInteractionTool(source)

	res, err := tool.Execute(context.Background(), map[string]any{
		"medications":        []any{"aspirin"},
		"patient_identifier": "John Smith",
	})

	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Contains(t, res.RawText, "Included from patient record: Warfarin")
	assert.Contains(t, res.RawText, "[MAJOR]")
}

func TestDrugInteractionTool_NeedsTwoMedications(t *testing.T) {
	tool := NewDrugInteractionTool(&fakeSource{})

	res, err := tool.Execute(context.Background(), map[string]any{
		"medications": []any{"warfarin"},
	})

	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Contains(t, res.RawText, "At least 2 medications")
}

func TestSymptomLookupTool_KnownSymptom(t *testing.T) {
	tool := NewSymptomLookupTool()

	res, err := tool.Execute(context.Background(), map[string]any{
		"symptoms": []any{"chest pain"},
	})

	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Contains(t, res.RawText, "SEEK EMERGENCY CARE")
	assert.Contains(t, res.RawText, "not a diagnosis")
}

func TestSymptomLookupTool_ListsRedFlags(t *testing.T) {
	tool := NewSymptomLookupTool()

	res, err := tool.Execute(context.Background(), map[string]any{
		"symptoms": []any{"headache"},
	})

	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Contains(t, res.RawText, "Red flags:")
	assert.Contains(t, res.RawText, "Thunderclap onset")
}

func TestSymptomLookupTool_UnknownSymptom(t *testing.T) {
	tool := NewSymptomLookupTool()

	res, err := tool.Execute(context.Background(), map[string]any{
		"symptoms": []any{"glowing toes"},
	})

	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Contains(t, res.RawText, "No reference information available")
}

func TestProviderSearchTool_RequiresNameOrSpecialty(t *testing.T) {
	tool := NewProviderSearchTool(&fakeSource{})

	_, err := tool.Execute(context.Background(), map[string]any{})

	var inputErr *domain.ToolInputError
	require.ErrorAs(t, err, &inputErr)
}

func TestProviderSearchTool_FindsByName(t *testing.T) {
	source := &fakeSource{resources: map[string][]map[string]any{
		"Practitioner": {{
			"id":     "prov-1",
			"active": true,
			"name": []any{map[string]any{
				"family": "Wilson",
				"given":  []any{"Sarah"},
			}},
		}},
	}}
	tool := NewProviderSearchTool(source)

	res, err := tool.Execute(context.Background(), map[string]any{"name": "Dr. Wilson"})

	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Contains(t, res.RawText, "Sarah Wilson")
	assert.Contains(t, res.RawText, "Status: Active")
}

func TestAppointmentTool_RejectsBadDate(t *testing.T) {
	tool := NewAppointmentAvailabilityTool(&fakeSource{}, time.Now)

	_, err := tool.Execute(context.Background(), map[string]any{"date": "02/25/2026"})

	var inputErr *domain.ToolInputError
	require.ErrorAs(t, err, &inputErr)
}

func TestAppointmentTool_ComputesOpenSlots(t *testing.T) {
	source := &fakeSource{resources: map[string][]map[string]any{
		"Practitioner": {{
			"id":   "prov-1",
			"name": []any{map[string]any{"family": "Wilson", "given": []any{"Sarah"}}},
		}},
		"Appointment": {{
			"start":  "2026-02-25T09:00:00Z",
			"end":    "2026-02-25T09:30:00Z",
			"status": "booked",
			"participant": []any{map[string]any{
				"actor": map[string]any{"reference": "Practitioner/prov-1", "display": "Sarah Wilson"},
			}},
		}},
	}}
	tool := NewAppointmentAvailabilityTool(source, time.Now)

	res, err := tool.Execute(context.Background(), map[string]any{
		"provider_name": "Wilson",
		"date":          "2026-02-25",
	})

	require.NoError(t, err)
	assert.True(t, res.Found)
	// 16 business-hour slots, one booked.
	assert.Equal(t, 16, res.Data["total_slots"])
	assert.Equal(t, 15, res.Data["available_count"])
	assert.Contains(t, res.RawText, "Booked Appointments (1)")
	assert.NotContains(t, res.RawText, "09:00 - 09:30\n", "booked slot must not be listed as open")
}

func TestAppointmentTool_DefaultsToToday(t *testing.T) {
	fixed := func() time.Time { return time.Date(2026, 2, 25, 10, 0, 0, 0, time.UTC) }
	tool := NewAppointmentAvailabilityTool(&fakeSource{resources: map[string][]map[string]any{}}, fixed)

	res, err := tool.Execute(context.Background(), map[string]any{})

	require.NoError(t, err)
	assert.Contains(t, res.RawText, "Date: 2026-02-25")
}
