package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
)

// NewPatientSummaryTool builds the patient_summary tool: demographics,
// conditions, medications, allergies, immunizations, and recent lab results
// aggregated from the clinical record API.
func NewPatientSummaryTool(source ports.ClinicalSource) *domain.Tool {
	params := openapi3.NewObjectSchema().
		WithProperty("patient_identifier", openapi3.NewStringSchema())
	params.Required = []string{"patient_identifier"}

	return &domain.Tool{
		Name: "patient_summary",
		Description: "Get a comprehensive summary of a patient's medical record including " +
			"demographics, conditions, medications, allergies, and recent lab results. " +
			"Accepts a patient name (e.g. \"John Smith\") or a patient ID.",
		Parameters: params,
		Execute: func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
			identifier, _ := args["patient_identifier"].(string)
			if strings.TrimSpace(identifier) == "" {
				return domain.ToolResult{}, &domain.ToolInputError{
					Tool: "patient_summary", Reason: "patient_identifier must be a non-empty string",
				}
			}

			patient, err := findPatient(ctx, source, identifier)
			if err != nil {
				return domain.ToolResult{}, &domain.ToolUnavailableError{Tool: "patient_summary", Err: err}
			}
			if patient == nil {
				return domain.ToolResult{
					Data:    map[string]any{"found": false, "identifier": identifier},
					RawText: fmt.Sprintf("No patient found matching '%s'. Please check the name or ID and try again.", identifier),
					Found:   false,
				}, nil
			}

			patientID := getString(patient, "id")
			demo := patientDemographics(patient)

			conditions := searchAndExtract(ctx, source, "Condition", patientID, extractCondition)
			medications := searchAndExtract(ctx, source, "MedicationRequest", patientID, extractMedicationRequest)
			allergies := searchAndExtract(ctx, source, "AllergyIntolerance", patientID, extractAllergy)
			immunizations := searchAndExtract(ctx, source, "Immunization", patientID, extractImmunization)
			observations := searchAndExtract(ctx, source, "Observation", patientID, extractObservation)
			if len(observations) > 10 {
				observations = observations[:10]
			}

			data := map[string]any{
				"found":         true,
				"demographics":  demo,
				"conditions":    conditions,
				"medications":   medications,
				"allergies":     allergies,
				"immunizations": immunizations,
				"observations":  observations,
			}
			return domain.ToolResult{
				Data:    data,
				RawText: formatPatientSummary(demo, conditions, medications, allergies, immunizations, observations),
				Found:   true,
			}, nil
		},
	}
}

// findPatient tries, in order: direct ID lookup for UUID-shaped input,
// given+family search for multi-word names, general name search, family-only
// search. Returns nil when nothing matches.
func findPatient(ctx context.Context, source ports.ClinicalSource, identifier string) (map[string]any, error) {
	identifier = strings.TrimSpace(identifier)

	if len(identifier) > 30 && strings.Contains(identifier, "-") {
		if p, err := source.Get(ctx, "Patient", identifier); err == nil && p != nil {
			return p, nil
		}
	}

	parts := strings.Fields(identifier)
	if len(parts) >= 2 {
		patients, err := source.Search(ctx, "Patient", map[string]string{
			"given": parts[0], "family": parts[len(parts)-1],
		})
		if err != nil {
			return nil, err
		}
		if len(patients) > 0 {
			return patients[0], nil
		}
	}

	patients, err := source.Search(ctx, "Patient", map[string]string{"name": identifier})
	if err != nil {
		return nil, err
	}
	if len(patients) > 0 {
		return patients[0], nil
	}

	patients, err = source.Search(ctx, "Patient", map[string]string{"family": identifier})
	if err != nil {
		return nil, err
	}
	if len(patients) > 0 {
		return patients[0], nil
	}
	return nil, nil
}

// searchAndExtract fetches one clinical category for a patient. Failures
// degrade to an empty list; a partial summary beats no summary.
func searchAndExtract(
	ctx context.Context,
	source ports.ClinicalSource,
	resourceType, patientID string,
	extract func(map[string]any) map[string]any,
) []map[string]any {
	resources, err := source.Search(ctx, resourceType, map[string]string{"patient": patientID})
	if err != nil {
		return nil
	}
	out := make([]map[string]any, 0, len(resources))
	for _, r := range resources {
		out = append(out, extract(r))
	}
	return out
}

func formatPatientSummary(demo map[string]any, conditions, medications, allergies, immunizations, observations []map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== PATIENT SUMMARY: %s ===\n", formatValue(demo["name"]))
	fmt.Fprintf(&b, "Date of Birth: %s\n", orUnknown(demo["birth_date"]))
	fmt.Fprintf(&b, "Gender: %s\n", orUnknown(demo["gender"]))
	if v, ok := demo["phone"]; ok {
		fmt.Fprintf(&b, "Phone: %s\n", formatValue(v))
	}
	if v, ok := demo["address"]; ok {
		fmt.Fprintf(&b, "Address: %s\n", formatValue(v))
	}
	fmt.Fprintf(&b, "Patient ID: %s\n", orUnknown(demo["id"]))

	fmt.Fprintf(&b, "\n--- Active Conditions (%d) ---\n", len(conditions))
	if len(conditions) == 0 {
		b.WriteString("  No conditions on record.\n")
	}
	for _, c := range conditions {
		fmt.Fprintf(&b, "  - %s", orUnknown(c["display"]))
		if code := formatValue(c["code"]); c["code"] != nil && code != "" {
			fmt.Fprintf(&b, " (ICD-10: %s)", code)
		}
		if cs, ok := c["clinical_status"]; ok {
			fmt.Fprintf(&b, " [%s]", formatValue(cs))
		}
		b.WriteString("\n")
		if onset, ok := c["onset"]; ok {
			fmt.Fprintf(&b, "    Onset: %s\n", formatValue(onset))
		}
	}

	fmt.Fprintf(&b, "\n--- Current Medications (%d) ---\n", len(medications))
	if len(medications) == 0 {
		b.WriteString("  No medications on record.\n")
	}
	for _, m := range medications {
		fmt.Fprintf(&b, "  - %s", orUnknown(m["medication"]))
		if st := formatValue(m["status"]); m["status"] != nil && st != "" {
			fmt.Fprintf(&b, " [%s]", st)
		}
		b.WriteString("\n")
		if d, ok := m["dosage"]; ok {
			fmt.Fprintf(&b, "    Dosage: %s\n", formatValue(d))
		}
	}

	fmt.Fprintf(&b, "\n--- Allergies (%d) ---\n", len(allergies))
	if len(allergies) == 0 {
		b.WriteString("  No known allergies (NKA).\n")
	}
	for _, a := range allergies {
		fmt.Fprintf(&b, "  - %s", orUnknown(a["substance"]))
		if crit := formatValue(a["criticality"]); a["criticality"] != nil && crit != "" {
			fmt.Fprintf(&b, " [Criticality: %s]", crit)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n--- Immunizations (%d) ---\n", len(immunizations))
	if len(immunizations) == 0 {
		b.WriteString("  No immunization records.\n")
	}
	for _, i := range immunizations {
		fmt.Fprintf(&b, "  - %s", orUnknown(i["vaccine"]))
		if d := formatValue(i["date"]); i["date"] != nil && d != "" {
			fmt.Fprintf(&b, " (%s)", d)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n--- Recent Lab Results / Vitals (%d) ---\n", len(observations))
	if len(observations) == 0 {
		b.WriteString("  No recent lab results or vitals.\n")
	}
	for _, o := range observations {
		fmt.Fprintf(&b, "  - %s", orUnknown(o["test_name"]))
		if v, ok := o["value"]; ok {
			fmt.Fprintf(&b, ": %s", formatValue(v))
			if u := formatValue(o["unit"]); o["unit"] != nil && u != "" {
				fmt.Fprintf(&b, " %s", u)
			}
		}
		if d := formatValue(o["date"]); o["date"] != nil && d != "" {
			fmt.Fprintf(&b, " [%s]", d)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func orUnknown(v any) string {
	if v == nil {
		return "Unknown"
	}
	if s := formatValue(v); s != "" {
		return s
	}
	return "Unknown"
}
