package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
	"github.com/medrow/clinagent/internal/refdata"
)

// NewDrugInteractionTool builds the drug_interaction_check tool. It checks
// every unordered pair in the supplied list against the curated interaction
// table, optionally merging in the active medications on a patient's record.
func NewDrugInteractionTool(source ports.ClinicalSource) *domain.Tool {
	params := openapi3.NewObjectSchema().
		WithProperty("medications", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("patient_identifier", openapi3.NewStringSchema())
	params.Required = []string{"medications"}

	return &domain.Tool{
		Name: "drug_interaction_check",
		Description: "Check for known interactions between two or more medications. " +
			"Accepts brand or generic names. Optionally pass patient_identifier to " +
			"also check against the medications already on that patient's record.",
		Parameters: params,
		Execute: func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
			meds, err := stringList(args["medications"])
			if err != nil {
				return domain.ToolResult{}, &domain.ToolInputError{
					Tool: "drug_interaction_check", Reason: "medications must be a list of strings",
				}
			}

			var recordMeds []string
			if identifier, _ := args["patient_identifier"].(string); strings.TrimSpace(identifier) != "" {
				recordMeds = patientMedicationNames(ctx, source, identifier)
				meds = append(meds, recordMeds...)
			}
			meds = dedupeDrugNames(meds)

			if len(meds) < 2 {
				return domain.ToolResult{
					Data:    map[string]any{"medications": meds, "interactions": []any{}},
					RawText: "At least 2 medications are needed to check for interactions. Please provide the medication names.",
					Found:   false,
				}, nil
			}

			matches := refdata.CheckInteractions(meds)
			return domain.ToolResult{
				Data:    interactionData(meds, recordMeds, matches),
				RawText: formatInteractions(meds, recordMeds, matches),
				Found:   true,
			}, nil
		},
	}
}

// patientMedicationNames fetches the active medication names from a patient's
// record. Lookup failures degrade to an empty list so the explicit medication
// list still gets checked.
func patientMedicationNames(ctx context.Context, source ports.ClinicalSource, identifier string) []string {
	patient, err := findPatient(ctx, source, identifier)
	if err != nil || patient == nil {
		return nil
	}
	requests, err := source.Search(ctx, "MedicationRequest", map[string]string{
		"patient": getString(patient, "id"),
	})
	if err != nil {
		return nil
	}
	var names []string
	for _, mr := range requests {
		if status := getString(mr, "status"); status != "" && status != "active" {
			continue
		}
		if med := codeableConceptText(getMap(mr, "medicationCodeableConcept")); med != "" {
			// Record entries carry strength suffixes ("Warfarin 5mg tablet");
			// the interaction table keys on the bare name.
			names = append(names, strings.Fields(med)[0])
		}
	}
	return names
}

// dedupeDrugNames removes duplicates by normalized (generic) name while
// preserving the first spelling seen.
func dedupeDrugNames(meds []string) []string {
	seen := make(map[string]struct{}, len(meds))
	out := make([]string, 0, len(meds))
	for _, m := range meds {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		key := refdata.NormalizeDrugName(m)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func interactionData(meds, recordMeds []string, matches []refdata.InteractionMatch) map[string]any {
	list := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		list = append(list, map[string]any{
			"drug_1":         m.Drug1,
			"drug_2":         m.Drug2,
			"severity":       string(m.Severity),
			"description":    m.Description,
			"mechanism":      m.Mechanism,
			"recommendation": m.Recommendation,
		})
	}
	return map[string]any{
		"medications":           meds,
		"from_patient_record":   recordMeds,
		"interactions":          list,
		"interaction_count":     len(matches),
		"has_major_interaction": hasMajor(matches),
	}
}

func hasMajor(matches []refdata.InteractionMatch) bool {
	for _, m := range matches {
		if m.Severity == domain.SeverityMajor {
			return true
		}
	}
	return false
}

func formatInteractions(meds, recordMeds []string, matches []refdata.InteractionMatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== DRUG INTERACTION CHECK ===\n")
	fmt.Fprintf(&b, "Medications checked: %s\n", strings.Join(meds, ", "))
	if len(recordMeds) > 0 {
		fmt.Fprintf(&b, "Included from patient record: %s\n", strings.Join(recordMeds, ", "))
	}

	if len(matches) == 0 {
		b.WriteString("\nNo known interactions found between these medications in the reference database.\n")
		b.WriteString("Note: absence from this database does not guarantee safety. Always confirm with a pharmacist.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\n%d interaction(s) found:\n", len(matches))
	for _, m := range matches {
		fmt.Fprintf(&b, "\n[%s] %s + %s\n", strings.ToUpper(string(m.Severity)), m.Drug1, m.Drug2)
		fmt.Fprintf(&b, "  Description: %s\n", m.Description)
		if m.Mechanism != "" {
			fmt.Fprintf(&b, "  Mechanism: %s\n", m.Mechanism)
		}
		if m.Recommendation != "" {
			fmt.Fprintf(&b, "  Recommendation: %s\n", m.Recommendation)
		}
	}
	if hasMajor(matches) {
		b.WriteString("\nWARNING: a major interaction is present. A prescriber should review this combination before use.\n")
	}
	return b.String()
}

// stringList coerces a decoded JSON array into []string.
func stringList(v any) ([]string, error) {
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss, nil
		}
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string element, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}
