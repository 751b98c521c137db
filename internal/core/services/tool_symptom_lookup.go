package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/refdata"
)

// NewSymptomLookupTool builds the symptom_lookup tool over the static
// symptom-to-condition reference table. It is educational triage support, not
// a diagnostic engine, and the output says so.
func NewSymptomLookupTool() *domain.Tool {
	params := openapi3.NewObjectSchema().
		WithProperty("symptoms", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))
	params.Required = []string{"symptoms"}

	return &domain.Tool{
		Name: "symptom_lookup",
		Description: "Look up possible conditions associated with one or more symptoms, " +
			"with urgency levels and red flags that warrant immediate care. " +
			"For general information only, not a diagnosis.",
		Parameters: params,
		Execute: func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
			symptoms, err := stringList(args["symptoms"])
			if err != nil || len(symptoms) == 0 {
				return domain.ToolResult{}, &domain.ToolInputError{
					Tool: "symptom_lookup", Reason: "symptoms must be a non-empty list of strings",
				}
			}

			results := refdata.LookupSymptoms(symptoms)
			anyMatched := false
			for _, r := range results {
				if r.Matched {
					anyMatched = true
					break
				}
			}
			if !anyMatched {
				return domain.ToolResult{
					Data: map[string]any{"symptoms": symptoms, "matched": false},
					RawText: fmt.Sprintf(
						"No reference information available for: %s. "+
							"Recommend the patient consult a healthcare provider for evaluation.",
						strings.Join(symptoms, ", ")),
					Found: false,
				}, nil
			}

			return domain.ToolResult{
				Data:    symptomData(results),
				RawText: formatSymptomResults(results),
				Found:   true,
			}, nil
		},
	}
}

func symptomData(results []refdata.SymptomResult) map[string]any {
	list := make([]map[string]any, 0, len(results))
	for _, r := range results {
		entry := map[string]any{
			"symptom": r.Symptom,
			"matched": r.Matched,
		}
		if r.Matched {
			entry["highest_urgency"] = r.HighestUrgency()
			conds := make([]map[string]any, 0, len(r.Conditions))
			for _, c := range r.Conditions {
				conds = append(conds, map[string]any{
					"name":       c.Name,
					"icd10":      c.ICD10,
					"urgency":    c.Urgency,
					"likelihood": c.Likelihood,
					"red_flags":  c.RedFlags,
				})
			}
			entry["conditions"] = conds
		}
		list = append(list, entry)
	}
	return map[string]any{"results": list, "matched": true}
}

func formatSymptomResults(results []refdata.SymptomResult) string {
	var b strings.Builder
	b.WriteString("=== SYMPTOM REFERENCE LOOKUP ===\n")
	b.WriteString("For general information only. This is not a diagnosis.\n")

	for _, r := range results {
		fmt.Fprintf(&b, "\nSymptom: %s\n", r.Symptom)
		if !r.Matched {
			b.WriteString("  No reference information available for this symptom.\n")
			continue
		}
		fmt.Fprintf(&b, "  Highest urgency among possibilities: %s\n", strings.ToUpper(r.HighestUrgency()))
		for _, c := range r.Conditions {
			fmt.Fprintf(&b, "  - %s (ICD-10: %s) [urgency: %s, likelihood: %s]\n",
				c.Name, c.ICD10, c.Urgency, c.Likelihood)
			if c.RedFlags != "" {
				fmt.Fprintf(&b, "    Red flags: %s\n", c.RedFlags)
			}
			if c.Notes != "" {
				fmt.Fprintf(&b, "    Notes: %s\n", c.Notes)
			}
		}
		if r.HighestUrgency() == refdata.UrgencyEmergency {
			b.WriteString("  SEEK EMERGENCY CARE: at least one possible cause of this symptom is an emergency.\n")
		}
	}
	return b.String()
}
