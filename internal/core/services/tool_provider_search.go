package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
)

// Common specialty names mapped to NUCC taxonomy codes. The record API only
// supports code-based specialty search on PractitionerRole.
var specialtyCodes = map[string]string{
	"cardiology":             "207RC0000X",
	"cardiovascular":         "207RC0000X",
	"cardiovascular disease": "207RC0000X",
	"heart":                  "207RC0000X",
	"family medicine":        "207Q00000X",
	"family practice":        "207Q00000X",
	"dermatology":            "207N00000X",
	"skin":                   "207N00000X",
	"internal medicine":      "207R00000X",
	"general practice":       "208D00000X",
	"pediatrics":             "208000000X",
	"emergency medicine":     "207P00000X",
	"orthopedic surgery":     "207X00000X",
	"orthopedics":            "207X00000X",
	"neurology":              "2084N0400X",
	"psychiatry":             "2084P0800X",
	"obstetrics":             "207V00000X",
	"gynecology":             "207V00000X",
	"ob/gyn":                 "207V00000X",
	"urology":                "208800000X",
	"ophthalmology":          "207W00000X",
	"anesthesiology":         "207L00000X",
	"allergy":                "207K00000X",
	"immunology":             "207K00000X",
	"surgery":                "208600000X",
	"plastic surgery":        "208200000X",
}

// NewProviderSearchTool builds the provider_search tool over the Practitioner
// and PractitionerRole endpoints.
func NewProviderSearchTool(source ports.ClinicalSource) *domain.Tool {
	params := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("specialty", openapi3.NewStringSchema())

	return &domain.Tool{
		Name: "provider_search",
		Description: "Search for healthcare providers by name, specialty, or both. " +
			"Partial names work (e.g. \"Dr. Wilson\" or just \"Wilson\"). Specialties " +
			"include cardiology, family practice, dermatology, and others.",
		Parameters: params,
		Execute: func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
			name, _ := args["name"].(string)
			specialty, _ := args["specialty"].(string)
			name = strings.TrimSpace(name)
			specialty = strings.TrimSpace(specialty)
			if name == "" && specialty == "" {
				return domain.ToolResult{}, &domain.ToolInputError{
					Tool: "provider_search", Reason: "provide a provider name, a specialty, or both",
				}
			}

			var providers []map[string]any
			switch {
			case name != "" && specialty == "":
				providers = searchProvidersByName(ctx, source, name)
			case name == "" && specialty != "":
				providers = searchProvidersBySpecialty(ctx, source, specialty)
			default:
				providers = searchProvidersByName(ctx, source, name)
				seen := make(map[string]struct{}, len(providers))
				for _, p := range providers {
					seen[getString(p, "id")] = struct{}{}
				}
				for _, sp := range searchProvidersBySpecialty(ctx, source, specialty) {
					if _, dup := seen[getString(sp, "id")]; !dup {
						providers = append(providers, sp)
					}
				}
			}

			if len(providers) == 0 {
				var desc []string
				if name != "" {
					desc = append(desc, fmt.Sprintf("name '%s'", name))
				}
				if specialty != "" {
					desc = append(desc, fmt.Sprintf("specialty '%s'", specialty))
				}
				return domain.ToolResult{
					Data: map[string]any{"found": false, "providers": []any{}},
					RawText: fmt.Sprintf("No providers found matching %s. Try a broader search or check the spelling.",
						strings.Join(desc, " and ")),
					Found: false,
				}, nil
			}

			return domain.ToolResult{
				Data:    map[string]any{"found": true, "providers": providers},
				RawText: formatProviders(providers, name, specialty),
				Found:   true,
			}, nil
		},
	}
}

// stripProviderPrefix drops a leading "Dr." style honorific.
func stripProviderPrefix(name string) string {
	clean := strings.TrimSpace(name)
	lower := strings.ToLower(clean)
	for _, prefix := range []string{"dr.", "dr "} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(clean[len(prefix):])
		}
	}
	return clean
}

// searchProvidersByName searches the Practitioner endpoint. The record API
// rejects the combined name param, so it uses given/family instead.
func searchProvidersByName(ctx context.Context, source ports.ClinicalSource, name string) []map[string]any {
	clean := stripProviderPrefix(name)
	parts := strings.Fields(clean)

	if len(parts) >= 2 {
		practitioners, err := source.Search(ctx, "Practitioner", map[string]string{
			"given": parts[0], "family": parts[len(parts)-1],
		})
		if err == nil && len(practitioners) > 0 {
			return enrichWithRoles(ctx, source, extractAll(practitioners, extractPractitioner))
		}
	}

	practitioners, err := source.Search(ctx, "Practitioner", map[string]string{"family": clean})
	if err != nil || len(practitioners) == 0 {
		practitioners, _ = source.Search(ctx, "Practitioner", map[string]string{"given": clean})
	}
	return enrichWithRoles(ctx, source, extractAll(practitioners, extractPractitioner))
}

// searchProvidersBySpecialty searches PractitionerRole and resolves each role
// to its practitioner.
func searchProvidersBySpecialty(ctx context.Context, source ports.ClinicalSource, specialty string) []map[string]any {
	term := specialty
	if code, ok := specialtyCodes[strings.ToLower(specialty)]; ok {
		term = code
	}
	roles, err := source.Search(ctx, "PractitionerRole", map[string]string{"specialty": term})
	if err != nil {
		return nil
	}

	var providers []map[string]any
	seen := make(map[string]struct{})
	for _, role := range roles {
		roleData := extractPractitionerRole(role)
		ref := getString(getMap(role, "practitioner"), "reference")
		if !strings.HasPrefix(ref, "Practitioner/") {
			continue
		}
		id := strings.TrimPrefix(ref, "Practitioner/")
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		var provider map[string]any
		if pract, err := source.Get(ctx, "Practitioner", id); err == nil && pract != nil {
			provider = extractPractitioner(pract)
		} else {
			provider = map[string]any{"id": id}
			if d := getString(getMap(role, "practitioner"), "display"); d != "" {
				provider["name"] = d
			}
		}
		if s, ok := roleData["specialty"]; ok {
			provider["specialty"] = s
		} else {
			provider["specialty"] = specialty
		}
		if o, ok := roleData["organization"]; ok {
			provider["organization"] = o
		}
		providers = append(providers, provider)
	}
	return providers
}

// enrichWithRoles fills specialty and organization from each practitioner's
// first role. Role lookup failures leave the entry as-is.
func enrichWithRoles(ctx context.Context, source ports.ClinicalSource, providers []map[string]any) []map[string]any {
	for _, p := range providers {
		id := getString(p, "id")
		if id == "" {
			continue
		}
		roles, err := source.Search(ctx, "PractitionerRole", map[string]string{
			"practitioner": "Practitioner/" + id,
		})
		if err != nil || len(roles) == 0 {
			continue
		}
		for k, v := range extractPractitionerRole(roles[0]) {
			p[k] = v
		}
	}
	return providers
}

func extractAll(resources []map[string]any, extract func(map[string]any) map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(resources))
	for _, r := range resources {
		out = append(out, extract(r))
	}
	return out
}

func formatProviders(providers []map[string]any, name, specialty string) string {
	var b strings.Builder
	b.WriteString("=== PROVIDER SEARCH RESULTS ===\n")
	var desc []string
	if name != "" {
		desc = append(desc, "Name: "+name)
	}
	if specialty != "" {
		desc = append(desc, "Specialty: "+specialty)
	}
	fmt.Fprintf(&b, "Search: %s\n", strings.Join(desc, ", "))
	fmt.Fprintf(&b, "Found %d provider(s)\n", len(providers))

	for i, p := range providers {
		fmt.Fprintf(&b, "\n--- Provider %d ---\n", i+1)
		fmt.Fprintf(&b, "  Name: %s\n", orUnknown(p["name"]))
		for _, field := range []struct{ key, label string }{
			{"npi", "NPI"},
			{"specialty", "Specialty"},
			{"organization", "Organization"},
			{"phone", "Phone"},
			{"email", "Email"},
		} {
			if v, ok := p[field.key]; ok && formatValue(v) != "" {
				fmt.Fprintf(&b, "  %s: %s\n", field.label, formatValue(v))
			}
		}
		if active, ok := p["active"].(bool); ok {
			status := "Active"
			if !active {
				status = "Inactive"
			}
			fmt.Fprintf(&b, "  Status: %s\n", status)
		}
		fmt.Fprintf(&b, "  Provider ID: %s\n", orUnknown(p["id"]))
	}

	b.WriteString("\nTo schedule an appointment, use the appointment availability tool with a provider's name.\n")
	return b.String()
}
