package services

import (
	"fmt"
	"strings"
)

// Helpers for picking fields out of decoded FHIR R4 resources. Upstream
// payloads are loosely typed JSON, so everything here tolerates missing or
// oddly shaped fields and returns zero values instead of panicking.

func getMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

func getSlice(m map[string]any, key string) []any {
	if v, ok := m[key].([]any); ok {
		return v
	}
	return nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func firstMap(s []any) map[string]any {
	if len(s) == 0 {
		return nil
	}
	if m, ok := s[0].(map[string]any); ok {
		return m
	}
	return nil
}

// codeableConceptText resolves a CodeableConcept to its display text,
// preferring coding[0].display over the free-text fallback.
func codeableConceptText(cc map[string]any) string {
	if cc == nil {
		return ""
	}
	if coding := firstMap(getSlice(cc, "coding")); coding != nil {
		if d := getString(coding, "display"); d != "" {
			return d
		}
	}
	return getString(cc, "text")
}

func codeableConceptCode(cc map[string]any) string {
	if coding := firstMap(getSlice(cc, "coding")); coding != nil {
		return getString(coding, "code")
	}
	return ""
}

// extractPatientName joins given names and family name from the first
// HumanName entry.
func extractPatientName(patient map[string]any) string {
	name := firstMap(getSlice(patient, "name"))
	if name == nil {
		return "Unknown"
	}
	var parts []string
	for _, g := range getSlice(name, "given") {
		if s, ok := g.(string); ok {
			parts = append(parts, s)
		}
	}
	if family := getString(name, "family"); family != "" {
		parts = append(parts, family)
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " ")
}

// patientDemographics flattens the fields the summary tool reports.
func patientDemographics(patient map[string]any) map[string]any {
	demo := map[string]any{
		"id":         getString(patient, "id"),
		"name":       extractPatientName(patient),
		"birth_date": getString(patient, "birthDate"),
		"gender":     getString(patient, "gender"),
	}
	for _, t := range getSlice(patient, "telecom") {
		tm, ok := t.(map[string]any)
		if !ok {
			continue
		}
		switch getString(tm, "system") {
		case "phone":
			demo["phone"] = getString(tm, "value")
		case "email":
			demo["email"] = getString(tm, "value")
		}
	}
	if addr := firstMap(getSlice(patient, "address")); addr != nil {
		var parts []string
		for _, l := range getSlice(addr, "line") {
			if s, ok := l.(string); ok {
				parts = append(parts, s)
			}
		}
		for _, k := range []string{"city", "state", "postalCode"} {
			if v := getString(addr, k); v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) > 0 {
			demo["address"] = strings.Join(parts, ", ")
		}
	}
	return demo
}

func extractCondition(c map[string]any) map[string]any {
	out := map[string]any{
		"display": codeableConceptText(getMap(c, "code")),
		"code":    codeableConceptCode(getMap(c, "code")),
	}
	if cs := getMap(c, "clinicalStatus"); cs != nil {
		if coding := firstMap(getSlice(cs, "coding")); coding != nil {
			out["clinical_status"] = getString(coding, "code")
		}
	}
	if onset := getString(c, "onsetDateTime"); onset != "" {
		out["onset"] = onset
	}
	return out
}

func extractMedicationRequest(mr map[string]any) map[string]any {
	med := codeableConceptText(getMap(mr, "medicationCodeableConcept"))
	if med == "" {
		med = "Unknown"
	}
	out := map[string]any{
		"medication": med,
		"status":     getString(mr, "status"),
	}
	if di := firstMap(getSlice(mr, "dosageInstruction")); di != nil {
		if txt := getString(di, "text"); txt != "" {
			out["dosage"] = txt
		}
	}
	return out
}

func extractAllergy(a map[string]any) map[string]any {
	out := map[string]any{
		"substance":   codeableConceptText(getMap(a, "code")),
		"criticality": getString(a, "criticality"),
	}
	var cats []string
	for _, c := range getSlice(a, "category") {
		if s, ok := c.(string); ok {
			cats = append(cats, s)
		}
	}
	if len(cats) > 0 {
		out["category"] = strings.Join(cats, ", ")
	}
	return out
}

func extractObservation(o map[string]any) map[string]any {
	out := map[string]any{
		"test_name": codeableConceptText(getMap(o, "code")),
		"date":      getString(o, "effectiveDateTime"),
	}
	if vq := getMap(o, "valueQuantity"); vq != nil {
		if v, ok := vq["value"].(float64); ok {
			out["value"] = v
		}
		out["unit"] = getString(vq, "unit")
	} else if vs := getString(o, "valueString"); vs != "" {
		out["value"] = vs
	}
	return out
}

func extractImmunization(imm map[string]any) map[string]any {
	vaccine := codeableConceptText(getMap(imm, "vaccineCode"))
	if vaccine == "" {
		vaccine = "Unknown"
	}
	return map[string]any{
		"vaccine": vaccine,
		"date":    getString(imm, "occurrenceDateTime"),
		"status":  getString(imm, "status"),
	}
}

func extractAppointment(appt map[string]any) map[string]any {
	out := map[string]any{
		"start":       getString(appt, "start"),
		"end":         getString(appt, "end"),
		"status":      getString(appt, "status"),
		"description": getString(appt, "description"),
	}
	var actors []string
	for _, p := range getSlice(appt, "participant") {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if actor := getMap(pm, "actor"); actor != nil {
			if d := getString(actor, "display"); d != "" {
				actors = append(actors, d)
			} else if ref := getString(actor, "reference"); ref != "" {
				actors = append(actors, ref)
			}
		}
	}
	if len(actors) > 0 {
		out["participants"] = strings.Join(actors, "; ")
	}
	return out
}

func extractPractitioner(p map[string]any) map[string]any {
	out := map[string]any{
		"id":   getString(p, "id"),
		"name": extractPatientName(p),
	}
	if active, ok := p["active"].(bool); ok {
		out["active"] = active
	}
	for _, ident := range getSlice(p, "identifier") {
		im, ok := ident.(map[string]any)
		if !ok {
			continue
		}
		if strings.Contains(getString(im, "system"), "us-npi") {
			out["npi"] = getString(im, "value")
		}
	}
	for _, t := range getSlice(p, "telecom") {
		tm, ok := t.(map[string]any)
		if !ok {
			continue
		}
		switch getString(tm, "system") {
		case "phone":
			out["phone"] = getString(tm, "value")
		case "email":
			out["email"] = getString(tm, "value")
		}
	}
	return out
}

// extractPractitionerRole pulls the specialty display and organization from a
// PractitionerRole resource.
func extractPractitionerRole(role map[string]any) map[string]any {
	out := map[string]any{}
	if spec := firstMap(getSlice(role, "specialty")); spec != nil {
		out["specialty"] = codeableConceptText(spec)
	} else if code := firstMap(getSlice(role, "code")); code != nil {
		out["specialty"] = codeableConceptText(code)
	}
	if org := getMap(role, "organization"); org != nil {
		if d := getString(org, "display"); d != "" {
			out["organization"] = d
		}
	}
	return out
}

// formatValue renders a Data field for raw text output.
func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%.2f", t)
	default:
		return fmt.Sprintf("%v", v)
	}
}
