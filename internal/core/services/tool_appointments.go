package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
)

// Business hours for slot calculation.
const (
	businessStartHour   = 9
	businessEndHour     = 17
	slotDurationMinutes = 30
)

// appointmentEntry is a booked appointment flattened for slot math and
// formatting. Start and End are minutes since midnight; -1 means unknown.
type appointmentEntry struct {
	Date        string
	Start, End  int
	Status      string
	Description string
	ProviderID  string
	Provider    string
	Patient     string
}

type timeSlot struct {
	Start, End int
	Available  bool
}

// NewAppointmentAvailabilityTool builds the appointment_availability tool:
// open slots for a provider on a date, a whole-day schedule, or a patient's
// upcoming appointments.
func NewAppointmentAvailabilityTool(source ports.ClinicalSource, now func() time.Time) *domain.Tool {
	params := openapi3.NewObjectSchema().
		WithProperty("provider_name", openapi3.NewStringSchema()).
		WithProperty("date", openapi3.NewStringSchema().WithFormat("date")).
		WithProperty("patient_name", openapi3.NewStringSchema())

	return &domain.Tool{
		Name: "appointment_availability",
		Description: "Check appointment availability for a provider on a date (YYYY-MM-DD, " +
			"defaults to today), see the full schedule for a date, or look up a patient's " +
			"upcoming appointments by passing patient_name.",
		Parameters: params,
		Execute: func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
			providerName, _ := args["provider_name"].(string)
			date, _ := args["date"].(string)
			patientName, _ := args["patient_name"].(string)
			providerName = strings.TrimSpace(providerName)
			patientName = strings.TrimSpace(patientName)

			if strings.TrimSpace(date) == "" {
				date = now().Format("2006-01-02")
			}
			if _, err := time.Parse("2006-01-02", date); err != nil {
				return domain.ToolResult{}, &domain.ToolInputError{
					Tool:   "appointment_availability",
					Reason: fmt.Sprintf("invalid date '%s', use YYYY-MM-DD format", date),
				}
			}

			if patientName != "" {
				return patientAppointments(ctx, source, patientName, date)
			}

			appointments := appointmentsOnDate(ctx, source, date)

			if providerName == "" {
				return domain.ToolResult{
					Data: map[string]any{
						"date":              date,
						"appointment_count": len(appointments),
					},
					RawText: formatDateSummary(appointments, date),
					Found:   true,
				}, nil
			}

			provider := findProviderByName(ctx, source, providerName)
			if provider == nil {
				return domain.ToolResult{
					Data: map[string]any{"found": false, "provider_name": providerName},
					RawText: fmt.Sprintf("No provider found matching '%s'. "+
						"Use the provider search tool to find available providers.", providerName),
					Found: false,
				}, nil
			}

			providerID := getString(provider, "id")
			var booked []appointmentEntry
			for _, a := range appointments {
				if a.ProviderID == providerID {
					booked = append(booked, a)
				}
			}
			slots := availableSlots(booked)

			open := 0
			for _, s := range slots {
				if s.Available {
					open++
				}
			}
			return domain.ToolResult{
				Data: map[string]any{
					"provider":        formatValue(provider["name"]),
					"date":            date,
					"booked_count":    len(booked),
					"available_count": open,
					"total_slots":     len(slots),
				},
				RawText: formatAvailability(provider, booked, slots, date),
				Found:   true,
			}, nil
		},
	}
}

// findProviderByName is the single-result variant of the provider search used
// when resolving an availability query.
func findProviderByName(ctx context.Context, source ports.ClinicalSource, name string) map[string]any {
	providers := searchProvidersByName(ctx, source, name)
	if len(providers) == 0 {
		return nil
	}
	return providers[0]
}

func appointmentsOnDate(ctx context.Context, source ports.ClinicalSource, date string) []appointmentEntry {
	resources, err := source.Search(ctx, "Appointment", map[string]string{"date": date})
	if err != nil {
		return nil
	}
	entries := make([]appointmentEntry, 0, len(resources))
	for _, r := range resources {
		entries = append(entries, parseAppointment(r))
	}
	return entries
}

func patientAppointments(ctx context.Context, source ports.ClinicalSource, patientName, date string) (domain.ToolResult, error) {
	patient, err := findPatient(ctx, source, patientName)
	if err != nil {
		return domain.ToolResult{}, &domain.ToolUnavailableError{Tool: "appointment_availability", Err: err}
	}
	if patient == nil {
		return domain.ToolResult{
			Data:    map[string]any{"found": false, "patient_name": patientName},
			RawText: fmt.Sprintf("No patient found matching '%s'.", patientName),
			Found:   false,
		}, nil
	}

	resources, err := source.Search(ctx, "Appointment", map[string]string{
		"patient": getString(patient, "id"),
		"date":    "ge" + date,
	})
	if err != nil {
		resources = nil
	}
	entries := make([]appointmentEntry, 0, len(resources))
	for _, r := range resources {
		entries = append(entries, parseAppointment(r))
	}

	return domain.ToolResult{
		Data: map[string]any{
			"found":             true,
			"patient":           extractPatientName(patient),
			"from_date":         date,
			"appointment_count": len(entries),
		},
		RawText: formatPatientAppointments(entries, extractPatientName(patient), date),
		Found:   true,
	}, nil
}

// parseAppointment flattens a FHIR Appointment resource.
func parseAppointment(appt map[string]any) appointmentEntry {
	entry := appointmentEntry{
		Start:       parseClock(getString(appt, "start")),
		End:         parseClock(getString(appt, "end")),
		Status:      getString(appt, "status"),
		Description: getString(appt, "description"),
	}
	if start := getString(appt, "start"); len(start) >= 10 {
		entry.Date = start[:10]
	}
	for _, p := range getSlice(appt, "participant") {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		actor := getMap(pm, "actor")
		if actor == nil {
			continue
		}
		ref := getString(actor, "reference")
		switch {
		case strings.HasPrefix(ref, "Practitioner/"):
			entry.ProviderID = strings.TrimPrefix(ref, "Practitioner/")
			entry.Provider = getString(actor, "display")
		case strings.HasPrefix(ref, "Patient/"):
			entry.Patient = getString(actor, "display")
		}
	}
	return entry
}

// parseClock converts an ISO datetime to minutes since midnight, -1 when
// unparseable.
func parseClock(iso string) int {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.Hour()*60 + t.Minute()
		}
	}
	return -1
}

func clockString(minutes int) string {
	if minutes < 0 {
		return "?"
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// availableSlots builds the business-hours slot grid and marks every slot
// overlapping a booked appointment as taken.
func availableSlots(booked []appointmentEntry) []timeSlot {
	var slots []timeSlot
	for start := businessStartHour * 60; start < businessEndHour*60; start += slotDurationMinutes {
		slot := timeSlot{Start: start, End: start + slotDurationMinutes, Available: true}
		for _, appt := range booked {
			if appt.Start < 0 {
				continue
			}
			end := appt.End
			if end < 0 {
				end = appt.Start + slotDurationMinutes
			}
			if slot.Start < end && appt.Start < slot.End {
				slot.Available = false
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

func formatAvailability(provider map[string]any, booked []appointmentEntry, slots []timeSlot, date string) string {
	var b strings.Builder
	b.WriteString("=== APPOINTMENT AVAILABILITY ===\n")
	fmt.Fprintf(&b, "Provider: %s\n", orUnknown(provider["name"]))
	fmt.Fprintf(&b, "Date: %s\n", date)
	fmt.Fprintf(&b, "Business Hours: %02d:00 - %02d:00, %d-minute slots\n",
		businessStartHour, businessEndHour, slotDurationMinutes)

	if len(booked) > 0 {
		sort.Slice(booked, func(i, j int) bool { return booked[i].Start < booked[j].Start })
		fmt.Fprintf(&b, "\n--- Booked Appointments (%d) ---\n", len(booked))
		for _, a := range booked {
			fmt.Fprintf(&b, "  - %s - %s", clockString(a.Start), clockString(a.End))
			if a.Description != "" {
				fmt.Fprintf(&b, " (%s)", a.Description)
			}
			if a.Patient != "" {
				fmt.Fprintf(&b, " - %s", a.Patient)
			}
			if a.Status != "" {
				fmt.Fprintf(&b, " [%s]", a.Status)
			}
			b.WriteString("\n")
		}
	}

	open := 0
	for _, s := range slots {
		if s.Available {
			open++
		}
	}
	fmt.Fprintf(&b, "\n--- Available Slots (%d/%d) ---\n", open, len(slots))
	if open == 0 {
		b.WriteString("  No available slots on this date. Try another date or a different provider.\n")
	}
	for _, s := range slots {
		if s.Available {
			fmt.Fprintf(&b, "  - %s - %s\n", clockString(s.Start), clockString(s.End))
		}
	}

	fmt.Fprintf(&b, "\nTotal slots: %d | Available: %d | Booked: %d\n", len(slots), open, len(slots)-open)
	b.WriteString("To schedule, contact the provider's office directly.\n")
	return b.String()
}

func formatPatientAppointments(entries []appointmentEntry, patientName, date string) string {
	var b strings.Builder
	b.WriteString("=== PATIENT APPOINTMENTS ===\n")
	fmt.Fprintf(&b, "Patient: %s\n", patientName)
	fmt.Fprintf(&b, "Showing appointments from: %s\n", date)

	if len(entries) == 0 {
		b.WriteString("\nNo upcoming appointments found.\n")
		b.WriteString("Use the provider search tool to find a provider, then check their availability.\n")
		return b.String()
	}

	for i, a := range entries {
		fmt.Fprintf(&b, "\n--- Appointment %d ---\n", i+1)
		fmt.Fprintf(&b, "  Date: %s\n", orUnknown(a.Date))
		fmt.Fprintf(&b, "  Time: %s - %s\n", clockString(a.Start), clockString(a.End))
		if a.Description != "" {
			fmt.Fprintf(&b, "  Type: %s\n", a.Description)
		}
		if a.Status != "" {
			fmt.Fprintf(&b, "  Status: %s\n", a.Status)
		}
		if a.Provider != "" {
			fmt.Fprintf(&b, "  Provider: %s\n", a.Provider)
		}
	}
	fmt.Fprintf(&b, "\nTotal: %d appointment(s)\n", len(entries))
	return b.String()
}

func formatDateSummary(entries []appointmentEntry, date string) string {
	var b strings.Builder
	b.WriteString("=== APPOINTMENT SCHEDULE ===\n")
	fmt.Fprintf(&b, "Date: %s\n", date)

	if len(entries) == 0 {
		b.WriteString("\nNo appointments scheduled for this date. All provider slots should be available.\n")
		b.WriteString("Specify a provider name to see their available time slots.\n")
		return b.String()
	}

	byProvider := make(map[string][]appointmentEntry)
	for _, a := range entries {
		key := a.Provider
		if key == "" {
			key = "Unassigned"
		}
		byProvider[key] = append(byProvider[key], a)
	}
	providers := make([]string, 0, len(byProvider))
	for p := range byProvider {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	for _, p := range providers {
		appts := byProvider[p]
		sort.Slice(appts, func(i, j int) bool { return appts[i].Start < appts[j].Start })
		fmt.Fprintf(&b, "\n--- %s (%d appointment(s)) ---\n", p, len(appts))
		for _, a := range appts {
			fmt.Fprintf(&b, "  - %s - %s", clockString(a.Start), clockString(a.End))
			if a.Status != "" {
				fmt.Fprintf(&b, " [%s]", a.Status)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nTotal: %d appointment(s) across %d provider(s)\n", len(entries), len(byProvider))
	b.WriteString("Specify a provider name to see their available time slots.\n")
	return b.String()
}
