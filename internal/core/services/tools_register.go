package services

import (
	"fmt"
	"time"

	"github.com/medrow/clinagent/internal/core/domain"
	"github.com/medrow/clinagent/internal/core/ports"
)

// RegisterClinicalTools installs the full clinical tool catalog into a
// registry: patient_summary, drug_interaction_check, symptom_lookup,
// provider_search, and appointment_availability.
func RegisterClinicalTools(registry *domain.ToolRegistry, source ports.ClinicalSource) error {
	tools := []*domain.Tool{
		NewPatientSummaryTool(source),
		NewDrugInteractionTool(source),
		NewSymptomLookupTool(),
		NewProviderSearchTool(source),
		NewAppointmentAvailabilityTool(source, time.Now),
	}
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("registering %s: %w", t.Name, err)
		}
	}
	return nil
}
