package labs

import (
	"context"
	"strconv"

	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/platform/fhir"
)

// ToObservation projects a lab result as a FHIR R4 laboratory Observation.
// The reference range and interpretation are those of the patient's sex.
func ToObservation(r *LabResult, def *LabTestDefinition, p *patient.Patient) *fhir.Observation {
	value := r.Value
	obs := &fhir.Observation{
		ResourceType: "Observation",
		ID:           strconv.FormatInt(r.ID, 10),
		Status:       "final",
		Category: []fhir.CodeableConcept{{
			Coding: []fhir.Coding{{System: fhir.ObservationCategorySystem, Code: "laboratory", Display: "Laboratory"}},
		}},
		Subject: &fhir.Reference{
			Reference: fhir.FormatReference("Patient", strconv.FormatInt(r.PatientID, 10)),
		},
		EffectiveDateTime: r.CollectionDate.String(),
		ValueQuantity:     &fhir.Quantity{Value: &value},
	}
	if !r.CreatedAt.IsZero() {
		created := r.CreatedAt.UTC()
		obs.Meta = &fhir.Meta{LastUpdated: &created}
	}
	if def == nil {
		obs.Code = fhir.CodeableConcept{Text: "Unknown test"}
		return obs
	}

	obs.Code = fhir.CodeableConcept{
		Coding: []fhir.Coding{{System: fhir.LabCatalogSystem, Code: strconv.FormatInt(def.ID, 10), Display: def.Name}},
		Text:   def.Name,
	}
	obs.ValueQuantity.Unit = def.Unit
	if def.Unit != "" {
		obs.ValueQuantity.System = fhir.UCUMSystem
		obs.ValueQuantity.Code = def.Unit
	}
	if p != nil {
		obs.Subject.Display = p.FullName
		lo, hi := def.RangeFor(p.Sex())
		if lo != nil || hi != nil {
			obs.ReferenceRange = []fhir.ReferenceRange{{
				Low:  quantity(lo, def.Unit),
				High: quantity(hi, def.Unit),
				Text: FormatRange(lo, hi),
			}}
		}
		if interp := Classify(r.Value, lo, hi); interp != InterpretationNone {
			obs.Interpretation = []fhir.CodeableConcept{{
				Coding: []fhir.Coding{{System: fhir.InterpretationSystem, Code: string(interp), Display: interp.Display()}},
			}}
		}
	}
	return obs
}

func quantity(v *float64, unit string) *fhir.Quantity {
	if v == nil {
		return nil
	}
	val := *v
	q := &fhir.Quantity{Value: &val, Unit: unit}
	if unit != "" {
		q.System = fhir.UCUMSystem
		q.Code = unit
	}
	return q
}

// PatientObservations returns one page of a patient's results as Observations.
func (s *Service) PatientObservations(ctx context.Context, patientID int64, limit, offset int) ([]*fhir.Observation, int, error) {
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	results, total, err := s.results.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defs, err := s.defs.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[int64]*LabTestDefinition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	out := make([]*fhir.Observation, 0, len(results))
	for _, r := range results {
		out = append(out, ToObservation(r, byID[r.TestDefinitionID], p))
	}
	return out, total, nil
}

// Observation returns a single result as an Observation.
func (s *Service) Observation(ctx context.Context, id int64) (*fhir.Observation, error) {
	r, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.patients.GetPatient(ctx, r.PatientID)
	if err != nil {
		return nil, err
	}
	def, err := s.defs.GetByID(ctx, r.TestDefinitionID)
	if err != nil {
		return nil, err
	}
	return ToObservation(r, def, p), nil
}
