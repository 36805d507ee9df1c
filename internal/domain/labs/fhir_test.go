package labs

import (
	"context"
	"errors"
	"testing"

	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/platform/fhir"
)

func TestToObservation(t *testing.T) {
	def := &LabTestDefinition{ID: 4, Name: "Testosterona Total", Unit: "ng/dL",
		RefMinMale: fp(175), RefMaxMale: fp(781), RefMinFemale: fp(15), RefMaxFemale: fp(70)}
	r := result(12, 4, 90, "2024-05-02")

	obs := ToObservation(r, def, &patient.Patient{ID: 7, FullName: "Ana", Gender: "F"})
	if obs.ResourceType != "Observation" || obs.ID != "12" || obs.Status != "final" {
		t.Errorf("unexpected header: %+v", obs)
	}
	if obs.Subject.Reference != "Patient/7" || obs.Subject.Display != "Ana" {
		t.Errorf("unexpected subject: %+v", obs.Subject)
	}
	if obs.EffectiveDateTime != "2024-05-02" {
		t.Errorf("unexpected effective date: %s", obs.EffectiveDateTime)
	}
	if obs.Code.Text != "Testosterona Total" || obs.Code.Coding[0].System != fhir.LabCatalogSystem {
		t.Errorf("unexpected code: %+v", obs.Code)
	}
	if *obs.ValueQuantity.Value != 90 || obs.ValueQuantity.Unit != "ng/dL" {
		t.Errorf("unexpected value: %+v", obs.ValueQuantity)
	}
	if len(obs.ReferenceRange) != 1 || *obs.ReferenceRange[0].Low.Value != 15 || *obs.ReferenceRange[0].High.Value != 70 {
		t.Errorf("expected female reference range, got %+v", obs.ReferenceRange)
	}
	if len(obs.Interpretation) != 1 || obs.Interpretation[0].Coding[0].Code != "H" {
		t.Errorf("expected H interpretation, got %+v", obs.Interpretation)
	}
}

func TestToObservation_NoRange(t *testing.T) {
	def := &LabTestDefinition{ID: 1, Name: "Ferritina"}
	obs := ToObservation(result(1, 1, 300, "2024-01-01"), def, male())
	if obs.ReferenceRange != nil || obs.Interpretation != nil {
		t.Errorf("expected no range or interpretation, got %+v %+v", obs.ReferenceRange, obs.Interpretation)
	}
	if obs.ValueQuantity.System != "" {
		t.Error("expected no unit system without a unit")
	}
}

func TestToObservation_UpperOnly(t *testing.T) {
	def := &LabTestDefinition{ID: 1, Name: "PCR", Unit: "mg/L", RefMaxMale: fp(5)}
	obs := ToObservation(result(1, 1, 3, "2024-01-01"), def, male())
	rr := obs.ReferenceRange[0]
	if rr.Low != nil || rr.High == nil || rr.Text != "? - 5" {
		t.Errorf("unexpected range: %+v", rr)
	}
	if obs.Interpretation[0].Coding[0].Code != "N" {
		t.Errorf("expected N, got %s", obs.Interpretation[0].Coding[0].Code)
	}
}

func TestService_PatientObservations(t *testing.T) {
	env := newTestEnv()
	d := seedGlucose(t, env)
	env.svc.CreateResult(context.Background(), resultInput(1, d.ID, 85, "2024-01-01"))
	env.svc.CreateResult(context.Background(), resultInput(1, d.ID, 140, "2024-02-01"))
	env.svc.CreateResult(context.Background(), resultInput(2, d.ID, 140, "2024-02-01"))

	obs, total, err := env.svc.PatientObservations(context.Background(), 1, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(obs) != 1 {
		t.Fatalf("expected page of 1 out of 2, got %d of %d", len(obs), total)
	}
	if obs[0].EffectiveDateTime != "2024-02-01" {
		t.Errorf("expected newest first, got %s", obs[0].EffectiveDateTime)
	}

	if _, _, err := env.svc.PatientObservations(context.Background(), 404, 10, 0); !errors.Is(err, patient.ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestService_Observation(t *testing.T) {
	env := newTestEnv()
	d := seedGlucose(t, env)
	r, _ := env.svc.CreateResult(context.Background(), resultInput(2, d.ID, 60, "2024-01-01"))

	obs, err := env.svc.Observation(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Interpretation[0].Coding[0].Code != "L" {
		t.Errorf("expected L, got %+v", obs.Interpretation)
	}
	if _, err := env.svc.Observation(context.Background(), 999); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("expected ErrResultNotFound, got %v", err)
	}
}
