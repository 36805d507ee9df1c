package bodycomp

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/platform/httpx"
	"github.com/ehr/clinic/pkg/caldate"
)

// =========== Mock Repositories ===========

type mockBioRepo struct {
	store  map[int64]*BioimpedanceEntry
	nextID int64
}

func newMockBioRepo() *mockBioRepo {
	return &mockBioRepo{store: make(map[int64]*BioimpedanceEntry)}
}

func (m *mockBioRepo) Create(_ context.Context, e *BioimpedanceEntry) error {
	m.nextID++
	e.ID = m.nextID
	cp := *e
	m.store[e.ID] = &cp
	return nil
}

func (m *mockBioRepo) GetByID(_ context.Context, id int64) (*BioimpedanceEntry, error) {
	e, ok := m.store[id]
	if !ok {
		return nil, ErrBioimpedanceNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockBioRepo) Update(_ context.Context, e *BioimpedanceEntry) error {
	if _, ok := m.store[e.ID]; !ok {
		return ErrBioimpedanceNotFound
	}
	cp := *e
	m.store[e.ID] = &cp
	return nil
}

func (m *mockBioRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.store[id]; !ok {
		return ErrBioimpedanceNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockBioRepo) ListAllByPatient(_ context.Context, patientID int64) ([]*BioimpedanceEntry, error) {
	out := []*BioimpedanceEntry{}
	for _, e := range m.store {
		if e.PatientID == patientID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *mockBioRepo) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*BioimpedanceEntry, int, error) {
	all, _ := m.ListAllByPatient(ctx, patientID)
	return page(all, limit, offset), len(all), nil
}

type mockAnthroRepo struct {
	store  map[int64]*AnthropometryEntry
	nextID int64
}

func newMockAnthroRepo() *mockAnthroRepo {
	return &mockAnthroRepo{store: make(map[int64]*AnthropometryEntry)}
}

func (m *mockAnthroRepo) Create(_ context.Context, e *AnthropometryEntry) error {
	m.nextID++
	e.ID = m.nextID
	cp := *e
	m.store[e.ID] = &cp
	return nil
}

func (m *mockAnthroRepo) GetByID(_ context.Context, id int64) (*AnthropometryEntry, error) {
	e, ok := m.store[id]
	if !ok {
		return nil, ErrAnthropometryNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockAnthroRepo) Update(_ context.Context, e *AnthropometryEntry) error {
	if _, ok := m.store[e.ID]; !ok {
		return ErrAnthropometryNotFound
	}
	cp := *e
	m.store[e.ID] = &cp
	return nil
}

func (m *mockAnthroRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.store[id]; !ok {
		return ErrAnthropometryNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockAnthroRepo) ListAllByPatient(_ context.Context, patientID int64) ([]*AnthropometryEntry, error) {
	out := []*AnthropometryEntry{}
	for _, e := range m.store {
		if e.PatientID == patientID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *mockAnthroRepo) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*AnthropometryEntry, int, error) {
	all, _ := m.ListAllByPatient(ctx, patientID)
	return page(all, limit, offset), len(all), nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

type mockPatients map[int64]*patient.Patient

func (m mockPatients) GetPatient(_ context.Context, id int64) (*patient.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return p, nil
}

// =========== Helpers ===========

func newTestService() *Service {
	patients := mockPatients{1: {ID: 1, FullName: "João Silva", Gender: "M"}}
	return NewService(newMockBioRepo(), newMockAnthroRepo(), patients)
}

func bioInput(t *testing.T, body string) *BioimpedanceInput {
	t.Helper()
	var in BioimpedanceInput
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return &in
}

func anthroInput(t *testing.T, body string) *AnthropometryInput {
	t.Helper()
	var in AnthropometryInput
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return &in
}

const validBio = `{"patient_id":1,"date":"2024-03-01","weight_kg":82.4,"bmi":26.1,"body_fat_percent":24.5,
	"fat_mass_kg":20.2,"muscle_mass_kg":35.8,"visceral_fat_level":9,"basal_metabolic_rate_kcal":1780}`

// =========== Bioimpedance ===========

func TestService_CreateBioimpedance(t *testing.T) {
	svc := newTestService()
	e, err := svc.CreateBioimpedance(context.Background(), bioInput(t, validBio))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == 0 || e.WeightKG != 82.4 || e.BasalMetabolicRateKcal != 1780 {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.HydrationPercent != nil {
		t.Error("expected hydration unset")
	}
}

func TestService_CreateBioimpedance_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing weight", `{"patient_id":1,"date":"2024-03-01","bmi":26.1,"body_fat_percent":24.5,"fat_mass_kg":20.2,"muscle_mass_kg":35.8,"visceral_fat_level":9,"basal_metabolic_rate_kcal":1780}`},
		{"missing date", `{"patient_id":1,"weight_kg":82.4,"bmi":26.1,"body_fat_percent":24.5,"fat_mass_kg":20.2,"muscle_mass_kg":35.8,"visceral_fat_level":9,"basal_metabolic_rate_kcal":1780}`},
		{"negative weight", `{"patient_id":1,"date":"2024-03-01","weight_kg":-1,"bmi":26.1,"body_fat_percent":24.5,"fat_mass_kg":20.2,"muscle_mass_kg":35.8,"visceral_fat_level":9,"basal_metabolic_rate_kcal":1780}`},
		{"hydration above 100", `{"patient_id":1,"date":"2024-03-01","weight_kg":82,"bmi":26.1,"body_fat_percent":24.5,"fat_mass_kg":20.2,"muscle_mass_kg":35.8,"visceral_fat_level":9,"basal_metabolic_rate_kcal":1780,"hydration_percent":120}`},
		{"unknown patient", `{"patient_id":9,"date":"2024-03-01","weight_kg":82,"bmi":26.1,"body_fat_percent":24.5,"fat_mass_kg":20.2,"muscle_mass_kg":35.8,"visceral_fat_level":9,"basal_metabolic_rate_kcal":1780}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService().CreateBioimpedance(context.Background(), bioInput(t, tt.body))
			if !httpx.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_UpdateBioimpedance_Partial(t *testing.T) {
	svc := newTestService()
	e, _ := svc.CreateBioimpedance(context.Background(), bioInput(t, validBio))

	got, err := svc.UpdateBioimpedance(context.Background(), e.ID, bioInput(t, `{"weight_kg":80,"hydration_percent":55.5}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.WeightKG != 80 || got.BMI != 26.1 {
		t.Errorf("expected only weight changed, got %+v", got)
	}
	if got.HydrationPercent == nil || *got.HydrationPercent != 55.5 {
		t.Error("expected hydration set")
	}

	got, _ = svc.UpdateBioimpedance(context.Background(), e.ID, bioInput(t, `{"hydration_percent":null}`))
	if got.HydrationPercent != nil {
		t.Error("expected hydration cleared")
	}
}

func TestService_BioimpedanceNotFound(t *testing.T) {
	svc := newTestService()
	if _, err := svc.GetBioimpedance(context.Background(), 5); !errors.Is(err, ErrBioimpedanceNotFound) {
		t.Errorf("expected ErrBioimpedanceNotFound, got %v", err)
	}
	if _, err := svc.UpdateBioimpedance(context.Background(), 5, bioInput(t, `{}`)); !errors.Is(err, ErrBioimpedanceNotFound) {
		t.Errorf("expected ErrBioimpedanceNotFound, got %v", err)
	}
	if err := svc.DeleteBioimpedance(context.Background(), 5); !errors.Is(err, ErrBioimpedanceNotFound) {
		t.Errorf("expected ErrBioimpedanceNotFound, got %v", err)
	}
}

func TestService_ListBioimpedance(t *testing.T) {
	svc := newTestService()
	for _, date := range []string{"2024-01-01", "2024-03-01", "2024-02-01"} {
		in := bioInput(t, validBio)
		d := caldate.MustParse(date)
		in.Date = &d
		if _, err := svc.CreateBioimpedance(context.Background(), in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	items, total, err := svc.ListBioimpedance(context.Background(), 1, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(items) != 2 || items[0].Date.String() != "2024-03-01" {
		t.Errorf("expected newest first page of 2/3, got %d/%d", len(items), total)
	}
	if _, _, err := svc.ListBioimpedance(context.Background(), 9, 10, 0); !errors.Is(err, patient.ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

// =========== Anthropometry ===========

func TestService_CreateAnthropometry(t *testing.T) {
	svc := newTestService()
	e, err := svc.CreateAnthropometry(context.Background(), anthroInput(t, `{"patient_id":1,"date":"2024-03-01","waist_cm":92,"hips_cm":101.5}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.WaistCM == nil || *e.WaistCM != 92 || e.LeftArmCM != nil {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestService_CreateAnthropometry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing patient", `{"date":"2024-03-01"}`},
		{"missing date", `{"patient_id":1}`},
		{"zero waist", `{"patient_id":1,"date":"2024-03-01","waist_cm":0}`},
		{"unknown patient", `{"patient_id":3,"date":"2024-03-01"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService().CreateAnthropometry(context.Background(), anthroInput(t, tt.body))
			if !httpx.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_UpdateAnthropometry_ClearsMeasurement(t *testing.T) {
	svc := newTestService()
	e, _ := svc.CreateAnthropometry(context.Background(), anthroInput(t, `{"patient_id":1,"date":"2024-03-01","waist_cm":92,"hips_cm":101.5}`))

	got, err := svc.UpdateAnthropometry(context.Background(), e.ID, anthroInput(t, `{"waist_cm":null,"left_arm_cm":33}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.WaistCM != nil {
		t.Error("expected waist cleared")
	}
	if got.HipsCM == nil || *got.HipsCM != 101.5 {
		t.Error("expected hips untouched")
	}
	if got.LeftArmCM == nil || *got.LeftArmCM != 33 {
		t.Error("expected left arm set")
	}
}

func TestService_UpdateAnthropometry_UnknownPatient(t *testing.T) {
	svc := newTestService()
	e, _ := svc.CreateAnthropometry(context.Background(), anthroInput(t, `{"patient_id":1,"date":"2024-03-01"}`))
	if _, err := svc.UpdateAnthropometry(context.Background(), e.ID, anthroInput(t, `{"patient_id":8}`)); !httpx.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
