package wellness

import (
	"context"
	"errors"
	"strings"

	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/platform/httpx"
)

type PatientLookup interface {
	GetPatient(ctx context.Context, id int64) (*patient.Patient, error)
}

// Service provides business logic for subjective wellness logs.
type Service struct {
	entries  Repository
	patients PatientLookup
}

func NewService(repo Repository, patients PatientLookup) *Service {
	return &Service{entries: repo, patients: patients}
}

func (s *Service) checkPatient(ctx context.Context, id int64) error {
	_, err := s.patients.GetPatient(ctx, id)
	if errors.Is(err, patient.ErrPatientNotFound) {
		return httpx.Invalidf("patient %d does not exist", id)
	}
	return err
}

func (s *Service) CreateEntry(ctx context.Context, in *EntryInput) (*SubjectiveEntry, error) {
	e, err := in.NewEntry()
	if err != nil {
		return nil, err
	}
	if err := s.checkPatient(ctx, e.PatientID); err != nil {
		return nil, err
	}
	if err := s.entries.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetEntry(ctx context.Context, id int64) (*SubjectiveEntry, error) {
	return s.entries.GetByID(ctx, id)
}

func (s *Service) UpdateEntry(ctx context.Context, id int64, in *EntryInput) (*SubjectiveEntry, error) {
	e, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.Apply(e)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if in.PatientID != nil {
		if err := s.checkPatient(ctx, e.PatientID); err != nil {
			return nil, err
		}
	}
	if err := s.entries.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	return s.entries.Delete(ctx, id)
}

func (s *Service) ListEntries(ctx context.Context, patientID int64, metric string, limit, offset int) ([]*SubjectiveEntry, int, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.entries.ListByPatient(ctx, patientID, strings.TrimSpace(metric), limit, offset)
}
