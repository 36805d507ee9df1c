package bodycomp

import (
	"context"
	"errors"

	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/platform/httpx"
)

// PatientLookup is the slice of the patient service this package needs.
type PatientLookup interface {
	GetPatient(ctx context.Context, id int64) (*patient.Patient, error)
}

// Service provides business logic for bioimpedance scans and tape measurements.
type Service struct {
	bio      BioimpedanceRepository
	anthro   AnthropometryRepository
	patients PatientLookup
}

func NewService(bio BioimpedanceRepository, anthro AnthropometryRepository, patients PatientLookup) *Service {
	return &Service{bio: bio, anthro: anthro, patients: patients}
}

// checkPatient turns a dangling patient_id into a validation error.
func (s *Service) checkPatient(ctx context.Context, id int64) error {
	_, err := s.patients.GetPatient(ctx, id)
	if errors.Is(err, patient.ErrPatientNotFound) {
		return httpx.Invalidf("patient %d does not exist", id)
	}
	return err
}

// -- Bioimpedance --

func (s *Service) CreateBioimpedance(ctx context.Context, in *BioimpedanceInput) (*BioimpedanceEntry, error) {
	e, err := in.NewEntry()
	if err != nil {
		return nil, err
	}
	if err := s.checkPatient(ctx, e.PatientID); err != nil {
		return nil, err
	}
	if err := s.bio.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetBioimpedance(ctx context.Context, id int64) (*BioimpedanceEntry, error) {
	return s.bio.GetByID(ctx, id)
}

func (s *Service) UpdateBioimpedance(ctx context.Context, id int64, in *BioimpedanceInput) (*BioimpedanceEntry, error) {
	e, err := s.bio.GetByID(ctx, id)
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
	if err := s.bio.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) DeleteBioimpedance(ctx context.Context, id int64) error {
	return s.bio.Delete(ctx, id)
}

func (s *Service) ListBioimpedance(ctx context.Context, patientID int64, limit, offset int) ([]*BioimpedanceEntry, int, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.bio.ListByPatient(ctx, patientID, limit, offset)
}

// -- Anthropometry --

func (s *Service) CreateAnthropometry(ctx context.Context, in *AnthropometryInput) (*AnthropometryEntry, error) {
	e, err := in.NewEntry()
	if err != nil {
		return nil, err
	}
	if err := s.checkPatient(ctx, e.PatientID); err != nil {
		return nil, err
	}
	if err := s.anthro.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetAnthropometry(ctx context.Context, id int64) (*AnthropometryEntry, error) {
	return s.anthro.GetByID(ctx, id)
}

func (s *Service) UpdateAnthropometry(ctx context.Context, id int64, in *AnthropometryInput) (*AnthropometryEntry, error) {
	e, err := s.anthro.GetByID(ctx, id)
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
	if err := s.anthro.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) DeleteAnthropometry(ctx context.Context, id int64) error {
	return s.anthro.Delete(ctx, id)
}

func (s *Service) ListAnthropometry(ctx context.Context, patientID int64, limit, offset int) ([]*AnthropometryEntry, int, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.anthro.ListByPatient(ctx, patientID, limit, offset)
}
