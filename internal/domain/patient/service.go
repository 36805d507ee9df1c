package patient

import (
	"context"
	"strings"

	"github.com/ehr/clinic/internal/platform/metrics"
)

// Service provides business logic for the patient registry.
type Service struct {
	patients Repository
	metrics  *metrics.Collector
}

func NewService(repo Repository, col *metrics.Collector) *Service {
	return &Service{patients: repo, metrics: col}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Gender = strings.TrimSpace(p.Gender)
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return err
	}
	s.metrics.IncPatientsCreated()
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// UpdatePatient applies a partial update and returns the stored patient.
func (s *Service) UpdatePatient(ctx context.Context, id int64, u *PatientUpdate) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Apply(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error) {
	filter.Name = strings.TrimSpace(filter.Name)
	return s.patients.List(ctx, filter, limit, offset)
}
