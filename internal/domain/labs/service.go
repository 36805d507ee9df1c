package labs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/platform/events"
	"github.com/ehr/clinic/internal/platform/httpx"
	"github.com/ehr/clinic/internal/platform/metrics"
)

const publishTimeout = 5 * time.Second

// PatientLookup is the slice of the patient service the lab module needs.
type PatientLookup interface {
	GetPatient(ctx context.Context, id int64) (*patient.Patient, error)
}

// TxRunner runs fn inside one database transaction; db.InTx bound to a pool.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

func noTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// Service provides business logic for the lab catalog, lab results and the
// derived alerts.
type Service struct {
	defs      DefinitionRepository
	results   ResultRepository
	patients  PatientLookup
	publisher events.Publisher
	metrics   *metrics.Collector
	logger    zerolog.Logger
	inTx      TxRunner
}

func NewService(defs DefinitionRepository, results ResultRepository, patients PatientLookup) *Service {
	return &Service{
		defs:     defs,
		results:  results,
		patients: patients,
		logger:   zerolog.Nop(),
		inTx:     noTx,
	}
}

// WithTx makes multi-row writes such as SeedDefinitions atomic.
func (s *Service) WithTx(run TxRunner) *Service {
	s.inTx = run
	return s
}

// WithPublisher enables lab.result.abnormal events.
func (s *Service) WithPublisher(p events.Publisher) *Service {
	s.publisher = p
	return s
}

func (s *Service) WithMetrics(col *metrics.Collector) *Service {
	s.metrics = col
	return s
}

func (s *Service) WithLogger(logger zerolog.Logger) *Service {
	s.logger = logger.With().Str("component", "labs").Logger()
	return s
}

// =========== Definitions ===========

func (s *Service) CreateDefinition(ctx context.Context, d *LabTestDefinition) error {
	d.normalize()
	if err := d.Validate(); err != nil {
		return err
	}
	return s.defs.Create(ctx, d)
}

func (s *Service) GetDefinition(ctx context.Context, id int64) (*LabTestDefinition, error) {
	return s.defs.GetByID(ctx, id)
}

func (s *Service) UpdateDefinition(ctx context.Context, id int64, u *DefinitionUpdate) (*LabTestDefinition, error) {
	d, err := s.defs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Apply(d)
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := s.defs.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) DeleteDefinition(ctx context.Context, id int64) error {
	return s.defs.Delete(ctx, id)
}

func (s *Service) ListDefinitions(ctx context.Context, category string, limit, offset int) ([]*LabTestDefinition, int, error) {
	return s.defs.List(ctx, strings.TrimSpace(category), limit, offset)
}

// SeedDefinitions upserts a catalog by name in one transaction. A failure on
// any entry rolls the whole catalog back and reports nothing written.
func (s *Service) SeedDefinitions(ctx context.Context, catalog []*LabTestDefinition) (created, updated int, err error) {
	err = s.inTx(ctx, func(ctx context.Context) error {
		created, updated = 0, 0
		for i, d := range catalog {
			if d == nil {
				return httpx.Invalidf("catalog entry %d: empty definition", i)
			}
			d.normalize()
			if err := d.Validate(); err != nil {
				return err
			}
			inserted, err := s.defs.Upsert(ctx, d)
			if err != nil {
				return fmt.Errorf("upsert %q: %w", d.Name, err)
			}
			if inserted {
				created++
			} else {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

// =========== Results ===========

// CreateResult stores a result. An empty flag is filled from the patient's
// reference range; a flag supplied by the caller is kept as entered.
func (s *Service) CreateResult(ctx context.Context, in *LabResultInput) (*LabResult, error) {
	r, err := in.NewResult()
	if err != nil {
		return nil, err
	}
	p, def, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	interp := classifyFor(r, def, p)
	if r.Flag == "" {
		r.Flag = string(interp)
		r.flagAuto = interp != InterpretationNone
	}
	if err := s.results.Create(ctx, r); err != nil {
		return nil, err
	}
	s.publishIfAbnormal(ctx, r, def, interp)
	return r, nil
}

func (s *Service) GetResult(ctx context.Context, id int64) (*LabResult, error) {
	return s.results.GetByID(ctx, id)
}

// UpdateResult applies a partial update. An auto-filled flag follows changes
// to the value or definition; a manual flag is left alone.
func (s *Service) UpdateResult(ctx context.Context, id int64, in *LabResultInput) (*LabResult, error) {
	r, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reclassify := in.Apply(r)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	p, def, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	interp := classifyFor(r, def, p)
	if reclassify {
		r.Flag = string(interp)
		r.flagAuto = interp != InterpretationNone
	}
	if err := s.results.Update(ctx, r); err != nil {
		return nil, err
	}
	s.publishIfAbnormal(ctx, r, def, interp)
	return r, nil
}

func (s *Service) DeleteResult(ctx context.Context, id int64) error {
	return s.results.Delete(ctx, id)
}

// ListPatientResults pages through a patient's results, newest first.
func (s *Service) ListPatientResults(ctx context.Context, patientID int64, limit, offset int) ([]*LabResult, int, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.results.ListByPatient(ctx, patientID, limit, offset)
}

// resolve loads the patient and definition a result refers to. Dangling
// references are the caller's mistake, so they come back as validation errors.
func (s *Service) resolve(ctx context.Context, r *LabResult) (*patient.Patient, *LabTestDefinition, error) {
	p, err := s.patients.GetPatient(ctx, r.PatientID)
	if errors.Is(err, patient.ErrPatientNotFound) {
		return nil, nil, httpx.Invalidf("patient %d does not exist", r.PatientID)
	}
	if err != nil {
		return nil, nil, err
	}
	def, err := s.defs.GetByID(ctx, r.TestDefinitionID)
	if errors.Is(err, ErrDefinitionNotFound) {
		return nil, nil, httpx.Invalidf("lab test definition %d does not exist", r.TestDefinitionID)
	}
	if err != nil {
		return nil, nil, err
	}
	return p, def, nil
}

func classifyFor(r *LabResult, def *LabTestDefinition, p *patient.Patient) Interpretation {
	lo, hi := def.RangeFor(p.Sex())
	return Classify(r.Value, lo, hi)
}

// AbnormalResultEvent is the payload of lab.result.abnormal.
type AbnormalResultEvent struct {
	PatientID      int64          `json:"patient_id"`
	ResultID       int64          `json:"result_id"`
	TestName       string         `json:"test_name"`
	Value          float64        `json:"value"`
	Unit           string         `json:"unit"`
	Flag           Interpretation `json:"flag"`
	CollectionDate string         `json:"collection_date"`
}

// publishIfAbnormal never fails the write it follows; problems are logged and
// counted.
func (s *Service) publishIfAbnormal(ctx context.Context, r *LabResult, def *LabTestDefinition, interp Interpretation) {
	if s.publisher == nil || !interp.IsAbnormal() {
		return
	}
	evt, err := events.New(events.TypeLabResultAbnormal, strconv.FormatInt(r.PatientID, 10), AbnormalResultEvent{
		PatientID:      r.PatientID,
		ResultID:       r.ID,
		TestName:       def.Name,
		Value:          r.Value,
		Unit:           def.Unit,
		Flag:           interp,
		CollectionDate: r.CollectionDate.String(),
	})
	if err == nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err = s.publisher.Publish(pubCtx, evt)
		cancel()
	}
	if err != nil {
		s.metrics.ObserveAbnormalEvent("failed")
		s.logger.Error().Err(err).
			Int64("patient_id", r.PatientID).
			Int64("result_id", r.ID).
			Msg("failed to publish abnormal lab result")
		return
	}
	s.metrics.ObserveAbnormalEvent("published")
}

// =========== Alerts ===========

// PatientAlerts loads everything the aggregator needs for one patient.
func (s *Service) PatientAlerts(ctx context.Context, patientID int64) ([]Alert, error) {
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	defs, err := s.defs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	results, err := s.results.ListAllByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	alerts := AggregateAlerts(results, defs, p)
	s.metrics.AddAlertsComputed(len(alerts))
	return alerts, nil
}
