// Package dashboard assembles everything the patient overview screen shows in
// one request.
package dashboard

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ehr/clinic/internal/domain/bodycomp"
	"github.com/ehr/clinic/internal/domain/labs"
	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/domain/wellness"
	"github.com/ehr/clinic/internal/platform/metrics"
	"github.com/ehr/clinic/pkg/caldate"
)

type PatientLookup interface {
	GetPatient(ctx context.Context, id int64) (*patient.Patient, error)
}

// Sources are the read paths the dashboard fans out over.
type Sources struct {
	Patients      PatientLookup
	Definitions   labs.DefinitionRepository
	Results       labs.ResultRepository
	Bioimpedance  bodycomp.BioimpedanceRepository
	Anthropometry bodycomp.AnthropometryRepository
	Subjective    wellness.Repository
}

type PatientSummary struct {
	*patient.Patient
	Age int    `json:"age"`
	Sex string `json:"sex"`
}

type Dashboard struct {
	Patient             PatientSummary                 `json:"patient"`
	LabResults          []*labs.LabResult              `json:"lab_results"`
	LabAlerts           []labs.Alert                   `json:"lab_alerts"`
	Bioimpedance        []*bodycomp.BioimpedanceEntry  `json:"bioimpedance"`
	Anthropometry       []*bodycomp.AnthropometryEntry `json:"anthropometry"`
	Subjective          []*wellness.SubjectiveEntry    `json:"subjective"`
	LatestBioimpedance  *bodycomp.BioimpedanceEntry    `json:"latest_bioimpedance"`
	LatestAnthropometry *bodycomp.AnthropometryEntry   `json:"latest_anthropometry"`
}

type Service struct {
	src     Sources
	metrics *metrics.Collector
	today   func() caldate.Date
}

func NewService(src Sources, col *metrics.Collector) *Service {
	return &Service{src: src, metrics: col, today: caldate.Today}
}

// Load reads the patient and all sub-records concurrently. The first failure
// cancels the other reads and fails the whole dashboard.
func (s *Service) Load(ctx context.Context, patientID int64) (*Dashboard, error) {
	var (
		p       *patient.Patient
		defs    []*labs.LabTestDefinition
		results []*labs.LabResult
		bio     []*bodycomp.BioimpedanceEntry
		anthro  []*bodycomp.AnthropometryEntry
		subj    []*wellness.SubjectiveEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		p, err = s.src.Patients.GetPatient(gctx, patientID)
		return err
	})
	g.Go(func() (err error) {
		defs, err = s.src.Definitions.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		results, err = s.src.Results.ListAllByPatient(gctx, patientID)
		return err
	})
	g.Go(func() (err error) {
		bio, err = s.src.Bioimpedance.ListAllByPatient(gctx, patientID)
		return err
	})
	g.Go(func() (err error) {
		anthro, err = s.src.Anthropometry.ListAllByPatient(gctx, patientID)
		return err
	})
	g.Go(func() (err error) {
		subj, err = s.src.Subjective.ListAllByPatient(gctx, patientID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortDesc(results, func(r *labs.LabResult) caldate.Date { return r.CollectionDate })
	sortDesc(bio, func(e *bodycomp.BioimpedanceEntry) caldate.Date { return e.Date })
	sortDesc(anthro, func(e *bodycomp.AnthropometryEntry) caldate.Date { return e.Date })
	sortDesc(subj, func(e *wellness.SubjectiveEntry) caldate.Date { return e.Date })

	alerts := labs.AggregateAlerts(results, defs, p)
	s.metrics.AddAlertsComputed(len(alerts))

	d := &Dashboard{
		Patient: PatientSummary{
			Patient: p,
			Age:     p.Age(s.today()),
			Sex:     p.Sex().String(),
		},
		LabResults:    nonNil(results),
		LabAlerts:     alerts,
		Bioimpedance:  nonNil(bio),
		Anthropometry: nonNil(anthro),
		Subjective:    nonNil(subj),
	}
	if len(bio) > 0 {
		d.LatestBioimpedance = bio[0]
	}
	if len(anthro) > 0 {
		d.LatestAnthropometry = anthro[0]
	}
	return d, nil
}

func sortDesc[T any](items []T, date func(T) caldate.Date) {
	sort.SliceStable(items, func(i, j int) bool {
		return date(items[i]).After(date(items[j]))
	})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
