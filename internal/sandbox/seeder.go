// Package sandbox generates a small, reproducible patient population for demo
// and developer environments. Each patient gets three monthly visits with a
// bioimpedance reading and four lab results, plus weekly subjective scores.
package sandbox

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/ehr/clinic/internal/domain/bodycomp"
	"github.com/ehr/clinic/internal/domain/labs"
	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/domain/wellness"
	"github.com/ehr/clinic/pkg/caldate"
)

const (
	visits         = 3
	visitInterval  = 30
	historyDays    = 90
	testsPerVisit  = 4
	weeksPerVisit  = 4
	abnormalChance = 0.2

	genderMale   = "Masculino"
	genderFemale = "Feminino"
)

type SeedConfig struct {
	PatientCount int
	Seed         int64
	// Today anchors the visit history; the last visit is 30 days before it.
	Today caldate.Date
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{PatientCount: 5, Seed: 1, Today: caldate.Today()}
}

type SeedResult struct {
	Patients     int `json:"patients"`
	LabResults   int `json:"lab_results"`
	Bioimpedance int `json:"bioimpedance"`
	Subjective   int `json:"subjective"`
}

// Writers are the services the seeder creates records through, so every
// record passes the same validation and flag classification as the API.
type Writers struct {
	Patients interface {
		CreatePatient(ctx context.Context, p *patient.Patient) error
	}
	Labs interface {
		CreateResult(ctx context.Context, in *labs.LabResultInput) (*labs.LabResult, error)
	}
	Bioimpedance interface {
		CreateBioimpedance(ctx context.Context, in *bodycomp.BioimpedanceInput) (*bodycomp.BioimpedanceEntry, error)
	}
	Subjective interface {
		CreateEntry(ctx context.Context, in *wellness.EntryInput) (*wellness.SubjectiveEntry, error)
	}
}

var (
	maleNames   = []string{"João", "Pedro", "Lucas", "Gabriel", "Rafael", "Carlos", "Bruno", "Marcelo"}
	femaleNames = []string{"Ana", "Maria", "Juliana", "Fernanda", "Camila", "Beatriz", "Larissa", "Patrícia"}
	familyNames = []string{"Silva", "Souza", "Oliveira", "Santos", "Pereira", "Costa", "Almeida", "Ferreira", "Ribeiro", "Carvalho"}
	moodMetrics = []string{wellness.MetricSleep, wellness.MetricEnergy}
	moodRanges  = map[string][2]int{wellness.MetricSleep: {5, 9}, wellness.MetricEnergy: {4, 8}}
)

// DataGenerator produces the raw values. The same seed yields the same data.
type DataGenerator struct {
	rng *rand.Rand
}

func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// between returns an int in [lo, hi].
func (g *DataGenerator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

// GeneratePatient returns an adult aged 25 to 55 on today.
func (g *DataGenerator) GeneratePatient(today caldate.Date) *patient.Patient {
	p := &patient.Patient{Gender: genderMale}
	if g.rng.Intn(2) == 1 {
		p.Gender = genderFemale
	}
	if p.Gender == genderMale {
		p.FullName = g.pick(maleNames) + " " + g.pick(familyNames)
		p.HeightCM = float64(g.between(165, 190))
	} else {
		p.FullName = g.pick(femaleNames) + " " + g.pick(familyNames)
		p.HeightCM = float64(g.between(155, 175))
	}
	age := g.between(25, 55)
	p.DateOfBirth = caldate.FromTime(today.Time().AddDate(-age, 0, -g.rng.Intn(365)))
	return p
}

// GenerateBioimpedance derives a reading from the patient's base weight, drifting
// slightly downwards.
func (g *DataGenerator) GenerateBioimpedance(p *patient.Patient, baseWeight float64, date caldate.Date) *bodycomp.BioimpedanceInput {
	weight := baseWeight + g.uniform(-1.5, 0.5)
	heightM := p.HeightCM / 100
	fatPct := g.uniform(18, 28)
	visceral := float64(g.between(3, 10))
	bmr := int(weight * 22)
	return &bodycomp.BioimpedanceInput{
		PatientID:              &p.ID,
		Date:                   &date,
		WeightKG:               ptr(round(weight, 2)),
		BMI:                    ptr(round(weight/(heightM*heightM), 1)),
		BodyFatPercent:         ptr(round(fatPct, 1)),
		FatMassKG:              ptr(round(weight*fatPct/100, 1)),
		MuscleMassKG:           ptr(round(weight*0.4, 1)),
		VisceralFatLevel:       &visceral,
		BasalMetabolicRateKcal: &bmr,
	}
}

// GenerateLabResults samples up to four definitions. Most values fall inside
// the patient's range; the rest land 5 to 30% above the upper bound. The flag
// is left empty so the lab service classifies it.
func (g *DataGenerator) GenerateLabResults(p *patient.Patient, defs []*labs.LabTestDefinition, date caldate.Date) []*labs.LabResultInput {
	n := testsPerVisit
	if n > len(defs) {
		n = len(defs)
	}
	out := make([]*labs.LabResultInput, 0, n)
	for _, i := range g.rng.Perm(len(defs))[:n] {
		def := defs[i]
		lo, hi := def.RangeFor(p.Sex())
		v := round(g.labValue(lo, hi), 2)
		out = append(out, &labs.LabResultInput{
			PatientID:        &p.ID,
			TestDefinitionID: &def.ID,
			CollectionDate:   &date,
			Value:            &v,
		})
	}
	return out
}

func (g *DataGenerator) labValue(lo, hi *float64) float64 {
	switch {
	case hi == nil && lo == nil:
		return g.uniform(1, 100)
	case hi == nil:
		return *lo * g.uniform(1, 1.5)
	}
	floor := 0.0
	if lo != nil {
		floor = *lo
	}
	if g.rng.Float64() < abnormalChance {
		return *hi * g.uniform(1.05, 1.3)
	}
	return g.uniform(floor, *hi)
}

// GenerateSubjective returns the weekly sleep and energy scores following a visit.
func (g *DataGenerator) GenerateSubjective(p *patient.Patient, visit caldate.Date) []*wellness.EntryInput {
	out := make([]*wellness.EntryInput, 0, weeksPerVisit*len(moodMetrics))
	for w := 0; w < weeksPerVisit; w++ {
		date := caldate.FromTime(visit.Time().AddDate(0, 0, w*7))
		for _, metric := range moodMetrics {
			r := moodRanges[metric]
			score := g.between(r[0], r[1])
			out = append(out, &wellness.EntryInput{
				PatientID:  &p.ID,
				Date:       &date,
				MetricName: &metric,
				Score:      &score,
			})
		}
	}
	return out
}

type Seeder struct {
	config SeedConfig
	gen    *DataGenerator
	w      Writers
}

func NewSeeder(config SeedConfig, w Writers) *Seeder {
	if config.Today.IsZero() {
		config.Today = caldate.Today()
	}
	return &Seeder{config: config, gen: NewDataGenerator(config.Seed), w: w}
}

// Generate writes the population against the given lab catalog. It stops at
// the first failed write; run it inside a transaction to keep it all or nothing.
func (s *Seeder) Generate(ctx context.Context, defs []*labs.LabTestDefinition) (*SeedResult, error) {
	res := &SeedResult{}
	start := s.config.Today.Time().AddDate(0, 0, -historyDays)
	for i := 0; i < s.config.PatientCount; i++ {
		p := s.gen.GeneratePatient(s.config.Today)
		if err := s.w.Patients.CreatePatient(ctx, p); err != nil {
			return res, fmt.Errorf("create patient %d: %w", i+1, err)
		}
		res.Patients++

		baseWeight := s.gen.uniform(60, 95)
		for v := 0; v < visits; v++ {
			date := caldate.FromTime(start.AddDate(0, 0, v*visitInterval))

			if _, err := s.w.Bioimpedance.CreateBioimpedance(ctx, s.gen.GenerateBioimpedance(p, baseWeight, date)); err != nil {
				return res, fmt.Errorf("patient %d bioimpedance: %w", p.ID, err)
			}
			res.Bioimpedance++

			for _, in := range s.gen.GenerateLabResults(p, defs, date) {
				if _, err := s.w.Labs.CreateResult(ctx, in); err != nil {
					return res, fmt.Errorf("patient %d lab result: %w", p.ID, err)
				}
				res.LabResults++
			}

			for _, in := range s.gen.GenerateSubjective(p, date) {
				if _, err := s.w.Subjective.CreateEntry(ctx, in); err != nil {
					return res, fmt.Errorf("patient %d subjective: %w", p.ID, err)
				}
				res.Subjective++
			}
		}
	}
	return res, nil
}

func ptr(v float64) *float64 { return &v }

func round(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}
