package labs

import (
	"errors"
	"strings"
	"time"

	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/platform/httpx"
	"github.com/ehr/clinic/pkg/caldate"
	"github.com/ehr/clinic/pkg/nullable"
)

var (
	ErrDefinitionNotFound = errors.New("lab test definition not found")
	ErrResultNotFound     = errors.New("lab result not found")
	ErrDefinitionInUse    = errors.New("lab test definition has results")
	ErrDuplicateName      = errors.New("lab test definition name already exists")
)

const maxFlagLen = 10

// LabTestDefinition is a catalog entry with sex-specific reference bounds.
// A nil bound means "no constraint on that side".
type LabTestDefinition struct {
	ID           int64    `json:"id" yaml:"-"`
	Name         string   `json:"name" yaml:"name"`
	Category     string   `json:"category" yaml:"category"`
	Unit         string   `json:"unit" yaml:"unit"`
	RefMinMale   *float64 `json:"ref_min_male" yaml:"ref_min_male"`
	RefMaxMale   *float64 `json:"ref_max_male" yaml:"ref_max_male"`
	RefMinFemale *float64 `json:"ref_min_female" yaml:"ref_min_female"`
	RefMaxFemale *float64 `json:"ref_max_female" yaml:"ref_max_female"`
}

// RangeFor returns the bounds that apply to a patient of the given sex.
func (d *LabTestDefinition) RangeFor(sex patient.Sex) (lo, hi *float64) {
	if sex.UsesFemaleRanges() {
		return d.RefMinFemale, d.RefMaxFemale
	}
	return d.RefMinMale, d.RefMaxMale
}

func (d *LabTestDefinition) Validate() error {
	if err := httpx.Required("name", d.Name); err != nil {
		return err
	}
	if d.RefMinMale != nil && d.RefMaxMale != nil && *d.RefMinMale > *d.RefMaxMale {
		return httpx.Invalidf("ref_min_male must not exceed ref_max_male")
	}
	if d.RefMinFemale != nil && d.RefMaxFemale != nil && *d.RefMinFemale > *d.RefMaxFemale {
		return httpx.Invalidf("ref_min_female must not exceed ref_max_female")
	}
	return nil
}

func (d *LabTestDefinition) normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Category = strings.TrimSpace(d.Category)
	d.Unit = strings.TrimSpace(d.Unit)
}

// DefinitionUpdate is a partial update. Bounds accept an explicit null to
// clear them.
type DefinitionUpdate struct {
	Name         *string                 `json:"name"`
	Category     *string                 `json:"category"`
	Unit         *string                 `json:"unit"`
	RefMinMale   nullable.Value[float64] `json:"ref_min_male"`
	RefMaxMale   nullable.Value[float64] `json:"ref_max_male"`
	RefMinFemale nullable.Value[float64] `json:"ref_min_female"`
	RefMaxFemale nullable.Value[float64] `json:"ref_max_female"`
}

func (u *DefinitionUpdate) Apply(d *LabTestDefinition) {
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Category != nil {
		d.Category = *u.Category
	}
	if u.Unit != nil {
		d.Unit = *u.Unit
	}
	u.RefMinMale.ApplyTo(&d.RefMinMale)
	u.RefMaxMale.ApplyTo(&d.RefMaxMale)
	u.RefMinFemale.ApplyTo(&d.RefMinFemale)
	u.RefMaxFemale.ApplyTo(&d.RefMaxFemale)
	d.normalize()
}

// LabResult is one measured value. Flag is an optional stored interpretation;
// alert aggregation never reads it.
type LabResult struct {
	ID               int64        `json:"id"`
	PatientID        int64        `json:"patient_id"`
	TestDefinitionID int64        `json:"test_definition_id"`
	CollectionDate   caldate.Date `json:"collection_date"`
	Value            float64      `json:"value"`
	Flag             string       `json:"flag,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`

	// flagAuto is true when Flag was computed by Classify rather than entered.
	flagAuto bool
}

// LabResultInput is the body of create (all required fields present) and of
// partial update (any subset).
type LabResultInput struct {
	PatientID        *int64                 `json:"patient_id"`
	TestDefinitionID *int64                 `json:"test_definition_id"`
	CollectionDate   *caldate.Date          `json:"collection_date"`
	Value            *float64               `json:"value"`
	Flag             nullable.Value[string] `json:"flag"`
}

// NewResult builds a result from a create body.
func (in *LabResultInput) NewResult() (*LabResult, error) {
	if in.PatientID == nil {
		return nil, httpx.Invalidf("patient_id is required")
	}
	if in.TestDefinitionID == nil {
		return nil, httpx.Invalidf("test_definition_id is required")
	}
	if in.CollectionDate == nil || in.CollectionDate.IsZero() {
		return nil, httpx.Invalidf("collection_date is required")
	}
	if in.Value == nil {
		return nil, httpx.Invalidf("value is required")
	}
	r := &LabResult{
		PatientID:        *in.PatientID,
		TestDefinitionID: *in.TestDefinitionID,
		CollectionDate:   *in.CollectionDate,
		Value:            *in.Value,
	}
	if in.Flag.Ptr != nil {
		r.Flag = strings.TrimSpace(*in.Flag.Ptr)
	}
	return r, r.Validate()
}

// Apply merges a partial update. It reports whether the flag should be
// recomputed: the value, definition or patient changed on an auto-flagged
// result, or the caller cleared the flag.
func (in *LabResultInput) Apply(r *LabResult) (reclassify bool) {
	if in.PatientID != nil && *in.PatientID != r.PatientID {
		r.PatientID = *in.PatientID
		reclassify = true
	}
	if in.TestDefinitionID != nil && *in.TestDefinitionID != r.TestDefinitionID {
		r.TestDefinitionID = *in.TestDefinitionID
		reclassify = true
	}
	if in.CollectionDate != nil {
		r.CollectionDate = *in.CollectionDate
	}
	if in.Value != nil && *in.Value != r.Value {
		r.Value = *in.Value
		reclassify = true
	}
	if in.Flag.Set {
		r.Flag = ""
		if in.Flag.Ptr != nil {
			r.Flag = strings.TrimSpace(*in.Flag.Ptr)
		}
		r.flagAuto = false
		return r.Flag == ""
	}
	return reclassify && (r.flagAuto || r.Flag == "")
}

func (r *LabResult) Validate() error {
	if r.PatientID <= 0 {
		return httpx.Invalidf("patient_id is required")
	}
	if r.TestDefinitionID <= 0 {
		return httpx.Invalidf("test_definition_id is required")
	}
	if r.CollectionDate.IsZero() {
		return httpx.Invalidf("collection_date is required")
	}
	if len(r.Flag) > maxFlagLen {
		return httpx.Invalidf("flag must be at most %d characters", maxFlagLen)
	}
	return nil
}
