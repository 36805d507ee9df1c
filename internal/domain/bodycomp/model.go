package bodycomp

import (
	"errors"
	"time"

	"github.com/ehr/clinic/internal/platform/httpx"
	"github.com/ehr/clinic/pkg/caldate"
	"github.com/ehr/clinic/pkg/nullable"
)

var (
	ErrBioimpedanceNotFound  = errors.New("bioimpedance entry not found")
	ErrAnthropometryNotFound = errors.New("anthropometry entry not found")
)

// =========== Bioimpedance ===========

// BioimpedanceEntry is one body composition scan.
type BioimpedanceEntry struct {
	ID                     int64        `json:"id"`
	PatientID              int64        `json:"patient_id"`
	Date                   caldate.Date `json:"date"`
	WeightKG               float64      `json:"weight_kg"`
	BMI                    float64      `json:"bmi"`
	BodyFatPercent         float64      `json:"body_fat_percent"`
	FatMassKG              float64      `json:"fat_mass_kg"`
	MuscleMassKG           float64      `json:"muscle_mass_kg"`
	VisceralFatLevel       float64      `json:"visceral_fat_level"`
	BasalMetabolicRateKcal int          `json:"basal_metabolic_rate_kcal"`
	HydrationPercent       *float64     `json:"hydration_percent"`
	CreatedAt              time.Time    `json:"created_at"`
}

func (e *BioimpedanceEntry) Validate() error {
	if e.PatientID <= 0 {
		return httpx.Invalidf("patient_id is required")
	}
	if e.Date.IsZero() {
		return httpx.Invalidf("date is required")
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"weight_kg", e.WeightKG},
		{"bmi", e.BMI},
		{"body_fat_percent", e.BodyFatPercent},
		{"fat_mass_kg", e.FatMassKG},
		{"muscle_mass_kg", e.MuscleMassKG},
		{"visceral_fat_level", e.VisceralFatLevel},
		{"basal_metabolic_rate_kcal", float64(e.BasalMetabolicRateKcal)},
	} {
		if f.value < 0 {
			return httpx.Invalidf("%s must not be negative", f.name)
		}
	}
	if e.HydrationPercent != nil && (*e.HydrationPercent < 0 || *e.HydrationPercent > 100) {
		return httpx.Invalidf("hydration_percent must be between 0 and 100")
	}
	if e.BodyFatPercent > 100 {
		return httpx.Invalidf("body_fat_percent must not exceed 100")
	}
	return nil
}

// BioimpedanceInput is the body of create (every measurement but hydration
// required) and of partial update.
type BioimpedanceInput struct {
	PatientID              *int64                  `json:"patient_id"`
	Date                   *caldate.Date           `json:"date"`
	WeightKG               *float64                `json:"weight_kg"`
	BMI                    *float64                `json:"bmi"`
	BodyFatPercent         *float64                `json:"body_fat_percent"`
	FatMassKG              *float64                `json:"fat_mass_kg"`
	MuscleMassKG           *float64                `json:"muscle_mass_kg"`
	VisceralFatLevel       *float64                `json:"visceral_fat_level"`
	BasalMetabolicRateKcal *int                    `json:"basal_metabolic_rate_kcal"`
	HydrationPercent       nullable.Value[float64] `json:"hydration_percent"`
}

func (in *BioimpedanceInput) NewEntry() (*BioimpedanceEntry, error) {
	missing := firstMissing(
		field{"patient_id", in.PatientID == nil},
		field{"date", in.Date == nil || in.Date.IsZero()},
		field{"weight_kg", in.WeightKG == nil},
		field{"bmi", in.BMI == nil},
		field{"body_fat_percent", in.BodyFatPercent == nil},
		field{"fat_mass_kg", in.FatMassKG == nil},
		field{"muscle_mass_kg", in.MuscleMassKG == nil},
		field{"visceral_fat_level", in.VisceralFatLevel == nil},
		field{"basal_metabolic_rate_kcal", in.BasalMetabolicRateKcal == nil},
	)
	if missing != "" {
		return nil, httpx.Invalidf("%s is required", missing)
	}
	e := &BioimpedanceEntry{}
	in.Apply(e)
	return e, e.Validate()
}

func (in *BioimpedanceInput) Apply(e *BioimpedanceEntry) {
	setInt64(&e.PatientID, in.PatientID)
	if in.Date != nil {
		e.Date = *in.Date
	}
	setFloat(&e.WeightKG, in.WeightKG)
	setFloat(&e.BMI, in.BMI)
	setFloat(&e.BodyFatPercent, in.BodyFatPercent)
	setFloat(&e.FatMassKG, in.FatMassKG)
	setFloat(&e.MuscleMassKG, in.MuscleMassKG)
	setFloat(&e.VisceralFatLevel, in.VisceralFatLevel)
	if in.BasalMetabolicRateKcal != nil {
		e.BasalMetabolicRateKcal = *in.BasalMetabolicRateKcal
	}
	in.HydrationPercent.ApplyTo(&e.HydrationPercent)
}

// =========== Anthropometry ===========

// AnthropometryEntry holds tape measurements; every measurement is optional.
type AnthropometryEntry struct {
	ID           int64        `json:"id"`
	PatientID    int64        `json:"patient_id"`
	Date         caldate.Date `json:"date"`
	WaistCM      *float64     `json:"waist_cm"`
	AbdomenCM    *float64     `json:"abdomen_cm"`
	HipsCM       *float64     `json:"hips_cm"`
	RightArmCM   *float64     `json:"right_arm_cm"`
	LeftArmCM    *float64     `json:"left_arm_cm"`
	RightThighCM *float64     `json:"right_thigh_cm"`
	LeftThighCM  *float64     `json:"left_thigh_cm"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (e *AnthropometryEntry) measurements() []struct {
	name  string
	value *float64
} {
	return []struct {
		name  string
		value *float64
	}{
		{"waist_cm", e.WaistCM},
		{"abdomen_cm", e.AbdomenCM},
		{"hips_cm", e.HipsCM},
		{"right_arm_cm", e.RightArmCM},
		{"left_arm_cm", e.LeftArmCM},
		{"right_thigh_cm", e.RightThighCM},
		{"left_thigh_cm", e.LeftThighCM},
	}
}

func (e *AnthropometryEntry) Validate() error {
	if e.PatientID <= 0 {
		return httpx.Invalidf("patient_id is required")
	}
	if e.Date.IsZero() {
		return httpx.Invalidf("date is required")
	}
	for _, m := range e.measurements() {
		if m.value != nil && *m.value <= 0 {
			return httpx.Invalidf("%s must be positive", m.name)
		}
	}
	return nil
}

type AnthropometryInput struct {
	PatientID    *int64                  `json:"patient_id"`
	Date         *caldate.Date           `json:"date"`
	WaistCM      nullable.Value[float64] `json:"waist_cm"`
	AbdomenCM    nullable.Value[float64] `json:"abdomen_cm"`
	HipsCM       nullable.Value[float64] `json:"hips_cm"`
	RightArmCM   nullable.Value[float64] `json:"right_arm_cm"`
	LeftArmCM    nullable.Value[float64] `json:"left_arm_cm"`
	RightThighCM nullable.Value[float64] `json:"right_thigh_cm"`
	LeftThighCM  nullable.Value[float64] `json:"left_thigh_cm"`
}

func (in *AnthropometryInput) NewEntry() (*AnthropometryEntry, error) {
	missing := firstMissing(
		field{"patient_id", in.PatientID == nil},
		field{"date", in.Date == nil || in.Date.IsZero()},
	)
	if missing != "" {
		return nil, httpx.Invalidf("%s is required", missing)
	}
	e := &AnthropometryEntry{}
	in.Apply(e)
	return e, e.Validate()
}

func (in *AnthropometryInput) Apply(e *AnthropometryEntry) {
	setInt64(&e.PatientID, in.PatientID)
	if in.Date != nil {
		e.Date = *in.Date
	}
	in.WaistCM.ApplyTo(&e.WaistCM)
	in.AbdomenCM.ApplyTo(&e.AbdomenCM)
	in.HipsCM.ApplyTo(&e.HipsCM)
	in.RightArmCM.ApplyTo(&e.RightArmCM)
	in.LeftArmCM.ApplyTo(&e.LeftArmCM)
	in.RightThighCM.ApplyTo(&e.RightThighCM)
	in.LeftThighCM.ApplyTo(&e.LeftThighCM)
}

// -- helpers --

type field struct {
	name    string
	missing bool
}

func firstMissing(fields ...field) string {
	for _, f := range fields {
		if f.missing {
			return f.name
		}
	}
	return ""
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt64(dst *int64, v *int64) {
	if v != nil {
		*dst = *v
	}
}
