package wellness

import (
	"errors"
	"strings"
	"time"

	"github.com/ehr/clinic/internal/platform/httpx"
	"github.com/ehr/clinic/pkg/caldate"
	"github.com/ehr/clinic/pkg/nullable"
)

var ErrEntryNotFound = errors.New("subjective entry not found")

const (
	MinScore = 0
	MaxScore = 10

	maxMetricNameLen = 100
)

// Metric names the clinic tracks by default. Any non-blank name is accepted.
const (
	MetricSleep  = "Sono"
	MetricLibido = "Libido"
	MetricEnergy = "Energia"
)

// SubjectiveEntry is a self-reported score for one metric on one day.
type SubjectiveEntry struct {
	ID         int64        `json:"id"`
	PatientID  int64        `json:"patient_id"`
	Date       caldate.Date `json:"date"`
	MetricName string       `json:"metric_name"`
	Score      int          `json:"score"`
	Notes      *string      `json:"notes"`
	CreatedAt  time.Time    `json:"created_at"`
}

func (e *SubjectiveEntry) Validate() error {
	if e.PatientID <= 0 {
		return httpx.Invalidf("patient_id is required")
	}
	if e.Date.IsZero() {
		return httpx.Invalidf("date is required")
	}
	if err := httpx.Required("metric_name", e.MetricName); err != nil {
		return err
	}
	if len(e.MetricName) > maxMetricNameLen {
		return httpx.Invalidf("metric_name must be at most %d characters", maxMetricNameLen)
	}
	if e.Score < MinScore || e.Score > MaxScore {
		return httpx.Invalidf("score must be between %d and %d", MinScore, MaxScore)
	}
	return nil
}

type EntryInput struct {
	PatientID  *int64                 `json:"patient_id"`
	Date       *caldate.Date          `json:"date"`
	MetricName *string                `json:"metric_name"`
	Score      *int                   `json:"score"`
	Notes      nullable.Value[string] `json:"notes"`
}

func (in *EntryInput) NewEntry() (*SubjectiveEntry, error) {
	switch {
	case in.PatientID == nil:
		return nil, httpx.Invalidf("patient_id is required")
	case in.Date == nil || in.Date.IsZero():
		return nil, httpx.Invalidf("date is required")
	case in.MetricName == nil:
		return nil, httpx.Invalidf("metric_name is required")
	case in.Score == nil:
		return nil, httpx.Invalidf("score is required")
	}
	e := &SubjectiveEntry{}
	in.Apply(e)
	return e, e.Validate()
}

func (in *EntryInput) Apply(e *SubjectiveEntry) {
	if in.PatientID != nil {
		e.PatientID = *in.PatientID
	}
	if in.Date != nil {
		e.Date = *in.Date
	}
	if in.MetricName != nil {
		e.MetricName = strings.TrimSpace(*in.MetricName)
	}
	if in.Score != nil {
		e.Score = *in.Score
	}
	in.Notes.ApplyTo(&e.Notes)
	if e.Notes != nil && strings.TrimSpace(*e.Notes) == "" {
		e.Notes = nil
	}
}
