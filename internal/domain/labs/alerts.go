package labs

import (
	"sort"

	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/pkg/caldate"
)

// Alert is a lab result that fell outside the reference range applicable to
// its patient. It is derived on every request and never stored.
type Alert struct {
	ResultID         int64          `json:"result_id"`
	PatientID        int64          `json:"patient_id"`
	TestDefinitionID int64          `json:"test_definition_id"`
	CollectionDate   caldate.Date   `json:"collection_date"`
	Value            float64        `json:"value"`
	Interpretation   Interpretation `json:"interpretation"`
	TestName         string         `json:"test_name"`
	Category         string         `json:"category"`
	Unit             string         `json:"unit"`
	RefMin           *float64       `json:"ref_min"`
	RefMax           *float64       `json:"ref_max"`
	ReferenceRange   string         `json:"reference_range"`
}

// AggregateAlerts returns the patient's out-of-range results, most recent
// collection date first, keeping only the newest alert per test name.
//
// A result whose definition is absent is skipped. A definition with neither
// bound for the patient's sex never alerts. The stored Flag is not consulted.
// Inputs are not modified and the call never fails; a nil patient yields an
// empty list.
func AggregateAlerts(results []*LabResult, definitions []*LabTestDefinition, p *patient.Patient) []Alert {
	alerts := []Alert{}
	if p == nil {
		return alerts
	}

	byID := make(map[int64]*LabTestDefinition, len(definitions))
	for _, d := range definitions {
		if d != nil {
			byID[d.ID] = d
		}
	}
	sex := p.Sex()

	var abnormal []Alert
	for _, r := range results {
		if r == nil {
			continue
		}
		def, ok := byID[r.TestDefinitionID]
		if !ok {
			continue
		}
		lo, hi := def.RangeFor(sex)
		interp := Classify(r.Value, lo, hi)
		if !interp.IsAbnormal() {
			continue
		}
		abnormal = append(abnormal, Alert{
			ResultID:         r.ID,
			PatientID:        r.PatientID,
			TestDefinitionID: def.ID,
			CollectionDate:   r.CollectionDate,
			Value:            r.Value,
			Interpretation:   interp,
			TestName:         def.Name,
			Category:         def.Category,
			Unit:             def.Unit,
			RefMin:           copyBound(lo),
			RefMax:           copyBound(hi),
			ReferenceRange:   FormatRange(lo, hi),
		})
	}

	// ISO dates order lexicographically; stability keeps input order on ties.
	sort.SliceStable(abnormal, func(i, j int) bool {
		return abnormal[i].CollectionDate.String() > abnormal[j].CollectionDate.String()
	})

	seen := make(map[string]struct{}, len(abnormal))
	for _, a := range abnormal {
		if _, dup := seen[a.TestName]; dup {
			continue
		}
		seen[a.TestName] = struct{}{}
		alerts = append(alerts, a)
	}
	return alerts
}

func copyBound(b *float64) *float64 {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
