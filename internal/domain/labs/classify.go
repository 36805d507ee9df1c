package labs

import "strconv"

// Interpretation is the outcome of comparing a value to a reference range,
// using HL7 v3 ObservationInterpretation codes.
type Interpretation string

const (
	InterpretationNone   Interpretation = ""
	InterpretationLow    Interpretation = "L"
	InterpretationNormal Interpretation = "N"
	InterpretationHigh   Interpretation = "H"
)

func (i Interpretation) IsAbnormal() bool {
	return i == InterpretationLow || i == InterpretationHigh
}

func (i Interpretation) Display() string {
	switch i {
	case InterpretationLow:
		return "Low"
	case InterpretationNormal:
		return "Normal"
	case InterpretationHigh:
		return "High"
	default:
		return ""
	}
}

// Classify compares value to [lo, hi]. Bounds are inclusive; a nil bound is
// unbounded on that side. With no bounds at all there is nothing to classify.
func Classify(value float64, lo, hi *float64) Interpretation {
	if lo == nil && hi == nil {
		return InterpretationNone
	}
	if lo != nil && value < *lo {
		return InterpretationLow
	}
	if hi != nil && value > *hi {
		return InterpretationHigh
	}
	return InterpretationNormal
}

// FormatRange renders "min - max" with "?" for a missing bound.
func FormatRange(lo, hi *float64) string {
	return formatBound(lo) + " - " + formatBound(hi)
}

func formatBound(b *float64) string {
	if b == nil {
		return "?"
	}
	return strconv.FormatFloat(*b, 'f', -1, 64)
}
