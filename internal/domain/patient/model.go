package patient

import (
	"errors"
	"strings"
	"time"

	"github.com/ehr/clinic/internal/platform/httpx"
	"github.com/ehr/clinic/pkg/caldate"
)

var ErrPatientNotFound = errors.New("patient not found")

// Sex selects which reference ranges apply to a patient. It is resolved once
// from the free-text gender.
type Sex int

const (
	SexUnspecified Sex = iota
	SexMale
	SexFemale
)

// ParseSex maps a free-text gender ("Feminino", "female", "M", ...) to a Sex.
// Anything that does not start with f or m is unspecified.
func ParseSex(gender string) Sex {
	g := strings.ToLower(strings.TrimSpace(gender))
	switch {
	case strings.HasPrefix(g, "f"):
		return SexFemale
	case strings.HasPrefix(g, "m"):
		return SexMale
	default:
		return SexUnspecified
	}
}

// UsesFemaleRanges is true only for SexFemale; unspecified falls back to the
// male ranges.
func (s Sex) UsesFemaleRanges() bool {
	return s == SexFemale
}

func (s Sex) String() string {
	switch s {
	case SexMale:
		return "male"
	case SexFemale:
		return "female"
	default:
		return "unspecified"
	}
}

type Patient struct {
	ID          int64        `json:"id"`
	FullName    string       `json:"full_name"`
	DateOfBirth caldate.Date `json:"date_of_birth"`
	Gender      string       `json:"gender"`
	HeightCM    float64      `json:"height_cm"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (p *Patient) Sex() Sex {
	return ParseSex(p.Gender)
}

// Age in whole years on the given day.
func (p *Patient) Age(on caldate.Date) int {
	if p.DateOfBirth.IsZero() {
		return 0
	}
	return p.DateOfBirth.YearsUntil(on)
}

func (p *Patient) Validate() error {
	if err := httpx.Required("full_name", p.FullName); err != nil {
		return err
	}
	if p.DateOfBirth.IsZero() {
		return httpx.Invalidf("date_of_birth is required")
	}
	if p.DateOfBirth.After(caldate.Today()) {
		return httpx.Invalidf("date_of_birth cannot be in the future")
	}
	if err := httpx.Required("gender", p.Gender); err != nil {
		return err
	}
	if p.HeightCM <= 0 {
		return httpx.Invalidf("height_cm must be greater than 0")
	}
	return nil
}

// PatientUpdate is a partial update: nil fields are left unchanged.
type PatientUpdate struct {
	FullName    *string       `json:"full_name"`
	DateOfBirth *caldate.Date `json:"date_of_birth"`
	Gender      *string       `json:"gender"`
	HeightCM    *float64      `json:"height_cm"`
}

func (u *PatientUpdate) Apply(p *Patient) {
	if u.FullName != nil {
		p.FullName = strings.TrimSpace(*u.FullName)
	}
	if u.DateOfBirth != nil {
		p.DateOfBirth = *u.DateOfBirth
	}
	if u.Gender != nil {
		p.Gender = strings.TrimSpace(*u.Gender)
	}
	if u.HeightCM != nil {
		p.HeightCM = *u.HeightCM
	}
}
