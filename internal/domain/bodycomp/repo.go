package bodycomp

import "context"

// Patient-scoped lists are ordered by date descending.

type BioimpedanceRepository interface {
	Create(ctx context.Context, e *BioimpedanceEntry) error
	GetByID(ctx context.Context, id int64) (*BioimpedanceEntry, error)
	Update(ctx context.Context, e *BioimpedanceEntry) error
	Delete(ctx context.Context, id int64) error
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*BioimpedanceEntry, int, error)
	ListAllByPatient(ctx context.Context, patientID int64) ([]*BioimpedanceEntry, error)
}

type AnthropometryRepository interface {
	Create(ctx context.Context, e *AnthropometryEntry) error
	GetByID(ctx context.Context, id int64) (*AnthropometryEntry, error)
	Update(ctx context.Context, e *AnthropometryEntry) error
	Delete(ctx context.Context, id int64) error
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*AnthropometryEntry, int, error)
	ListAllByPatient(ctx context.Context, patientID int64) ([]*AnthropometryEntry, error)
}
