package wellness

import "context"

type Repository interface {
	Create(ctx context.Context, e *SubjectiveEntry) error
	GetByID(ctx context.Context, id int64) (*SubjectiveEntry, error)
	Update(ctx context.Context, e *SubjectiveEntry) error
	Delete(ctx context.Context, id int64) error
	// ListByPatient orders by date descending; an empty metric matches all.
	ListByPatient(ctx context.Context, patientID int64, metric string, limit, offset int) ([]*SubjectiveEntry, int, error)
	ListAllByPatient(ctx context.Context, patientID int64) ([]*SubjectiveEntry, error)
}
