package labs

import "context"

type DefinitionRepository interface {
	Create(ctx context.Context, d *LabTestDefinition) error
	GetByID(ctx context.Context, id int64) (*LabTestDefinition, error)
	Update(ctx context.Context, d *LabTestDefinition) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, category string, limit, offset int) ([]*LabTestDefinition, int, error)
	ListAll(ctx context.Context) ([]*LabTestDefinition, error)
	// Upsert inserts or updates by name and reports whether a row was created.
	Upsert(ctx context.Context, d *LabTestDefinition) (bool, error)
}

type ResultRepository interface {
	Create(ctx context.Context, r *LabResult) error
	GetByID(ctx context.Context, id int64) (*LabResult, error)
	Update(ctx context.Context, r *LabResult) error
	Delete(ctx context.Context, id int64) error
	// ListByPatient orders by collection_date descending.
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*LabResult, int, error)
	ListAllByPatient(ctx context.Context, patientID int64) ([]*LabResult, error)
}
