package patient

import "context"

// ListFilter narrows List; Name matches a case-insensitive substring of full_name.
type ListFilter struct {
	Name string
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error)
}
