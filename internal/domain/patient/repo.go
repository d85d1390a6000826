package patient

import "context"

// PatientRepository is the record store. Get* return ErrNotFound for a
// missing row; Create and Update return ErrConflict when the mri is taken.
type PatientRepository interface {
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	GetByMRI(ctx context.Context, mri string) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}
