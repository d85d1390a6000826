package patient

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

type Service struct {
	repo PatientRepository
	now  func() time.Time
}

func NewService(repo PatientRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetClock replaces the wall clock used for the today flag.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// decorate recomputes TodayFlag at read time, discarding any stored value.
func (s *Service) decorate(p *Patient) *Patient {
	p.TodayFlag = IsTodayAt(p.NextMedCount, s.now())
	return p
}

func validate(p *Patient) error {
	if n := utf8.RuneCountInString(p.MRI); n < 2 || n > 6 {
		return fmt.Errorf("%w: mri must be 2 to 6 characters", ErrInvalid)
	}
	if p.NextMedCount.IsZero() {
		return fmt.Errorf("%w: next_med_count is required", ErrInvalid)
	}
	return nil
}

// CreatePatient rejects a taken mri before inserting; a concurrent insert of
// the same mri is still caught by the store's unique constraint.
func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := validate(p); err != nil {
		return err
	}
	_, err := s.repo.GetByMRI(ctx, p.MRI)
	switch {
	case err == nil:
		return ErrConflict
	case !errors.Is(err, ErrNotFound):
		return fmt.Errorf("lookup mri: %w", err)
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.decorate(p)
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decorate(p), nil
}

func (s *Service) GetPatientByMRI(ctx context.Context, mri string) (*Patient, error) {
	p, err := s.repo.GetByMRI(ctx, mri)
	if err != nil {
		return nil, err
	}
	return s.decorate(p), nil
}

// LookupMRI answers the tri-state mri query. Only storage failures are errors.
func (s *Service) LookupMRI(ctx context.Context, mri string) (int, error) {
	p, err := s.GetPatientByMRI(ctx, mri)
	if errors.Is(err, ErrNotFound) {
		return MRINotFound, nil
	}
	if err != nil {
		return 0, err
	}
	if p.TodayFlag {
		return MRIFoundToday, nil
	}
	return MRIFoundNotToday, nil
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, error) {
	if limit < 0 || offset < 0 {
		return nil, fmt.Errorf("%w: skip and limit must not be negative", ErrInvalid)
	}
	items, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		s.decorate(p)
	}
	return items, nil
}

// UpdatePatient replaces every mutable field of the record with p.ID.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := validate(p); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	s.decorate(p)
	return nil
}

func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) CountPatients(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
