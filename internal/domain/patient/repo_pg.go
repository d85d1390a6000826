package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

const pgSchema = `
CREATE TABLE IF NOT EXISTS patients (
	id             BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	mri            VARCHAR(6) NOT NULL,
	next_med_count DATE NOT NULL,
	CONSTRAINT patients_mri_key UNIQUE (mri)
)`

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type patientRepoPG struct{ conn queryable }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{conn: pool}
}

const patientCols = `id, mri, next_med_count`

func (r *patientRepoPG) scanRow(row pgx.Row) (*Patient, error) {
	var p Patient
	var next time.Time
	if err := row.Scan(&p.ID, &p.MRI, &next); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.NextMedCount = DateOf(next)
	return &p, nil
}

func (r *patientRepoPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.conn.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("create patients table: %w", err)
	}
	return nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn.QueryRow(ctx, `
		INSERT INTO patients (mri, next_med_count)
		VALUES ($1, $2)
		RETURNING id`,
		p.MRI, p.NextMedCount.Time()).Scan(&p.ID)
	return mapPGError(err)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return r.scanRow(r.conn.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByMRI(ctx context.Context, mri string) (*Patient, error) {
	return r.scanRow(r.conn.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE mri = $1`, mri))
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY id ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Patient{}
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE patients SET mri=$2, next_med_count=$3
		WHERE id = $1`,
		p.ID, p.MRI, p.NextMedCount.Time())
	if err != nil {
		return mapPGError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) Count(ctx context.Context) (int, error) {
	var total int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total)
	return total, err
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrConflict
	}
	return err
}
