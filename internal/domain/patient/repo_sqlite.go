package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// AUTOINCREMENT keeps ids of deleted rows from being handed out again.
// next_med_count is TEXT so the driver does not coerce it into a timestamp.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS patients (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	mri            TEXT NOT NULL UNIQUE,
	next_med_count TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_patients_mri ON patients(mri);
`

type patientRepoSQLite struct{ db *sql.DB }

func NewPatientRepoSQLite(db *sql.DB) PatientRepository {
	return &patientRepoSQLite{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *patientRepoSQLite) scanRow(row rowScanner) (*Patient, error) {
	var p Patient
	var next string
	if err := row.Scan(&p.ID, &p.MRI, &next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d, err := ParseDate(next)
	if err != nil {
		return nil, fmt.Errorf("patient %d: %w", p.ID, err)
	}
	p.NextMedCount = d
	return &p, nil
}

func (r *patientRepoSQLite) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create patients table: %w", err)
	}
	return nil
}

func (r *patientRepoSQLite) Create(ctx context.Context, p *Patient) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO patients (mri, next_med_count) VALUES (?, ?)`,
		p.MRI, p.NextMedCount.String())
	if err != nil {
		return mapSQLiteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read inserted id: %w", err)
	}
	p.ID = id
	return nil
}

func (r *patientRepoSQLite) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return r.scanRow(r.db.QueryRowContext(ctx, `SELECT `+patientCols+` FROM patients WHERE id = ?`, id))
}

func (r *patientRepoSQLite) GetByMRI(ctx context.Context, mri string) (*Patient, error) {
	return r.scanRow(r.db.QueryRowContext(ctx, `SELECT `+patientCols+` FROM patients WHERE mri = ?`, mri))
}

func (r *patientRepoSQLite) List(ctx context.Context, limit, offset int) ([]*Patient, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return items, nil
}

func (r *patientRepoSQLite) Update(ctx context.Context, p *Patient) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE patients SET mri = ?, next_med_count = ? WHERE id = ?`,
		p.MRI, p.NextMedCount.String(), p.ID)
	if err != nil {
		return mapSQLiteError(err)
	}
	return requireAffected(res)
}

func (r *patientRepoSQLite) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	return requireAffected(res)
}

func (r *patientRepoSQLite) Count(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total)
	return total, err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapSQLiteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrConflict
	}
	return err
}
