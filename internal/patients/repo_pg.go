package patients

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// GetByID returns a patient by id.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (Patient, error) {
	const query = `
SELECT patient_id, patient_uid, patient_title, age, gender, patient_notes, created_at
FROM patients
WHERE patient_id = $1
LIMIT 1`
	var (
		p      Patient
		age    sql.NullFloat64
		gender sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.UID, &p.Title, &age, &gender, &p.Notes, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Patient{}, ErrNotFound
		}
		return Patient{}, err
	}
	if age.Valid {
		p.Age = &age.Float64
	}
	if gender.Valid {
		p.Gender = gender.String
	}
	return p, nil
}

// ListIDs returns candidate record ids in ascending order.
func (r *PGRepo) ListIDs(ctx context.Context, limit int) ([]int64, error) {
	query := `SELECT patient_id FROM patients ORDER BY patient_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListSample returns preview rows for interactive browsing.
func (r *PGRepo) ListSample(ctx context.Context, limit int) ([]Preview, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
SELECT patient_id, patient_uid, patient_title, age, gender, patient_notes, created_at
FROM patients
ORDER BY patient_id
LIMIT $1`
	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var previews []Preview
	for rows.Next() {
		var (
			p      Patient
			age    sql.NullFloat64
			gender sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.UID, &p.Title, &age, &gender, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		if age.Valid {
			p.Age = &age.Float64
		}
		if gender.Valid {
			p.Gender = gender.String
		}
		previews = append(previews, previewOf(p))
	}
	return previews, rows.Err()
}

// Count returns the number of patients.
func (r *PGRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&count)
	return count, err
}

// Insert stores a new patient, replacing notes on conflict.
func (r *PGRepo) Insert(ctx context.Context, p Patient) error {
	const query = `
INSERT INTO patients (patient_id, patient_uid, patient_title, age, gender, patient_notes)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (patient_id) DO UPDATE SET
	patient_uid   = EXCLUDED.patient_uid,
	patient_title = EXCLUDED.patient_title,
	age           = EXCLUDED.age,
	gender        = EXCLUDED.gender,
	patient_notes = EXCLUDED.patient_notes`
	var age any
	if p.Age != nil {
		age = *p.Age
	}
	var gender any
	if p.Gender != "" {
		gender = p.Gender
	}
	_, err := r.DB.ExecContext(ctx, query, p.ID, p.UID, p.Title, age, gender, p.Notes)
	return err
}

var _ Repo = (*PGRepo)(nil)
