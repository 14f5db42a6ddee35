package db

import (
	"database/sql"
	"strings"

	"medtrack/internal/errors"
	"medtrack/internal/med"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.MedError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// InsertMedication stores a new medication.
func InsertMedication(db *sql.DB, m *med.Medication) error {
	query := `
		INSERT INTO medications (
			id, name_raw, name_norm, dose_amount, dose_unit,
			notes, created_at, updated_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`
	_, err := db.Exec(query,
		m.ID, m.NameRaw, m.NameNorm, m.DoseAmount, m.DoseUnit,
		toNullString(m.Notes), m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const medicationColumns = `id, name_raw, name_norm, dose_amount, dose_unit,
	notes, created_at, updated_at, deleted_at`

// GetMedicationByID retrieves a medication by its ULID.
// If includeDeleted is false, soft-deleted medications are excluded.
func GetMedicationByID(db *sql.DB, id string, includeDeleted bool) (*med.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	m, err := scanMedication(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("medication", id)
	}
	return m, err
}

// GetMedicationByName retrieves a medication by its normalized name.
func GetMedicationByName(db *sql.DB, nameNorm string, includeDeleted bool) (*med.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE name_norm = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT 1`
	m, err := scanMedication(db.QueryRow(query, nameNorm))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("medication", nameNorm)
	}
	return m, err
}

// ListMedications returns medications ordered by name.
func ListMedications(db *sql.DB, includeDeleted bool) ([]med.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY name_norm ASC`

	rows, err := db.Query(query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var items []med.Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// UpdateMedication persists mutable medication fields by ID.
func UpdateMedication(db *sql.DB, m *med.Medication) error {
	query := `
		UPDATE medications
		SET name_raw = ?, name_norm = ?, dose_amount = ?, dose_unit = ?,
			notes = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	res, err := db.Exec(query,
		m.NameRaw, m.NameNorm, m.DoseAmount, m.DoseUnit,
		toNullString(m.Notes), m.UpdatedAt, m.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return requireRow(res, "medication", m.ID)
}

// SoftDeleteMedication marks a medication deleted without losing history.
func SoftDeleteMedication(db *sql.DB, id string, deletedAt int64) error {
	res, err := db.Exec(
		`UPDATE medications SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		deletedAt, id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(res, "medication", id)
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanMedication(row scanner) (*med.Medication, error) {
	var m med.Medication
	var notes sql.NullString
	var deletedAt sql.NullInt64

	err := row.Scan(&m.ID, &m.NameRaw, &m.NameNorm, &m.DoseAmount, &m.DoseUnit,
		&notes, &m.CreatedAt, &m.UpdatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	m.Notes = fromNullString(notes)
	m.DeletedAt = fromNullInt64(deletedAt)
	return &m, nil
}

// requireRow converts a zero-row update into a not-found error.
func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(kind, id)
	}
	return nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
