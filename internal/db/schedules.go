package db

import (
	"database/sql"

	"medtrack/internal/errors"
	"medtrack/internal/med"
	"medtrack/internal/sched"
)

const scheduleColumns = `id, item_id, scheme_kind, scheme_json, anchor_type,
	anchor_offset_min, start_date, end_date, grace_minutes, time_policy,
	paused, created_at, updated_at, deleted_at`

// InsertSchedule stores a new schedule definition.
func InsertSchedule(db *sql.DB, s *sched.ScheduleDefinition) error {
	kind, schemeJSON, err := sched.MarshalScheme(s.Scheme)
	if err != nil {
		return errors.NewInternal(err)
	}

	var anchorType sql.NullString
	var anchorOffset sql.NullInt64
	if s.Anchor != nil {
		anchorType = sql.NullString{String: string(s.Anchor.Type), Valid: true}
		anchorOffset = sql.NullInt64{Int64: int64(s.Anchor.OffsetMinutes), Valid: true}
	}

	query := `
		INSERT INTO schedules (
			id, item_id, scheme_kind, scheme_json, anchor_type,
			anchor_offset_min, start_date, end_date, grace_minutes,
			time_policy, paused, created_at, updated_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`
	_, err = db.Exec(query,
		s.ID, s.ItemID, string(kind), string(schemeJSON), anchorType,
		anchorOffset, s.StartDate, toNullString(s.EndDate), s.GraceWindowMinutes,
		string(s.TimePolicy), boolToInt(s.Paused), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetScheduleByID retrieves a schedule by its ULID.
func GetScheduleByID(db *sql.DB, id string, includeDeleted bool) (*sched.ScheduleDefinition, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	s, err := scanSchedule(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("schedule", id)
	}
	return s, err
}

// ListSchedules returns schedules, optionally filtered to one medication.
// Paused schedules are included; soft-deleted ones are not.
func ListSchedules(db *sql.DB, itemID string) ([]sched.ScheduleDefinition, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE deleted_at IS NULL`
	args := []any{}
	if itemID != "" {
		query += ` AND item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var items []sched.ScheduleDefinition
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// CountActiveSchedules counts non-deleted schedules referencing a medication.
func CountActiveSchedules(db *sql.DB, itemID string) (int, error) {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM schedules WHERE item_id = ? AND deleted_at IS NULL`,
		itemID,
	).Scan(&n)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// UpdateSchedule persists mutable schedule fields by ID.
func UpdateSchedule(db *sql.DB, s *sched.ScheduleDefinition) error {
	kind, schemeJSON, err := sched.MarshalScheme(s.Scheme)
	if err != nil {
		return errors.NewInternal(err)
	}

	var anchorType sql.NullString
	var anchorOffset sql.NullInt64
	if s.Anchor != nil {
		anchorType = sql.NullString{String: string(s.Anchor.Type), Valid: true}
		anchorOffset = sql.NullInt64{Int64: int64(s.Anchor.OffsetMinutes), Valid: true}
	}

	query := `
		UPDATE schedules
		SET scheme_kind = ?, scheme_json = ?, anchor_type = ?,
			anchor_offset_min = ?, start_date = ?, end_date = ?,
			grace_minutes = ?, time_policy = ?, paused = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	res, err := db.Exec(query,
		string(kind), string(schemeJSON), anchorType, anchorOffset,
		s.StartDate, toNullString(s.EndDate), s.GraceWindowMinutes,
		string(s.TimePolicy), boolToInt(s.Paused), s.UpdatedAt, s.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(res, "schedule", s.ID)
}

// SetSchedulePaused flips the paused flag.
func SetSchedulePaused(db *sql.DB, id string, paused bool, updatedAt int64) error {
	res, err := db.Exec(
		`UPDATE schedules SET paused = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		boolToInt(paused), updatedAt, id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(res, "schedule", id)
}

// SoftDeleteSchedule marks a schedule deleted.
func SoftDeleteSchedule(db *sql.DB, id string, deletedAt int64) error {
	res, err := db.Exec(
		`UPDATE schedules SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		deletedAt, id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(res, "schedule", id)
}

func scanSchedule(row scanner) (*sched.ScheduleDefinition, error) {
	var s sched.ScheduleDefinition
	var kind, schemeJSON, timePolicy string
	var anchorType, endDate sql.NullString
	var anchorOffset, deletedAt sql.NullInt64
	var paused int

	err := row.Scan(&s.ID, &s.ItemID, &kind, &schemeJSON, &anchorType,
		&anchorOffset, &s.StartDate, &endDate, &s.GraceWindowMinutes,
		&timePolicy, &paused, &s.CreatedAt, &s.UpdatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	scheme, err := sched.UnmarshalScheme(sched.SchemeKind(kind), []byte(schemeJSON))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	s.Scheme = scheme
	s.TimePolicy = sched.TimePolicy(timePolicy)
	s.Paused = paused != 0
	s.EndDate = fromNullString(endDate)
	s.DeletedAt = fromNullInt64(deletedAt)

	if anchorType.Valid {
		s.Anchor = &sched.Anchor{
			Type:          med.AnchorType(anchorType.String),
			OffsetMinutes: int(anchorOffset.Int64),
		}
	}
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
