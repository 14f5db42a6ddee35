package db

import (
	"database/sql"

	"medtrack/internal/errors"
	"medtrack/internal/med"
)

const doseLogColumns = `id, item_id, schedule_id, scheduled_for, action,
	reason, note, snooze_until, logged_at`

// AppendLogEntry appends one entry to the dose log. Entries are immutable
// once written; the only removal path is DeleteLogEntry (snooze replacement
// and undo).
func AppendLogEntry(db *sql.DB, e *med.DoseLogEntry) error {
	query := `
		INSERT INTO dose_log (
			id, item_id, schedule_id, scheduled_for, action,
			reason, note, snooze_until, logged_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var scheduleID sql.NullString
	if e.ScheduleID != "" {
		scheduleID = sql.NullString{String: e.ScheduleID, Valid: true}
	}
	_, err := db.Exec(query,
		e.ID, e.ItemID, scheduleID, toNullInt64(e.ScheduledFor), string(e.Action),
		toNullString(e.Reason), toNullString(e.Note), toNullInt64(e.SnoozeUntil), e.LoggedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetLogEntryByID retrieves one entry.
func GetLogEntryByID(db *sql.DB, id string) (*med.DoseLogEntry, error) {
	query := `SELECT ` + doseLogColumns + ` FROM dose_log WHERE id = ?`
	e, err := scanLogEntry(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("log entry", id)
	}
	return e, err
}

// ListLogEntries returns entries logged at or after since (Unix seconds),
// ordered by logged_at ascending. itemID filters when non-empty.
func ListLogEntries(db *sql.DB, since int64, itemID string) ([]med.DoseLogEntry, error) {
	query := `SELECT ` + doseLogColumns + ` FROM dose_log WHERE logged_at >= ?`
	args := []any{since}
	if itemID != "" {
		query += ` AND item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY logged_at ASC, id ASC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var entries []med.DoseLogEntry
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}

// DeleteLogEntry removes an entry. Returns true if a row was deleted.
func DeleteLogEntry(db *sql.DB, id string) (bool, error) {
	res, err := db.Exec(`DELETE FROM dose_log WHERE id = ?`, id)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// LastLogEntry returns the most recently logged entry, or nil when the log
// is empty.
func LastLogEntry(db *sql.DB) (*med.DoseLogEntry, error) {
	query := `SELECT ` + doseLogColumns + ` FROM dose_log ORDER BY logged_at DESC, id DESC LIMIT 1`
	e, err := scanLogEntry(db.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// FindActiveSnooze returns the live snooze entry for an item's dose slot,
// or nil when none is pending. At most one live snooze exists per slot:
// Snooze deletes the prior one before appending a replacement.
func FindActiveSnooze(db *sql.DB, itemID string, scheduledFor int64) (*med.DoseLogEntry, error) {
	query := `SELECT ` + doseLogColumns + ` FROM dose_log
		WHERE item_id = ? AND action = ? AND scheduled_for = ?
		ORDER BY logged_at DESC LIMIT 1`
	e, err := scanLogEntry(db.QueryRow(query, itemID, string(med.ActionSnoozed), scheduledFor))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// FindActionedEntry returns the taken or skipped entry recorded against an
// item's dose slot, or nil when the slot has not been actioned yet.
func FindActionedEntry(db *sql.DB, itemID string, scheduledFor int64) (*med.DoseLogEntry, error) {
	query := `SELECT ` + doseLogColumns + ` FROM dose_log
		WHERE item_id = ? AND scheduled_for = ? AND action IN (?, ?)
		ORDER BY logged_at DESC LIMIT 1`
	e, err := scanLogEntry(db.QueryRow(query, itemID, scheduledFor,
		string(med.ActionTaken), string(med.ActionSkipped)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// CountTakenSince counts taken entries for an item logged at or after since.
func CountTakenSince(db *sql.DB, itemID string, since int64) (int, error) {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM dose_log WHERE item_id = ? AND action = ? AND logged_at >= ?`,
		itemID, string(med.ActionTaken), since,
	).Scan(&n)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// LastTakenAt returns the logged_at of the item's most recent taken entry,
// or nil when none exists.
func LastTakenAt(db *sql.DB, itemID string) (*int64, error) {
	var ts int64
	err := db.QueryRow(
		`SELECT logged_at FROM dose_log WHERE item_id = ? AND action = ? ORDER BY logged_at DESC LIMIT 1`,
		itemID, string(med.ActionTaken),
	).Scan(&ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ts, nil
}

func scanLogEntry(row scanner) (*med.DoseLogEntry, error) {
	var e med.DoseLogEntry
	var scheduleID, reason, note sql.NullString
	var scheduledFor, snoozeUntil sql.NullInt64
	var action string

	err := row.Scan(&e.ID, &e.ItemID, &scheduleID, &scheduledFor, &action,
		&reason, &note, &snoozeUntil, &e.LoggedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if scheduleID.Valid {
		e.ScheduleID = scheduleID.String
	}
	e.Action = med.Action(action)
	e.ScheduledFor = fromNullInt64(scheduledFor)
	e.Reason = fromNullString(reason)
	e.Note = fromNullString(note)
	e.SnoozeUntil = fromNullInt64(snoozeUntil)
	return &e, nil
}
