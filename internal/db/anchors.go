package db

import (
	"database/sql"

	"medtrack/internal/errors"
	"medtrack/internal/med"
	"medtrack/internal/sched"
)

// SetAnchor stores the profile base time (HH:mm) for one routine anchor.
func SetAnchor(db *sql.DB, anchor med.AnchorType, baseTime string) error {
	query := `
		INSERT INTO anchors (anchor, base_time) VALUES (?, ?)
		ON CONFLICT(anchor) DO UPDATE SET base_time = excluded.base_time
	`
	if _, err := db.Exec(query, string(anchor), baseTime); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ClearAnchor removes the base time for one anchor. Schedules referencing a
// cleared anchor simply stop producing instances; they are not touched.
func ClearAnchor(db *sql.DB, anchor med.AnchorType) (bool, error) {
	res, err := db.Exec(`DELETE FROM anchors WHERE anchor = ?`, string(anchor))
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// GetAnchors loads all configured anchor base times as a resolver map.
func GetAnchors(db *sql.DB) (sched.AnchorMap, error) {
	rows, err := db.Query(`SELECT anchor, base_time FROM anchors`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	anchors := make(sched.AnchorMap)
	for rows.Next() {
		var anchor, baseTime string
		if err := rows.Scan(&anchor, &baseTime); err != nil {
			return nil, errors.NewInternal(err)
		}
		anchors[med.AnchorType(anchor)] = baseTime
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return anchors, nil
}
