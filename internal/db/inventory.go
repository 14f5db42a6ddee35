package db

import (
	"database/sql"

	"medtrack/internal/errors"
	"medtrack/internal/med"
)

// UpsertInventory creates or replaces the stock record for a medication.
func UpsertInventory(db *sql.DB, inv *med.InventoryRecord) error {
	query := `
		INSERT INTO inventory (item_id, remaining_units, low_threshold, unit_label, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			remaining_units = excluded.remaining_units,
			low_threshold = excluded.low_threshold,
			unit_label = excluded.unit_label,
			updated_at = excluded.updated_at
	`
	_, err := db.Exec(query, inv.ItemID, inv.RemainingUnits, inv.LowThreshold, inv.UnitLabel, inv.UpdatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetInventory returns the stock record for a medication, or nil when none
// has been configured.
func GetInventory(db *sql.DB, itemID string) (*med.InventoryRecord, error) {
	var inv med.InventoryRecord
	err := db.QueryRow(
		`SELECT item_id, remaining_units, low_threshold, unit_label, updated_at
		 FROM inventory WHERE item_id = ?`,
		itemID,
	).Scan(&inv.ItemID, &inv.RemainingUnits, &inv.LowThreshold, &inv.UnitLabel, &inv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &inv, nil
}

// ListInventory returns all stock records ordered by item.
func ListInventory(db *sql.DB) ([]med.InventoryRecord, error) {
	rows, err := db.Query(
		`SELECT item_id, remaining_units, low_threshold, unit_label, updated_at
		 FROM inventory ORDER BY item_id ASC`,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var records []med.InventoryRecord
	for rows.Next() {
		var inv med.InventoryRecord
		if err := rows.Scan(&inv.ItemID, &inv.RemainingUnits, &inv.LowThreshold, &inv.UnitLabel, &inv.UpdatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		records = append(records, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return records, nil
}

// AdjustInventory shifts remaining stock by delta (negative to consume).
// Stock floors at zero rather than going negative: a forgotten refill must
// not poison the depletion forecast with negative units.
func AdjustInventory(db *sql.DB, itemID string, delta float64, updatedAt int64) error {
	res, err := db.Exec(
		`UPDATE inventory
		 SET remaining_units = MAX(0, remaining_units + ?), updated_at = ?
		 WHERE item_id = ?`,
		delta, updatedAt, itemID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(res, "inventory", itemID)
}
