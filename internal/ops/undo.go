package ops

import (
	"fmt"
	"time"

	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/med"
)

// UndoInput contains parameters for the Undo operation.
type UndoInput struct{}

// UndoOutput contains the result of the Undo operation.
type UndoOutput struct {
	UndoneEntryID string `json:"undone_entry_id"`
	Action        string `json:"action"`
	ItemID        string `json:"item_id"`
}

// Undo reverses the most recent log entry if it was recorded within the
// undo window. Undoing a taken dose restores the consumed inventory.
func Undo(env *Env, input UndoInput) (*UndoOutput, error) {
	entry, err := db.LastLogEntry(env.DB)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errors.NewNotFound("log entry", "latest")
	}

	now := env.now()
	window := time.Duration(env.Cfg.UndoWindowMinutes) * time.Minute
	if age := now.Sub(time.Unix(entry.LoggedAt, 0)); age > window {
		return nil, errors.NewConflict(
			fmt.Sprintf("entry was logged %d minutes ago; undo window is %d minutes",
				int(age/time.Minute), env.Cfg.UndoWindowMinutes))
	}

	deleted, err := db.DeleteLogEntry(env.DB, entry.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, errors.NewNotFound("log entry", entry.ID)
	}

	if entry.Action == med.ActionTaken {
		inv, err := db.GetInventory(env.DB, entry.ItemID)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			m, err := db.GetMedicationByID(env.DB, entry.ItemID, true)
			if err != nil {
				return nil, err
			}
			if err := db.AdjustInventory(env.DB, entry.ItemID, m.DoseAmount, now.Unix()); err != nil {
				return nil, err
			}
		}
	}

	return &UndoOutput{
		UndoneEntryID: entry.ID,
		Action:        string(entry.Action),
		ItemID:        entry.ItemID,
	}, nil
}
