package ops

import (
	"fmt"
	"time"

	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/med"
	"medtrack/internal/sched"
)

// SkipInput contains parameters for the Skip operation.
type SkipInput struct {
	ItemID       string
	ItemName     string
	ScheduleID   string  // optional when unambiguous
	ScheduledFor string  // RFC3339; optional, defaults to nearest due slot
	Reason       *string
}

// SkipOutput contains the result of the Skip operation.
type SkipOutput struct {
	EntryID      string `json:"entry_id"`
	ItemID       string `json:"item_id"`
	ItemName     string `json:"item_name"`
	ScheduledFor string `json:"scheduled_for"`
	LoggedAt     string `json:"logged_at"`
}

// Skip records a deliberately-missed scheduled dose. Skips only make sense
// against a planned slot; as-needed doses are simply not taken.
func Skip(env *Env, input SkipInput) (*SkipOutput, error) {
	m, err := resolveMedication(env, input.ItemID, input.ItemName)
	if err != nil {
		return nil, err
	}
	now := env.now()

	schedules, err := db.ListSchedules(env.DB, m.ID)
	if err != nil {
		return nil, err
	}
	target, err := pickSchedule(m, schedules, input.ScheduleID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s has no schedules to skip against", m.NameRaw))
	}
	if target.Scheme.Kind() == sched.SchemePRN {
		return nil, errors.NewInvalidRequest("as-needed doses cannot be skipped")
	}

	inst, err := resolveSlot(env, m, target, input.ScheduledFor, now)
	if err != nil {
		return nil, err
	}
	planned := inst.PlannedTime.Unix()

	prior, err := db.FindActionedEntry(env.DB, m.ID, planned)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return nil, errors.NewConflict(
			fmt.Sprintf("dose at %s already logged as %s", formatRFC3339(planned, env.local()), prior.Action))
	}

	if snooze, err := db.FindActiveSnooze(env.DB, m.ID, planned); err != nil {
		return nil, err
	} else if snooze != nil {
		if _, err := db.DeleteLogEntry(env.DB, snooze.ID); err != nil {
			return nil, err
		}
	}

	entryID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	entry := &med.DoseLogEntry{
		ID:           entryID,
		ItemID:       m.ID,
		ScheduleID:   target.ID,
		ScheduledFor: &planned,
		Action:       med.ActionSkipped,
		Reason:       cleanOptionalString(input.Reason),
		LoggedAt:     now.Unix(),
	}
	if err := db.AppendLogEntry(env.DB, entry); err != nil {
		return nil, err
	}

	return &SkipOutput{
		EntryID:      entryID,
		ItemID:       m.ID,
		ItemName:     m.NameRaw,
		ScheduledFor: formatRFC3339(planned, env.local()),
		LoggedAt:     now.In(env.local()).Format(time.RFC3339),
	}, nil
}
