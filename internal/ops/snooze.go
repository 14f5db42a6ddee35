package ops

import (
	"fmt"
	"time"

	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/med"
	"medtrack/internal/sched"
)

// SnoozeInput contains parameters for the Snooze operation.
type SnoozeInput struct {
	ItemID       string
	ItemName     string
	ScheduleID   string // optional when unambiguous
	ScheduledFor string // RFC3339; optional, defaults to nearest due slot
	Minutes      int
}

// SnoozeOutput contains the result of the Snooze operation.
type SnoozeOutput struct {
	EntryID      string `json:"entry_id"`
	ItemID       string `json:"item_id"`
	ItemName     string `json:"item_name"`
	ScheduledFor string `json:"scheduled_for"`
	SnoozeUntil  string `json:"snooze_until"`
	Replaced     bool   `json:"replaced"`
}

// Snooze postpones a due dose by a bounded number of minutes. The deferred
// time is checked against every other dose due that day, and a second
// snooze on the same slot replaces the first, so a slot never carries more
// than one live deferral.
func Snooze(env *Env, input SnoozeInput) (*SnoozeOutput, error) {
	if env.Cfg == nil {
		return nil, errors.NewInternal(fmt.Errorf("missing config"))
	}
	min, max := env.Cfg.PostponeMinMinutes, env.Cfg.PostponeMaxMinutes
	if input.Minutes < min || input.Minutes > max {
		return nil, errors.NewInvalidRequest(
			fmt.Sprintf("minutes must be between %d and %d", min, max))
	}

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
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s has no schedules to snooze", m.NameRaw))
	}
	if target.Scheme.Kind() == sched.SchemePRN {
		return nil, errors.NewInvalidRequest("as-needed doses cannot be snoozed")
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

	until := now.Add(time.Duration(input.Minutes) * time.Minute)

	// The deferred time must not land on top of another dose due that day.
	ctx, err := expandDay(env, until, "")
	if err != nil {
		return nil, err
	}
	candidates := make([]sched.DoseInstance, 0, len(ctx.instances))
	for _, other := range ctx.instances {
		if other.SlotKey() == inst.SlotKey() {
			continue
		}
		candidates = append(candidates, other)
	}
	if hit, collides := sched.DetectCollision(until, candidates, env.Cfg.CollisionWindowMinutes); collides {
		name := hit.ItemID
		if hm := ctx.meds[hit.ItemID]; hm != nil {
			name = hm.NameRaw
		}
		window := env.Cfg.CollisionWindowMinutes
		if window <= 0 {
			window = sched.DefaultCollisionWindowMinutes
		}
		return nil, errors.NewDoseCollision(name, window)
	}

	replaced := false
	if existing, err := db.FindActiveSnooze(env.DB, m.ID, planned); err != nil {
		return nil, err
	} else if existing != nil {
		if _, err := db.DeleteLogEntry(env.DB, existing.ID); err != nil {
			return nil, err
		}
		replaced = true
	}

	entryID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	untilUnix := until.Unix()
	entry := &med.DoseLogEntry{
		ID:           entryID,
		ItemID:       m.ID,
		ScheduleID:   target.ID,
		ScheduledFor: &planned,
		Action:       med.ActionSnoozed,
		SnoozeUntil:  &untilUnix,
		LoggedAt:     now.Unix(),
	}
	if err := db.AppendLogEntry(env.DB, entry); err != nil {
		return nil, err
	}

	return &SnoozeOutput{
		EntryID:      entryID,
		ItemID:       m.ID,
		ItemName:     m.NameRaw,
		ScheduledFor: formatRFC3339(planned, env.local()),
		SnoozeUntil:  until.In(env.local()).Format(time.RFC3339),
		Replaced:     replaced,
	}, nil
}
