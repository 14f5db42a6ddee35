package ops

import (
	"fmt"
	"math"
	"time"

	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/med"
	"medtrack/internal/sched"
)

// pickSchedule selects the schedule an action applies to. With an explicit
// ID it must belong to the medication; otherwise a single-schedule
// medication is unambiguous, zero schedules means ad-hoc, and anything
// else needs the caller to disambiguate.
func pickSchedule(m *med.Medication, schedules []sched.ScheduleDefinition, scheduleID string) (*sched.ScheduleDefinition, error) {
	if scheduleID != "" {
		for i := range schedules {
			if schedules[i].ID == scheduleID {
				return &schedules[i], nil
			}
		}
		return nil, errors.NewNotFound("schedule", scheduleID)
	}
	switch len(schedules) {
	case 0:
		return nil, nil
	case 1:
		return &schedules[0], nil
	}
	return nil, errors.NewInvalidRequest(
		fmt.Sprintf("%s has %d schedules; specify schedule_id", m.NameRaw, len(schedules)))
}

// resolveSlot finds the dose instance an action targets. An explicit
// scheduled_for must match an expanded instance of the schedule on its day;
// otherwise the unactioned instance nearest to now on the current day wins.
func resolveSlot(env *Env, m *med.Medication, s *sched.ScheduleDefinition, scheduledFor string, now time.Time) (*sched.DoseInstance, error) {
	loc := env.local()

	if scheduledFor != "" {
		want, err := time.Parse(time.RFC3339, scheduledFor)
		if err != nil {
			return nil, errors.NewInvalidRequest(
				fmt.Sprintf("invalid scheduled_for %q: must be RFC3339", scheduledFor))
		}
		ctx, err := expandDay(env, want.In(loc), m.ID)
		if err != nil {
			return nil, err
		}
		for i := range ctx.instances {
			inst := &ctx.instances[i]
			if inst.ScheduleID == s.ID && inst.PlannedTime.Equal(want) {
				return inst, nil
			}
		}
		return nil, errors.NewNotFound("dose", scheduledFor)
	}

	ctx, err := expandDay(env, now.In(loc), m.ID)
	if err != nil {
		return nil, err
	}
	var nearest *sched.DoseInstance
	var nearestGap time.Duration
	for i := range ctx.instances {
		inst := &ctx.instances[i]
		if inst.ScheduleID != s.ID {
			continue
		}
		if _, ok := ctx.actioned[slotRef(inst.ItemID, inst.PlannedTime.Unix())]; ok {
			continue
		}
		gap := now.Sub(inst.PlannedTime)
		if gap < 0 {
			gap = -gap
		}
		if nearest == nil || gap < nearestGap {
			nearest = inst
			nearestGap = gap
		}
	}
	if nearest == nil {
		return nil, errors.NewNotFound("due dose", now.In(loc).Format(sched.DateLayout))
	}
	return nearest, nil
}

// stockWarning grades remaining stock after a take; empty when fine.
func stockWarning(inv *med.InventoryRecord) string {
	if inv == nil {
		return ""
	}
	switch sched.StockUrgency(*inv) {
	case sched.UrgencyEmpty:
		return "empty"
	case sched.UrgencyCritical:
		return "critical"
	case sched.UrgencyLow:
		return "low"
	}
	return ""
}

// TakeInput contains parameters for the Take operation.
type TakeInput struct {
	ItemID       string
	ItemName     string
	ScheduleID   string  // optional when unambiguous
	ScheduledFor string  // RFC3339; optional, defaults to nearest due slot
	Note         *string
}

// TakeOutput contains the result of the Take operation.
type TakeOutput struct {
	EntryID        string   `json:"entry_id"`
	ItemID         string   `json:"item_id"`
	ItemName       string   `json:"item_name"`
	Status         string   `json:"status,omitempty"`
	DelayMinutes   int      `json:"delay_minutes,omitempty"`
	WithinGrace    bool     `json:"within_grace"`
	ScheduledFor   *string  `json:"scheduled_for,omitempty"`
	LoggedAt       string   `json:"logged_at"`
	RemainingUnits *float64 `json:"remaining_units,omitempty"`
	StockWarning   string   `json:"stock_warning,omitempty"`
}

// Take records a taken dose. Scheduled doses are matched to their slot and
// classified against the plan; as-needed doses run the PRN gate first and
// carry no slot. Inventory, when tracked, is decremented by the dose amount.
func Take(env *Env, input TakeInput) (*TakeOutput, error) {
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

	entryID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	entry := &med.DoseLogEntry{
		ID:       entryID,
		ItemID:   m.ID,
		Action:   med.ActionTaken,
		Note:     cleanOptionalString(input.Note),
		LoggedAt: now.Unix(),
	}
	out := &TakeOutput{
		EntryID:     entryID,
		ItemID:      m.ID,
		ItemName:    m.NameRaw,
		WithinGrace: true,
		LoggedAt:    now.In(env.local()).Format(time.RFC3339),
	}

	switch {
	case target != nil && target.Scheme.Kind() == sched.SchemePRN:
		prn := target.Scheme.(sched.PRNScheme)
		if err := checkPRN(env, m.ID, prn, now); err != nil {
			return nil, err
		}
		entry.ScheduleID = target.ID

	case target != nil:
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

		c := sched.Classify(inst.PlannedTime, &now, target.Grace(), now)
		entry.ScheduleID = target.ID
		entry.ScheduledFor = &planned
		out.Status = string(c.Status)
		out.DelayMinutes = c.DelayMinutes
		out.WithinGrace = c.WithinGrace
		scheduledFor := formatRFC3339(planned, env.local())
		out.ScheduledFor = &scheduledFor

		// An action resolves any live snooze on the slot.
		if snooze, err := db.FindActiveSnooze(env.DB, m.ID, planned); err != nil {
			return nil, err
		} else if snooze != nil {
			if _, err := db.DeleteLogEntry(env.DB, snooze.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := db.AppendLogEntry(env.DB, entry); err != nil {
		return nil, err
	}

	inv, err := db.GetInventory(env.DB, m.ID)
	if err != nil {
		return nil, err
	}
	if inv != nil {
		if err := db.AdjustInventory(env.DB, m.ID, -m.DoseAmount, now.Unix()); err != nil {
			return nil, err
		}
		inv.RemainingUnits = math.Max(0, inv.RemainingUnits-m.DoseAmount)
		out.RemainingUnits = &inv.RemainingUnits
		out.StockWarning = stockWarning(inv)
	}
	return out, nil
}

// checkPRN runs the as-needed gate for an item: daily cap first, then
// minimum spacing. Rejections surface as typed errors.
func checkPRN(env *Env, itemID string, prn sched.PRNScheme, now time.Time) error {
	dayStart := sched.Midnight(now, env.local())
	dosesToday, err := db.CountTakenSince(env.DB, itemID, dayStart.Unix())
	if err != nil {
		return err
	}
	lastAt, err := db.LastTakenAt(env.DB, itemID)
	if err != nil {
		return err
	}
	var last *time.Time
	if lastAt != nil {
		t := time.Unix(*lastAt, 0)
		last = &t
	}

	result := sched.ValidatePRN(prn, dosesToday, last, now)
	if result.CanTake {
		return nil
	}
	if result.Reason == sched.PRNReasonDailyLimit {
		return errors.NewPRNLimitReached(prn.MaxPerDay, result.DosesToday)
	}
	next := ""
	if result.NextAvailable != nil {
		next = result.NextAvailable.In(env.local()).Format(time.RFC3339)
	}
	return errors.NewPRNTooSoon(prn.MinIntervalHours, next)
}
