package ops

import (
	"fmt"
	"sort"
	"time"

	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/med"
	"medtrack/internal/sched"
)

// dayContext is one civil day's expanded dose picture: every instance of
// every active schedule, joined against the log entries recorded for the
// day's slots. Instances are derived fresh on every call; nothing is cached.
type dayContext struct {
	day       time.Time
	instances []sched.DoseInstance
	meds      map[string]*med.Medication
	schedules map[string]*sched.ScheduleDefinition
	actioned  map[string]med.DoseLogEntry
	snoozes   map[string]med.DoseLogEntry
}

func slotRef(itemID string, scheduledFor int64) string {
	return fmt.Sprintf("%s|%d", itemID, scheduledFor)
}

// expandDay builds the dose picture for the civil day containing date.
// itemID restricts to one medication when non-empty.
func expandDay(env *Env, date time.Time, itemID string) (*dayContext, error) {
	loc := env.local()
	day := sched.Midnight(date, loc)

	meds, err := db.ListMedications(env.DB, false)
	if err != nil {
		return nil, err
	}

	anchors, err := db.GetAnchors(env.DB)
	if err != nil {
		return nil, err
	}

	ctx := &dayContext{
		day:       day,
		meds:      make(map[string]*med.Medication),
		schedules: make(map[string]*sched.ScheduleDefinition),
		actioned:  make(map[string]med.DoseLogEntry),
		snoozes:   make(map[string]med.DoseLogEntry),
	}

	for i := range meds {
		m := &meds[i]
		if itemID != "" && m.ID != itemID {
			continue
		}
		ctx.meds[m.ID] = m

		schedules, err := db.ListSchedules(env.DB, m.ID)
		if err != nil {
			return nil, err
		}
		for j := range schedules {
			s := &schedules[j]
			ctx.schedules[s.ID] = s
			ctx.instances = append(ctx.instances, sched.Expand(s, day, anchors, loc, m.DoseAmount)...)
		}
	}

	sort.Slice(ctx.instances, func(i, j int) bool {
		a, b := ctx.instances[i], ctx.instances[j]
		if !a.PlannedTime.Equal(b.PlannedTime) {
			return a.PlannedTime.Before(b.PlannedTime)
		}
		return a.ItemID < b.ItemID
	})

	// Entries for today's slots can be logged the evening before (early
	// takes) or well after midnight, so scan from the previous day and
	// join on the planned slot time, not the logging time.
	entries, err := db.ListLogEntries(env.DB, day.AddDate(0, 0, -1).Unix(), itemID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ScheduledFor == nil {
			continue
		}
		key := slotRef(e.ItemID, *e.ScheduledFor)
		switch e.Action {
		case med.ActionTaken, med.ActionSkipped:
			ctx.actioned[key] = e
		case med.ActionSnoozed:
			ctx.snoozes[key] = e
		}
	}
	return ctx, nil
}

// DueDose is one dose slot in the Due output.
type DueDose struct {
	ScheduleID   string  `json:"schedule_id"`
	ItemID       string  `json:"item_id"`
	ItemName     string  `json:"item_name"`
	PlannedTime  string  `json:"planned_time"`
	TimeLabel    string  `json:"time_label"`
	DoseAmount   float64 `json:"dose_amount"`
	DoseUnit     string  `json:"dose_unit"`
	Status       string  `json:"status"`
	DelayMinutes int     `json:"delay_minutes"`
	Action       string  `json:"action,omitempty"`
	SnoozeUntil  *string `json:"snooze_until,omitempty"`
}

// DueInput contains parameters for the Due operation.
type DueInput struct {
	Date     string // YYYY-MM-DD, default: today
	ItemID   string // optional filter
	ItemName string // optional filter
}

// DueOutput contains the result of the Due operation.
type DueOutput struct {
	Date  string    `json:"date"`
	Doses []DueDose `json:"doses"`
	Total int       `json:"total"`
}

// Due lists every dose slot for a day with its timing status. A dose under
// a live snooze reports "snoozed" until its deferred time; once that passes
// unactioned, classification reverts to the original plan.
func Due(env *Env, input DueInput) (*DueOutput, error) {
	now := env.now()
	loc := env.local()

	date := now.In(loc)
	if input.Date != "" {
		parsed, err := sched.ParseDate(input.Date, loc)
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid date %q: must be YYYY-MM-DD", input.Date))
		}
		date = parsed
	}

	itemID := ""
	if input.ItemID != "" || input.ItemName != "" {
		m, err := resolveMedication(env, input.ItemID, input.ItemName)
		if err != nil {
			return nil, err
		}
		itemID = m.ID
	}

	ctx, err := expandDay(env, date, itemID)
	if err != nil {
		return nil, err
	}

	doses := make([]DueDose, 0, len(ctx.instances))
	for _, inst := range ctx.instances {
		m := ctx.meds[inst.ItemID]
		s := ctx.schedules[inst.ScheduleID]
		if m == nil || s == nil {
			continue
		}

		dose := DueDose{
			ScheduleID:  inst.ScheduleID,
			ItemID:      inst.ItemID,
			ItemName:    m.NameRaw,
			PlannedTime: inst.PlannedTime.In(loc).Format(time.RFC3339),
			TimeLabel:   inst.OriginalTime,
			DoseAmount:  inst.DoseAmount,
			DoseUnit:    m.DoseUnit,
		}

		key := slotRef(inst.ItemID, inst.PlannedTime.Unix())
		if entry, ok := ctx.actioned[key]; ok {
			dose.Action = string(entry.Action)
			if entry.Action == med.ActionSkipped {
				dose.Status = "skipped"
			} else {
				loggedAt := time.Unix(entry.LoggedAt, 0)
				c := sched.Classify(inst.PlannedTime, &loggedAt, s.Grace(), now)
				dose.Status = string(c.Status)
				dose.DelayMinutes = c.DelayMinutes
			}
			doses = append(doses, dose)
			continue
		}

		if entry, ok := ctx.snoozes[key]; ok && entry.SnoozeUntil != nil {
			until := formatRFC3339(*entry.SnoozeUntil, loc)
			dose.SnoozeUntil = &until
			if now.Unix() < *entry.SnoozeUntil {
				dose.Status = "snoozed"
				doses = append(doses, dose)
				continue
			}
		}

		c := sched.Classify(inst.PlannedTime, nil, s.Grace(), now)
		dose.Status = string(c.Status)
		dose.DelayMinutes = c.DelayMinutes
		doses = append(doses, dose)
	}

	return &DueOutput{
		Date:  sched.Midnight(date, loc).Format(sched.DateLayout),
		Doses: doses,
		Total: len(doses),
	}, nil
}
