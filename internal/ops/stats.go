package ops

import (
	"medtrack/internal/adherence"
	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/sched"
)

// Stats window bounds.
const (
	DefaultStatsWindowDays = 30
	MaxStatsWindowDays     = 365
)

// StatsInput contains parameters for the Stats operation.
type StatsInput struct {
	WindowDays int    // default: 30, max: 365
	ItemID     string // optional filter
	ItemName   string // optional filter
}

// StatsOutput contains the result of the Stats operation.
type StatsOutput struct {
	adherence.Result

	// ItemNames maps the per-medication breakdown's IDs to display names.
	ItemNames map[string]string `json:"item_names"`
}

// Stats aggregates the dose log into adherence metrics over a trailing
// window of days.
func Stats(env *Env, input StatsInput) (*StatsOutput, error) {
	window := input.WindowDays
	if window <= 0 {
		window = DefaultStatsWindowDays
	}
	if window > MaxStatsWindowDays {
		return nil, errors.NewInvalidRequest("window_days must be at most 365")
	}

	itemID := ""
	if input.ItemID != "" || input.ItemName != "" {
		m, err := resolveMedication(env, input.ItemID, input.ItemName)
		if err != nil {
			return nil, err
		}
		itemID = m.ID
	}

	now := env.now()
	loc := env.local()
	since := sched.Midnight(now, loc).AddDate(0, 0, -(window - 1))

	entries, err := db.ListLogEntries(env.DB, since.Unix(), itemID)
	if err != nil {
		return nil, err
	}

	schedules, err := db.ListSchedules(env.DB, "")
	if err != nil {
		return nil, err
	}
	graceBySchedule := make(map[string]int, len(schedules))
	for i := range schedules {
		graceBySchedule[schedules[i].ID] = schedules[i].Grace()
	}

	result := adherence.Aggregate(adherence.Input{
		Entries:         entries,
		WindowDays:      window,
		Now:             now,
		Location:        loc,
		GraceBySchedule: graceBySchedule,
		ItemFilter:      itemID,
	})

	names := make(map[string]string, len(result.PerMedication))
	for _, item := range result.PerMedication {
		if m, err := db.GetMedicationByID(env.DB, item.ItemID, true); err == nil {
			names[item.ItemID] = m.NameRaw
		}
	}

	return &StatsOutput{Result: *result, ItemNames: names}, nil
}
