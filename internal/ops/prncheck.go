package ops

import (
	"fmt"
	"time"

	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/sched"
)

// PRNCheckInput contains parameters for the PRNCheck operation.
type PRNCheckInput struct {
	ItemID   string
	ItemName string
}

// PRNCheckOutput contains the result of the PRNCheck operation.
type PRNCheckOutput struct {
	ItemID           string  `json:"item_id"`
	ItemName         string  `json:"item_name"`
	CanTake          bool    `json:"can_take"`
	Reason           string  `json:"reason,omitempty"`
	NextAvailable    *string `json:"next_available,omitempty"`
	DosesToday       int     `json:"doses_today"`
	MaxPerDay        int     `json:"max_per_day"`
	MinIntervalHours float64 `json:"min_interval_hours"`
}

// PRNCheck reports whether another as-needed dose may be taken now, without
// recording anything. The answer mirrors exactly what Take would decide.
func PRNCheck(env *Env, input PRNCheckInput) (*PRNCheckOutput, error) {
	m, err := resolveMedication(env, input.ItemID, input.ItemName)
	if err != nil {
		return nil, err
	}

	schedules, err := db.ListSchedules(env.DB, m.ID)
	if err != nil {
		return nil, err
	}
	var prn *sched.PRNScheme
	for i := range schedules {
		if s, ok := schedules[i].Scheme.(sched.PRNScheme); ok && !schedules[i].Paused {
			prn = &s
			break
		}
	}
	if prn == nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s has no as-needed schedule", m.NameRaw))
	}

	now := env.now()
	dayStart := sched.Midnight(now, env.local())
	dosesToday, err := db.CountTakenSince(env.DB, m.ID, dayStart.Unix())
	if err != nil {
		return nil, err
	}
	lastAt, err := db.LastTakenAt(env.DB, m.ID)
	if err != nil {
		return nil, err
	}
	var last *time.Time
	if lastAt != nil {
		t := time.Unix(*lastAt, 0)
		last = &t
	}

	result := sched.ValidatePRN(*prn, dosesToday, last, now)
	out := &PRNCheckOutput{
		ItemID:           m.ID,
		ItemName:         m.NameRaw,
		CanTake:          result.CanTake,
		Reason:           result.Reason,
		DosesToday:       result.DosesToday,
		MaxPerDay:        prn.MaxPerDay,
		MinIntervalHours: prn.MinIntervalHours,
	}
	if result.NextAvailable != nil {
		next := result.NextAvailable.In(env.local()).Format(time.RFC3339)
		out.NextAvailable = &next
	}
	return out, nil
}
