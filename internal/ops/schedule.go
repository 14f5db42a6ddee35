package ops

import (
	"encoding/json"
	"fmt"
	"time"

	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/med"
	"medtrack/internal/sched"
)

// AnchorView is the JSON shape of a schedule's anchor override.
type AnchorView struct {
	Type          string `json:"type"`
	OffsetMinutes int    `json:"offset_minutes"`
}

// ScheduleView is the JSON shape of a schedule across all schedule outputs.
type ScheduleView struct {
	ID           string          `json:"id"`
	ItemID       string          `json:"item_id"`
	Kind         string          `json:"kind"`
	Scheme       json.RawMessage `json:"scheme"`
	Anchor       *AnchorView     `json:"anchor,omitempty"`
	StartDate    string          `json:"start_date"`
	EndDate      *string         `json:"end_date,omitempty"`
	GraceMinutes int             `json:"grace_minutes"`
	TimePolicy   string          `json:"time_policy"`
	Paused       bool            `json:"paused"`
}

func scheduleView(s *sched.ScheduleDefinition) (ScheduleView, error) {
	kind, schemeJSON, err := sched.MarshalScheme(s.Scheme)
	if err != nil {
		return ScheduleView{}, errors.NewInternal(err)
	}
	view := ScheduleView{
		ID:           s.ID,
		ItemID:       s.ItemID,
		Kind:         string(kind),
		Scheme:       json.RawMessage(schemeJSON),
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		GraceMinutes: s.Grace(),
		TimePolicy:   string(s.TimePolicy),
		Paused:       s.Paused,
	}
	if s.Anchor != nil {
		view.Anchor = &AnchorView{
			Type:          string(s.Anchor.Type),
			OffsetMinutes: s.Anchor.OffsetMinutes,
		}
	}
	return view, nil
}

// validateTimes checks a scheme's HH:mm dose labels.
func validateTimes(times []string) error {
	if len(times) == 0 {
		return errors.NewInvalidRequest("at least one dose time is required")
	}
	seen := make(map[string]bool, len(times))
	for _, label := range times {
		if _, _, err := med.ParseClock(label); err != nil {
			return errors.NewInvalidRequest(fmt.Sprintf("invalid time %q: must be HH:mm", label))
		}
		if seen[label] {
			return errors.NewInvalidRequest(fmt.Sprintf("duplicate dose time %q", label))
		}
		seen[label] = true
	}
	return nil
}

// validateScheme rejects malformed scheme variants before they reach
// storage. Expansion fails soft on bad stored data; this is the hard gate
// for new input.
func validateScheme(scheme sched.Scheme) error {
	switch s := scheme.(type) {
	case sched.DailyScheme:
		if s.TimesPerDay > 0 && s.TimesPerDay != len(s.Times) {
			return errors.NewInvalidRequest(
				fmt.Sprintf("times_per_day is %d but %d times were given", s.TimesPerDay, len(s.Times)))
		}
		return validateTimes(s.Times)
	case sched.WeeklyScheme:
		if len(s.Weekdays) == 0 {
			return errors.NewInvalidRequest("weekly schedule needs at least one weekday")
		}
		for _, d := range s.Weekdays {
			if d < time.Sunday || d > time.Saturday {
				return errors.NewInvalidRequest(fmt.Sprintf("invalid weekday %d: must be 0-6", d))
			}
		}
		return validateTimes(s.Times)
	case sched.IntervalDaysScheme:
		if s.IntervalDays <= 0 {
			return errors.NewInvalidRequest("interval_days must be positive")
		}
		return validateTimes(s.Times)
	case sched.IntervalHoursScheme:
		if s.IntervalHours <= 0 {
			return errors.NewInvalidRequest("interval_hours must be positive")
		}
		if s.FirstDose != "" {
			if _, _, err := med.ParseClock(s.FirstDose); err != nil {
				return errors.NewInvalidRequest(fmt.Sprintf("invalid first_dose %q: must be HH:mm", s.FirstDose))
			}
		}
		return nil
	case sched.CourseScheme:
		if s.TotalDays <= 0 {
			return errors.NewInvalidRequest("total_days must be positive")
		}
		return validateTimes(s.Times)
	case sched.PRNScheme:
		if s.MaxPerDay < 0 {
			return errors.NewInvalidRequest("max_per_day must not be negative")
		}
		if s.MinIntervalHours < 0 {
			return errors.NewInvalidRequest("min_interval_hours must not be negative")
		}
		return nil
	}
	return errors.NewInvalidRequest("unknown schedule scheme")
}

// ScheduleSetInput contains parameters for the ScheduleSet operation.
// An empty ScheduleID creates a schedule; a non-empty one replaces the
// definition in place.
type ScheduleSetInput struct {
	ScheduleID   string
	ItemID       string
	ItemName     string
	Scheme       sched.Scheme
	Anchor       *sched.Anchor
	StartDate    string // default: today
	EndDate      *string
	GraceMinutes int    // default: config default
	TimePolicy   string // "local" (default) or "utc"
}

// ScheduleSetOutput contains the result of the ScheduleSet operation.
type ScheduleSetOutput struct {
	Schedule ScheduleView `json:"schedule"`
	Created  bool         `json:"created"`
}

// ScheduleSet creates or replaces a schedule for a medication.
func ScheduleSet(env *Env, input ScheduleSetInput) (*ScheduleSetOutput, error) {
	if input.Scheme == nil {
		return nil, errors.NewInvalidRequest("schedule scheme is required")
	}
	if err := validateScheme(input.Scheme); err != nil {
		return nil, err
	}
	if input.Anchor != nil {
		if !med.ValidAnchorType(input.Anchor.Type) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown anchor %q", input.Anchor.Type))
		}
		if input.Scheme.Kind() == sched.SchemePRN {
			return nil, errors.NewInvalidRequest("as-needed schedules cannot be anchored")
		}
	}
	if input.GraceMinutes < 0 {
		return nil, errors.NewInvalidRequest("grace_minutes must not be negative")
	}

	policy := sched.TimePolicy(input.TimePolicy)
	if policy == "" {
		policy = sched.PolicyLocalTime
	}
	if policy != sched.PolicyLocalTime && policy != sched.PolicyAbsoluteUTC {
		return nil, errors.NewInvalidRequest(`time_policy must be one of: local, utc`)
	}

	now := env.now()
	startDate := input.StartDate
	if startDate == "" {
		startDate = now.In(env.local()).Format(sched.DateLayout)
	}
	start, err := sched.ParseDate(startDate, env.local())
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid start_date %q: must be YYYY-MM-DD", startDate))
	}
	endDate := cleanOptionalString(input.EndDate)
	if endDate != nil {
		end, err := sched.ParseDate(*endDate, env.local())
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid end_date %q: must be YYYY-MM-DD", *endDate))
		}
		if end.Before(start) {
			return nil, errors.NewInvalidRequest("end_date must not be before start_date")
		}
	}

	grace := input.GraceMinutes
	if grace == 0 {
		grace = env.grace()
	}

	if input.ScheduleID != "" {
		existing, err := db.GetScheduleByID(env.DB, input.ScheduleID, false)
		if err != nil {
			return nil, err
		}
		existing.Scheme = input.Scheme
		existing.Anchor = input.Anchor
		existing.StartDate = startDate
		existing.EndDate = endDate
		existing.GraceWindowMinutes = grace
		existing.TimePolicy = policy
		existing.UpdatedAt = now.Unix()
		if err := db.UpdateSchedule(env.DB, existing); err != nil {
			return nil, err
		}
		view, err := scheduleView(existing)
		if err != nil {
			return nil, err
		}
		return &ScheduleSetOutput{Schedule: view}, nil
	}

	m, err := resolveMedication(env, input.ItemID, input.ItemName)
	if err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	s := &sched.ScheduleDefinition{
		ID:                 id,
		ItemID:             m.ID,
		Scheme:             input.Scheme,
		Anchor:             input.Anchor,
		StartDate:          startDate,
		EndDate:            endDate,
		GraceWindowMinutes: grace,
		TimePolicy:         policy,
		CreatedAt:          now.Unix(),
		UpdatedAt:          now.Unix(),
	}
	if err := db.InsertSchedule(env.DB, s); err != nil {
		return nil, err
	}

	view, err := scheduleView(s)
	if err != nil {
		return nil, err
	}
	return &ScheduleSetOutput{Schedule: view, Created: true}, nil
}

// ScheduleListInput contains parameters for the ScheduleList operation.
type ScheduleListInput struct {
	ItemID   string // optional filter
	ItemName string // optional filter
}

// ScheduleListOutput contains the result of the ScheduleList operation.
type ScheduleListOutput struct {
	Schedules []ScheduleView `json:"schedules"`
	Total     int            `json:"total"`
}

// ScheduleList returns schedules, optionally for one medication.
func ScheduleList(env *Env, input ScheduleListInput) (*ScheduleListOutput, error) {
	itemID := ""
	if input.ItemID != "" || input.ItemName != "" {
		m, err := resolveMedication(env, input.ItemID, input.ItemName)
		if err != nil {
			return nil, err
		}
		itemID = m.ID
	}

	schedules, err := db.ListSchedules(env.DB, itemID)
	if err != nil {
		return nil, err
	}

	views := make([]ScheduleView, 0, len(schedules))
	for i := range schedules {
		view, err := scheduleView(&schedules[i])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return &ScheduleListOutput{Schedules: views, Total: len(views)}, nil
}

// SchedulePauseInput contains parameters for the SchedulePause and
// ScheduleResume operations.
type SchedulePauseInput struct {
	ScheduleID string
}

// SchedulePauseOutput contains the result of pausing or resuming.
type SchedulePauseOutput struct {
	ID     string `json:"id"`
	Paused bool   `json:"paused"`
}

// SchedulePause suspends instance generation without losing the definition.
func SchedulePause(env *Env, input SchedulePauseInput) (*SchedulePauseOutput, error) {
	return setPaused(env, input.ScheduleID, true)
}

// ScheduleResume reactivates a paused schedule.
func ScheduleResume(env *Env, input SchedulePauseInput) (*SchedulePauseOutput, error) {
	return setPaused(env, input.ScheduleID, false)
}

func setPaused(env *Env, scheduleID string, paused bool) (*SchedulePauseOutput, error) {
	if scheduleID == "" {
		return nil, errors.NewInvalidRequest("schedule_id is required")
	}
	if err := db.SetSchedulePaused(env.DB, scheduleID, paused, env.now().Unix()); err != nil {
		return nil, err
	}
	return &SchedulePauseOutput{ID: scheduleID, Paused: paused}, nil
}

// ScheduleDeleteInput contains parameters for the ScheduleDelete operation.
type ScheduleDeleteInput struct {
	ScheduleID string
}

// ScheduleDeleteOutput contains the result of the ScheduleDelete operation.
type ScheduleDeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// ScheduleDelete soft-deletes a schedule. Logged history stays intact.
func ScheduleDelete(env *Env, input ScheduleDeleteInput) (*ScheduleDeleteOutput, error) {
	if input.ScheduleID == "" {
		return nil, errors.NewInvalidRequest("schedule_id is required")
	}
	if err := db.SoftDeleteSchedule(env.DB, input.ScheduleID, env.now().Unix()); err != nil {
		return nil, err
	}
	return &ScheduleDeleteOutput{Deleted: true, ID: input.ScheduleID}, nil
}
