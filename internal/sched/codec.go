package sched

import (
	"encoding/json"
	"fmt"
	"time"
)

// Scheme variants are persisted as a (kind, JSON payload) pair so the
// discriminated union survives a round trip through storage without a
// shared optional-field bag.

type dailyJSON struct {
	TimesPerDay int      `json:"times_per_day"`
	Times       []string `json:"times,omitempty"`
}

type weeklyJSON struct {
	Weekdays []int    `json:"weekdays"`
	Times    []string `json:"times,omitempty"`
}

type intervalDaysJSON struct {
	IntervalDays int      `json:"interval_days"`
	Times        []string `json:"times,omitempty"`
}

type intervalHoursJSON struct {
	IntervalHours int    `json:"interval_hours"`
	FirstDose     string `json:"first_dose,omitempty"`
}

type courseJSON struct {
	TotalDays int      `json:"total_days"`
	Times     []string `json:"times,omitempty"`
}

type prnJSON struct {
	MaxPerDay        int     `json:"max_per_day,omitempty"`
	MinIntervalHours float64 `json:"min_interval_hours,omitempty"`
}

// MarshalScheme encodes a scheme as its kind plus a JSON payload.
func MarshalScheme(s Scheme) (SchemeKind, []byte, error) {
	if s == nil {
		return "", nil, fmt.Errorf("nil scheme")
	}

	var payload any
	switch v := s.(type) {
	case DailyScheme:
		payload = dailyJSON{TimesPerDay: v.TimesPerDay, Times: v.Times}
	case WeeklyScheme:
		days := make([]int, len(v.Weekdays))
		for i, d := range v.Weekdays {
			days[i] = int(d)
		}
		payload = weeklyJSON{Weekdays: days, Times: v.Times}
	case IntervalDaysScheme:
		payload = intervalDaysJSON{IntervalDays: v.IntervalDays, Times: v.Times}
	case IntervalHoursScheme:
		payload = intervalHoursJSON{IntervalHours: v.IntervalHours, FirstDose: v.FirstDose}
	case CourseScheme:
		payload = courseJSON{TotalDays: v.TotalDays, Times: v.Times}
	case PRNScheme:
		payload = prnJSON{MaxPerDay: v.MaxPerDay, MinIntervalHours: v.MinIntervalHours}
	default:
		return "", nil, fmt.Errorf("unknown scheme type %T", s)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	return s.Kind(), data, nil
}

// UnmarshalScheme decodes a (kind, payload) pair back into a scheme.
func UnmarshalScheme(kind SchemeKind, data []byte) (Scheme, error) {
	switch kind {
	case SchemeDaily:
		var v dailyJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return DailyScheme{TimesPerDay: v.TimesPerDay, Times: v.Times}, nil
	case SchemeWeekly:
		var v weeklyJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		days := make([]time.Weekday, len(v.Weekdays))
		for i, d := range v.Weekdays {
			days[i] = time.Weekday(d)
		}
		return WeeklyScheme{Weekdays: days, Times: v.Times}, nil
	case SchemeIntervalDays:
		var v intervalDaysJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return IntervalDaysScheme{IntervalDays: v.IntervalDays, Times: v.Times}, nil
	case SchemeIntervalHours:
		var v intervalHoursJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return IntervalHoursScheme{IntervalHours: v.IntervalHours, FirstDose: v.FirstDose}, nil
	case SchemeCourse:
		var v courseJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return CourseScheme{TotalDays: v.TotalDays, Times: v.Times}, nil
	case SchemePRN:
		var v prnJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return PRNScheme{MaxPerDay: v.MaxPerDay, MinIntervalHours: v.MinIntervalHours}, nil
	}
	return nil, fmt.Errorf("unknown scheme kind %q", kind)
}
