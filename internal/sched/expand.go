package sched

import (
	"sort"
	"time"

	"medtrack/internal/med"
)

// Expand produces the ordered planned doses of one schedule for one calendar
// date. The date's clock component is ignored; only its civil day in the
// schedule's effective location matters.
//
// A schedule that is paused, deleted, outside its [StartDate, EndDate]
// window, or misconfigured (unparseable dates, unresolvable anchor)
// contributes zero instances.
func Expand(s *ScheduleDefinition, date time.Time, settings AnchorSettings, local *time.Location, doseAmount float64) []DoseInstance {
	if s == nil || s.Scheme == nil || s.Paused || s.DeletedAt != nil {
		return nil
	}

	loc := s.Location(local)
	day := Midnight(date, loc)

	start, err := ParseDate(s.StartDate, loc)
	if err != nil {
		return nil
	}
	if day.Before(start) {
		return nil
	}
	if s.EndDate != nil {
		end, err := ParseDate(*s.EndDate, loc)
		if err != nil {
			return nil
		}
		if day.After(end) {
			return nil
		}
	}

	var labels []string
	switch scheme := s.Scheme.(type) {
	case DailyScheme:
		labels = scheme.Times
	case WeeklyScheme:
		if !weekdayIn(day.Weekday(), scheme.Weekdays) {
			return nil
		}
		labels = scheme.Times
	case IntervalDaysScheme:
		if scheme.IntervalDays <= 0 {
			return nil
		}
		if daysBetween(start, day)%scheme.IntervalDays != 0 {
			return nil
		}
		labels = scheme.Times
	case IntervalHoursScheme:
		return expandIntervalHours(s, scheme, start, day, loc, doseAmount)
	case CourseScheme:
		if scheme.TotalDays > 0 && daysBetween(start, day) >= scheme.TotalDays {
			return nil
		}
		labels = scheme.Times
	case PRNScheme:
		// As-needed doses have no planned times; timing is event-driven
		// and validated by ValidatePRN.
		return nil
	default:
		return nil
	}

	return instancesAt(s, labels, day, settings, loc, doseAmount)
}

// instancesAt builds instances for the given HH:mm labels on day, applying
// the anchor override when the schedule carries one.
func instancesAt(s *ScheduleDefinition, labels []string, day time.Time, settings AnchorSettings, loc *time.Location, doseAmount float64) []DoseInstance {
	if s.Anchor != nil {
		resolved, ok := ResolveAnchor(settings, *s.Anchor, day, loc)
		if !ok {
			return nil
		}
		// The anchor replaces every nominal time with a single resolved slot.
		return []DoseInstance{{
			ScheduleID:   s.ID,
			ItemID:       s.ItemID,
			PlannedTime:  resolved,
			OriginalTime: med.FormatClock(resolved.Hour(), resolved.Minute()),
			DoseAmount:   doseAmount,
		}}
	}

	instances := make([]DoseInstance, 0, len(labels))
	for _, label := range labels {
		hour, minute, err := med.ParseClock(label)
		if err != nil {
			continue
		}
		planned := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
		instances = append(instances, DoseInstance{
			ScheduleID:   s.ID,
			ItemID:       s.ItemID,
			PlannedTime:  planned,
			OriginalTime: med.FormatClock(hour, minute),
			DoseAmount:   doseAmount,
		})
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].PlannedTime.Before(instances[j].PlannedTime)
	})
	return instances
}

// expandIntervalHours walks hour slots from the schedule's first dose and
// emits every slot whose civil day matches the requested day.
func expandIntervalHours(s *ScheduleDefinition, scheme IntervalHoursScheme, start, day time.Time, loc *time.Location, doseAmount float64) []DoseInstance {
	if scheme.IntervalHours <= 0 {
		return nil
	}

	first := scheme.FirstDose
	if first == "" {
		first = "00:00"
	}
	hour, minute, err := med.ParseClock(first)
	if err != nil {
		return nil
	}

	origin := time.Date(start.Year(), start.Month(), start.Day(), hour, minute, 0, 0, loc)
	step := time.Duration(scheme.IntervalHours) * time.Hour
	nextDay := day.AddDate(0, 0, 1)

	// Jump close to the target day instead of walking slot by slot from the
	// origin, then step until the day is exhausted.
	slot := origin
	if gap := day.Sub(origin); gap > 0 {
		slot = origin.Add(gap / step * step)
	}
	for slot.Before(day) {
		slot = slot.Add(step)
	}

	var instances []DoseInstance
	for slot.Before(nextDay) {
		instances = append(instances, DoseInstance{
			ScheduleID:   s.ID,
			ItemID:       s.ItemID,
			PlannedTime:  slot,
			OriginalTime: med.FormatClock(slot.In(loc).Hour(), slot.In(loc).Minute()),
			DoseAmount:   doseAmount,
		})
		slot = slot.Add(step)
	}
	return instances
}

func weekdayIn(day time.Weekday, days []time.Weekday) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
