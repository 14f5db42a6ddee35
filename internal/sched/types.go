package sched

import (
	"time"

	"medtrack/internal/med"
)

// TimePolicy controls how stored clock times map onto instants.
type TimePolicy string

const (
	// PolicyLocalTime reinterprets stored HH:mm against the current local
	// wall clock every time a date is expanded. DST shifts are absorbed
	// automatically: "08:00" stays 08:00 on the clock year round.
	PolicyLocalTime TimePolicy = "local"

	// PolicyAbsoluteUTC pins stored times as fixed UTC instants with no
	// wall-clock reinterpretation across DST transitions.
	PolicyAbsoluteUTC TimePolicy = "utc"
)

// SchemeKind discriminates the schedule scheme variants.
type SchemeKind string

const (
	SchemeDaily         SchemeKind = "daily"
	SchemeWeekly        SchemeKind = "weekly"
	SchemeIntervalDays  SchemeKind = "interval_days"
	SchemeIntervalHours SchemeKind = "interval_hours"
	SchemeCourse        SchemeKind = "course"
	SchemePRN           SchemeKind = "prn"
)

// Scheme is the closed set of schedule recurrence variants. Exactly one
// concrete scheme is attached to a schedule at a time.
type Scheme interface {
	Kind() SchemeKind
}

// DailyScheme doses every day at fixed clock times.
type DailyScheme struct {
	TimesPerDay int
	Times       []string // HH:mm labels, one per dose
}

func (DailyScheme) Kind() SchemeKind { return SchemeDaily }

// WeeklyScheme doses on selected weekdays at fixed clock times.
type WeeklyScheme struct {
	Weekdays []time.Weekday
	Times    []string
}

func (WeeklyScheme) Kind() SchemeKind { return SchemeWeekly }

// IntervalDaysScheme doses every N days, counted from the start date.
type IntervalDaysScheme struct {
	IntervalDays int
	Times        []string
}

func (IntervalDaysScheme) Kind() SchemeKind { return SchemeIntervalDays }

// IntervalHoursScheme doses every N hours, walking slots from the first
// dose time on the start date. Intervals that do not divide 24 drift across
// days, so slots are derived by walking, not by a per-day time list.
type IntervalHoursScheme struct {
	IntervalHours int
	FirstDose     string // HH:mm on the start date; "00:00" if empty
}

func (IntervalHoursScheme) Kind() SchemeKind { return SchemeIntervalHours }

// CourseScheme behaves like daily but ends after TotalDays from the start.
type CourseScheme struct {
	TotalDays int
	Times     []string
}

func (CourseScheme) Kind() SchemeKind { return SchemeCourse }

// PRNScheme is as-needed dosing: no fixed times, governed by a daily cap
// and a minimum spacing interval. Zero values mean "no constraint".
type PRNScheme struct {
	MaxPerDay        int
	MinIntervalHours float64
}

func (PRNScheme) Kind() SchemeKind { return SchemePRN }

// Anchor overrides a schedule's explicit clock times with a routine
// life-event reference plus an offset.
type Anchor struct {
	Type          med.AnchorType
	OffsetMinutes int
}

// ScheduleDefinition describes when doses of a medication are due.
type ScheduleDefinition struct {
	// ID is a ULID uniquely identifying this schedule
	ID string

	// ItemID references the medication
	ItemID string

	// Scheme is the active recurrence variant
	Scheme Scheme

	// Anchor replaces the scheme's explicit times when set
	Anchor *Anchor

	// StartDate is the first active day, as a YYYY-MM-DD civil date
	StartDate string

	// EndDate is the last active day (nullable)
	EndDate *string

	// GraceWindowMinutes is the on-time tolerance around each planned dose
	GraceWindowMinutes int

	// TimePolicy selects wall-clock or fixed-UTC interpretation
	TimePolicy TimePolicy

	// Paused suspends instance generation without losing the definition
	Paused bool

	// CreatedAt is the Unix timestamp when the schedule was created
	CreatedAt int64

	// UpdatedAt is the Unix timestamp when the schedule was last updated
	UpdatedAt int64

	// DeletedAt is the Unix timestamp for soft delete (nullable)
	DeletedAt *int64
}

// DefaultGraceMinutes is the grace window applied when a schedule does not
// set one.
const DefaultGraceMinutes = 60

// Grace returns the schedule's grace window, falling back to the default.
func (s *ScheduleDefinition) Grace() int {
	if s.GraceWindowMinutes > 0 {
		return s.GraceWindowMinutes
	}
	return DefaultGraceMinutes
}

// Location returns the location times should be computed in for this
// schedule's policy.
func (s *ScheduleDefinition) Location(local *time.Location) *time.Location {
	if s.TimePolicy == PolicyAbsoluteUTC {
		return time.UTC
	}
	if local == nil {
		return time.Local
	}
	return local
}

// DoseInstance is a single planned dose on a concrete date. Instances are
// derived on demand from (schedule, date) and are never persisted, so
// schedule edits can never leave stale cached doses behind.
type DoseInstance struct {
	ScheduleID string
	ItemID     string

	// PlannedTime is the absolute due timestamp for the date
	PlannedTime time.Time

	// OriginalTime is the nominal HH:mm label the instance came from
	OriginalTime string

	// DoseAmount is the quantity consumed by this dose
	DoseAmount float64
}

// SlotKey returns the derived identity (scheduleID, date, time-slot).
func (d DoseInstance) SlotKey() string {
	return d.ScheduleID + "|" + d.PlannedTime.Format("2006-01-02") + "|" + d.OriginalTime
}

// DateLayout is the civil-date storage format.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD civil date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// Midnight truncates t to the start of its civil day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// daysBetween counts civil days from a to b, ignoring clock time and DST.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au) / (24 * time.Hour))
}
