package sched

import (
	"testing"
	"time"

	"medtrack/internal/med"
)

func dailySchedule() *ScheduleDefinition {
	return &ScheduleDefinition{
		ID:        "sched-1",
		ItemID:    "item-1",
		Scheme:    DailyScheme{TimesPerDay: 2, Times: []string{"20:00", "08:00"}},
		StartDate: "2025-03-01",
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s, time.UTC)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestExpand_Daily(t *testing.T) {
	s := dailySchedule()
	date := mustDate(t, "2025-03-10")

	got := Expand(s, date, nil, time.UTC, 1)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Ordered by planned time even though Times were declared out of order.
	if got[0].OriginalTime != "08:00" || got[1].OriginalTime != "20:00" {
		t.Errorf("labels = %q, %q, want 08:00, 20:00", got[0].OriginalTime, got[1].OriginalTime)
	}
	if !got[0].PlannedTime.Equal(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("PlannedTime = %v, want 2025-03-10 08:00 UTC", got[0].PlannedTime)
	}
	if got[0].ItemID != "item-1" || got[0].ScheduleID != "sched-1" {
		t.Errorf("instance refs = %q/%q", got[0].ItemID, got[0].ScheduleID)
	}
}

func TestExpand_DateBounds(t *testing.T) {
	end := "2025-03-15"
	s := dailySchedule()
	s.EndDate = &end

	tests := []struct {
		name string
		date string
		want int
	}{
		{"before start", "2025-02-28", 0},
		{"on start", "2025-03-01", 2},
		{"inside window", "2025-03-10", 2},
		{"on end", "2025-03-15", 2},
		{"after end", "2025-03-16", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(s, mustDate(t, tt.date), nil, time.UTC, 1)
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestExpand_PausedOrDeleted(t *testing.T) {
	date := mustDate(t, "2025-03-10")

	s := dailySchedule()
	s.Paused = true
	if got := Expand(s, date, nil, time.UTC, 1); len(got) != 0 {
		t.Errorf("paused schedule produced %d instances, want 0", len(got))
	}

	s = dailySchedule()
	deleted := int64(1)
	s.DeletedAt = &deleted
	if got := Expand(s, date, nil, time.UTC, 1); len(got) != 0 {
		t.Errorf("deleted schedule produced %d instances, want 0", len(got))
	}
}

func TestExpand_Weekly(t *testing.T) {
	s := &ScheduleDefinition{
		ID:        "sched-w",
		ItemID:    "item-1",
		Scheme:    WeeklyScheme{Weekdays: []time.Weekday{time.Monday, time.Thursday}, Times: []string{"09:00"}},
		StartDate: "2025-03-01",
	}

	// 2025-03-10 is a Monday, 2025-03-11 a Tuesday.
	if got := Expand(s, mustDate(t, "2025-03-10"), nil, time.UTC, 1); len(got) != 1 {
		t.Errorf("Monday: len = %d, want 1", len(got))
	}
	if got := Expand(s, mustDate(t, "2025-03-11"), nil, time.UTC, 1); len(got) != 0 {
		t.Errorf("Tuesday: len = %d, want 0", len(got))
	}
	if got := Expand(s, mustDate(t, "2025-03-13"), nil, time.UTC, 1); len(got) != 1 {
		t.Errorf("Thursday: len = %d, want 1", len(got))
	}
}

func TestExpand_IntervalDays(t *testing.T) {
	s := &ScheduleDefinition{
		ID:        "sched-i",
		ItemID:    "item-1",
		Scheme:    IntervalDaysScheme{IntervalDays: 3, Times: []string{"10:00"}},
		StartDate: "2025-03-01",
	}

	tests := []struct {
		date string
		want int
	}{
		{"2025-03-01", 1}, // day 0
		{"2025-03-02", 0},
		{"2025-03-03", 0},
		{"2025-03-04", 1}, // day 3
		{"2025-03-07", 1}, // day 6
		{"2025-03-08", 0},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			got := Expand(s, mustDate(t, tt.date), nil, time.UTC, 1)
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestExpand_IntervalHours(t *testing.T) {
	s := &ScheduleDefinition{
		ID:        "sched-h",
		ItemID:    "item-1",
		Scheme:    IntervalHoursScheme{IntervalHours: 6, FirstDose: "06:00"},
		StartDate: "2025-03-01",
	}

	// 6h from 06:00 lands at 06, 12, 18, 00 — four slots on a later day.
	got := Expand(s, mustDate(t, "2025-03-10"), nil, time.UTC, 1)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	wantLabels := []string{"00:00", "06:00", "12:00", "18:00"}
	for i, want := range wantLabels {
		if got[i].OriginalTime != want {
			t.Errorf("slot %d = %q, want %q", i, got[i].OriginalTime, want)
		}
	}
}

func TestExpand_IntervalHours_DriftAcrossDays(t *testing.T) {
	// 7h does not divide 24: slots drift day to day.
	s := &ScheduleDefinition{
		ID:        "sched-h7",
		ItemID:    "item-1",
		Scheme:    IntervalHoursScheme{IntervalHours: 7, FirstDose: "08:00"},
		StartDate: "2025-03-01",
	}

	// Day 0: 08:00, 15:00, 22:00. Day 1 continues at 05:00.
	day0 := Expand(s, mustDate(t, "2025-03-01"), nil, time.UTC, 1)
	if len(day0) != 3 || day0[0].OriginalTime != "08:00" || day0[2].OriginalTime != "22:00" {
		t.Fatalf("day 0 slots = %v", labels(day0))
	}
	day1 := Expand(s, mustDate(t, "2025-03-02"), nil, time.UTC, 1)
	if len(day1) == 0 || day1[0].OriginalTime != "05:00" {
		t.Fatalf("day 1 slots = %v, want first 05:00", labels(day1))
	}
}

func TestExpand_IntervalHours_OnStartDay(t *testing.T) {
	s := &ScheduleDefinition{
		ID:        "sched-h12",
		ItemID:    "item-1",
		Scheme:    IntervalHoursScheme{IntervalHours: 12, FirstDose: "09:00"},
		StartDate: "2025-03-01",
	}

	// The start day has no slot before the first dose.
	got := Expand(s, mustDate(t, "2025-03-01"), nil, time.UTC, 1)
	if len(got) != 2 || got[0].OriginalTime != "09:00" || got[1].OriginalTime != "21:00" {
		t.Fatalf("start day slots = %v, want [09:00 21:00]", labels(got))
	}
}

func TestExpand_Course(t *testing.T) {
	s := &ScheduleDefinition{
		ID:        "sched-c",
		ItemID:    "item-1",
		Scheme:    CourseScheme{TotalDays: 7, Times: []string{"08:00"}},
		StartDate: "2025-03-01",
	}

	if got := Expand(s, mustDate(t, "2025-03-01"), nil, time.UTC, 1); len(got) != 1 {
		t.Errorf("day 1: len = %d, want 1", len(got))
	}
	if got := Expand(s, mustDate(t, "2025-03-07"), nil, time.UTC, 1); len(got) != 1 {
		t.Errorf("day 7: len = %d, want 1", len(got))
	}
	if got := Expand(s, mustDate(t, "2025-03-08"), nil, time.UTC, 1); len(got) != 0 {
		t.Errorf("day 8: len = %d, want 0 after course end", len(got))
	}
}

func TestExpand_PRNProducesNoInstances(t *testing.T) {
	s := &ScheduleDefinition{
		ID:        "sched-p",
		ItemID:    "item-1",
		Scheme:    PRNScheme{MaxPerDay: 3, MinIntervalHours: 4},
		StartDate: "2025-03-01",
	}

	if got := Expand(s, mustDate(t, "2025-03-10"), nil, time.UTC, 1); len(got) != 0 {
		t.Errorf("PRN schedule produced %d instances, want 0", len(got))
	}
}

func TestExpand_AnchorOverride(t *testing.T) {
	s := dailySchedule()
	s.Anchor = &Anchor{Type: med.AnchorBreakfast, OffsetMinutes: 15}
	settings := AnchorMap{med.AnchorBreakfast: "08:30"}

	got := Expand(s, mustDate(t, "2025-03-10"), settings, time.UTC, 1)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 (anchor replaces nominal times)", len(got))
	}
	if got[0].OriginalTime != "08:45" {
		t.Errorf("OriginalTime = %q, want 08:45", got[0].OriginalTime)
	}
}

func TestExpand_AnchorUnconfiguredFailsSoft(t *testing.T) {
	s := dailySchedule()
	s.Anchor = &Anchor{Type: med.AnchorWake}

	// No wake base time configured: zero instances, no error.
	if got := Expand(s, mustDate(t, "2025-03-10"), AnchorMap{}, time.UTC, 1); len(got) != 0 {
		t.Errorf("len = %d, want 0 for unresolvable anchor", len(got))
	}
}

func TestExpand_MalformedTimeSkipped(t *testing.T) {
	s := dailySchedule()
	s.Scheme = DailyScheme{Times: []string{"08:00", "not-a-time", "20:00"}}

	got := Expand(s, mustDate(t, "2025-03-10"), nil, time.UTC, 1)
	if len(got) != 2 {
		t.Errorf("len = %d, want 2 (malformed label skipped)", len(got))
	}
}

func TestExpand_MalformedStartDate(t *testing.T) {
	s := dailySchedule()
	s.StartDate = "soon"

	if got := Expand(s, mustDate(t, "2025-03-10"), nil, time.UTC, 1); len(got) != 0 {
		t.Errorf("len = %d, want 0 for unparseable start date", len(got))
	}
}

func TestExpand_AbsoluteUTCPolicy(t *testing.T) {
	s := dailySchedule()
	s.TimePolicy = PolicyAbsoluteUTC

	// Even with a non-UTC local location, times pin to UTC instants.
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	got := Expand(s, mustDate(t, "2025-03-10"), nil, chicago, 1)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].PlannedTime.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got[0].PlannedTime.Location())
	}
}

func TestExpand_LocalTimeAbsorbsDST(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	s := dailySchedule()
	// US DST transition: 2025-03-09. Wall-clock 08:00 holds on both sides.
	before := Expand(s, time.Date(2025, 3, 8, 12, 0, 0, 0, chicago), nil, chicago, 1)
	after := Expand(s, time.Date(2025, 3, 10, 12, 0, 0, 0, chicago), nil, chicago, 1)
	if len(before) != 2 || len(after) != 2 {
		t.Fatalf("len = %d/%d, want 2/2", len(before), len(after))
	}
	if before[0].PlannedTime.Hour() != 8 || after[0].PlannedTime.Hour() != 8 {
		t.Errorf("wall-clock hours = %d/%d, want 8/8 across DST",
			before[0].PlannedTime.Hour(), after[0].PlannedTime.Hour())
	}
}

func labels(instances []DoseInstance) []string {
	out := make([]string, len(instances))
	for i, inst := range instances {
		out[i] = inst.OriginalTime
	}
	return out
}
