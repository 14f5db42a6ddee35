package sched

import (
	"math"
	"testing"
	"time"

	"medtrack/internal/med"
)

func TestDailyConsumption(t *testing.T) {
	tests := []struct {
		name        string
		scheme      Scheme
		doseAmount  float64
		want        float64
		wantApprox  bool
	}{
		{"daily twice", DailyScheme{TimesPerDay: 2}, 1, 2, false},
		{"daily from times", DailyScheme{Times: []string{"08:00", "14:00", "20:00"}}, 1, 3, false},
		{"daily half tablet", DailyScheme{TimesPerDay: 2}, 0.5, 1, false},
		{"weekly 3 days once", WeeklyScheme{Weekdays: []time.Weekday{time.Monday, time.Wednesday, time.Friday}, Times: []string{"09:00"}}, 1, 3.0 / 7, false},
		{"every 3 days", IntervalDaysScheme{IntervalDays: 3, Times: []string{"10:00"}}, 1, 1.0 / 3, false},
		{"every 8 hours", IntervalHoursScheme{IntervalHours: 8}, 1, 3, false},
		{"course twice daily", CourseScheme{TotalDays: 10, Times: []string{"08:00", "20:00"}}, 1, 2, false},
		{"prn estimated at half cap", PRNScheme{MaxPerDay: 4}, 1, 2, true},
		{"zero interval", IntervalDaysScheme{IntervalDays: 0, Times: []string{"10:00"}}, 1, 0, false},
		{"zero dose amount", DailyScheme{TimesPerDay: 2}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, approx := DailyConsumption(tt.scheme, tt.doseAmount)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("rate = %v, want %v", got, tt.want)
			}
			if approx != tt.wantApprox {
				t.Errorf("approximate = %v, want %v", approx, tt.wantApprox)
			}
		})
	}
}

func TestForecast_DepletionDate(t *testing.T) {
	s := &ScheduleDefinition{
		ID:        "sched-1",
		ItemID:    "item-1",
		Scheme:    DailyScheme{TimesPerDay: 2},
		StartDate: "2025-03-01",
	}
	inv := med.InventoryRecord{ItemID: "item-1", RemainingUnits: 21, LowThreshold: 10}
	today := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

	got := Forecast(inv, s, 1, today)
	if got.DaysSupply != 10 {
		t.Errorf("DaysSupply = %d, want 10", got.DaysSupply)
	}
	if got.DepletionDate == nil {
		t.Fatal("DepletionDate is nil, want a date")
	}
	want := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	if !got.DepletionDate.Equal(want) {
		t.Errorf("DepletionDate = %v, want %v", got.DepletionDate, want)
	}
	if got.Approximate {
		t.Error("Approximate = true for a fixed cadence, want false")
	}
}

func TestForecast_NoProjection(t *testing.T) {
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	// Zero stock.
	s := &ScheduleDefinition{Scheme: DailyScheme{TimesPerDay: 1}, StartDate: "2025-03-01"}
	got := Forecast(med.InventoryRecord{RemainingUnits: 0}, s, 1, today)
	if got.DepletionDate != nil {
		t.Error("DepletionDate should be nil for empty stock")
	}
	if got.Urgency != UrgencyEmpty {
		t.Errorf("Urgency = %q, want %q", got.Urgency, UrgencyEmpty)
	}

	// Zero consumption rate.
	s = &ScheduleDefinition{Scheme: PRNScheme{MaxPerDay: 0}, StartDate: "2025-03-01"}
	got = Forecast(med.InventoryRecord{RemainingUnits: 30, LowThreshold: 10}, s, 1, today)
	if got.DepletionDate != nil {
		t.Error("DepletionDate should be nil for zero consumption rate")
	}

	// Nil scheme degrades quietly.
	got = Forecast(med.InventoryRecord{RemainingUnits: 30}, &ScheduleDefinition{}, 1, today)
	if got.DepletionDate != nil {
		t.Error("DepletionDate should be nil for nil scheme")
	}
}

func TestForecast_PRNApproximate(t *testing.T) {
	s := &ScheduleDefinition{Scheme: PRNScheme{MaxPerDay: 4}, StartDate: "2025-03-01"}
	inv := med.InventoryRecord{RemainingUnits: 20, LowThreshold: 6}
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	got := Forecast(inv, s, 1, today)
	if !got.Approximate {
		t.Error("Approximate = false for PRN forecast, want true")
	}
	// 20 units at 2/day estimate.
	if got.DaysSupply != 10 {
		t.Errorf("DaysSupply = %d, want 10", got.DaysSupply)
	}
}

func TestStockUrgency(t *testing.T) {
	tests := []struct {
		name      string
		remaining float64
		threshold float64
		want      Urgency
	}{
		{"empty", 0, 10, UrgencyEmpty},
		{"critical at half threshold", 5, 10, UrgencyCritical},
		{"critical below half", 3, 10, UrgencyCritical},
		{"low at threshold", 10, 10, UrgencyLow},
		{"low between", 8, 10, UrgencyLow},
		{"ok above threshold", 11, 10, UrgencyOK},
		{"no threshold configured", 2, 0, UrgencyOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := med.InventoryRecord{RemainingUnits: tt.remaining, LowThreshold: tt.threshold}
			if got := StockUrgency(inv); got != tt.want {
				t.Errorf("urgency = %q, want %q", got, tt.want)
			}
		})
	}
}
