package sched

import (
	"time"

	"medtrack/internal/med"
)

// Urgency grades how pressing a refill is.
type Urgency string

const (
	UrgencyEmpty    Urgency = "empty"
	UrgencyCritical Urgency = "critical"
	UrgencyLow      Urgency = "low"
	UrgencyOK       Urgency = "ok"
)

// ForecastResult projects when an inventory runs out under a schedule's
// consumption cadence.
type ForecastResult struct {
	// DepletionDate is the projected run-out day, nil when the rate or the
	// stock makes the projection meaningless.
	DepletionDate *time.Time

	// DaysSupply is the whole days of stock remaining at the daily rate.
	DaysSupply int

	// DailyConsumption is the computed units consumed per day.
	DailyConsumption float64

	// Urgency grades the current stock level against the low threshold.
	Urgency Urgency

	// Approximate is set when the rate is a heuristic (PRN schedules),
	// so "days remaining" surfaces can flag the estimate.
	Approximate bool
}

// Forecast projects the depletion date for an inventory consumed by the
// given schedule. doseAmount is the medication's per-dose quantity.
func Forecast(inv med.InventoryRecord, s *ScheduleDefinition, doseAmount float64, today time.Time) ForecastResult {
	result := ForecastResult{Urgency: StockUrgency(inv)}
	if s == nil || s.Scheme == nil {
		return result
	}

	rate, approximate := DailyConsumption(s.Scheme, doseAmount)
	result.DailyConsumption = rate
	result.Approximate = approximate

	if rate <= 0 || inv.RemainingUnits <= 0 {
		return result
	}

	result.DaysSupply = int(inv.RemainingUnits / rate)
	depletion := Midnight(today, today.Location()).AddDate(0, 0, result.DaysSupply)
	result.DepletionDate = &depletion
	return result
}

// DailyConsumption computes the scheme's expected units per day. The second
// return is true when the value is an estimate rather than a fixed cadence.
func DailyConsumption(scheme Scheme, doseAmount float64) (float64, bool) {
	if doseAmount <= 0 {
		return 0, false
	}

	switch s := scheme.(type) {
	case DailyScheme:
		n := s.TimesPerDay
		if n <= 0 {
			n = len(s.Times)
		}
		return float64(n) * doseAmount, false
	case WeeklyScheme:
		return float64(len(s.Weekdays)) * float64(len(s.Times)) / 7 * doseAmount, false
	case IntervalDaysScheme:
		if s.IntervalDays <= 0 {
			return 0, false
		}
		return float64(len(s.Times)) / float64(s.IntervalDays) * doseAmount, false
	case IntervalHoursScheme:
		if s.IntervalHours <= 0 {
			return 0, false
		}
		return 24 / float64(s.IntervalHours) * doseAmount, false
	case CourseScheme:
		return float64(len(s.Times)) * doseAmount, false
	case PRNScheme:
		// PRN usage is not deterministic; estimate at half the daily cap.
		return 0.5 * float64(s.MaxPerDay) * doseAmount, true
	}
	return 0, false
}

// StockUrgency grades remaining stock: empty when literally zero, critical
// at or below half the low threshold, low at or below the threshold.
func StockUrgency(inv med.InventoryRecord) Urgency {
	switch {
	case inv.RemainingUnits <= 0:
		return UrgencyEmpty
	case inv.LowThreshold > 0 && inv.RemainingUnits <= inv.LowThreshold/2:
		return UrgencyCritical
	case inv.LowThreshold > 0 && inv.RemainingUnits <= inv.LowThreshold:
		return UrgencyLow
	}
	return UrgencyOK
}
