package sched

import "time"

// PRN rejection reasons.
const (
	PRNReasonDailyLimit = "daily_limit_reached"
	PRNReasonTooSoon    = "min_interval_not_elapsed"
)

// PRNResult is the outcome of validating an as-needed dose.
type PRNResult struct {
	CanTake bool

	// Reason explains a rejection; empty when CanTake is true.
	Reason string

	// NextAvailable is the earliest permitted dose time, set only for
	// interval rejections.
	NextAvailable *time.Time

	// DosesToday echoes the count already taken today.
	DosesToday int
}

// ValidatePRN decides whether another as-needed dose may be taken now.
// dosesToday counts doses already taken on the current day; lastDose is
// the most recent taken time, or nil if none. Zero-valued limits mean
// "no constraint".
//
// The daily cap is checked before spacing: once the cap is hit, the answer
// is no regardless of how long ago the last dose was.
func ValidatePRN(scheme PRNScheme, dosesToday int, lastDose *time.Time, now time.Time) PRNResult {
	result := PRNResult{DosesToday: dosesToday}

	if scheme.MaxPerDay > 0 && dosesToday >= scheme.MaxPerDay {
		result.Reason = PRNReasonDailyLimit
		return result
	}

	if lastDose != nil && scheme.MinIntervalHours > 0 {
		minGap := time.Duration(scheme.MinIntervalHours * float64(time.Hour))
		if now.Sub(*lastDose) < minGap {
			next := lastDose.Add(minGap)
			result.Reason = PRNReasonTooSoon
			result.NextAvailable = &next
			return result
		}
	}

	result.CanTake = true
	return result
}
