package sched

import "time"

// Status is the timing state of a dose instance.
type Status string

const (
	StatusPending Status = "pending"
	StatusMissed  Status = "missed"
	StatusOnTime  Status = "on_time"
	StatusLate    Status = "late"
)

// Classification is the result of judging a dose's timing.
type Classification struct {
	Status Status

	// DelayMinutes is the signed difference from the planned time: positive
	// when the action (or the current time, for unactioned doses) is past
	// the plan, negative when ahead of it.
	DelayMinutes int

	// WithinGrace reports whether the dose still counts as on time.
	WithinGrace bool
}

// Classify returns the timing status of a planned dose. actual is the logged
// action time, or nil when no action has been recorded yet; now is only
// consulted in the unactioned case.
//
// Grace is symmetric: an action earlier than the plan by more than the grace
// window classifies as late just like a delayed one. The function is pure
// and total and never fails.
func Classify(planned time.Time, actual *time.Time, graceMinutes int, now time.Time) Classification {
	if graceMinutes <= 0 {
		graceMinutes = DefaultGraceMinutes
	}

	if actual == nil {
		pastDue := int(now.Sub(planned) / time.Minute)
		if pastDue < 0 {
			return Classification{Status: StatusPending, DelayMinutes: pastDue, WithinGrace: true}
		}
		if pastDue <= graceMinutes {
			return Classification{Status: StatusPending, DelayMinutes: pastDue, WithinGrace: true}
		}
		return Classification{Status: StatusMissed, DelayMinutes: pastDue, WithinGrace: false}
	}

	delay := int(actual.Sub(planned) / time.Minute)
	within := delay >= -graceMinutes && delay <= graceMinutes
	status := StatusOnTime
	if !within {
		status = StatusLate
	}
	return Classification{Status: status, DelayMinutes: delay, WithinGrace: within}
}
