package sched

import "time"

// DefaultCollisionWindowMinutes is the overlap window used when a caller
// does not configure one.
const DefaultCollisionWindowMinutes = 30

// DetectCollision reports whether a proposed time lands within
// windowMinutes of any candidate dose. The first match in slice order is
// returned; callers that need first-by-time determinism should sort
// candidates by planned time beforehand.
func DetectCollision(proposed time.Time, candidates []DoseInstance, windowMinutes int) (*DoseInstance, bool) {
	if windowMinutes <= 0 {
		windowMinutes = DefaultCollisionWindowMinutes
	}
	window := time.Duration(windowMinutes) * time.Minute

	for i := range candidates {
		gap := proposed.Sub(candidates[i].PlannedTime)
		if gap < 0 {
			gap = -gap
		}
		if gap <= window {
			return &candidates[i], true
		}
	}
	return nil, false
}
