package sched

import (
	"time"

	"medtrack/internal/med"
)

// AnchorSettings provides per-profile base times for routine anchors.
// Implementations return ("", false) for anchors the profile has not
// configured.
type AnchorSettings interface {
	AnchorBaseTime(a med.AnchorType) (string, bool)
}

// AnchorMap is an in-memory AnchorSettings, keyed by anchor type with
// HH:mm values. Used by tests and by callers that load anchors up front.
type AnchorMap map[med.AnchorType]string

// AnchorBaseTime implements AnchorSettings.
func (m AnchorMap) AnchorBaseTime(a med.AnchorType) (string, bool) {
	v, ok := m[a]
	return v, ok
}

// ResolveAnchor maps an anchor plus offset to a concrete time on the given
// date. Returns ok=false when the profile has no base time for the anchor
// or the stored base time is malformed; callers treat that as "no instance"
// rather than an error, so a half-configured profile never breaks a day view.
func ResolveAnchor(settings AnchorSettings, anchor Anchor, date time.Time, loc *time.Location) (time.Time, bool) {
	if settings == nil {
		return time.Time{}, false
	}
	base, ok := settings.AnchorBaseTime(anchor.Type)
	if !ok {
		return time.Time{}, false
	}
	hour, minute, err := med.ParseClock(base)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := date.In(loc).Date()
	t := time.Date(y, m, d, hour, minute, 0, 0, loc)
	return t.Add(time.Duration(anchor.OffsetMinutes) * time.Minute), true
}
