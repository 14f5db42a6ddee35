package med

import "time"

// Clock supplies the current time. Operations take a Clock instead of
// calling time.Now so timing logic stays deterministic under test.
type Clock func() time.Time

// Action is the kind of event recorded in the dose log.
type Action string

const (
	ActionTaken   Action = "taken"
	ActionSkipped Action = "skipped"
	ActionSnoozed Action = "snoozed"
)

// ValidAction reports whether a is a known log action.
func ValidAction(a Action) bool {
	switch a {
	case ActionTaken, ActionSkipped, ActionSnoozed:
		return true
	}
	return false
}

// Medication is a tracked medication item.
type Medication struct {
	// ID is a ULID that uniquely identifies this medication
	ID string

	// NameRaw is the original name as provided by the user
	NameRaw string

	// NameNorm is the normalized name (lowercased, trimmed, collapsed spaces)
	NameNorm string

	// DoseAmount is the quantity consumed per dose (e.g. 1, 0.5, 2)
	DoseAmount float64

	// DoseUnit is the unit of a single dose (e.g. "tablet", "ml", "mg")
	DoseUnit string

	// Notes is optional free-form text (e.g. "with food")
	Notes *string

	// CreatedAt is the Unix timestamp when the medication was created
	CreatedAt int64

	// UpdatedAt is the Unix timestamp when the medication was last updated
	UpdatedAt int64

	// DeletedAt is the Unix timestamp for soft delete (nullable)
	DeletedAt *int64
}

// DoseLogEntry is one append-only event in the dose log.
//
// ScheduledFor holds the original planned timestamp and stays stable across
// postponements, so timing status is always judged against the plan the user
// agreed to, not the snoozed time.
type DoseLogEntry struct {
	// ID is a ULID uniquely identifying this entry
	ID string

	// ItemID references the medication
	ItemID string

	// ScheduleID references the schedule that produced the dose (empty for
	// ad-hoc PRN doses)
	ScheduleID string

	// ScheduledFor is the original planned Unix timestamp (nil for PRN doses)
	ScheduledFor *int64

	// Action is taken, skipped, or snoozed
	Action Action

	// Reason is an optional short explanation (e.g. "felt nauseous")
	Reason *string

	// Note is optional free-form text
	Note *string

	// SnoozeUntil is the deferred due time for snoozed entries (nil otherwise)
	SnoozeUntil *int64

	// LoggedAt is the Unix timestamp when the action was recorded
	LoggedAt int64
}

// InventoryRecord is the mutable stock counter for one medication.
// The dose log is the audit trail; inventory is a plain counter decremented
// once per taken dose, never re-derived from history.
type InventoryRecord struct {
	ItemID         string
	RemainingUnits float64
	LowThreshold   float64
	UnitLabel      string
	UpdatedAt      int64
}

// AnchorType names a routine life-event used as a scheduling reference.
type AnchorType string

const (
	AnchorWake      AnchorType = "wake"
	AnchorBreakfast AnchorType = "breakfast"
	AnchorLunch     AnchorType = "lunch"
	AnchorDinner    AnchorType = "dinner"
	AnchorBed       AnchorType = "bed"
)

// AnchorTypes lists all valid anchors in day order.
var AnchorTypes = []AnchorType{AnchorWake, AnchorBreakfast, AnchorLunch, AnchorDinner, AnchorBed}

// ValidAnchorType reports whether a is a known anchor.
func ValidAnchorType(a AnchorType) bool {
	for _, known := range AnchorTypes {
		if a == known {
			return true
		}
	}
	return false
}
