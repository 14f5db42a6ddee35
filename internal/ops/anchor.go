package ops

import (
	"fmt"

	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/med"
)

// AnchorSetInput contains parameters for the AnchorSet operation.
// An empty BaseTime clears the anchor.
type AnchorSetInput struct {
	Anchor   string
	BaseTime string // HH:mm, or empty to clear
}

// AnchorSetOutput contains the result of the AnchorSet operation.
type AnchorSetOutput struct {
	Anchor   string `json:"anchor"`
	BaseTime string `json:"base_time,omitempty"`
	Cleared  bool   `json:"cleared,omitempty"`
}

// AnchorSet configures the profile base time for one routine anchor.
// Schedules referencing an unset anchor stop producing doses rather than
// failing, so clearing is always safe.
func AnchorSet(env *Env, input AnchorSetInput) (*AnchorSetOutput, error) {
	anchor := med.AnchorType(input.Anchor)
	if !med.ValidAnchorType(anchor) {
		return nil, errors.NewInvalidRequest(
			fmt.Sprintf("unknown anchor %q: must be one of wake, breakfast, lunch, dinner, bed", input.Anchor))
	}

	if input.BaseTime == "" {
		if _, err := db.ClearAnchor(env.DB, anchor); err != nil {
			return nil, err
		}
		return &AnchorSetOutput{Anchor: input.Anchor, Cleared: true}, nil
	}

	hour, minute, err := med.ParseClock(input.BaseTime)
	if err != nil {
		return nil, errors.NewInvalidRequest(
			fmt.Sprintf("invalid base_time %q: must be HH:mm", input.BaseTime))
	}
	baseTime := med.FormatClock(hour, minute)

	if err := db.SetAnchor(env.DB, anchor, baseTime); err != nil {
		return nil, err
	}
	return &AnchorSetOutput{Anchor: input.Anchor, BaseTime: baseTime}, nil
}

// AnchorEntry is one anchor row in the AnchorList output.
type AnchorEntry struct {
	Anchor   string  `json:"anchor"`
	BaseTime *string `json:"base_time"`
}

// AnchorListInput contains parameters for the AnchorList operation.
type AnchorListInput struct{}

// AnchorListOutput contains the result of the AnchorList operation.
type AnchorListOutput struct {
	Anchors []AnchorEntry `json:"anchors"`
}

// AnchorList returns all five anchors in day order, configured or not.
func AnchorList(env *Env, input AnchorListInput) (*AnchorListOutput, error) {
	configured, err := db.GetAnchors(env.DB)
	if err != nil {
		return nil, err
	}

	entries := make([]AnchorEntry, 0, len(med.AnchorTypes))
	for _, anchor := range med.AnchorTypes {
		entry := AnchorEntry{Anchor: string(anchor)}
		if baseTime, ok := configured.AnchorBaseTime(anchor); ok {
			entry.BaseTime = &baseTime
		}
		entries = append(entries, entry)
	}
	return &AnchorListOutput{Anchors: entries}, nil
}
