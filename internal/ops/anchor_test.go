package ops

import (
	"testing"

	"medtrack/internal/errors"
	"medtrack/internal/sched"
)

func TestAnchorSet(t *testing.T) {
	env := testEnv(t)

	out, err := AnchorSet(env, AnchorSetInput{Anchor: "breakfast", BaseTime: "7:30"})
	if err != nil {
		t.Fatalf("AnchorSet failed: %v", err)
	}
	if out.BaseTime != "07:30" {
		t.Errorf("BaseTime = %q, want normalized 07:30", out.BaseTime)
	}
}

func TestAnchorSet_Validation(t *testing.T) {
	env := testEnv(t)

	_, err := AnchorSet(env, AnchorSetInput{Anchor: "brunch", BaseTime: "07:30"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("unknown anchor should return ErrInvalidRequest, got: %v", err)
	}
	_, err = AnchorSet(env, AnchorSetInput{Anchor: "breakfast", BaseTime: "25:99"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("bad base_time should return ErrInvalidRequest, got: %v", err)
	}
}

func TestAnchorSet_Clear(t *testing.T) {
	env := testEnv(t)

	if _, err := AnchorSet(env, AnchorSetInput{Anchor: "bed", BaseTime: "22:00"}); err != nil {
		t.Fatalf("AnchorSet failed: %v", err)
	}
	out, err := AnchorSet(env, AnchorSetInput{Anchor: "bed"})
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if !out.Cleared {
		t.Error("Cleared = false, want true")
	}
}

func TestAnchorList(t *testing.T) {
	env := testEnv(t)
	if _, err := AnchorSet(env, AnchorSetInput{Anchor: "wake", BaseTime: "06:45"}); err != nil {
		t.Fatalf("AnchorSet failed: %v", err)
	}

	out, err := AnchorList(env, AnchorListInput{})
	if err != nil {
		t.Fatalf("AnchorList failed: %v", err)
	}
	if len(out.Anchors) != 5 {
		t.Fatalf("len = %d, want all 5 anchors", len(out.Anchors))
	}
	if out.Anchors[0].Anchor != "wake" || out.Anchors[0].BaseTime == nil || *out.Anchors[0].BaseTime != "06:45" {
		t.Errorf("wake = %+v", out.Anchors[0])
	}
	for _, entry := range out.Anchors[1:] {
		if entry.BaseTime != nil {
			t.Errorf("%s BaseTime = %v, want unset", entry.Anchor, entry.BaseTime)
		}
	}
}

func TestAnchoredScheduleThroughDue(t *testing.T) {
	env := testEnv(t)
	m := addMed(t, env, "Levothyroxine", 1, "tablet")

	if _, err := AnchorSet(env, AnchorSetInput{Anchor: "breakfast", BaseTime: "08:00"}); err != nil {
		t.Fatalf("AnchorSet failed: %v", err)
	}
	_, err := ScheduleSet(env, ScheduleSetInput{
		ItemID:    m.ID,
		Scheme:    sched.DailyScheme{Times: []string{"12:00"}},
		Anchor:    &sched.Anchor{Type: "breakfast", OffsetMinutes: -30},
		StartDate: "2025-03-01",
	})
	if err != nil {
		t.Fatalf("ScheduleSet failed: %v", err)
	}

	due, err := Due(env, DueInput{})
	if err != nil {
		t.Fatalf("Due failed: %v", err)
	}
	if due.Total != 1 {
		t.Fatalf("Total = %d, want 1", due.Total)
	}
	// The anchor overrides the scheme's 12:00: breakfast minus 30 minutes.
	if due.Doses[0].PlannedTime != "2025-03-10T07:30:00Z" {
		t.Errorf("PlannedTime = %q, want 07:30", due.Doses[0].PlannedTime)
	}

	// Clearing the anchor silently stops the schedule rather than failing.
	if _, err := AnchorSet(env, AnchorSetInput{Anchor: "breakfast"}); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	due, err = Due(env, DueInput{})
	if err != nil {
		t.Fatalf("Due failed: %v", err)
	}
	if due.Total != 0 {
		t.Errorf("Total = %d, want 0 with unresolvable anchor", due.Total)
	}
}
