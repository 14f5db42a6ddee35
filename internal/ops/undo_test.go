package ops

import (
	"testing"
	"time"

	"medtrack/internal/errors"
)

func TestUndo_RestoresInventory(t *testing.T) {
	env := testEnv(t)
	m := addMed(t, env, "Aspirin", 2, "tablet")
	addDailySchedule(t, env, m.ID, "08:00")
	if _, err := InventorySet(env, InventorySetInput{ItemID: m.ID, Units: 10}); err != nil {
		t.Fatalf("InventorySet failed: %v", err)
	}

	take, err := Take(env, TakeInput{ItemID: m.ID})
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}

	out, err := Undo(env, UndoInput{})
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if out.UndoneEntryID != take.EntryID || out.Action != "taken" {
		t.Errorf("output = %+v", out)
	}

	status, err := InventoryStatus(env, InventoryStatusInput{})
	if err != nil {
		t.Fatalf("InventoryStatus failed: %v", err)
	}
	if status.Items[0].RemainingUnits != 10 {
		t.Errorf("RemainingUnits = %g, want 10 restored", status.Items[0].RemainingUnits)
	}

	// The slot is due again.
	due, err := Due(env, DueInput{})
	if err != nil {
		t.Fatalf("Due failed: %v", err)
	}
	if due.Doses[0].Action != "" {
		t.Errorf("dose action = %q, want unactioned after undo", due.Doses[0].Action)
	}
}

func TestUndo_SkipLeavesInventoryAlone(t *testing.T) {
	env := testEnv(t)
	m := addMed(t, env, "Aspirin", 1, "tablet")
	addDailySchedule(t, env, m.ID, "08:00")
	if _, err := InventorySet(env, InventorySetInput{ItemID: m.ID, Units: 10}); err != nil {
		t.Fatalf("InventorySet failed: %v", err)
	}

	if _, err := Skip(env, SkipInput{ItemID: m.ID}); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	if _, err := Undo(env, UndoInput{}); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}

	status, err := InventoryStatus(env, InventoryStatusInput{})
	if err != nil {
		t.Fatalf("InventoryStatus failed: %v", err)
	}
	if status.Items[0].RemainingUnits != 10 {
		t.Errorf("RemainingUnits = %g, want 10", status.Items[0].RemainingUnits)
	}
}

func TestUndo_WindowElapsed(t *testing.T) {
	env := testEnv(t)
	m := addMed(t, env, "Aspirin", 1, "tablet")
	addDailySchedule(t, env, m.ID, "08:00")

	if _, err := Take(env, TakeInput{ItemID: m.ID}); err != nil {
		t.Fatalf("Take failed: %v", err)
	}

	setClock(env, testNow.Add(11*time.Minute))
	_, err := Undo(env, UndoInput{})
	if !errors.Is(err, errors.ErrConflict) {
		t.Errorf("Undo past the window should return ErrConflict, got: %v", err)
	}
}

func TestUndo_EmptyLog(t *testing.T) {
	env := testEnv(t)
	_, err := Undo(env, UndoInput{})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Undo on empty log should return ErrNotFound, got: %v", err)
	}
}
