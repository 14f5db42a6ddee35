package ops

import (
	"testing"
	"time"

	"medtrack/internal/errors"
)

func TestPRNCheck(t *testing.T) {
	env := testEnv(t)
	m := addMed(t, env, "Ibuprofen", 1, "tablet")
	addPRNSchedule(t, env, m.ID, 2, 6)

	out, err := PRNCheck(env, PRNCheckInput{ItemName: "ibuprofen"})
	if err != nil {
		t.Fatalf("PRNCheck failed: %v", err)
	}
	if !out.CanTake || out.DosesToday != 0 {
		t.Errorf("output = %+v, want can_take with 0 doses", out)
	}
	if out.MaxPerDay != 2 || out.MinIntervalHours != 6 {
		t.Errorf("limits = %d/%g, want 2/6", out.MaxPerDay, out.MinIntervalHours)
	}
}

func TestPRNCheck_TooSoon(t *testing.T) {
	env := testEnv(t)
	m := addMed(t, env, "Ibuprofen", 1, "tablet")
	addPRNSchedule(t, env, m.ID, 4, 6)

	if _, err := Take(env, TakeInput{ItemID: m.ID}); err != nil {
		t.Fatalf("Take failed: %v", err)
	}

	setClock(env, testNow.Add(2*time.Hour))
	out, err := PRNCheck(env, PRNCheckInput{ItemID: m.ID})
	if err != nil {
		t.Fatalf("PRNCheck failed: %v", err)
	}
	if out.CanTake {
		t.Error("CanTake = true, want false")
	}
	if out.Reason != "min_interval_not_elapsed" {
		t.Errorf("Reason = %q", out.Reason)
	}
	if out.NextAvailable == nil {
		t.Fatal("NextAvailable should be set")
	}
	want := testNow.Add(6 * time.Hour).Format(time.RFC3339)
	if *out.NextAvailable != want {
		t.Errorf("NextAvailable = %q, want %q", *out.NextAvailable, want)
	}
}

func TestPRNCheck_DailyLimit(t *testing.T) {
	env := testEnv(t)
	m := addMed(t, env, "Ibuprofen", 1, "tablet")
	addPRNSchedule(t, env, m.ID, 1, 0)

	if _, err := Take(env, TakeInput{ItemID: m.ID}); err != nil {
		t.Fatalf("Take failed: %v", err)
	}

	out, err := PRNCheck(env, PRNCheckInput{ItemID: m.ID})
	if err != nil {
		t.Fatalf("PRNCheck failed: %v", err)
	}
	if out.CanTake || out.Reason != "daily_limit_reached" {
		t.Errorf("output = %+v, want daily limit rejection", out)
	}
	if out.DosesToday != 1 {
		t.Errorf("DosesToday = %d, want 1", out.DosesToday)
	}
}

func TestPRNCheck_NoPRNSchedule(t *testing.T) {
	env := testEnv(t)
	m := addMed(t, env, "Aspirin", 1, "tablet")
	addDailySchedule(t, env, m.ID, "08:00")

	_, err := PRNCheck(env, PRNCheckInput{ItemID: m.ID})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("PRNCheck should return ErrInvalidRequest, got: %v", err)
	}
}
