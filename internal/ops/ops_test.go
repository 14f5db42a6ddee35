package ops

import (
	"testing"
	"time"

	"medtrack/internal/config"
	"medtrack/internal/db"
	"medtrack/internal/sched"
)

// testNow is the pinned clock for ops tests: a Monday morning, UTC to keep
// DST out of the arithmetic.
var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func testEnv(t *testing.T) *Env {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	env := NewEnv(database, config.DefaultConfig())
	env.Local = time.UTC
	setClock(env, testNow)
	return env
}

func setClock(env *Env, now time.Time) {
	env.Clock = func() time.Time { return now }
}

func stringPtr(s string) *string    { return &s }
func float64Ptr(f float64) *float64 { return &f }

func addMed(t *testing.T, env *Env, name string, doseAmount float64, doseUnit string) MedicationView {
	t.Helper()
	out, err := MedAdd(env, MedAddInput{Name: name, DoseAmount: doseAmount, DoseUnit: doseUnit})
	if err != nil {
		t.Fatalf("MedAdd(%s) failed: %v", name, err)
	}
	return out.Medication
}

func addDailySchedule(t *testing.T, env *Env, itemID string, times ...string) ScheduleView {
	t.Helper()
	out, err := ScheduleSet(env, ScheduleSetInput{
		ItemID:    itemID,
		Scheme:    sched.DailyScheme{Times: times},
		StartDate: "2025-03-01",
	})
	if err != nil {
		t.Fatalf("ScheduleSet failed: %v", err)
	}
	return out.Schedule
}

func addPRNSchedule(t *testing.T, env *Env, itemID string, maxPerDay int, minIntervalHours float64) ScheduleView {
	t.Helper()
	out, err := ScheduleSet(env, ScheduleSetInput{
		ItemID:    itemID,
		Scheme:    sched.PRNScheme{MaxPerDay: maxPerDay, MinIntervalHours: minIntervalHours},
		StartDate: "2025-03-01",
	})
	if err != nil {
		t.Fatalf("ScheduleSet(prn) failed: %v", err)
	}
	return out.Schedule
}
