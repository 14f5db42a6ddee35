// Package adherence folds the dose event log into adherence metrics:
// breakdown rates, a day-of-week × hour heatmap, streaks, and ranked
// problem times. Everything here is a pure computation over the entries
// passed in; nothing is cached between calls.
package adherence

import (
	"math"
	"sort"
	"time"

	"medtrack/internal/med"
	"medtrack/internal/sched"
)

// Input configures one aggregation pass.
type Input struct {
	// Entries is the event log, any order.
	Entries []med.DoseLogEntry

	// WindowDays is the trailing window size in days (today inclusive).
	WindowDays int

	// Now anchors the window.
	Now time.Time

	// Location buckets heatmap cells and streak days; defaults to Now's
	// location.
	Location *time.Location

	// GraceBySchedule maps schedule IDs to their grace windows in minutes.
	// Entries whose schedule is unknown (or absent) fall back to the
	// 60-minute default rather than failing.
	GraceBySchedule map[string]int

	// ItemFilter restricts aggregation to one medication when non-empty.
	ItemFilter string
}

// Cell is one heatmap bucket.
type Cell struct {
	Total  int     `json:"total"`
	OnTime int     `json:"on_time"`
	Missed int     `json:"missed"`
	Late   int     `json:"late"`
	Score  float64 `json:"score"`
}

// ProblemTime is a heatmap cell ranked by how often doses go wrong there.
type ProblemTime struct {
	Weekday time.Weekday `json:"weekday"`
	Hour    int          `json:"hour"`
	Missed  int          `json:"missed"`
	Late    int          `json:"late"`
}

// ItemStats is the per-medication breakdown.
type ItemStats struct {
	ItemID     string `json:"item_id"`
	Total      int    `json:"total"`
	Taken      int    `json:"taken"`
	OnTime     int    `json:"on_time"`
	Late       int    `json:"late"`
	Skipped    int    `json:"skipped"`
	Postponed  int    `json:"postponed"`
	TakenRate  int    `json:"taken_rate"`
	OnTimeRate int    `json:"on_time_rate"`
}

// Result is the aggregated adherence picture for the window.
type Result struct {
	WindowDays int `json:"window_days"`

	Total     int `json:"total"`
	Taken     int `json:"taken"`
	Skipped   int `json:"skipped"`
	Postponed int `json:"postponed"`
	OnTime    int `json:"on_time"`
	Late      int `json:"late"`

	// Rates are integer percents, 0 when the denominator is 0.
	TakenRate  int `json:"taken_rate"`
	OnTimeRate int `json:"on_time_rate"`
	LateRate   int `json:"late_rate"`

	// Heatmap is a fixed 7×24 grid indexed [weekday][hour]. Empty cells
	// score 1.0: no evidence is not evidence of problems.
	Heatmap [7][24]Cell `json:"heatmap"`

	// ProblemTimes ranks cells with missed+late > 0, worst first, top 5.
	ProblemTimes []ProblemTime `json:"problem_times"`

	// CurrentStreak counts consecutive fully-adherent days ending at the
	// most recent day with activity; BestStreak is the longest such run
	// anywhere in the window.
	CurrentStreak int `json:"current_streak"`
	BestStreak    int `json:"best_streak"`

	// PerMedication is sorted by total dose count descending.
	PerMedication []ItemStats `json:"per_medication"`
}

// Aggregate computes adherence metrics over the window. It tolerates
// partially corrupted history: entries with a missing schedule or no
// recorded plan time are counted conservatively as on time.
func Aggregate(in Input) *Result {
	loc := in.Location
	if loc == nil {
		loc = in.Now.Location()
	}
	windowDays := in.WindowDays
	if windowDays <= 0 {
		windowDays = 30
	}

	result := &Result{WindowDays: windowDays}
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			result.Heatmap[d][h].Score = 1.0
		}
	}

	dayStart := sched.Midnight(in.Now, loc)
	cutoff := dayStart.AddDate(0, 0, -(windowDays - 1))

	// dayTotals / dayTaken track per-day adherence for streaks, keyed by
	// civil date.
	dayTotals := make(map[string]int)
	dayTaken := make(map[string]int)
	perItem := make(map[string]*ItemStats)

	for _, entry := range in.Entries {
		logged := time.Unix(entry.LoggedAt, 0).In(loc)
		if logged.Before(cutoff) || logged.After(in.Now) {
			continue
		}
		if in.ItemFilter != "" && entry.ItemID != in.ItemFilter {
			continue
		}

		stats := perItem[entry.ItemID]
		if stats == nil {
			stats = &ItemStats{ItemID: entry.ItemID}
			perItem[entry.ItemID] = stats
		}

		result.Total++
		stats.Total++

		// Heatmap cells bucket on the planned slot when known, otherwise
		// on when the action was logged.
		slot := logged
		if entry.ScheduledFor != nil {
			slot = time.Unix(*entry.ScheduledFor, 0).In(loc)
		}
		cell := &result.Heatmap[int(slot.Weekday())][slot.Hour()]
		cell.Total++

		switch entry.Action {
		case med.ActionTaken:
			result.Taken++
			stats.Taken++
			day := slot.Format(sched.DateLayout)
			dayTotals[day]++
			if classifyEntry(entry, in.GraceBySchedule) {
				result.OnTime++
				stats.OnTime++
				cell.OnTime++
				dayTaken[day]++
			} else {
				result.Late++
				stats.Late++
				cell.Late++
				// A late dose still counts as taken for the day streak.
				dayTaken[day]++
			}
		case med.ActionSkipped:
			result.Skipped++
			stats.Skipped++
			cell.Missed++
			dayTotals[slot.Format(sched.DateLayout)]++
		case med.ActionSnoozed:
			result.Postponed++
			stats.Postponed++
		}
	}

	result.TakenRate = percent(result.Taken, result.Total)
	result.OnTimeRate = percent(result.OnTime, result.Taken)
	result.LateRate = percent(result.Late, result.Taken)

	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			cell := &result.Heatmap[d][h]
			if cell.Total > 0 {
				cell.Score = float64(cell.OnTime) / float64(cell.Total)
			}
		}
	}

	result.ProblemTimes = rankProblemTimes(&result.Heatmap)
	result.CurrentStreak, result.BestStreak = streaks(dayTotals, dayTaken, dayStart, windowDays)

	result.PerMedication = make([]ItemStats, 0, len(perItem))
	for _, stats := range perItem {
		stats.TakenRate = percent(stats.Taken, stats.Total)
		stats.OnTimeRate = percent(stats.OnTime, stats.Taken)
		result.PerMedication = append(result.PerMedication, *stats)
	}
	sort.Slice(result.PerMedication, func(i, j int) bool {
		a, b := result.PerMedication[i], result.PerMedication[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.ItemID < b.ItemID
	})

	return result
}

// classifyEntry reports whether a taken entry counts as on time. Entries
// with no recorded plan (PRN doses, orphaned history) count as on time.
func classifyEntry(entry med.DoseLogEntry, graceBySchedule map[string]int) bool {
	if entry.ScheduledFor == nil {
		return true
	}
	grace := sched.DefaultGraceMinutes
	if g, ok := graceBySchedule[entry.ScheduleID]; ok && g > 0 {
		grace = g
	}
	planned := time.Unix(*entry.ScheduledFor, 0)
	actual := time.Unix(entry.LoggedAt, 0)
	c := sched.Classify(planned, &actual, grace, actual)
	return c.Status == sched.StatusOnTime
}

// rankProblemTimes returns the top 5 cells by missed+late, descending.
// Ties break on earlier weekday, then earlier hour, for stable output.
func rankProblemTimes(grid *[7][24]Cell) []ProblemTime {
	var problems []ProblemTime
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			cell := grid[d][h]
			if cell.Missed+cell.Late > 0 {
				problems = append(problems, ProblemTime{
					Weekday: time.Weekday(d),
					Hour:    h,
					Missed:  cell.Missed,
					Late:    cell.Late,
				})
			}
		}
	}
	sort.Slice(problems, func(i, j int) bool {
		a, b := problems[i], problems[j]
		if a.Missed+a.Late != b.Missed+b.Late {
			return a.Missed+a.Late > b.Missed+b.Late
		}
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		return a.Hour < b.Hour
	})
	if len(problems) > 5 {
		problems = problems[:5]
	}
	return problems
}

// streaks walks the window day by day. A perfect day has at least one dose
// and every dose taken. The current streak is anchored at the most recent
// day with activity, so a quiet morning does not zero it out; any older day
// with no doses, or with a skip, breaks the run.
func streaks(dayTotals, dayTaken map[string]int, dayStart time.Time, windowDays int) (current, best int) {
	run := 0
	for i := windowDays - 1; i >= 0; i-- {
		day := dayStart.AddDate(0, 0, -i).Format(sched.DateLayout)
		total := dayTotals[day]
		if total > 0 && dayTaken[day] == total {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}

	// Walk back from today, skipping trailing quiet days, then count the
	// unbroken perfect run.
	i := 0
	for i < windowDays {
		day := dayStart.AddDate(0, 0, -i).Format(sched.DateLayout)
		if dayTotals[day] > 0 {
			break
		}
		i++
	}
	for i < windowDays {
		day := dayStart.AddDate(0, 0, -i).Format(sched.DateLayout)
		total := dayTotals[day]
		if total > 0 && dayTaken[day] == total {
			current++
			i++
			continue
		}
		break
	}
	return current, best
}

// percent rounds n/d to the nearest integer percent, 0 when d is 0.
func percent(n, d int) int {
	if d == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(d) * 100))
}
