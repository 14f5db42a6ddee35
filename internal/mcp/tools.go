package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions. Addressing is uniform: operations on a medication take
// item_id or name; dose operations additionally take schedule_id and
// scheduled_for when the target slot is ambiguous.

var medAddToolDef = mcp.NewTool("med_add",
	mcp.WithDescription("Register a medication to track. Names are unique (case-insensitive)."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Display name, e.g. 'Metformin 500mg'")),
	mcp.WithNumber("dose_amount", mcp.Required(), mcp.Description("Units consumed per dose, e.g. 1 or 0.5")),
	mcp.WithString("dose_unit", mcp.Required(), mcp.Description("Unit of one dose, e.g. 'tablet', 'ml'")),
	mcp.WithString("notes", mcp.Description("Free-form notes, e.g. 'with food'")),
)

var medListToolDef = mcp.NewTool("med_list",
	mcp.WithDescription("List tracked medications with their active schedule counts."),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted medications")),
)

var medUpdateToolDef = mcp.NewTool("med_update",
	mcp.WithDescription("Update a medication's name, dose, or notes. Omitted fields stay unchanged."),
	mcp.WithString("item_id", mcp.Description("Medication ID")),
	mcp.WithString("name", mcp.Description("Current medication name (alternative to item_id)")),
	mcp.WithString("new_name", mcp.Description("New display name")),
	mcp.WithNumber("dose_amount", mcp.Description("New per-dose amount")),
	mcp.WithString("dose_unit", mcp.Description("New dose unit")),
	mcp.WithString("notes", mcp.Description("New notes (empty string clears)")),
)

var medDeleteToolDef = mcp.NewTool("med_delete",
	mcp.WithDescription("Delete a medication. Refused while it still has schedules; history is kept."),
	mcp.WithString("item_id", mcp.Description("Medication ID")),
	mcp.WithString("name", mcp.Description("Medication name (alternative to item_id)")),
)

var scheduleSetToolDef = mcp.NewTool("schedule_set",
	mcp.WithDescription("Create or replace a dose schedule. Kinds: daily, weekly, interval_days, interval_hours, course, prn. "+
		"The scheme object carries the kind's fields, e.g. {\"times\": [\"08:00\", \"20:00\"]} for daily or "+
		"{\"max_per_day\": 3, \"min_interval_hours\": 4} for prn."),
	mcp.WithString("schedule_id", mcp.Description("Existing schedule ID to replace; omit to create")),
	mcp.WithString("item_id", mcp.Description("Medication ID (for create)")),
	mcp.WithString("item_name", mcp.Description("Medication name (alternative to item_id)")),
	mcp.WithString("kind", mcp.Required(), mcp.Description("Scheme kind"),
		mcp.Enum("daily", "weekly", "interval_days", "interval_hours", "course", "prn")),
	mcp.WithObject("scheme", mcp.Description("Scheme fields for the chosen kind")),
	mcp.WithObject("anchor", mcp.Description("Routine anchor override: {\"type\": \"breakfast\", \"offset_minutes\": -30}")),
	mcp.WithString("start_date", mcp.Description("First active day, YYYY-MM-DD (default today)")),
	mcp.WithString("end_date", mcp.Description("Last active day, YYYY-MM-DD")),
	mcp.WithNumber("grace_minutes", mcp.Description("On-time tolerance in minutes (default 60)")),
	mcp.WithString("time_policy", mcp.Description("Clock interpretation across DST"), mcp.Enum("local", "utc")),
)

var scheduleListToolDef = mcp.NewTool("schedule_list",
	mcp.WithDescription("List schedules, optionally for one medication."),
	mcp.WithString("item_id", mcp.Description("Medication ID filter")),
	mcp.WithString("item_name", mcp.Description("Medication name filter")),
)

var schedulePauseToolDef = mcp.NewTool("schedule_pause",
	mcp.WithDescription("Pause a schedule: no doses are generated until it is resumed."),
	mcp.WithString("schedule_id", mcp.Required(), mcp.Description("Schedule ID")),
)

var scheduleResumeToolDef = mcp.NewTool("schedule_resume",
	mcp.WithDescription("Resume a paused schedule."),
	mcp.WithString("schedule_id", mcp.Required(), mcp.Description("Schedule ID")),
)

var scheduleDeleteToolDef = mcp.NewTool("schedule_delete",
	mcp.WithDescription("Delete a schedule. Logged history stays intact."),
	mcp.WithString("schedule_id", mcp.Required(), mcp.Description("Schedule ID")),
)

var doseDueToolDef = mcp.NewTool("dose_due",
	mcp.WithDescription("List a day's dose slots with timing status: pending, missed, on_time, late, skipped, or snoozed."),
	mcp.WithString("date", mcp.Description("Day to expand, YYYY-MM-DD (default today)")),
	mcp.WithString("item_id", mcp.Description("Medication ID filter")),
	mcp.WithString("item_name", mcp.Description("Medication name filter")),
)

var doseTakeToolDef = mcp.NewTool("dose_take",
	mcp.WithDescription("Record a taken dose. Scheduled doses are classified against their plan; "+
		"as-needed doses are gated by the daily cap and minimum spacing. Decrements tracked inventory."),
	mcp.WithString("item_id", mcp.Description("Medication ID")),
	mcp.WithString("item_name", mcp.Description("Medication name (alternative to item_id)")),
	mcp.WithString("schedule_id", mcp.Description("Schedule ID, required when the medication has several")),
	mcp.WithString("scheduled_for", mcp.Description("Target slot, RFC3339 (default: nearest due slot today)")),
	mcp.WithString("note", mcp.Description("Free-form note")),
)

var doseSkipToolDef = mcp.NewTool("dose_skip",
	mcp.WithDescription("Record a deliberately skipped scheduled dose."),
	mcp.WithString("item_id", mcp.Description("Medication ID")),
	mcp.WithString("item_name", mcp.Description("Medication name (alternative to item_id)")),
	mcp.WithString("schedule_id", mcp.Description("Schedule ID, required when the medication has several")),
	mcp.WithString("scheduled_for", mcp.Description("Target slot, RFC3339 (default: nearest due slot today)")),
	mcp.WithString("reason", mcp.Description("Why the dose was skipped")),
)

var doseSnoozeToolDef = mcp.NewTool("dose_snooze",
	mcp.WithDescription("Postpone a due dose by 5-240 minutes from now. A new snooze on the same slot "+
		"replaces the old one; times colliding with another due dose are rejected."),
	mcp.WithString("item_id", mcp.Description("Medication ID")),
	mcp.WithString("item_name", mcp.Description("Medication name (alternative to item_id)")),
	mcp.WithString("schedule_id", mcp.Description("Schedule ID, required when the medication has several")),
	mcp.WithString("scheduled_for", mcp.Description("Target slot, RFC3339 (default: nearest due slot today)")),
	mcp.WithNumber("minutes", mcp.Required(), mcp.Description("Minutes to postpone, 5-240")),
)

var doseUndoToolDef = mcp.NewTool("dose_undo",
	mcp.WithDescription("Reverse the most recent log entry if it is still inside the undo window. "+
		"Undoing a taken dose restores the inventory."),
)

var prnCheckToolDef = mcp.NewTool("prn_check",
	mcp.WithDescription("Check whether another as-needed dose may be taken now, without recording anything."),
	mcp.WithString("item_id", mcp.Description("Medication ID")),
	mcp.WithString("item_name", mcp.Description("Medication name (alternative to item_id)")),
)

var inventorySetToolDef = mcp.NewTool("inventory_set",
	mcp.WithDescription("Create or replace the stock record for a medication."),
	mcp.WithString("item_id", mcp.Description("Medication ID")),
	mcp.WithString("item_name", mcp.Description("Medication name (alternative to item_id)")),
	mcp.WithNumber("units", mcp.Required(), mcp.Description("Units on hand")),
	mcp.WithNumber("low_threshold", mcp.Description("Warn at or below this level")),
	mcp.WithString("unit_label", mcp.Description("Stock unit label (default: the dose unit)")),
)

var inventoryRefillToolDef = mcp.NewTool("inventory_refill",
	mcp.WithDescription("Add stock to an existing inventory record."),
	mcp.WithString("item_id", mcp.Description("Medication ID")),
	mcp.WithString("item_name", mcp.Description("Medication name (alternative to item_id)")),
	mcp.WithNumber("add_units", mcp.Required(), mcp.Description("Units to add")),
)

var inventoryStatusToolDef = mcp.NewTool("inventory_status",
	mcp.WithDescription("List every tracked stock record with its urgency: ok, low, critical, or empty."),
)

var inventoryForecastToolDef = mcp.NewTool("inventory_forecast",
	mcp.WithDescription("Project when a medication's stock runs out, from its schedules' daily consumption. "+
		"As-needed schedules make the projection approximate."),
	mcp.WithString("item_id", mcp.Description("Medication ID")),
	mcp.WithString("item_name", mcp.Description("Medication name (alternative to item_id)")),
)

var adherenceStatsToolDef = mcp.NewTool("adherence_stats",
	mcp.WithDescription("Aggregate the dose log into adherence metrics: rates, weekday-by-hour heatmap, "+
		"problem times, streaks, and a per-medication breakdown."),
	mcp.WithNumber("window_days", mcp.Description("Trailing window in days (default 30, max 365)")),
	mcp.WithString("item_id", mcp.Description("Medication ID filter")),
	mcp.WithString("item_name", mcp.Description("Medication name filter")),
)

var anchorSetToolDef = mcp.NewTool("anchor_set",
	mcp.WithDescription("Set or clear the base time for a routine anchor (wake, breakfast, lunch, dinner, bed)."),
	mcp.WithString("anchor", mcp.Required(), mcp.Description("Anchor to configure"),
		mcp.Enum("wake", "breakfast", "lunch", "dinner", "bed")),
	mcp.WithString("base_time", mcp.Description("HH:mm base time; omit to clear")),
)

var anchorListToolDef = mcp.NewTool("anchor_list",
	mcp.WithDescription("List all routine anchors and their configured base times."),
)

var reportToolDef = mcp.NewTool("report",
	mcp.WithDescription("Render today's doses, the adherence window, and inventory as one markdown or HTML report."),
	mcp.WithNumber("window_days", mcp.Description("Adherence window in days (default 30)")),
	mcp.WithString("format", mcp.Description("Output format"), mcp.Enum("markdown", "html")),
)
