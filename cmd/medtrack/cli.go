package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"medtrack/internal/errors"
	"medtrack/internal/med"
	"medtrack/internal/ops"
	"medtrack/internal/report"
	"medtrack/internal/sched"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "medtrack",
		Usage:   "Dose scheduling and adherence tracker",
		Version: Version,
		Commands: []*cli.Command{
			medCmd(env),
			scheduleCmd(env),
			dueCmd(env),
			takeCmd(env),
			skipCmd(env),
			snoozeCmd(env),
			undoCmd(env),
			prnCmd(env),
			inventoryCmd(env),
			statsCmd(env),
			anchorCmd(env),
			reportCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// addressFlags are the shared medication addressing flags.
func addressFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "Medication ID"},
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Medication name"},
	}
}

// medCmd creates the med command group.
func medCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "med",
		Usage: "Manage medications",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register a medication",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "dose", Aliases: []string{"d"}, Usage: "Dose amount per intake"},
					&cli.StringFlag{Name: "unit", Aliases: []string{"u"}, Usage: "Dose unit (mg, ml, tablet, ...)"},
					&cli.StringFlag{Name: "notes", Usage: "Free-form notes"},
				},
				Action: func(c *cli.Context) error {
					input := ops.MedAddInput{
						Name:       c.Args().First(),
						DoseAmount: c.Float64("dose"),
						DoseUnit:   c.String("unit"),
					}
					if notes := c.String("notes"); notes != "" {
						input.Notes = &notes
					}

					output, err := ops.MedAdd(env, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List medications",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted medications"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.MedList(env, ops.MedListInput{
						IncludeDeleted: c.Bool("include-deleted"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "update",
				Usage: "Update a medication",
				Flags: append(addressFlags(),
					&cli.StringFlag{Name: "rename", Usage: "New name"},
					&cli.Float64Flag{Name: "dose", Aliases: []string{"d"}, Usage: "New dose amount"},
					&cli.StringFlag{Name: "unit", Aliases: []string{"u"}, Usage: "New dose unit"},
					&cli.StringFlag{Name: "notes", Usage: "New notes"},
				),
				Action: func(c *cli.Context) error {
					input := ops.MedUpdateInput{
						ItemID: c.String("id"),
						Name:   c.String("name"),
					}
					if newName := c.String("rename"); newName != "" {
						input.NewName = &newName
					}
					if c.IsSet("dose") {
						dose := c.Float64("dose")
						input.DoseAmount = &dose
					}
					if unit := c.String("unit"); unit != "" {
						input.DoseUnit = &unit
					}
					if c.IsSet("notes") {
						notes := c.String("notes")
						input.Notes = &notes
					}

					output, err := ops.MedUpdate(env, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "delete",
				Usage: "Soft-delete a medication",
				Flags: addressFlags(),
				Action: func(c *cli.Context) error {
					output, err := ops.MedDelete(env, ops.MedDeleteInput{
						ItemID: c.String("id"),
						Name:   c.String("name"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// scheduleCmd creates the schedule command group.
func scheduleCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Manage dose schedules",
		Subcommands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Create or replace a schedule",
				Flags: append(addressFlags(),
					&cli.StringFlag{Name: "schedule", Usage: "Schedule ID to replace"},
					&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Required: true,
						Usage: "Scheme kind: daily|weekly|interval_days|interval_hours|course|prn"},
					&cli.StringFlag{Name: "times", Aliases: []string{"t"}, Usage: "Comma-separated HH:mm dose times"},
					&cli.IntFlag{Name: "times-per-day", Usage: "Declared doses per day (daily)"},
					&cli.StringFlag{Name: "weekdays", Usage: "Comma-separated weekday numbers, 0=Sunday (weekly)"},
					&cli.IntFlag{Name: "every-days", Usage: "Days between dose days (interval_days)"},
					&cli.IntFlag{Name: "every-hours", Usage: "Hours between doses (interval_hours)"},
					&cli.StringFlag{Name: "first-dose", Usage: "First dose time HH:mm (interval_hours)"},
					&cli.IntFlag{Name: "days", Usage: "Course length in days (course)"},
					&cli.IntFlag{Name: "max-per-day", Usage: "Daily dose cap (prn)"},
					&cli.Float64Flag{Name: "min-interval-hours", Usage: "Minimum hours between doses (prn)"},
					&cli.StringFlag{Name: "anchor", Usage: "Routine anchor: wake|breakfast|lunch|dinner|bed"},
					&cli.IntFlag{Name: "anchor-offset", Usage: "Minutes relative to the anchor"},
					&cli.StringFlag{Name: "start", Usage: "Start date YYYY-MM-DD (default: today)"},
					&cli.StringFlag{Name: "end", Usage: "End date YYYY-MM-DD"},
					&cli.IntFlag{Name: "grace", Usage: "Grace window in minutes"},
					&cli.BoolFlag{Name: "utc", Usage: "Pin dose times to UTC instead of local time"},
				),
				Action: func(c *cli.Context) error {
					scheme, err := buildScheme(c)
					if err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}

					input := ops.ScheduleSetInput{
						ScheduleID:   c.String("schedule"),
						ItemID:       c.String("id"),
						ItemName:     c.String("name"),
						Scheme:       scheme,
						StartDate:    c.String("start"),
						GraceMinutes: c.Int("grace"),
					}
					if end := c.String("end"); end != "" {
						input.EndDate = &end
					}
					if c.Bool("utc") {
						input.TimePolicy = "utc"
					}
					if anchor := c.String("anchor"); anchor != "" {
						input.Anchor = &sched.Anchor{
							Type:          med.AnchorType(anchor),
							OffsetMinutes: c.Int("anchor-offset"),
						}
					}

					output, err := ops.ScheduleSet(env, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List schedules",
				Flags: addressFlags(),
				Action: func(c *cli.Context) error {
					output, err := ops.ScheduleList(env, ops.ScheduleListInput{
						ItemID:   c.String("id"),
						ItemName: c.String("name"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "pause",
				Usage:     "Pause a schedule",
				ArgsUsage: "<schedule-id>",
				Action: func(c *cli.Context) error {
					output, err := ops.SchedulePause(env, ops.SchedulePauseInput{
						ScheduleID: c.Args().First(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "resume",
				Usage:     "Resume a paused schedule",
				ArgsUsage: "<schedule-id>",
				Action: func(c *cli.Context) error {
					output, err := ops.ScheduleResume(env, ops.SchedulePauseInput{
						ScheduleID: c.Args().First(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a schedule",
				ArgsUsage: "<schedule-id>",
				Action: func(c *cli.Context) error {
					output, err := ops.ScheduleDelete(env, ops.ScheduleDeleteInput{
						ScheduleID: c.Args().First(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// dueCmd creates the due command.
func dueCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "due",
		Usage: "List dose slots for a day with their timing status",
		Flags: append(addressFlags(),
			&cli.StringFlag{Name: "date", Usage: "Date YYYY-MM-DD (default: today)"},
		),
		Action: func(c *cli.Context) error {
			output, err := ops.Due(env, ops.DueInput{
				Date:     c.String("date"),
				ItemID:   c.String("id"),
				ItemName: c.String("name"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// takeCmd creates the take command.
func takeCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "take",
		Usage: "Record a taken dose",
		Flags: append(addressFlags(),
			&cli.StringFlag{Name: "schedule", Usage: "Schedule ID (when ambiguous)"},
			&cli.StringFlag{Name: "at", Usage: "Planned slot time RFC3339 (default: nearest due slot)"},
			&cli.StringFlag{Name: "note", Usage: "Free-form note"},
		),
		Action: func(c *cli.Context) error {
			input := ops.TakeInput{
				ItemID:       c.String("id"),
				ItemName:     c.String("name"),
				ScheduleID:   c.String("schedule"),
				ScheduledFor: c.String("at"),
			}
			if note := c.String("note"); note != "" {
				input.Note = &note
			}

			output, err := ops.Take(env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// skipCmd creates the skip command.
func skipCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "skip",
		Usage: "Record a deliberately-missed dose",
		Flags: append(addressFlags(),
			&cli.StringFlag{Name: "schedule", Usage: "Schedule ID (when ambiguous)"},
			&cli.StringFlag{Name: "at", Usage: "Planned slot time RFC3339 (default: nearest due slot)"},
			&cli.StringFlag{Name: "reason", Usage: "Why the dose was skipped"},
		),
		Action: func(c *cli.Context) error {
			input := ops.SkipInput{
				ItemID:       c.String("id"),
				ItemName:     c.String("name"),
				ScheduleID:   c.String("schedule"),
				ScheduledFor: c.String("at"),
			}
			if reason := c.String("reason"); reason != "" {
				input.Reason = &reason
			}

			output, err := ops.Skip(env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// snoozeCmd creates the snooze command.
func snoozeCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "snooze",
		Usage: "Postpone a due dose",
		Flags: append(addressFlags(),
			&cli.StringFlag{Name: "schedule", Usage: "Schedule ID (when ambiguous)"},
			&cli.StringFlag{Name: "at", Usage: "Planned slot time RFC3339 (default: nearest due slot)"},
			&cli.IntFlag{Name: "minutes", Aliases: []string{"m"}, Required: true, Usage: "Minutes to postpone"},
		),
		Action: func(c *cli.Context) error {
			output, err := ops.Snooze(env, ops.SnoozeInput{
				ItemID:       c.String("id"),
				ItemName:     c.String("name"),
				ScheduleID:   c.String("schedule"),
				ScheduledFor: c.String("at"),
				Minutes:      c.Int("minutes"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// undoCmd creates the undo command.
func undoCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "undo",
		Usage: "Undo the most recent log entry",
		Action: func(c *cli.Context) error {
			output, err := ops.Undo(env, ops.UndoInput{})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// prnCmd creates the prn command.
func prnCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "prn",
		Usage: "Check whether an as-needed dose can be taken now",
		Flags: addressFlags(),
		Action: func(c *cli.Context) error {
			output, err := ops.PRNCheck(env, ops.PRNCheckInput{
				ItemID:   c.String("id"),
				ItemName: c.String("name"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// inventoryCmd creates the inventory command group.
func inventoryCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "inventory",
		Usage: "Track medication stock",
		Subcommands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Set the stock level for a medication",
				Flags: append(addressFlags(),
					&cli.Float64Flag{Name: "units", Required: true, Usage: "Units on hand"},
					&cli.Float64Flag{Name: "low-threshold", Usage: "Warn when stock falls to this level"},
					&cli.StringFlag{Name: "unit-label", Usage: "Stock unit label (default: dose unit)"},
				),
				Action: func(c *cli.Context) error {
					output, err := ops.InventorySet(env, ops.InventorySetInput{
						ItemID:       c.String("id"),
						ItemName:     c.String("name"),
						Units:        c.Float64("units"),
						LowThreshold: c.Float64("low-threshold"),
						UnitLabel:    c.String("unit-label"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "refill",
				Usage: "Add units to tracked stock",
				Flags: append(addressFlags(),
					&cli.Float64Flag{Name: "add", Required: true, Usage: "Units to add"},
				),
				Action: func(c *cli.Context) error {
					output, err := ops.InventoryRefill(env, ops.InventoryRefillInput{
						ItemID:   c.String("id"),
						ItemName: c.String("name"),
						AddUnits: c.Float64("add"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "status",
				Usage: "Show stock levels for all tracked medications",
				Action: func(c *cli.Context) error {
					output, err := ops.InventoryStatus(env, ops.InventoryStatusInput{})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "forecast",
				Usage: "Project when stock runs out",
				Flags: addressFlags(),
				Action: func(c *cli.Context) error {
					output, err := ops.InventoryForecast(env, ops.InventoryForecastInput{
						ItemID:   c.String("id"),
						ItemName: c.String("name"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Adherence statistics over a trailing window",
		Flags: append(addressFlags(),
			&cli.IntFlag{Name: "window", Aliases: []string{"w"}, Usage: "Window in days (default: 30, max: 365)"},
		),
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(env, ops.StatsInput{
				WindowDays: c.Int("window"),
				ItemID:     c.String("id"),
				ItemName:   c.String("name"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// anchorCmd creates the anchor command group.
func anchorCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "anchor",
		Usage: "Manage routine anchor times",
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Set or clear a routine anchor base time",
				ArgsUsage: "<anchor> [HH:mm]",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return outputError(errors.NewInvalidRequest("anchor name is required"))
					}
					output, err := ops.AnchorSet(env, ops.AnchorSetInput{
						Anchor:   c.Args().Get(0),
						BaseTime: c.Args().Get(1),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List routine anchors and their base times",
				Action: func(c *cli.Context) error {
					output, err := ops.AnchorList(env, ops.AnchorListInput{})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// reportCmd creates the report command.
func reportCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Render an adherence and inventory report",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "window", Aliases: []string{"w"}, Usage: "Window in days (default: 30)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: report.FormatMarkdown, Usage: "Output format: markdown|html"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			output, err := report.Generate(env, report.GenerateInput{
				WindowDays: c.Int("window"),
				Format:     c.String("format"),
			})
			if err != nil {
				return outputError(err)
			}

			if path := c.String("out"); path != "" {
				if err := os.WriteFile(path, []byte(output.Content), 0o644); err != nil {
					return outputError(errors.NewInternal(err))
				}
				fmt.Printf("report written to %s\n", path)
				return nil
			}

			fmt.Print(output.Content)
			return nil
		},
	}
}

// Helper functions

// buildScheme assembles a schedule scheme from kind-specific flags.
func buildScheme(c *cli.Context) (sched.Scheme, error) {
	kind := sched.SchemeKind(c.String("kind"))
	switch kind {
	case sched.SchemeDaily:
		return sched.DailyScheme{
			TimesPerDay: c.Int("times-per-day"),
			Times:       splitCSV(c.String("times")),
		}, nil
	case sched.SchemeWeekly:
		days, err := parseWeekdays(c.String("weekdays"))
		if err != nil {
			return nil, err
		}
		return sched.WeeklyScheme{
			Weekdays: days,
			Times:    splitCSV(c.String("times")),
		}, nil
	case sched.SchemeIntervalDays:
		return sched.IntervalDaysScheme{
			IntervalDays: c.Int("every-days"),
			Times:        splitCSV(c.String("times")),
		}, nil
	case sched.SchemeIntervalHours:
		return sched.IntervalHoursScheme{
			IntervalHours: c.Int("every-hours"),
			FirstDose:     c.String("first-dose"),
		}, nil
	case sched.SchemeCourse:
		return sched.CourseScheme{
			TotalDays: c.Int("days"),
			Times:     splitCSV(c.String("times")),
		}, nil
	case sched.SchemePRN:
		return sched.PRNScheme{
			MaxPerDay:        c.Int("max-per-day"),
			MinIntervalHours: c.Float64("min-interval-hours"),
		}, nil
	}
	return nil, fmt.Errorf("unknown scheme kind %q", kind)
}

// splitCSV splits a comma-separated string, trimming blanks.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseWeekdays parses a comma-separated list of weekday numbers (0=Sunday).
func parseWeekdays(s string) ([]time.Weekday, error) {
	parts := splitCSV(s)
	days := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid weekday %q", p)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if medErr, ok := err.(*errors.MedError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", medErr.Code, medErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
