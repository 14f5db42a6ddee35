// Package report renders the adherence picture as a human-readable
// document: markdown for terminals and chat surfaces, or that same
// markdown converted to a standalone HTML page.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"medtrack/internal/ops"
)

// markdown is the converter for report output. Tables need the GFM table
// extension; core goldmark leaves them as paragraphs.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Data carries everything one report covers.
type Data struct {
	GeneratedAt time.Time
	Stats       *ops.StatsOutput
	Due         *ops.DueOutput
	Inventory   *ops.InventoryStatusOutput
}

// Build renders the report as markdown.
func Build(d Data) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Medication Report\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", d.GeneratedAt.Format("2006-01-02 15:04"))

	if d.Stats != nil {
		writeStats(&b, d.Stats)
	}
	if d.Due != nil {
		writeDue(&b, d.Due)
	}
	if d.Inventory != nil {
		writeInventory(&b, d.Inventory)
	}
	return b.String()
}

func writeStats(b *strings.Builder, stats *ops.StatsOutput) {
	fmt.Fprintf(b, "## Adherence (last %d days)\n\n", stats.WindowDays)

	if stats.Total == 0 {
		fmt.Fprintf(b, "No doses logged in this window.\n\n")
		return
	}

	fmt.Fprintf(b, "- Taken: **%d%%** (%d of %d doses)\n", stats.TakenRate, stats.Taken, stats.Total)
	fmt.Fprintf(b, "- On time: **%d%%**\n", stats.OnTimeRate)
	fmt.Fprintf(b, "- Late: %d%%\n", stats.LateRate)
	fmt.Fprintf(b, "- Current streak: %d day(s), best: %d day(s)\n\n", stats.CurrentStreak, stats.BestStreak)

	if len(stats.PerMedication) > 0 {
		fmt.Fprintf(b, "| Medication | Doses | Taken | On time |\n")
		fmt.Fprintf(b, "|---|---|---|---|\n")
		for _, item := range stats.PerMedication {
			name := stats.ItemNames[item.ItemID]
			if name == "" {
				name = item.ItemID
			}
			fmt.Fprintf(b, "| %s | %d | %d%% | %d%% |\n", name, item.Total, item.TakenRate, item.OnTimeRate)
		}
		fmt.Fprintf(b, "\n")
	}

	if len(stats.ProblemTimes) > 0 {
		fmt.Fprintf(b, "### Problem times\n\n")
		for _, pt := range stats.ProblemTimes {
			fmt.Fprintf(b, "- %s %02d:00 — %d missed, %d late\n", pt.Weekday, pt.Hour, pt.Missed, pt.Late)
		}
		fmt.Fprintf(b, "\n")
	}
}

func writeDue(b *strings.Builder, due *ops.DueOutput) {
	fmt.Fprintf(b, "## Doses for %s\n\n", due.Date)

	if due.Total == 0 {
		fmt.Fprintf(b, "Nothing scheduled.\n\n")
		return
	}

	for _, dose := range due.Doses {
		line := fmt.Sprintf("- %s **%s** (%g %s) — %s",
			dose.TimeLabel, dose.ItemName, dose.DoseAmount, dose.DoseUnit, dose.Status)
		if dose.SnoozeUntil != nil {
			line += fmt.Sprintf(" until %s", *dose.SnoozeUntil)
		}
		fmt.Fprintf(b, "%s\n", line)
	}
	fmt.Fprintf(b, "\n")
}

func writeInventory(b *strings.Builder, inv *ops.InventoryStatusOutput) {
	if inv.Total == 0 {
		return
	}
	fmt.Fprintf(b, "## Inventory\n\n")
	for _, item := range inv.Items {
		fmt.Fprintf(b, "- %s: %g %s remaining", item.ItemName, item.RemainingUnits, item.UnitLabel)
		if item.Urgency != "ok" {
			fmt.Fprintf(b, " (%s)", item.Urgency)
		}
		fmt.Fprintf(b, "\n")
	}
	fmt.Fprintf(b, "\n")
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Medication Report</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// RenderHTML converts the report markdown into a standalone HTML page.
func RenderHTML(md string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		return "", err
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct{ Body template.HTML }{
		Body: template.HTML(body.String()),
	})
	if err != nil {
		return "", err
	}
	return page.String(), nil
}
