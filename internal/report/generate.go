package report

import (
	"time"

	"medtrack/internal/errors"
	"medtrack/internal/ops"
)

// Report formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// GenerateInput contains parameters for the Generate operation.
type GenerateInput struct {
	WindowDays int    // default: 30
	Format     string // "markdown" (default) or "html"
}

// GenerateOutput contains the result of the Generate operation.
type GenerateOutput struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

// Generate assembles today's due list, the adherence window, and the
// inventory picture into one rendered report.
func Generate(env *ops.Env, input GenerateInput) (*GenerateOutput, error) {
	format := input.Format
	if format == "" {
		format = FormatMarkdown
	}
	if format != FormatMarkdown && format != FormatHTML {
		return nil, errors.NewInvalidRequest(`format must be one of: markdown, html`)
	}

	stats, err := ops.Stats(env, ops.StatsInput{WindowDays: input.WindowDays})
	if err != nil {
		return nil, err
	}
	due, err := ops.Due(env, ops.DueInput{})
	if err != nil {
		return nil, err
	}
	inventory, err := ops.InventoryStatus(env, ops.InventoryStatusInput{})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if env.Clock != nil {
		now = env.Clock()
	}
	md := Build(Data{
		GeneratedAt: now,
		Stats:       stats,
		Due:         due,
		Inventory:   inventory,
	})

	if format == FormatHTML {
		html, err := RenderHTML(md)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		return &GenerateOutput{Format: FormatHTML, Content: html}, nil
	}
	return &GenerateOutput{Format: FormatMarkdown, Content: md}, nil
}
