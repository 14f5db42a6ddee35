package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"medtrack/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"med_add": {
		def:     medAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMedAdd },
	},
	"med_list": {
		def:     medListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMedList },
	},
	"med_update": {
		def:     medUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMedUpdate },
	},
	"med_delete": {
		def:     medDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMedDelete },
	},
	"schedule_set": {
		def:     scheduleSetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScheduleSet },
	},
	"schedule_list": {
		def:     scheduleListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScheduleList },
	},
	"schedule_pause": {
		def:     schedulePauseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSchedulePause },
	},
	"schedule_resume": {
		def:     scheduleResumeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScheduleResume },
	},
	"schedule_delete": {
		def:     scheduleDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScheduleDelete },
	},
	"dose_due": {
		def:     doseDueToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDue },
	},
	"dose_take": {
		def:     doseTakeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTake },
	},
	"dose_skip": {
		def:     doseSkipToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSkip },
	},
	"dose_snooze": {
		def:     doseSnoozeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSnooze },
	},
	"dose_undo": {
		def:     doseUndoToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUndo },
	},
	"prn_check": {
		def:     prnCheckToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePRNCheck },
	},
	"inventory_set": {
		def:     inventorySetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInventorySet },
	},
	"inventory_refill": {
		def:     inventoryRefillToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInventoryRefill },
	},
	"inventory_status": {
		def:     inventoryStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInventoryStatus },
	},
	"inventory_forecast": {
		def:     inventoryForecastToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInventoryForecast },
	},
	"adherence_stats": {
		def:     adherenceStatsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
	},
	"anchor_set": {
		def:     anchorSetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnchorSet },
	},
	"anchor_list": {
		def:     anchorListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnchorList },
	},
	"report": {
		def:     reportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with medtrack tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(env *ops.Env, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"medtrack",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(env)

	disabled := make(map[string]bool)
	if env.Cfg != nil {
		for _, name := range env.Cfg.DisabledTools {
			disabled[name] = true
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(env *ops.Env, version string) error {
	s := NewServer(env, version)
	return server.ServeStdio(s)
}
