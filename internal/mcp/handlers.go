package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"medtrack/internal/errors"
	"medtrack/internal/med"
	"medtrack/internal/ops"
	"medtrack/internal/report"
	"medtrack/internal/sched"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// MedAddRequest represents the arguments for med_add.
type MedAddRequest struct {
	Name       string  `json:"name"`
	DoseAmount float64 `json:"dose_amount"`
	DoseUnit   string  `json:"dose_unit"`
	Notes      *string `json:"notes,omitempty"`
}

// MedListRequest represents the arguments for med_list.
type MedListRequest struct {
	IncludeDeleted bool `json:"include_deleted,omitempty"`
}

// MedUpdateRequest represents the arguments for med_update.
type MedUpdateRequest struct {
	ItemID     string   `json:"item_id,omitempty"`
	Name       string   `json:"name,omitempty"`
	NewName    *string  `json:"new_name,omitempty"`
	DoseAmount *float64 `json:"dose_amount,omitempty"`
	DoseUnit   *string  `json:"dose_unit,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

// MedDeleteRequest represents the arguments for med_delete.
type MedDeleteRequest struct {
	ItemID string `json:"item_id,omitempty"`
	Name   string `json:"name,omitempty"`
}

// AnchorRef is the anchor override in schedule_set.
type AnchorRef struct {
	Type          string `json:"type"`
	OffsetMinutes int    `json:"offset_minutes,omitempty"`
}

// ScheduleSetRequest represents the arguments for schedule_set.
type ScheduleSetRequest struct {
	ScheduleID   string          `json:"schedule_id,omitempty"`
	ItemID       string          `json:"item_id,omitempty"`
	ItemName     string          `json:"item_name,omitempty"`
	Kind         string          `json:"kind"`
	Scheme       json.RawMessage `json:"scheme,omitempty"`
	Anchor       *AnchorRef      `json:"anchor,omitempty"`
	StartDate    string          `json:"start_date,omitempty"`
	EndDate      *string         `json:"end_date,omitempty"`
	GraceMinutes int             `json:"grace_minutes,omitempty"`
	TimePolicy   string          `json:"time_policy,omitempty"`
}

// ScheduleListRequest represents the arguments for schedule_list.
type ScheduleListRequest struct {
	ItemID   string `json:"item_id,omitempty"`
	ItemName string `json:"item_name,omitempty"`
}

// ScheduleIDRequest represents the arguments for schedule_pause,
// schedule_resume, and schedule_delete.
type ScheduleIDRequest struct {
	ScheduleID string `json:"schedule_id"`
}

// DueRequest represents the arguments for dose_due.
type DueRequest struct {
	Date     string `json:"date,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
	ItemName string `json:"item_name,omitempty"`
}

// TakeRequest represents the arguments for dose_take.
type TakeRequest struct {
	ItemID       string  `json:"item_id,omitempty"`
	ItemName     string  `json:"item_name,omitempty"`
	ScheduleID   string  `json:"schedule_id,omitempty"`
	ScheduledFor string  `json:"scheduled_for,omitempty"`
	Note         *string `json:"note,omitempty"`
}

// SkipRequest represents the arguments for dose_skip.
type SkipRequest struct {
	ItemID       string  `json:"item_id,omitempty"`
	ItemName     string  `json:"item_name,omitempty"`
	ScheduleID   string  `json:"schedule_id,omitempty"`
	ScheduledFor string  `json:"scheduled_for,omitempty"`
	Reason       *string `json:"reason,omitempty"`
}

// SnoozeRequest represents the arguments for dose_snooze.
type SnoozeRequest struct {
	ItemID       string `json:"item_id,omitempty"`
	ItemName     string `json:"item_name,omitempty"`
	ScheduleID   string `json:"schedule_id,omitempty"`
	ScheduledFor string `json:"scheduled_for,omitempty"`
	Minutes      int    `json:"minutes"`
}

// PRNCheckRequest represents the arguments for prn_check.
type PRNCheckRequest struct {
	ItemID   string `json:"item_id,omitempty"`
	ItemName string `json:"item_name,omitempty"`
}

// InventorySetRequest represents the arguments for inventory_set.
type InventorySetRequest struct {
	ItemID       string  `json:"item_id,omitempty"`
	ItemName     string  `json:"item_name,omitempty"`
	Units        float64 `json:"units"`
	LowThreshold float64 `json:"low_threshold,omitempty"`
	UnitLabel    string  `json:"unit_label,omitempty"`
}

// InventoryRefillRequest represents the arguments for inventory_refill.
type InventoryRefillRequest struct {
	ItemID   string  `json:"item_id,omitempty"`
	ItemName string  `json:"item_name,omitempty"`
	AddUnits float64 `json:"add_units"`
}

// InventoryForecastRequest represents the arguments for inventory_forecast.
type InventoryForecastRequest struct {
	ItemID   string `json:"item_id,omitempty"`
	ItemName string `json:"item_name,omitempty"`
}

// StatsRequest represents the arguments for adherence_stats.
type StatsRequest struct {
	WindowDays int    `json:"window_days,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	ItemName   string `json:"item_name,omitempty"`
}

// AnchorSetRequest represents the arguments for anchor_set.
type AnchorSetRequest struct {
	Anchor   string `json:"anchor"`
	BaseTime string `json:"base_time,omitempty"`
}

// ReportRequest represents the arguments for report.
type ReportRequest struct {
	WindowDays int    `json:"window_days,omitempty"`
	Format     string `json:"format,omitempty"`
}

// Handler implementations

// HandleMedAdd handles the med_add tool call.
func (h *Handlers) HandleMedAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MedAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.MedAdd(h.env, ops.MedAddInput{
		Name:       input.Name,
		DoseAmount: input.DoseAmount,
		DoseUnit:   input.DoseUnit,
		Notes:      input.Notes,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleMedList handles the med_list tool call.
func (h *Handlers) HandleMedList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MedListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.MedList(h.env, ops.MedListInput{IncludeDeleted: input.IncludeDeleted})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleMedUpdate handles the med_update tool call.
func (h *Handlers) HandleMedUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MedUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.MedUpdate(h.env, ops.MedUpdateInput{
		ItemID:     input.ItemID,
		Name:       input.Name,
		NewName:    input.NewName,
		DoseAmount: input.DoseAmount,
		DoseUnit:   input.DoseUnit,
		Notes:      input.Notes,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleMedDelete handles the med_delete tool call.
func (h *Handlers) HandleMedDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MedDeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.MedDelete(h.env, ops.MedDeleteInput{ItemID: input.ItemID, Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleScheduleSet handles the schedule_set tool call.
func (h *Handlers) HandleScheduleSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScheduleSetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	schemeJSON := input.Scheme
	if len(schemeJSON) == 0 {
		schemeJSON = json.RawMessage("{}")
	}
	scheme, err := sched.UnmarshalScheme(sched.SchemeKind(input.Kind), schemeJSON)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var anchor *sched.Anchor
	if input.Anchor != nil {
		anchor = &sched.Anchor{
			Type:          med.AnchorType(input.Anchor.Type),
			OffsetMinutes: input.Anchor.OffsetMinutes,
		}
	}

	result, err := ops.ScheduleSet(h.env, ops.ScheduleSetInput{
		ScheduleID:   input.ScheduleID,
		ItemID:       input.ItemID,
		ItemName:     input.ItemName,
		Scheme:       scheme,
		Anchor:       anchor,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		GraceMinutes: input.GraceMinutes,
		TimePolicy:   input.TimePolicy,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleScheduleList handles the schedule_list tool call.
func (h *Handlers) HandleScheduleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScheduleListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ScheduleList(h.env, ops.ScheduleListInput{ItemID: input.ItemID, ItemName: input.ItemName})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSchedulePause handles the schedule_pause tool call.
func (h *Handlers) HandleSchedulePause(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScheduleIDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SchedulePause(h.env, ops.SchedulePauseInput{ScheduleID: input.ScheduleID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleScheduleResume handles the schedule_resume tool call.
func (h *Handlers) HandleScheduleResume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScheduleIDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ScheduleResume(h.env, ops.SchedulePauseInput{ScheduleID: input.ScheduleID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleScheduleDelete handles the schedule_delete tool call.
func (h *Handlers) HandleScheduleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScheduleIDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ScheduleDelete(h.env, ops.ScheduleDeleteInput{ScheduleID: input.ScheduleID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDue handles the dose_due tool call.
func (h *Handlers) HandleDue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DueRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Due(h.env, ops.DueInput{Date: input.Date, ItemID: input.ItemID, ItemName: input.ItemName})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTake handles the dose_take tool call.
func (h *Handlers) HandleTake(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TakeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Take(h.env, ops.TakeInput{
		ItemID:       input.ItemID,
		ItemName:     input.ItemName,
		ScheduleID:   input.ScheduleID,
		ScheduledFor: input.ScheduledFor,
		Note:         input.Note,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSkip handles the dose_skip tool call.
func (h *Handlers) HandleSkip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SkipRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Skip(h.env, ops.SkipInput{
		ItemID:       input.ItemID,
		ItemName:     input.ItemName,
		ScheduleID:   input.ScheduleID,
		ScheduledFor: input.ScheduledFor,
		Reason:       input.Reason,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSnooze handles the dose_snooze tool call.
func (h *Handlers) HandleSnooze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SnoozeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Snooze(h.env, ops.SnoozeInput{
		ItemID:       input.ItemID,
		ItemName:     input.ItemName,
		ScheduleID:   input.ScheduleID,
		ScheduledFor: input.ScheduledFor,
		Minutes:      input.Minutes,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUndo handles the dose_undo tool call.
func (h *Handlers) HandleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Undo(h.env, ops.UndoInput{})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePRNCheck handles the prn_check tool call.
func (h *Handlers) HandlePRNCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PRNCheckRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.PRNCheck(h.env, ops.PRNCheckInput{ItemID: input.ItemID, ItemName: input.ItemName})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInventorySet handles the inventory_set tool call.
func (h *Handlers) HandleInventorySet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InventorySetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.InventorySet(h.env, ops.InventorySetInput{
		ItemID:       input.ItemID,
		ItemName:     input.ItemName,
		Units:        input.Units,
		LowThreshold: input.LowThreshold,
		UnitLabel:    input.UnitLabel,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInventoryRefill handles the inventory_refill tool call.
func (h *Handlers) HandleInventoryRefill(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InventoryRefillRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.InventoryRefill(h.env, ops.InventoryRefillInput{
		ItemID:   input.ItemID,
		ItemName: input.ItemName,
		AddUnits: input.AddUnits,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInventoryStatus handles the inventory_status tool call.
func (h *Handlers) HandleInventoryStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.InventoryStatus(h.env, ops.InventoryStatusInput{})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInventoryForecast handles the inventory_forecast tool call.
func (h *Handlers) HandleInventoryForecast(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InventoryForecastRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.InventoryForecast(h.env, ops.InventoryForecastInput{ItemID: input.ItemID, ItemName: input.ItemName})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStats handles the adherence_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StatsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Stats(h.env, ops.StatsInput{
		WindowDays: input.WindowDays,
		ItemID:     input.ItemID,
		ItemName:   input.ItemName,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAnchorSet handles the anchor_set tool call.
func (h *Handlers) HandleAnchorSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AnchorSetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AnchorSet(h.env, ops.AnchorSetInput{Anchor: input.Anchor, BaseTime: input.BaseTime})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAnchorList handles the anchor_list tool call.
func (h *Handlers) HandleAnchorList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.AnchorList(h.env, ops.AnchorListInput{})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleReport handles the report tool call.
func (h *Handlers) HandleReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := report.Generate(h.env, report.GenerateInput{
		WindowDays: input.WindowDays,
		Format:     input.Format,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if medErr, ok := err.(*errors.MedError); ok && medErr.Code != errors.ErrInternal {
		errorObj := map[string]any{
			"code":    medErr.Code,
			"message": medErr.Message,
			"status":  medErr.Status,
		}
		if medErr.Details != nil {
			errorObj["details"] = medErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
