package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"medtrack/internal/config"
	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/ops"
)

// A Monday morning, pinned so dose classification is deterministic.
var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// testSetup creates a temporary database and an Env with a pinned clock.
func testSetup(t *testing.T) (*ops.Env, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	env := ops.NewEnv(database, config.DefaultConfig())
	env.Clock = func() time.Time { return testNow }
	env.Local = time.UTC

	cleanup := func() {
		database.Close()
	}

	return env, cleanup
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// addTestMed registers a medication through the med_add handler and
// returns its ID.
func addTestMed(t *testing.T, h *Handlers, name string) string {
	t.Helper()

	result, err := h.HandleMedAdd(context.Background(), makeRequest(map[string]any{
		"name":        name,
		"dose_amount": 500.0,
		"dose_unit":   "mg",
	}))
	if err != nil {
		t.Fatalf("med_add handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("med_add failed: %v", extractErrorMessage(result))
	}

	var output struct {
		Medication struct {
			ID string `json:"id"`
		} `json:"medication"`
	}
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal med_add result: %v", err)
	}
	return output.Medication.ID
}

// TestHandleMedAdd tests the med_add handler.
func TestHandleMedAdd(t *testing.T) {
	env, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(env)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name: "add valid medication",
			args: map[string]any{
				"name":        "Metformin",
				"dose_amount": 500.0,
				"dose_unit":   "mg",
			},
			wantError: false,
		},
		{
			name: "add without name",
			args: map[string]any{
				"dose_amount": 500.0,
				"dose_unit":   "mg",
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "add with zero dose",
			args: map[string]any{
				"name":        "Aspirin",
				"dose_amount": 0.0,
				"dose_unit":   "mg",
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "add duplicate name",
			args: map[string]any{
				"name":        "metformin", // case-insensitive match with first test
				"dose_amount": 850.0,
				"dose_unit":   "mg",
			},
			wantError: true,
			errorCode: "NAME_ALREADY_EXISTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleMedAdd(ctx, makeRequest(tt.args))

			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
			} else {
				if result.IsError {
					t.Errorf("expected success, got error: %v", extractErrorMessage(result))
				}
			}
		})
	}
}

// TestHandleScheduleSet tests the schedule_set handler, including scheme
// decoding from raw JSON.
func TestHandleScheduleSet(t *testing.T) {
	env, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(env)
	ctx := context.Background()

	itemID := addTestMed(t, h, "Metformin")

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name: "set daily schedule",
			args: map[string]any{
				"item_id": itemID,
				"kind":    "daily",
				"scheme": map[string]any{
					"times": []any{"08:00", "20:00"},
				},
				"start_date": "2025-03-01",
			},
			wantError: false,
		},
		{
			name: "set prn schedule",
			args: map[string]any{
				"item_id": itemID,
				"kind":    "prn",
				"scheme": map[string]any{
					"max_per_day":        4,
					"min_interval_hours": 4.0,
				},
			},
			wantError: false,
		},
		{
			name: "unknown kind",
			args: map[string]any{
				"item_id": itemID,
				"kind":    "hourly",
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "daily without times",
			args: map[string]any{
				"item_id": itemID,
				"kind":    "daily",
				"scheme":  map[string]any{},
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "anchored prn is rejected",
			args: map[string]any{
				"item_id": itemID,
				"kind":    "prn",
				"scheme": map[string]any{
					"max_per_day": 2,
				},
				"anchor": map[string]any{
					"type": "breakfast",
				},
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "unknown medication",
			args: map[string]any{
				"item_id": "01ARZ3NDEKTSV4RRFFQ69G5FAV",
				"kind":    "daily",
				"scheme": map[string]any{
					"times": []any{"08:00"},
				},
			},
			wantError: true,
			errorCode: "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleScheduleSet(ctx, makeRequest(tt.args))

			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
			} else {
				if result.IsError {
					t.Errorf("expected success, got error: %v", extractErrorMessage(result))
				}
			}
		})
	}
}

// TestHandleTakeAndDue walks a schedule through due listing and a take.
func TestHandleTakeAndDue(t *testing.T) {
	env, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(env)
	ctx := context.Background()

	itemID := addTestMed(t, h, "Lisinopril")

	setResult, err := h.HandleScheduleSet(ctx, makeRequest(map[string]any{
		"item_id": itemID,
		"kind":    "daily",
		"scheme": map[string]any{
			"times": []any{"08:00"},
		},
		"start_date": "2025-03-01",
	}))
	if err != nil {
		t.Fatalf("schedule_set handler returned error: %v", err)
	}
	if setResult.IsError {
		t.Fatalf("schedule_set failed: %v", extractErrorMessage(setResult))
	}

	dueResult, err := h.HandleDue(ctx, makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("dose_due handler returned error: %v", err)
	}
	if dueResult.IsError {
		t.Fatalf("dose_due failed: %v", extractErrorMessage(dueResult))
	}

	var dueOutput struct {
		Total int `json:"total"`
		Doses []struct {
			Status string `json:"status"`
		} `json:"doses"`
	}
	if err := json.Unmarshal([]byte(dueResult.Content[0].(mcp.TextContent).Text), &dueOutput); err != nil {
		t.Fatalf("failed to unmarshal dose_due result: %v", err)
	}
	if dueOutput.Total != 1 {
		t.Fatalf("due total = %d, want 1", dueOutput.Total)
	}
	if dueOutput.Doses[0].Status != "pending" {
		t.Errorf("status = %q, want %q", dueOutput.Doses[0].Status, "pending")
	}

	takeResult, err := h.HandleTake(ctx, makeRequest(map[string]any{
		"item_id": itemID,
	}))
	if err != nil {
		t.Fatalf("dose_take handler returned error: %v", err)
	}
	if takeResult.IsError {
		t.Fatalf("dose_take failed: %v", extractErrorMessage(takeResult))
	}

	var takeOutput struct {
		Status       string `json:"status"`
		DelayMinutes int    `json:"delay_minutes"`
	}
	if err := json.Unmarshal([]byte(takeResult.Content[0].(mcp.TextContent).Text), &takeOutput); err != nil {
		t.Fatalf("failed to unmarshal dose_take result: %v", err)
	}
	if takeOutput.Status != "on_time" {
		t.Errorf("status = %q, want %q", takeOutput.Status, "on_time")
	}
	if takeOutput.DelayMinutes != 60 {
		t.Errorf("delay = %d, want 60", takeOutput.DelayMinutes)
	}

	// Retaking the same slot conflicts.
	retake, err := h.HandleTake(ctx, makeRequest(map[string]any{
		"item_id": itemID,
	}))
	if err != nil {
		t.Fatalf("dose_take handler returned error: %v", err)
	}
	if !retake.IsError {
		t.Fatal("expected conflict on retake, got success")
	}
	assertErrorCode(t, retake, "CONFLICT")
}

// TestHandleSnoozeBounds tests snooze duration validation through the handler.
func TestHandleSnoozeBounds(t *testing.T) {
	env, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(env)
	ctx := context.Background()

	itemID := addTestMed(t, h, "Levothyroxine")

	setResult, _ := h.HandleScheduleSet(ctx, makeRequest(map[string]any{
		"item_id": itemID,
		"kind":    "daily",
		"scheme": map[string]any{
			"times": []any{"08:00"},
		},
		"start_date": "2025-03-01",
	}))
	if setResult.IsError {
		t.Fatalf("schedule_set failed: %v", extractErrorMessage(setResult))
	}

	tests := []struct {
		name      string
		minutes   any
		wantError bool
		errorCode string
	}{
		{name: "below minimum", minutes: 2, wantError: true, errorCode: "INVALID_REQUEST"},
		{name: "above maximum", minutes: 500, wantError: true, errorCode: "INVALID_REQUEST"},
		{name: "within bounds", minutes: 30, wantError: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleSnooze(ctx, makeRequest(map[string]any{
				"item_id": itemID,
				"minutes": tt.minutes,
			}))

			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				assertErrorCode(t, result, tt.errorCode)
			} else if result.IsError {
				t.Errorf("expected success, got error: %v", extractErrorMessage(result))
			}
		})
	}
}

// TestHandlePRNCheck tests the PRN gate through the handlers.
func TestHandlePRNCheck(t *testing.T) {
	env, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(env)
	ctx := context.Background()

	itemID := addTestMed(t, h, "Ibuprofen")

	setResult, _ := h.HandleScheduleSet(ctx, makeRequest(map[string]any{
		"item_id": itemID,
		"kind":    "prn",
		"scheme": map[string]any{
			"max_per_day":        2,
			"min_interval_hours": 6.0,
		},
	}))
	if setResult.IsError {
		t.Fatalf("schedule_set failed: %v", extractErrorMessage(setResult))
	}

	checkResult, err := h.HandlePRNCheck(ctx, makeRequest(map[string]any{
		"item_id": itemID,
	}))
	if err != nil {
		t.Fatalf("prn_check handler returned error: %v", err)
	}
	if checkResult.IsError {
		t.Fatalf("prn_check failed: %v", extractErrorMessage(checkResult))
	}

	var checkOutput struct {
		CanTake    bool `json:"can_take"`
		DosesToday int  `json:"doses_today"`
	}
	if err := json.Unmarshal([]byte(checkResult.Content[0].(mcp.TextContent).Text), &checkOutput); err != nil {
		t.Fatalf("failed to unmarshal prn_check result: %v", err)
	}
	if !checkOutput.CanTake {
		t.Error("expected can_take = true before any doses")
	}

	takeResult, _ := h.HandleTake(ctx, makeRequest(map[string]any{"item_id": itemID}))
	if takeResult.IsError {
		t.Fatalf("dose_take failed: %v", extractErrorMessage(takeResult))
	}

	// Second take inside the interval is rejected with the retry time.
	tooSoon, _ := h.HandleTake(ctx, makeRequest(map[string]any{"item_id": itemID}))
	if !tooSoon.IsError {
		t.Fatal("expected PRN_TOO_SOON, got success")
	}
	assertErrorCode(t, tooSoon, "PRN_TOO_SOON")
}

// TestHandleInventoryAndReport runs inventory and report generation end to end.
func TestHandleInventoryAndReport(t *testing.T) {
	env, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(env)
	ctx := context.Background()

	addResult, err := h.HandleMedAdd(ctx, makeRequest(map[string]any{
		"name":        "Metformin",
		"dose_amount": 1.0,
		"dose_unit":   "tablet",
	}))
	if err != nil {
		t.Fatalf("med_add handler returned error: %v", err)
	}
	if addResult.IsError {
		t.Fatalf("med_add failed: %v", extractErrorMessage(addResult))
	}
	var addOutput struct {
		Medication struct {
			ID string `json:"id"`
		} `json:"medication"`
	}
	if err := json.Unmarshal([]byte(addResult.Content[0].(mcp.TextContent).Text), &addOutput); err != nil {
		t.Fatalf("failed to unmarshal med_add result: %v", err)
	}
	itemID := addOutput.Medication.ID

	setResult, _ := h.HandleScheduleSet(ctx, makeRequest(map[string]any{
		"item_id": itemID,
		"kind":    "daily",
		"scheme": map[string]any{
			"times": []any{"08:00", "20:00"},
		},
		"start_date": "2025-03-01",
	}))
	if setResult.IsError {
		t.Fatalf("schedule_set failed: %v", extractErrorMessage(setResult))
	}

	invResult, err := h.HandleInventorySet(ctx, makeRequest(map[string]any{
		"item_id": itemID,
		"units":   60.0,
	}))
	if err != nil {
		t.Fatalf("inventory_set handler returned error: %v", err)
	}
	if invResult.IsError {
		t.Fatalf("inventory_set failed: %v", extractErrorMessage(invResult))
	}

	forecastResult, err := h.HandleInventoryForecast(ctx, makeRequest(map[string]any{
		"item_id": itemID,
	}))
	if err != nil {
		t.Fatalf("inventory_forecast handler returned error: %v", err)
	}
	if forecastResult.IsError {
		t.Fatalf("inventory_forecast failed: %v", extractErrorMessage(forecastResult))
	}

	var forecastOutput struct {
		DaysSupply int `json:"days_supply"`
	}
	if err := json.Unmarshal([]byte(forecastResult.Content[0].(mcp.TextContent).Text), &forecastOutput); err != nil {
		t.Fatalf("failed to unmarshal forecast result: %v", err)
	}
	if forecastOutput.DaysSupply != 30 {
		t.Errorf("days_supply = %d, want 30", forecastOutput.DaysSupply)
	}

	reportResult, err := h.HandleReport(ctx, makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("report handler returned error: %v", err)
	}
	if reportResult.IsError {
		t.Fatalf("report failed: %v", extractErrorMessage(reportResult))
	}

	var reportOutput struct {
		Format  string `json:"format"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(reportResult.Content[0].(mcp.TextContent).Text), &reportOutput); err != nil {
		t.Fatalf("failed to unmarshal report result: %v", err)
	}
	if reportOutput.Format != "markdown" {
		t.Errorf("format = %q, want %q", reportOutput.Format, "markdown")
	}
	if reportOutput.Content == "" {
		t.Error("report content is empty")
	}

	badFormat, _ := h.HandleReport(ctx, makeRequest(map[string]any{"format": "pdf"}))
	if !badFormat.IsError {
		t.Fatal("expected error for unknown report format")
	}
	assertErrorCode(t, badFormat, "INVALID_REQUEST")
}

// TestHandleUndo tests undoing the most recent log entry.
func TestHandleUndo(t *testing.T) {
	env, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(env)
	ctx := context.Background()

	// Nothing logged yet.
	empty, err := h.HandleUndo(ctx, makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("dose_undo handler returned error: %v", err)
	}
	if !empty.IsError {
		t.Fatal("expected NOT_FOUND on empty log")
	}
	assertErrorCode(t, empty, "NOT_FOUND")

	itemID := addTestMed(t, h, "Aspirin")
	takeResult, _ := h.HandleTake(ctx, makeRequest(map[string]any{"item_id": itemID}))
	if takeResult.IsError {
		t.Fatalf("dose_take failed: %v", extractErrorMessage(takeResult))
	}

	undoResult, err := h.HandleUndo(ctx, makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("dose_undo handler returned error: %v", err)
	}
	if undoResult.IsError {
		t.Fatalf("dose_undo failed: %v", extractErrorMessage(undoResult))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{
			name:    "all valid",
			input:   []string{"med_add", "dose_take"},
			wantLen: 0,
		},
		{
			name:    "one unknown",
			input:   []string{"med_add", "fake_tool"},
			wantLen: 1,
		},
		{
			name:    "all unknown",
			input:   []string{"foo", "bar", "baz"},
			wantLen: 3,
		},
		{
			name:    "empty list",
			input:   []string{},
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools(%v) returned %d unknown, want %d", tt.input, len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()

	if len(names) != 23 {
		t.Errorf("AllToolNames() returned %d names, want 23", len(names))
	}

	unknown := ValidateDisabledTools(names)
	if len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Error("internal error payload should not include details")
	}
	msg, _ := errObj["message"].(string)
	if msg != "an internal error occurred" {
		t.Errorf("message = %q, want generic internal message", msg)
	}
}

// assertErrorCode checks that the error result carries the expected code.
func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	code, ok := errorObj["code"].(string)
	if !ok {
		t.Errorf("no code in error object")
		return
	}

	if code != expectedCode {
		t.Errorf("error code = %q, want %q", code, expectedCode)
	}
}

// extractErrorMessage pulls the raw text out of a result for diagnostics.
func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
