package ops

import (
	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/med"
	"medtrack/internal/sched"
)

// InventoryView is the JSON shape of a stock record.
type InventoryView struct {
	ItemID         string  `json:"item_id"`
	ItemName       string  `json:"item_name"`
	RemainingUnits float64 `json:"remaining_units"`
	LowThreshold   float64 `json:"low_threshold"`
	UnitLabel      string  `json:"unit_label"`
	Urgency        string  `json:"urgency"`
}

func inventoryView(inv *med.InventoryRecord, name string) InventoryView {
	return InventoryView{
		ItemID:         inv.ItemID,
		ItemName:       name,
		RemainingUnits: inv.RemainingUnits,
		LowThreshold:   inv.LowThreshold,
		UnitLabel:      inv.UnitLabel,
		Urgency:        string(sched.StockUrgency(*inv)),
	}
}

// InventorySetInput contains parameters for the InventorySet operation.
type InventorySetInput struct {
	ItemID       string
	ItemName     string
	Units        float64
	LowThreshold float64
	UnitLabel    string
}

// InventorySetOutput contains the result of the InventorySet operation.
type InventorySetOutput struct {
	Inventory InventoryView `json:"inventory"`
}

// InventorySet creates or replaces the stock record for a medication.
func InventorySet(env *Env, input InventorySetInput) (*InventorySetOutput, error) {
	if input.Units < 0 {
		return nil, errors.NewInvalidRequest("units must not be negative")
	}
	if input.LowThreshold < 0 {
		return nil, errors.NewInvalidRequest("low_threshold must not be negative")
	}

	m, err := resolveMedication(env, input.ItemID, input.ItemName)
	if err != nil {
		return nil, err
	}

	label := input.UnitLabel
	if label == "" {
		label = m.DoseUnit
	}
	inv := &med.InventoryRecord{
		ItemID:         m.ID,
		RemainingUnits: input.Units,
		LowThreshold:   input.LowThreshold,
		UnitLabel:      label,
		UpdatedAt:      env.now().Unix(),
	}
	if err := db.UpsertInventory(env.DB, inv); err != nil {
		return nil, err
	}
	return &InventorySetOutput{Inventory: inventoryView(inv, m.NameRaw)}, nil
}

// InventoryRefillInput contains parameters for the InventoryRefill operation.
type InventoryRefillInput struct {
	ItemID   string
	ItemName string
	AddUnits float64
}

// InventoryRefillOutput contains the result of the InventoryRefill operation.
type InventoryRefillOutput struct {
	Inventory InventoryView `json:"inventory"`
	Added     float64       `json:"added"`
}

// InventoryRefill adds stock to an existing record.
func InventoryRefill(env *Env, input InventoryRefillInput) (*InventoryRefillOutput, error) {
	if input.AddUnits <= 0 {
		return nil, errors.NewInvalidRequest("add_units must be positive")
	}

	m, err := resolveMedication(env, input.ItemID, input.ItemName)
	if err != nil {
		return nil, err
	}
	inv, err := db.GetInventory(env.DB, m.ID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, errors.NewNotFound("inventory", m.NameRaw)
	}

	if err := db.AdjustInventory(env.DB, m.ID, input.AddUnits, env.now().Unix()); err != nil {
		return nil, err
	}
	inv.RemainingUnits += input.AddUnits

	return &InventoryRefillOutput{
		Inventory: inventoryView(inv, m.NameRaw),
		Added:     input.AddUnits,
	}, nil
}

// InventoryStatusInput contains parameters for the InventoryStatus operation.
type InventoryStatusInput struct{}

// InventoryStatusOutput contains the result of the InventoryStatus operation.
type InventoryStatusOutput struct {
	Items []InventoryView `json:"items"`
	Total int             `json:"total"`
}

// InventoryStatus lists every tracked stock record with its urgency grade.
func InventoryStatus(env *Env, input InventoryStatusInput) (*InventoryStatusOutput, error) {
	records, err := db.ListInventory(env.DB)
	if err != nil {
		return nil, err
	}

	views := make([]InventoryView, 0, len(records))
	for i := range records {
		name := records[i].ItemID
		if m, err := db.GetMedicationByID(env.DB, records[i].ItemID, true); err == nil {
			name = m.NameRaw
		}
		views = append(views, inventoryView(&records[i], name))
	}
	return &InventoryStatusOutput{Items: views, Total: len(views)}, nil
}

// InventoryForecastInput contains parameters for the InventoryForecast
// operation.
type InventoryForecastInput struct {
	ItemID   string
	ItemName string
}

// InventoryForecastOutput contains the result of the InventoryForecast
// operation.
type InventoryForecastOutput struct {
	Inventory        InventoryView `json:"inventory"`
	DailyConsumption float64       `json:"daily_consumption"`
	DaysSupply       int           `json:"days_supply"`
	DepletionDate    *string       `json:"depletion_date,omitempty"`
	Approximate      bool          `json:"approximate"`
}

// InventoryForecast projects when a medication's stock runs out. The daily
// rate sums every active schedule's consumption; as-needed schedules
// contribute a heuristic rate and flag the whole projection approximate.
func InventoryForecast(env *Env, input InventoryForecastInput) (*InventoryForecastOutput, error) {
	m, err := resolveMedication(env, input.ItemID, input.ItemName)
	if err != nil {
		return nil, err
	}
	inv, err := db.GetInventory(env.DB, m.ID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, errors.NewNotFound("inventory", m.NameRaw)
	}

	schedules, err := db.ListSchedules(env.DB, m.ID)
	if err != nil {
		return nil, err
	}

	rate := 0.0
	approximate := false
	for i := range schedules {
		if schedules[i].Paused {
			continue
		}
		r, approx := sched.DailyConsumption(schedules[i].Scheme, m.DoseAmount)
		rate += r
		approximate = approximate || (approx && r > 0)
	}

	out := &InventoryForecastOutput{
		Inventory:        inventoryView(inv, m.NameRaw),
		DailyConsumption: rate,
		Approximate:      approximate,
	}
	if rate > 0 && inv.RemainingUnits > 0 {
		out.DaysSupply = int(inv.RemainingUnits / rate)
		depletion := sched.Midnight(env.now(), env.local()).AddDate(0, 0, out.DaysSupply)
		formatted := depletion.Format(sched.DateLayout)
		out.DepletionDate = &formatted
	}
	return out, nil
}
