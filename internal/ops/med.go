package ops

import (
	"fmt"

	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/med"
)

// MedicationView is the JSON shape of a medication across all med outputs.
type MedicationView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DoseAmount      float64 `json:"dose_amount"`
	DoseUnit        string  `json:"dose_unit"`
	Notes           *string `json:"notes,omitempty"`
	ActiveSchedules int     `json:"active_schedules"`
	CreatedAt       int64   `json:"created_at"`
	UpdatedAt       int64   `json:"updated_at"`
}

func medView(m *med.Medication, activeSchedules int) MedicationView {
	return MedicationView{
		ID:              m.ID,
		Name:            m.NameRaw,
		DoseAmount:      m.DoseAmount,
		DoseUnit:        m.DoseUnit,
		Notes:           m.Notes,
		ActiveSchedules: activeSchedules,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// MedAddInput contains parameters for the MedAdd operation.
type MedAddInput struct {
	Name       string
	DoseAmount float64
	DoseUnit   string
	Notes      *string
}

// MedAddOutput contains the result of the MedAdd operation.
type MedAddOutput struct {
	Medication MedicationView `json:"medication"`
}

// MedAdd registers a new medication. Names are unique among active
// medications after normalization.
func MedAdd(env *Env, input MedAddInput) (*MedAddOutput, error) {
	nameNorm := med.Normalize(input.Name)
	if nameNorm == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	if input.DoseAmount <= 0 {
		return nil, errors.NewInvalidRequest("dose_amount must be positive")
	}
	if input.DoseUnit == "" {
		return nil, errors.NewInvalidRequest("dose_unit is required")
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	now := env.now().Unix()
	m := &med.Medication{
		ID:         id,
		NameRaw:    input.Name,
		NameNorm:   nameNorm,
		DoseAmount: input.DoseAmount,
		DoseUnit:   input.DoseUnit,
		Notes:      cleanOptionalString(input.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := db.InsertMedication(env.DB, m); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewNameAlreadyExists(input.Name)
		}
		return nil, err
	}

	return &MedAddOutput{Medication: medView(m, 0)}, nil
}

// MedListInput contains parameters for the MedList operation.
type MedListInput struct {
	IncludeDeleted bool
}

// MedListOutput contains the result of the MedList operation.
type MedListOutput struct {
	Medications []MedicationView `json:"medications"`
	Total       int              `json:"total"`
}

// MedList returns all medications ordered by name.
func MedList(env *Env, input MedListInput) (*MedListOutput, error) {
	items, err := db.ListMedications(env.DB, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}

	views := make([]MedicationView, 0, len(items))
	for i := range items {
		count, err := db.CountActiveSchedules(env.DB, items[i].ID)
		if err != nil {
			return nil, err
		}
		views = append(views, medView(&items[i], count))
	}

	return &MedListOutput{Medications: views, Total: len(views)}, nil
}

// MedUpdateInput contains parameters for the MedUpdate operation. Nil fields
// are left unchanged.
type MedUpdateInput struct {
	ItemID     string
	Name       string // current name, for name-mode addressing
	NewName    *string
	DoseAmount *float64
	DoseUnit   *string
	Notes      *string
}

// MedUpdateOutput contains the result of the MedUpdate operation.
type MedUpdateOutput struct {
	Medication MedicationView `json:"medication"`
}

// MedUpdate changes a medication's name, dose, or notes.
func MedUpdate(env *Env, input MedUpdateInput) (*MedUpdateOutput, error) {
	m, err := resolveMedication(env, input.ItemID, input.Name)
	if err != nil {
		return nil, err
	}

	if input.NewName != nil {
		nameNorm := med.Normalize(*input.NewName)
		if nameNorm == "" {
			return nil, errors.NewInvalidRequest("new name must not be empty")
		}
		m.NameRaw = *input.NewName
		m.NameNorm = nameNorm
	}
	if input.DoseAmount != nil {
		if *input.DoseAmount <= 0 {
			return nil, errors.NewInvalidRequest("dose_amount must be positive")
		}
		m.DoseAmount = *input.DoseAmount
	}
	if input.DoseUnit != nil {
		if *input.DoseUnit == "" {
			return nil, errors.NewInvalidRequest("dose_unit must not be empty")
		}
		m.DoseUnit = *input.DoseUnit
	}
	if input.Notes != nil {
		m.Notes = cleanOptionalString(input.Notes)
	}
	m.UpdatedAt = env.now().Unix()

	if err := db.UpdateMedication(env.DB, m); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewNameAlreadyExists(m.NameRaw)
		}
		return nil, err
	}

	count, err := db.CountActiveSchedules(env.DB, m.ID)
	if err != nil {
		return nil, err
	}
	return &MedUpdateOutput{Medication: medView(m, count)}, nil
}

// MedDeleteInput contains parameters for the MedDelete operation.
type MedDeleteInput struct {
	ItemID string
	Name   string
}

// MedDeleteOutput contains the result of the MedDelete operation.
type MedDeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// MedDelete soft-deletes a medication. Deletion is refused while the
// medication still has active schedules, so schedule history cannot be
// orphaned by accident.
func MedDelete(env *Env, input MedDeleteInput) (*MedDeleteOutput, error) {
	m, err := resolveMedication(env, input.ItemID, input.Name)
	if err != nil {
		return nil, err
	}

	count, err := db.CountActiveSchedules(env.DB, m.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.NewConflict(
			fmt.Sprintf("medication has %d active schedule(s); delete them first", count))
	}

	if err := db.SoftDeleteMedication(env.DB, m.ID, env.now().Unix()); err != nil {
		return nil, err
	}

	return &MedDeleteOutput{Deleted: true, ID: m.ID}, nil
}
