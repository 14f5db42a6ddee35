package errors

import "fmt"

// ErrorCode represents a Medtrack error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"           // 404
	ErrNameAlreadyExists ErrorCode = "NAME_ALREADY_EXISTS" // 409
	ErrConflict          ErrorCode = "CONFLICT"            // 409
	ErrPRNLimitReached   ErrorCode = "PRN_LIMIT_REACHED"   // 422
	ErrPRNTooSoon        ErrorCode = "PRN_TOO_SOON"        // 422
	ErrDoseCollision     ErrorCode = "DOSE_COLLISION"      // 409
	ErrInternal          ErrorCode = "INTERNAL"            // 500
)

// MedError represents a structured error with code, status, and details.
type MedError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *MedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *MedError {
	return &MedError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing medication, schedule, or log entry.
func NewNotFound(kind, identifier string) *MedError {
	return &MedError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewNameAlreadyExists creates a 409 error for medication name collisions.
func NewNameAlreadyExists(name string) *MedError {
	return &MedError{
		Code:    ErrNameAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("medication named %q already exists", name),
		Details: map[string]any{"name": name},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *MedError {
	return &MedError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewPRNLimitReached creates a 422 error when today's PRN cap is exhausted.
func NewPRNLimitReached(maxPerDay, dosesToday int) *MedError {
	return &MedError{
		Code:    ErrPRNLimitReached,
		Status:  422,
		Message: fmt.Sprintf("daily limit reached: %d of %d doses already taken today", dosesToday, maxPerDay),
		Details: map[string]any{"max_per_day": maxPerDay, "doses_today": dosesToday},
	}
}

// NewPRNTooSoon creates a 422 error when the minimum PRN spacing has not elapsed.
// nextAvailable is an RFC3339 timestamp the caller can surface directly.
func NewPRNTooSoon(minIntervalHours float64, nextAvailable string) *MedError {
	return &MedError{
		Code:    ErrPRNTooSoon,
		Status:  422,
		Message: fmt.Sprintf("minimum interval of %.3g hours between doses has not elapsed", minIntervalHours),
		Details: map[string]any{"min_interval_hours": minIntervalHours, "next_available": nextAvailable},
	}
}

// NewDoseCollision creates a 409 error when a proposed time lands too close
// to another due dose.
func NewDoseCollision(itemName string, windowMinutes int) *MedError {
	return &MedError{
		Code:    ErrDoseCollision,
		Status:  409,
		Message: fmt.Sprintf("proposed time is within %d minutes of a dose of %s", windowMinutes, itemName),
		Details: map[string]any{"window_minutes": windowMinutes, "colliding_item": itemName},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *MedError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &MedError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a MedError with the given code.
func Is(err error, code ErrorCode) bool {
	if mErr, ok := err.(*MedError); ok {
		return mErr.Code == code
	}
	return false
}
