package services

import "errors"

// Standard service errors for consistent classification
var (
	// Validation errors, rejected synchronously before any request is issued
	ErrEmptySelection = errors.New("no messages selected")
	ErrInvalidAction  = errors.New("invalid action")
	ErrLabelRequired  = errors.New("label identifier required")
	ErrMalformedTime  = errors.New("malformed date or time")
	ErrSnoozeInPast   = errors.New("snooze time must be in the future")
	ErrUnknownPreset  = errors.New("unknown snooze preset")

	// Sequencing errors
	ErrActionInFlight = errors.New("action already in flight")
	ErrQueueComplete  = errors.New("triage queue already complete")

	// Store errors
	ErrStoreUnavailable = errors.New("message store unavailable")
	ErrMessageNotFound  = errors.New("message not found")
	ErrLabelNotFound    = errors.New("label not found")
)

// IsValidationError reports whether the error was rejected before any
// mutation request was issued; no state changed and nothing needs rollback
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptySelection) ||
		errors.Is(err, ErrInvalidAction) ||
		errors.Is(err, ErrLabelRequired) ||
		errors.Is(err, ErrMalformedTime) ||
		errors.Is(err, ErrSnoozeInPast) ||
		errors.Is(err, ErrUnknownPreset)
}
