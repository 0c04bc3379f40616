package model

import "errors"

// Error kinds returned by the lifecycle engine. Callers match them with
// errors.Is; the wrapped message carries the detail.
var (
	ErrValidation        = errors.New("validation error")
	ErrUnknownService    = errors.New("unknown service")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrOutOfHours        = errors.New("outside operating hours")
	ErrSlotConflict      = errors.New("slot conflict")
	ErrMissingNextSlot   = errors.New("missing next slot")
	ErrAlreadyRated      = errors.New("already rated")
	ErrNotFound          = errors.New("not found")
)
