// Package session defines the persisted Turn State record threaded
// through every conversational turn, its closed phase and route
// enumerations, and the validating merge that protects monotonic fields
// from regression.
package session

import "errors"

// Sentinel errors for state operations.
var (
	ErrInvalidPhase    = errors.New("invalid workflow phase")
	ErrInvalidRoute    = errors.New("invalid route")
	ErrFieldRegression = errors.New("monotonic field regression")
	ErrJobIDCleared    = errors.New("job_id cannot be cleared once set")
	ErrMaterialCleared = errors.New("gathered material cannot be cleared once set")
)
