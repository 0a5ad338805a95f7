package models

import "errors"

// Error kinds surfaced by the progress core. Handlers match these with
// errors.Is to pick HTTP statuses.
var (
	// ErrValidation marks malformed input. Nothing is persisted.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownQuestion marks a question_id missing from the catalog.
	ErrUnknownQuestion = errors.New("question not found")

	// ErrNoActiveSession marks a session call outside the Active state.
	ErrNoActiveSession = errors.New("no active session")

	// ErrConflict marks a write race on an aggregate row that survived the
	// internal retries.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrStorage marks an unavailable or failing persistence layer.
	ErrStorage = errors.New("storage failure")
)
