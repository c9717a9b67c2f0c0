package decision

import "errors"

var (
	// ErrValidation marks a malformed or out-of-range feature snapshot.
	// The caller must re-collect; nothing is scored or persisted.
	ErrValidation = errors.New("snapshot validation failed")

	// ErrModelUnavailable is returned when the ML component is required by
	// configuration but no model signal was supplied.
	ErrModelUnavailable = errors.New("model signal required but unavailable")

	// ErrContradiction marks an action/direction pair that violates the
	// sign-agreement contract. It indicates a bug, not a runtime condition.
	ErrContradiction = errors.New("action and direction disagree")
)
