package engine

import "errors"

// Engine failures are typed rejections of a precondition, never fatal
// faults. Validation happens before any mutation, so a rejected action
// leaves the engine untouched. Error messages are safe to show to the
// acting participant.
var (
	// ErrPlayerNotFound is returned when an action is attributed to an
	// id that is not in the room.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrNotYourTurn is returned when an action requires turn ownership
	// the caller lacks.
	ErrNotYourTurn = errors.New("not your turn")

	// ErrInvalidPhase is returned when an action is not valid in the
	// current phase or turn state, e.g. rolling twice or selecting a
	// character mid-race.
	ErrInvalidPhase = errors.New("action not valid in current state")

	// ErrCharacterUnavailable is returned when the requested character
	// is already claimed, not in the roster, or the caller already
	// holds one.
	ErrCharacterUnavailable = errors.New("character unavailable")
)
