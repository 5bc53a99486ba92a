package state

import "errors"

var (
	// ErrInvalidValue covers registry misuse: duplicate ids, cyclic group
	// membership, out-of-range seek targets.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidTransition is returned when a playback command is not legal
	// from the track's current state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNotFound is returned when an id resolves to no registered entity.
	ErrNotFound = errors.New("entity not found")
)
