package publishing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStateTransition is returned when an action is not legal from the current state.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrSnapshotNotInRoot is returned when the event targets a snapshot the root does not own.
	ErrSnapshotNotInRoot = errors.New("snapshot does not belong to root")
	// ErrInvariantViolated is returned when a transition would leave the root inconsistent.
	ErrInvariantViolated = errors.New("publishing invariant violated")
)

// TransitionError describes a rejected transition.
type TransitionError struct {
	SnapshotID string
	Current    Status
	Requested  Action
	Language   string
	Reason     string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s snapshot %s in status %s", e.Requested, e.SnapshotID, e.Current)
	if e.Language != "" {
		msg += fmt.Sprintf(" (language %s)", e.Language)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}
